package contextkeys

// Используем кастомный тип, чтобы избежать коллизий
type contextKey string

const (
	// RequestIDKey - идентификатор запроса, выставляется RequestIDMiddleware
	RequestIDKey = contextKey("request_id")
	// UserIDKey - id аутентифицированного пользователя (нормализованный email)
	UserIDKey = contextKey("user_id")
)
