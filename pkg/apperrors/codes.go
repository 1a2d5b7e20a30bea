package apperrors

// ErrorCode - тип для кодов ошибок
type ErrorCode string

// Общие, не-доменные коды ошибок
const (
	// Системные ошибки
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Общие ошибки запроса
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeRateLimited      ErrorCode = "RATE_LIMITED"

	// Аутентификация (сквозные)
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
)

// Доменные коды DreamWeaver
const (
	// Аккаунты
	CodeDuplicateAccount ErrorCode = "DUPLICATE_ACCOUNT"
	CodeUserNotFound     ErrorCode = "USER_NOT_FOUND"
	CodeWeakPassword     ErrorCode = "WEAK_PASSWORD"

	// Тарифы
	CodeQuotaExceeded   ErrorCode = "QUOTA_EXCEEDED"
	CodeUpgradeRequired ErrorCode = "UPGRADE_REQUIRED"

	// Журнал
	CodeDreamNotFound      ErrorCode = "DREAM_NOT_FOUND"
	CodeNotEnoughDreams    ErrorCode = "NOT_ENOUGH_DREAMS"
	CodeInvalidAspectRatio ErrorCode = "INVALID_ASPECT_RATIO"

	// Оракул (Gemini)
	CodeAnalysisFailed      ErrorCode = "ANALYSIS_FAILED"
	CodeConversationFailed  ErrorCode = "CONVERSATION_FAILED"
	CodeArtGenerationFailed ErrorCode = "ART_GENERATION_FAILED"
	CodeReportFailed        ErrorCode = "REPORT_FAILED"
	CodeTrendsFailed        ErrorCode = "TRENDS_FAILED"
	CodeInsightsQueryFailed ErrorCode = "INSIGHTS_QUERY_FAILED"
	CodeVoiceSessionFailed  ErrorCode = "VOICE_SESSION_FAILED"

	// Оплата
	CodeCheckoutFailed ErrorCode = "CHECKOUT_FAILED"
)
