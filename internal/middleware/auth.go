package middleware

import (
	"context"
	"strings"

	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// SessionValidator - проверка токена и живой сессии (AuthService)
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware - middleware проверки Bearer токена
func AuthMiddleware(validator SessionValidator) gin.HandlerFunc {
	return authenticate(validator, false)
}

// WebSocketAuthMiddleware дополнительно принимает ?token=: браузер не ставит заголовки при upgrade
func WebSocketAuthMiddleware(validator SessionValidator) gin.HandlerFunc {
	return authenticate(validator, true)
}

func authenticate(validator SessionValidator, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" && allowQuery {
			token = c.Query("token")
		}
		if token == "" {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			return
		}

		user, err := validator.ValidateSession(c.Request.Context(), token)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		// Сохраняем пользователя в контекст
		c.Set("userID", user.ID)
		c.Set("user", *user)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), user.ID))
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) string {
	userID, exists := c.Get("userID")
	if !exists {
		return ""
	}

	id, ok := userID.(string)
	if !ok {
		return ""
	}

	return id
}
