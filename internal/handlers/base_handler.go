package handlers

import (
	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/validator"
	"dreamweaver_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// ============================================================================
// 1. Базовая структура обработчика
// ============================================================================

type BaseHandler struct {
	validator *validator.Validator
}

func NewBaseHandler(v *validator.Validator) *BaseHandler {
	return &BaseHandler{
		validator: v,
	}
}

// RouteGroups - группы маршрутов /api/v1 с разным набором middleware
type RouteGroups struct {
	Public    *gin.RouterGroup
	Protected *gin.RouterGroup // токен + живая сессия
	AI        *gin.RouterGroup // Protected + лимит запросов к модели
}

// ============================================================================
// 2. Привязка и валидация (с контекстным логгированием)
// ============================================================================

func (h *BaseHandler) BindAndValidate_JSON(c *gin.Context, obj interface{}) bool {
	ctx := c.Request.Context()

	if err := c.ShouldBindJSON(obj); err != nil {
		logger.CtxWithError(ctx, "Failed to bind JSON body", err, "path", c.Request.URL.Path)
		apperrors.HandleValidationError(c, err)
		return false
	}

	if err := h.validator.Validate(obj); err != nil {
		if vErr, ok := err.(*validator.ValidationError); ok {
			logger.CtxWarn(ctx, "Validation failed", "errors", vErr.Errors, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.ValidationError(vErr.Errors))
		} else {
			logger.CtxWithError(ctx, "Internal validator error", err, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.InternalError(err))
		}
		return false
	}
	return true
}

// ============================================================================
// 3. Обработчики ошибок
// ============================================================================

func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		logger.CtxWarn(ctx, "Service error",
			"code", string(appErr.Code),
			"error", appErr.Message,
			"details", appErr.Details,
			"path", c.Request.URL.Path,
		)
		apperrors.HandleError(c, appErr)
	} else {
		logger.CtxWithError(ctx, "Internal server error", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.InternalError(err))
	}
}

// ============================================================================
// 4. Вспомогательные функции
// ============================================================================

func (h *BaseHandler) GetAndAuthorizeUserID(c *gin.Context) (string, bool) {
	ctx := c.Request.Context()

	userIDVal, exists := c.Get("userID")
	if !exists {
		logger.CtxWarn(ctx, "Unauthorized access: userID not found in context",
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
		)
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
		return "", false
	}

	userIDStr, ok := userIDVal.(string)
	if !ok || userIDStr == "" {
		logger.CtxWarn(ctx, "Unauthorized access: invalid userID in context",
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
		)
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("Invalid user ID in context"))
		return "", false
	}

	return userIDStr, true
}

// SessionUser - пользователь из сессии, положенный AuthMiddleware
func (h *BaseHandler) SessionUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get("user")
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}
