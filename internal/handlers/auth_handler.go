package handlers

import (
	"net/http"

	"dreamweaver_backend/internal/services"
	"dreamweaver_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	*BaseHandler
	authService services.AuthService
}

func NewAuthHandler(base *BaseHandler, authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		authService: authService,
	}
}

func (h *AuthHandler) RegisterRoutes(g RouteGroups) {
	auth := g.Public.Group("/auth")
	{
		auth.POST("/signup", h.SignUp)
		auth.POST("/login", h.LogIn)
	}

	session := g.Protected.Group("/auth")
	{
		session.POST("/logout", h.LogOut)
		session.GET("/me", h.Me)
		session.POST("/trial", h.StartFreeTrial)
	}
}

// SignUp - регистрация, сразу открывает сессию
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req dto.SignUpRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.authService.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) LogIn(c *gin.Context) {
	var req dto.LogInRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.authService.LogIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) LogOut(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.authService.LogOut(c.Request.Context(), userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Me возвращает текущего пользователя
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) StartFreeTrial(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.StartFreeTrial(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
