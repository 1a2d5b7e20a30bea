package handlers

import (
	"net/http"

	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/services"
	"dreamweaver_backend/internal/services/dto"
	"dreamweaver_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type JournalHandler struct {
	*BaseHandler
	journalService services.JournalService
	artService     services.ArtService
}

func NewJournalHandler(base *BaseHandler, journalService services.JournalService, artService services.ArtService) *JournalHandler {
	return &JournalHandler{
		BaseHandler:    base,
		journalService: journalService,
		artService:     artService,
	}
}

func (h *JournalHandler) RegisterRoutes(g RouteGroups) {
	g.Protected.GET("/journal", h.GetJournal)

	dreams := g.Protected.Group("/dreams")
	{
		dreams.GET("", h.ListDreams)
		dreams.GET("/:id", h.GetDream)
	}

	ai := g.AI.Group("/dreams")
	{
		ai.POST("", h.SubmitDream)
		ai.POST("/:id/chat", h.SendChatMessage)
		ai.POST("/:id/art", h.GenerateArt)
	}
}

// chatFailureResponse - ошибка модели вместе с сохраненной историей
type chatFailureResponse struct {
	Error *apperrors.AppError `json:"error"`
	Dream *models.Dream       `json:"dream"`
}

// GetJournal - пользователь, права и журнал
func (h *JournalHandler) GetJournal(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	snapshot, err := h.journalService.Snapshot(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *JournalHandler) ListDreams(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	dreams, err := h.journalService.ListDreams(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	if dreams == nil {
		dreams = []models.Dream{}
	}

	c.JSON(http.StatusOK, dreams)
}

func (h *JournalHandler) GetDream(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	dream, err := h.journalService.GetDream(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dream)
}

// SubmitDream - анализ и сохранение нового сна
func (h *JournalHandler) SubmitDream(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitDreamRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	dream, err := h.journalService.SubmitDream(c.Request.Context(), userID, req.Text, req.Mood, req.Options)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dream)
}

func (h *JournalHandler) SendChatMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ChatMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	dream, reply, err := h.journalService.SendChatMessage(ctx, userID, c.Param("id"), req.Message)
	if err != nil {
		appErr, isApp := apperrors.AsAppError(err)
		if dream != nil && isApp {
			// История уже дополнена запасным ответом, клиенту нужна и она
			logger.CtxWarn(ctx, "Chat reply failed", "dream_id", dream.ID, "code", string(appErr.Code))
			c.JSON(appErr.HTTPCode, chatFailureResponse{Error: appErr, Dream: dream})
			return
		}
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ChatMessageResponse{Dream: dream, Reply: reply})
}

func (h *JournalHandler) GenerateArt(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.GenerateArtRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	art, err := h.artService.GenerateArt(c.Request.Context(), userID, c.Param("id"), req.AspectRatio)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, art)
}
