package ws

import (
	"context"
	"net/http"
	"strings"

	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/middleware"
	"dreamweaver_backend/internal/scribe"
	"dreamweaver_backend/internal/services"
	"dreamweaver_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	Manager        *ScribeManager
	JournalService services.JournalService
	Transcriber    scribe.Transcriber
	Limits         SubmitLimits

	upgrader websocket.Upgrader
}

// NewWebSocketHandler; origins - разрешенные Origin, "*" - любой
func NewWebSocketHandler(manager *ScribeManager, journal services.JournalService, transcriber scribe.Transcriber, origins []string, limits SubmitLimits) *WebSocketHandler {
	return &WebSocketHandler{
		Manager:        manager,
		JournalService: journal,
		Transcriber:    transcriber,
		Limits:         limits,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin(origins),
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func checkOrigin(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range origins {
			if allowed == "*" || strings.EqualFold(allowed, origin) {
				return true
			}
		}
		return false
	}
}

// ServeWS открывает голосовую сессию пользователя из AuthMiddleware
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.CtxWithError(c.Request.Context(), "WebSocket upgrade error", err)
		return
	}

	// Контекст запроса отменяется после возврата из обработчика
	ctx := context.WithoutCancel(c.Request.Context())
	client := newClient(ctx, userID, conn, h.Manager, h.JournalService, h.Transcriber, h.Limits)
	if !h.Manager.Register(client) {
		client.Close()
		return
	}

	logger.CtxInfo(ctx, "Scribe client connected")

	// Начальное состояние уходит первым
	client.sendState(client.session.Snapshot())
	go client.writePump()
	go client.readPump()
}
