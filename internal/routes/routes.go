package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"dreamweaver_backend/internal/handlers"
	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/metrics"
	"dreamweaver_backend/internal/middleware"
	"dreamweaver_backend/pkg/apperrors"
	"dreamweaver_backend/ws"

	"github.com/gin-gonic/gin"
)

// Options - то, что роутеру нужно кроме хэндлеров
type Options struct {
	Sessions     middleware.SessionValidator
	AIMiddleware []gin.HandlerFunc // лимит и таймаут запросов к модели
	FilesDir     string            // локальное хранилище, раздается по /files; пусто - не раздавать
	StaticDir    string            // собранный SPA
}

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.WebSocketHandler,
	opts Options,
) {
	ginRouter.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	ginRouter.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Регистрация HTTP API v1
	api := ginRouter.Group("/api/v1")
	protected := api.Group("", middleware.AuthMiddleware(opts.Sessions))
	appHandlers.RegisterRoutes(handlers.RouteGroups{
		Public:    api,
		Protected: protected,
		AI:        protected.Group("", opts.AIMiddleware...),
	})

	// Регистрация WebSocket
	wsGroup := ginRouter.Group("/ws")
	wsGroup.Use(middleware.WebSocketAuthMiddleware(opts.Sessions))
	{
		wsGroup.GET("/scribe", wsHandler.ServeWS)
	}
	logger.Info("WebSocket route /ws/scribe registered")

	if opts.FilesDir != "" {
		ginRouter.Static("/files", opts.FilesDir)
	}

	ginRouter.NoRoute(spaHandler(opts.StaticDir))
}

// spaHandler отдает файлы сборки фронтенда, а неизвестные пути - index.html
func spaHandler(staticDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/ws/") || staticDir == "" ||
			(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			apperrors.HandleError(c, apperrors.New(apperrors.CodeNotFound, "request", "Route not found", http.StatusNotFound))
			return
		}

		// filepath.Clean от корня не дает выйти за staticDir
		file := filepath.Join(staticDir, filepath.FromSlash(filepath.Clean("/"+path)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}

		index := filepath.Join(staticDir, "index.html")
		if _, err := os.Stat(index); err != nil {
			apperrors.HandleError(c, apperrors.New(apperrors.CodeNotFound, "request", "Route not found", http.StatusNotFound))
			return
		}
		c.File(index)
	}
}
