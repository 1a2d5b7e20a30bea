package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dreamweaver_backend/internal/analysis"
	"dreamweaver_backend/internal/auth"
	"dreamweaver_backend/internal/config"
	"dreamweaver_backend/internal/conversation"
	"dreamweaver_backend/internal/handlers"
	"dreamweaver_backend/internal/imageprocessor"
	"dreamweaver_backend/internal/logger"
	"dreamweaver_backend/internal/middleware"
	"dreamweaver_backend/internal/oracle"
	"dreamweaver_backend/internal/repositories"
	"dreamweaver_backend/internal/routes"
	"dreamweaver_backend/internal/scribe"
	"dreamweaver_backend/internal/services"
	"dreamweaver_backend/internal/storage"
	"dreamweaver_backend/internal/store"
	"dreamweaver_backend/internal/validator"
	"dreamweaver_backend/pkg/apperrors"
	"dreamweaver_backend/ws"

	"github.com/gin-gonic/gin"
)

// oracleClient - общий клиент модели с лимитом частоты
type oracleClient interface {
	oracle.Client
	oracle.LiveClient
}

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)
	apperrors.SetDebug(!cfg.IsProduction())
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Connecting to store...", "driver", cfg.Store.Driver)
	kv, err := store.New(ctx, store.Config{
		Driver:        cfg.Store.Driver,
		DatabaseURL:   cfg.Store.DatabaseURL,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
	})
	if err != nil {
		logger.Fatal("Failed to connect to store", "error", err)
	}
	defer kv.Close()
	logger.Info("Store connected", "driver", cfg.Store.Driver)

	ginRouter := SetupRouter(ctx, cfg, kv)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           ginRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(fmt.Sprintf("Server starting on %s", address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
}

// SetupRouter собирает сервисы, хэндлеры и маршруты. Фоновые задачи живут до отмены ctx.
func SetupRouter(ctx context.Context, cfg *config.Config, kv store.Store) *gin.Engine {
	storageInstance, err := storage.NewStorage(storage.Config{
		Type:       cfg.Storage.Type,
		BasePath:   cfg.Storage.BasePath,
		BaseURL:    cfg.Storage.BaseURL,
		Bucket:     cfg.Storage.Bucket,
		Region:     cfg.Storage.Region,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		Endpoint:   cfg.Storage.Endpoint,
		PublicRead: cfg.Storage.PublicRead,
	})
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	client := initializeOracle(ctx, cfg)

	// 1. Инициализируем сервисы
	serviceContainer := initializeServices(cfg, kv, client, storageInstance)

	// 2. Инициализируем хэндлеры
	appHandlers := initializeHandlers(serviceContainer)

	// Лимит и таймаут AI общие для HTTP маршрутов и голосового анализа
	aiLimiter := middleware.NewRateLimiter(cfg.Limits.AIRequestsPerMinute, cfg.Limits.AIBurst)
	aiLimiter.StartCleanup(ctx, 10*time.Minute)
	aiTimeout := time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second

	// 3. Инициализируем WebSocket
	wsManager := ws.NewScribeManager()
	go wsManager.Run(ctx)
	wsHandler := ws.NewWebSocketHandler(
		wsManager,
		serviceContainer.JournalService,
		scribe.LiveTranscriber{Client: client, Model: cfg.Gemini.LiveModel},
		cfg.Server.CORSOrigins,
		ws.SubmitLimits{Limiter: aiLimiter, Timeout: aiTimeout},
	)

	// 4. Инициализируем Gin
	ginRouter := initializeGinRouter(cfg)

	opts := routes.Options{
		Sessions: serviceContainer.AuthService,
		AIMiddleware: []gin.HandlerFunc{
			aiLimiter.Handler(),
			middleware.TimeoutMiddleware(aiTimeout),
		},
		StaticDir: cfg.Server.StaticDir,
	}
	if local, ok := storageInstance.(*storage.LocalStorage); ok {
		opts.FilesDir = local.BasePath()
	}

	// 5. Делегируем регистрацию маршрутов пакету 'routes'
	routes.RegisterRoutes(ginRouter, appHandlers, wsHandler, opts)

	return ginRouter
}

// initializeOracle - Gemini за общим лимитером; без ключа все AI функции отвечают ошибкой
func initializeOracle(ctx context.Context, cfg *config.Config) oracleClient {
	var (
		next oracle.Client     = oracle.Disabled{}
		live oracle.LiveClient = oracle.Disabled{}
	)

	gemini, err := oracle.NewGeminiClient(ctx, cfg.Gemini.APIKey)
	switch {
	case err == nil:
		next, live = gemini, gemini
		logger.Info("Gemini client initialized")
	case errors.Is(err, oracle.ErrNotConfigured):
		logger.Warn("GEMINI_API_KEY is not set. AI features are disabled.")
	default:
		logger.Fatal("Failed to initialize Gemini client", "error", err)
	}

	return oracle.NewLimited(next, live, cfg.Gemini.RatePerSecond, cfg.Gemini.Burst)
}

func initializeServices(cfg *config.Config, kv store.Store, client oracle.Client, storageInstance storage.Storage) *services.ServiceContainer {
	// --- Инициализация репозиториев ---
	keys := store.Keys{Prefix: cfg.Store.KeyPrefix}
	userRepo := repositories.NewUserRepository(kv, keys)
	dreamRepo := repositories.NewDreamRepository(kv, keys, time.Now)

	// --- Инициализация сервисов ---
	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}
	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)
	authService := services.NewAuthService(userRepo, tokens, time.Now)

	journalService := services.NewJournalService(
		userRepo,
		dreamRepo,
		analysis.NewAnalyzer(client, cfg.Gemini.AnalysisModel),
		conversation.NewOrchestrator(client, cfg.Gemini.ChatModel),
		time.Now,
	)

	artService := services.NewArtService(
		dreamRepo,
		client,
		cfg.Gemini.ImageModel,
		storageInstance,
		imageprocessor.NewProcessor(cfg.Limits.ImageQuality),
		cfg.Limits.ThumbnailWidth,
	)

	insightService := services.NewInsightService(userRepo, dreamRepo, client, services.InsightModels{
		Report:    cfg.Gemini.ReportModel,
		Trends:    cfg.Gemini.TrendsModel,
		Community: cfg.Gemini.CommunityModel,
	}, time.Now)

	if cfg.Stripe.SecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY is not set. Billing is disabled.")
	}
	gateway := services.NewStripeGateway(services.StripeConfig{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		PriceID:       cfg.Stripe.PriceID,
		FrontendURL:   cfg.Server.FrontendURL,
	})
	billingService := services.NewBillingService(userRepo, authService, gateway)

	return &services.ServiceContainer{
		AuthService:    authService,
		JournalService: journalService,
		ArtService:     artService,
		InsightService: insightService,
		BillingService: billingService,
	}
}

func initializeHandlers(services *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		AuthHandler:    handlers.NewAuthHandler(baseHandler, services.AuthService),
		JournalHandler: handlers.NewJournalHandler(baseHandler, services.JournalService, services.ArtService),
		InsightHandler: handlers.NewInsightHandler(baseHandler, services.InsightService),
		BillingHandler: handlers.NewBillingHandler(baseHandler, services.BillingService),
	}
}

func initializeGinRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigins))
	return router
}
