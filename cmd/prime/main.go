package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/primechat/prime-chatbot-go/internal/config"
	"github.com/primechat/prime-chatbot-go/internal/domain"
	"github.com/primechat/prime-chatbot-go/internal/handler"
	"github.com/primechat/prime-chatbot-go/internal/infra/ai"
	"github.com/primechat/prime-chatbot-go/internal/infra/cache"
	"github.com/primechat/prime-chatbot-go/internal/infra/observability"
	"github.com/primechat/prime-chatbot-go/internal/infra/resilience"
	"github.com/primechat/prime-chatbot-go/internal/infra/sheets"
	"github.com/primechat/prime-chatbot-go/internal/infra/telegram"
	"github.com/primechat/prime-chatbot-go/internal/service"
	"github.com/primechat/prime-chatbot-go/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load()

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("ai_service_url", cfg.AIServiceURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "prime-chatbot")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	db, err := store.Open(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}

	// --- Cache ---
	companyCache := cache.New[*domain.Company](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("ai-service")

	// --- Clients & sinks ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	aiClient := ai.NewClient(httpClient, cfg.AIServiceURL, cb, resilienceCfg)

	sheetExporter, err := sheets.NewExporter(context.Background(), cfg.GoogleServiceAccountJSON, logger)
	if err != nil {
		logger.Fatal("failed to init sheets exporter", zap.Error(err))
	}
	leadNotifier := telegram.NewNotifier(logger)

	sysBot := telegram.NewSysBot(db, db, logger)
	if err := sysBot.Start(context.Background()); err != nil {
		logger.Error("approval bot failed to start", zap.Error(err))
	}
	defer sysBot.Stop()

	// --- Services ---
	chatSvc := service.NewChatService(db, aiClient, companyCache, metrics, logger)
	sessionSvc := service.NewSessionService(db, db, db, aiClient, sheetExporter, leadNotifier, metrics, logger)
	leadSvc := service.NewLeadService(db, db, sheetExporter, metrics, logger)
	companySvc := service.NewCompanyService(db, db, db, db, aiClient, sheetExporter, sysBot, companyCache, logger)
	authSvc := service.NewAuthService(db, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
	authSvc.SetBotRestarter(sysBot.Restart)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Chat:    chatSvc,
		Session: sessionSvc,
		Lead:    leadSvc,
		Company: companySvc,
		Auth:    authSvc,
		Metrics: metrics,
		DB:      db,
		Logger:  logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
