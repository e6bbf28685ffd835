package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andrei-assa/fda-gpt/config"
	"github.com/andrei-assa/fda-gpt/controllers"
	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/metrics"
	"github.com/andrei-assa/fda-gpt/middlewares"
	"github.com/andrei-assa/fda-gpt/routes"
	"github.com/andrei-assa/fda-gpt/services"
	"github.com/andrei-assa/fda-gpt/stores"
	"github.com/andrei-assa/fda-gpt/tracer"
)

func main() {
	cfg := config.Load()

	appLogger, err := logger.New(cfg.App.Environment, cfg.App.LogFilePath)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	shutdownTracer := tracer.Init(cfg.Telemetry, appLogger)
	m := metrics.NewMetrics()

	ctx := context.Background()
	store, err := stores.New(ctx, cfg.Store, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open chat store", "backend", cfg.Store.Backend, "error", err)
	}
	defer store.Close()

	if cfg.LLM.APIKey == "" {
		appLogger.Warn("OPENAI_API_KEY is not set; requests without a preview token will fail")
	}
	if cfg.App.JWTSecret == "" {
		appLogger.Warn("JWT_SECRET is not set; every authenticated route will answer 401")
	}

	chatService := services.NewChatService(services.ChatServiceDeps{
		LLM:     cfg.LLM,
		Fetcher: services.NewFDAService(cfg.FDA, appLogger, m),
		Store:   store,
		Log:     appLogger,
		Metrics: m,
	})

	router := routes.SetupRouter(routes.RouterDeps{
		Config:  cfg,
		Log:     appLogger,
		Metrics: m,
		Auth:    middlewares.NewAuthMiddleware(cfg.App.JWTSecret, appLogger),
		Chat:    controllers.NewChatController(chatService, appLogger),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server starting", "port", cfg.App.Port, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		appLogger.Error("Tracer shutdown failed", "error", err)
	}
}
