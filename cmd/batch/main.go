// cmd/batch/main.go
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

	"github.com/andrei-assa/fda-gpt/config"
	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/metrics"
	"github.com/andrei-assa/fda-gpt/services"
	"github.com/andrei-assa/fda-gpt/stores"
)

func main() {
	cfg := config.Load()

	appLogger, err := logger.New(cfg.App.Environment, cfg.App.LogFilePath)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The store may still be starting; try a few times.
	var store stores.ChatStore
	for i := 0; i < 3; i++ {
		store, err = stores.New(ctx, cfg.Store, appLogger)
		if err == nil {
			break
		}
		appLogger.Warn("Failed to open chat store", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		appLogger.Error("Failed to open chat store after retries", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	interval := cfg.Batch.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	m := metrics.NewMetrics()
	if cfg.Batch.MetricsAddr != "" {
		srv := newMetricsServer(cfg.Batch.MetricsAddr, m)
		go func() {
			appLogger.Info("Serving batch metrics", "addr", cfg.Batch.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	processor := services.NewBatchProcessor(store, appLogger, m)
	appLogger.Info("Starting index repair service", "interval", interval.String())

	// Initial run
	if _, err := processor.ProcessChats(ctx); err != nil {
		appLogger.Error("Error in initial processing", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			appLogger.Info("Index repair service stopped")
			return
		case <-ticker.C:
			appLogger.Info("Starting scheduled index repair")
			if _, err := processor.ProcessChats(ctx); err != nil {
				appLogger.Error("Error processing chats", "error", err)
			}
		}
	}
}

func newMetricsServer(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
