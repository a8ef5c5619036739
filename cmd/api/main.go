package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/graphrag-search/internal/adapters/http"
	"github.com/kirillkom/graphrag-search/internal/bootstrap"
	"github.com/kirillkom/graphrag-search/internal/config"
	"github.com/kirillkom/graphrag-search/internal/core/ports"
	"github.com/kirillkom/graphrag-search/internal/observability/logging"
	"github.com/kirillkom/graphrag-search/internal/observability/metrics"
)

func main() {
	cfg, err := config.LoadFile(os.Getenv("GRAPHRAG_CONFIG"))
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logging.New("graphrag-api", cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics("graphrag-api")
	httpMetrics.SetStoreTier("graphrag-api", int(app.Store.Tier()))

	var batches ports.BatchService
	if cfg.BatchEnabled {
		batches = app.BatchUC
	}
	router := httpadapter.NewRouter(cfg, httpadapter.Services{
		Search:    app.SearchUC,
		Evaluator: app.Evaluator,
		Stats:     app.StatsUC,
		Batches:   batches,
		Ready: func(ctx context.Context) error {
			httpMetrics.SetStoreTier("graphrag-api", int(app.Store.Tier()))
			return app.Ready(ctx)
		},
		Breakers: app.BreakerStates,
		Metrics:  httpMetrics,
	}).Handler()

	writeTimeout := 60 * time.Second
	if t := time.Duration(cfg.APIRequestTimeoutSeconds)*time.Second + 10*time.Second; t > writeTimeout {
		writeTimeout = t
	}
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
