package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/graphrag-search/internal/bootstrap"
	"github.com/kirillkom/graphrag-search/internal/config"
	"github.com/kirillkom/graphrag-search/internal/observability/logging"
	"github.com/kirillkom/graphrag-search/internal/observability/metrics"
)

const serviceName = "graphrag-worker"

func main() {
	cfg, err := config.LoadFile(os.Getenv("GRAPHRAG_CONFIG"))
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if !cfg.BatchEnabled {
		log.Fatalf("worker requires BATCH_ENABLED=true")
	}
	logging.New(serviceName, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeBatchQueued(ctx, func(handlerCtx context.Context, batchID string) error {
		// A failed lookup still counts the batch; RunByID reports the error.
		job, _ := app.Repo.GetBatch(handlerCtx, batchID)

		start := time.Now()
		finish := workerMetrics.BeginBatch(job, start)
		err := app.BatchUC.RunByID(handlerCtx, batchID)
		finish(err)
		if err != nil {
			slog.Error("batch_job_failed", "batch_id", batchID, "error", err)
			return err
		}
		slog.Info("batch_job_completed", "batch_id", batchID, "duration_ms", time.Since(start).Milliseconds())
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
