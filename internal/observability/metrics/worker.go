package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

// WorkerMetrics tracks queued comparison batches. A batch is one job that
// runs every query under every requested mode and persists one evaluation
// run per pair.
type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	batches    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	running    prometheus.Gauge
	queueWait  prometheus.Histogram
	plannedRun *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	labels := prometheus.Labels{"service": service}
	m := &WorkerMetrics{
		service:  service,
		registry: prometheus.NewRegistry(),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "batch",
			Name:        "jobs_total",
			Help:        "Finished batch jobs by outcome (completed or failed).",
			ConstLabels: labels,
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "batch",
			Name:        "job_duration_seconds",
			Help:        "Wall time from a batch leaving the queue to its final status.",
			Buckets:     []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			ConstLabels: labels,
		}, []string{"outcome"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "batch",
			Name:        "jobs_running",
			Help:        "Batch jobs picked up by this worker and not yet finished.",
			ConstLabels: labels,
		}),
		queueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "batch",
			Name:        "queue_wait_seconds",
			Help:        "Time between batch submission and the worker starting it.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: labels,
		}),
		plannedRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "batch",
			Name:        "planned_runs_total",
			Help:        "Query executions scheduled by started batches, per search mode.",
			ConstLabels: labels,
		}, []string{"mode"}),
	}
	m.registry.MustRegister(m.batches, m.duration, m.running, m.queueWait, m.plannedRun)
	return m
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// BeginBatch records a job leaving the queue. The returned func must be
// called exactly once with the job's final error.
func (m *WorkerMetrics) BeginBatch(job *domain.BatchJob, now time.Time) func(error) {
	if job != nil {
		if wait := now.Sub(job.CreatedAt); !job.CreatedAt.IsZero() && wait >= 0 {
			m.queueWait.Observe(wait.Seconds())
		}
		for _, mode := range job.Modes {
			m.plannedRun.WithLabelValues(string(mode)).Add(float64(len(job.Queries)))
		}
	}
	m.running.Inc()

	return func(err error) {
		m.running.Dec()
		outcome := string(domain.BatchCompleted)
		if err != nil {
			outcome = string(domain.BatchFailed)
		}
		m.batches.WithLabelValues(outcome).Inc()
		m.duration.WithLabelValues(outcome).Observe(time.Since(now).Seconds())
	}
}
