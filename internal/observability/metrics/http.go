package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

const namespace = "graphrag"

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchTotal       *prometheus.CounterVec
	searchDuration    *prometheus.HistogramVec
	searchResults     *prometheus.HistogramVec
	searchNoResults   *prometheus.CounterVec
	generationWarning *prometheus.CounterVec
	evaluationScore   *prometheus.HistogramVec
	storeTier         *prometheus.GaugeVec
	batchSubmitted    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total search requests by resolved mode and status.",
		},
		[]string{"service", "mode", "status"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search stage duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"service", "mode", "stage"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "results",
			Help:      "Distribution of results per successful search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 50, 100},
		},
		[]string{"service", "mode"},
	)
	searchNoResults := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "no_results_total",
			Help:      "Total searches that returned no results.",
		},
		[]string{"service", "mode"},
	)
	generationWarning := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "degraded_total",
			Help:      "Total searches answered without a generated answer.",
		},
		[]string{"service", "mode"},
	)
	evaluationScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "score",
			Help:      "Distribution of evaluation scores by metric.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"service", "mode", "metric"},
	)
	storeTier := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "tier",
			Help:      "Currently loaded store tier (0 none, 1 chunks, 2 entities, 3 graph).",
		},
		[]string{"service"},
	)
	batchSubmitted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "submitted_total",
			Help:      "Total submitted batch jobs.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchTotal,
		searchDuration,
		searchResults,
		searchNoResults,
		generationWarning,
		evaluationScore,
		storeTier,
		batchSubmitted,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		searchTotal:       searchTotal,
		searchDuration:    searchDuration,
		searchResults:     searchResults,
		searchNoResults:   searchNoResults,
		generationWarning: generationWarning,
		evaluationScore:   evaluationScore,
		storeTier:         storeTier,
		batchSubmitted:    batchSubmitted,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/batches/"):
		return "/v1/batches/{batch_id}"
	default:
		return path
	}
}

// RecordSearch records a completed search response.
func (m *HTTPServerMetrics) RecordSearch(service string, resp *domain.SearchResponse) {
	mode := string(resp.SearchType)
	if mode == "" {
		mode = "unknown"
	}
	m.searchTotal.WithLabelValues(service, mode, "ok").Inc()
	m.searchResults.WithLabelValues(service, mode).Observe(float64(len(resp.Results)))
	m.searchDuration.WithLabelValues(service, mode, "search").Observe(resp.Timings.SearchSeconds)
	m.searchDuration.WithLabelValues(service, mode, "total").Observe(resp.Timings.TotalSeconds)
	if resp.Timings.GenerationSeconds > 0 {
		m.searchDuration.WithLabelValues(service, mode, "generation").Observe(resp.Timings.GenerationSeconds)
	}
	if len(resp.Results) == 0 {
		m.searchNoResults.WithLabelValues(service, mode).Inc()
	}
	if len(resp.Warnings) > 0 {
		m.generationWarning.WithLabelValues(service, mode).Inc()
	}
	if resp.Metrics != nil {
		m.RecordEvaluation(service, mode, *resp.Metrics)
	}
}

func (m *HTTPServerMetrics) RecordSearchError(service, mode string) {
	if mode == "" {
		mode = "unknown"
	}
	m.searchTotal.WithLabelValues(service, mode, "error").Inc()
}

func (m *HTTPServerMetrics) RecordEvaluation(service, mode string, metrics domain.MetricsResult) {
	if mode == "" {
		mode = "none"
	}
	m.evaluationScore.WithLabelValues(service, mode, "relevance").Observe(metrics.Relevance)
	m.evaluationScore.WithLabelValues(service, mode, "coverage").Observe(metrics.Coverage)
	m.evaluationScore.WithLabelValues(service, mode, "quality").Observe(metrics.Quality)
	m.evaluationScore.WithLabelValues(service, mode, "faithfulness").Observe(metrics.Faithfulness)
	m.evaluationScore.WithLabelValues(service, mode, "overall").Observe(metrics.Overall)
}

func (m *HTTPServerMetrics) SetStoreTier(service string, tier int) {
	m.storeTier.WithLabelValues(service).Set(float64(tier))
}

func (m *HTTPServerMetrics) RecordBatchSubmitted(service string) {
	m.batchSubmitted.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
