package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/graphrag-search/internal/config"
	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/ports"
	"github.com/kirillkom/graphrag-search/internal/core/usecase"
	"github.com/kirillkom/graphrag-search/internal/infrastructure/report"
	"github.com/kirillkom/graphrag-search/internal/observability/metrics"
)

const (
	serviceName  = "graphrag-api"
	maxBodyBytes = 4 << 20
)

// Services are the inbound ports served by the router. Batches may be nil,
// in which case batch routes answer 503.
type Services struct {
	Search    ports.SearchService
	Evaluator ports.ResultEvaluator
	Stats     ports.GraphStatsReader
	Batches   ports.BatchService
	Ready     func(context.Context) error
	// Breakers, when set, adds circuit breaker states to /readyz.
	Breakers  func() map[string]string
	Metrics   *metrics.HTTPServerMetrics
}

type Router struct {
	cfg config.Config
	svc Services
}

func NewRouter(cfg config.Config, svc Services) *Router {
	return &Router{cfg: cfg, svc: svc}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/search", rt.search)
	api.HandleFunc("POST /v1/evaluate", rt.evaluate)
	api.HandleFunc("GET /v1/graph/stats", rt.graphStats)
	api.HandleFunc("POST /v1/batches", rt.submitBatch)
	api.HandleFunc("GET /v1/batches/{batch_id}", rt.getBatch)

	var limited http.Handler = api
	limited = backpressureMiddleware(limited, rt.cfg.APIBackpressureMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	limited = rateLimitMiddleware(limited, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	limited = authMiddleware(limited, rt.cfg.APIKey)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /readyz", rt.readyz)
	if rt.svc.Metrics != nil {
		mux.Handle("GET /metrics", rt.svc.Metrics.Handler())
	}
	mux.Handle("/v1/", limited)

	var handler http.Handler = mux
	if rt.svc.Metrics != nil {
		handler = rt.svc.Metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(recoverMiddleware(handler)))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) readyz(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ready"}
	if rt.svc.Breakers != nil {
		body["breakers"] = rt.svc.Breakers()
	}
	if rt.svc.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := rt.svc.Ready(ctx); err != nil {
			body["status"] = "not_ready"
			body["error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, http.StatusOK, body)
}

type searchResponse struct {
	*domain.SearchResponse
	Sources []usecase.Source `json:"sources,omitempty"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	var req domain.SearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "search", err)
		return
	}

	ctx := r.Context()
	if rt.cfg.APIRequestTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(rt.cfg.APIRequestTimeoutSeconds)*time.Second)
		defer cancel()
	}

	resp, err := rt.svc.Search.Search(ctx, req)
	if err != nil {
		if rt.svc.Metrics != nil {
			rt.svc.Metrics.RecordSearchError(serviceName, string(req.SearchType))
		}
		writeError(w, r, "search", err)
		return
	}
	if rt.svc.Metrics != nil {
		rt.svc.Metrics.RecordSearch(serviceName, resp)
	}
	out := searchResponse{SearchResponse: resp}
	if resp.Answer != "" {
		out.Sources = usecase.FormatSources(resp.Results)
	}
	writeJSON(w, http.StatusOK, out)
}

type evaluateRequest struct {
	Query       string                `json:"query"`
	Results     []domain.SearchResult `json:"results"`
	Answer      string                `json:"answer"`
	GroundTruth string                `json:"ground_truth,omitempty"`
}

func (rt *Router) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "evaluate", err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, r, "evaluate", domain.WrapError(domain.ErrInvalidInput, "evaluate", errors.New("query is required")))
		return
	}
	for i, res := range req.Results {
		if !res.Type.Valid() {
			writeError(w, r, "evaluate", domain.WrapError(domain.ErrInvalidInput, "evaluate", fmt.Errorf("results[%d]: unknown type %q", i, res.Type)))
			return
		}
	}

	m := rt.svc.Evaluator.Evaluate(req.Query, req.Results, req.Answer, req.GroundTruth)
	if rt.svc.Metrics != nil {
		rt.svc.Metrics.RecordEvaluation(serviceName, "", m)
	}
	writeJSON(w, http.StatusOK, m)
}

func (rt *Router) graphStats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.svc.Stats.GraphStats(r.Context())
	if err != nil {
		writeError(w, r, "graph stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type submitBatchRequest struct {
	Queries     []string `json:"queries"`
	SearchTypes []string `json:"search_types"`
	TopK        int      `json:"top_k"`
}

func (rt *Router) submitBatch(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Batches == nil {
		writeError(w, r, "submit batch", errBatchesDisabled)
		return
	}
	var req submitBatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "submit batch", err)
		return
	}
	modes := make([]domain.SearchMode, 0, len(req.SearchTypes))
	for _, raw := range req.SearchTypes {
		mode, ok := domain.ParseSearchMode(raw)
		if !ok {
			writeError(w, r, "submit batch", domain.WrapError(domain.ErrInvalidInput, "submit batch", fmt.Errorf("unknown search_type %q", raw)))
			return
		}
		modes = append(modes, mode)
	}

	job, err := rt.svc.Batches.Submit(r.Context(), req.Queries, modes, req.TopK)
	if err != nil {
		writeError(w, r, "submit batch", err)
		return
	}
	if rt.svc.Metrics != nil {
		rt.svc.Metrics.RecordBatchSubmitted(serviceName)
	}
	w.Header().Set("Location", "/v1/batches/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getBatch(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Batches == nil {
		writeError(w, r, "batch report", errBatchesDisabled)
		return
	}
	id := strings.TrimSpace(r.PathValue("batch_id"))
	if id == "" {
		writeError(w, r, "batch report", domain.WrapError(domain.ErrInvalidInput, "batch report", errors.New("batch id is required")))
		return
	}

	rep, err := rt.svc.Batches.Report(r.Context(), id)
	if err != nil {
		writeError(w, r, "batch report", err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = report.WriteText(w, rep, time.Now())
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "batch-"+rep.Job.ID+".xlsx"))
		w.WriteHeader(http.StatusOK)
		_ = report.WriteWorkbook(w, rep)
	default:
		writeJSON(w, http.StatusOK, rep)
	}
}

var errBatchesDisabled = domain.WrapError(domain.ErrUnavailable, "batches", errors.New("batch jobs are disabled"))

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request", fmt.Errorf("invalid json: %w", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
