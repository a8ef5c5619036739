package ports

import (
	"context"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

// SearchService is the inbound contract for local/global search with optional
// answer generation and scoring.
type SearchService interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
}

// ResultEvaluator scores an answer against the results it was generated from.
type ResultEvaluator interface {
	Evaluate(query string, results []domain.SearchResult, answer, groundTruth string) domain.MetricsResult
}

// GraphStatsReader exposes statistics of the loaded knowledge graph.
type GraphStatsReader interface {
	GraphStats(ctx context.Context) (domain.GraphStats, error)
}

// BatchService submits and reads asynchronous batch comparisons.
type BatchService interface {
	Submit(ctx context.Context, queries []string, modes []domain.SearchMode, topK int) (*domain.BatchJob, error)
	Report(ctx context.Context, batchID string) (*domain.BatchReport, error)
}

// BatchRunner executes a queued batch job.
type BatchRunner interface {
	RunByID(ctx context.Context, batchID string) error
}
