package ports

import (
	"context"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

// Embedder builds vectors for query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// AnswerGenerator turns a query and its retrieved context into an answer.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, mode domain.SearchMode, query, contextText string) (string, error)
}

// StoreSource reads persisted vector matrices and their parallel record lists.
type StoreSource interface {
	LoadChunks(ctx context.Context) ([]domain.Chunk, domain.Matrix, error)
	LoadEntities(ctx context.Context) ([]domain.Entity, domain.Matrix, error)
	LoadCommunityReports(ctx context.Context) ([]domain.CommunityReport, domain.Matrix, error)
}

// GraphSource reads the knowledge graph structure.
type GraphSource interface {
	LoadGraph(ctx context.Context) ([]domain.Entity, []domain.Relationship, error)
}

// EvaluationRepository persists batch jobs and scored runs.
type EvaluationRepository interface {
	CreateBatch(ctx context.Context, job *domain.BatchJob) error
	GetBatch(ctx context.Context, id string) (*domain.BatchJob, error)
	UpdateBatchStatus(ctx context.Context, id string, status domain.BatchStatus, errMessage string) error
	SaveRun(ctx context.Context, run *domain.EvaluationRun) error
	ListRuns(ctx context.Context, batchID string) ([]domain.EvaluationRun, error)
}

// BatchQueue publishes/consumes batch job events.
type BatchQueue interface {
	PublishBatchQueued(ctx context.Context, batchID string) error
	SubscribeBatchQueued(ctx context.Context, handler func(context.Context, string) error) error
}
