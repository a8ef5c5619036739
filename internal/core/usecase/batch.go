package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/ports"
)

const maxBatchQueries = 500

// BatchUseCase runs the same queries through several search modes and
// scores every run so the modes can be compared.
type BatchUseCase struct {
	search ports.SearchService
	repo   ports.EvaluationRepository
	queue  ports.BatchQueue
}

func NewBatchUseCase(search ports.SearchService, repo ports.EvaluationRepository, queue ports.BatchQueue) *BatchUseCase {
	return &BatchUseCase{
		search: search,
		repo:   repo,
		queue:  queue,
	}
}

func (uc *BatchUseCase) Submit(ctx context.Context, queries []string, modes []domain.SearchMode, topK int) (*domain.BatchJob, error) {
	if err := uc.requirePersistence("submit batch"); err != nil {
		return nil, err
	}
	job, err := newBatchJob(queries, modes, topK)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.CreateBatch(ctx, job); err != nil {
		return nil, fmt.Errorf("create batch job: %w", err)
	}
	if err := uc.queue.PublishBatchQueued(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish batch job: %w", err)
	}
	return job, nil
}

func (uc *BatchUseCase) Report(ctx context.Context, batchID string) (*domain.BatchReport, error) {
	if err := uc.requirePersistence("batch report"); err != nil {
		return nil, err
	}
	job, err := uc.repo.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("fetch batch job: %w", err)
	}
	runs, err := uc.repo.ListRuns(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch runs: %w", err)
	}
	return &domain.BatchReport{
		Job:       *job,
		Runs:      runs,
		Summaries: SummarizeRuns(job.Modes, runs),
	}, nil
}

// RunByID executes a queued job and persists each run. A failing query is
// recorded on its run and does not stop the batch.
func (uc *BatchUseCase) RunByID(ctx context.Context, batchID string) error {
	if err := uc.requirePersistence("run batch"); err != nil {
		return err
	}
	job, err := uc.repo.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("fetch batch job: %w", err)
	}
	if err := uc.repo.UpdateBatchStatus(ctx, batchID, domain.BatchRunning, ""); err != nil {
		return fmt.Errorf("set status=running: %w", err)
	}

	err = uc.runAll(ctx, job, func(run *domain.EvaluationRun) error {
		if err := uc.repo.SaveRun(ctx, run); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		return nil
	})
	if err != nil {
		if failErr := uc.repo.UpdateBatchStatus(ctx, batchID, domain.BatchFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.UpdateBatchStatus(ctx, batchID, domain.BatchCompleted, ""); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}
	return nil
}

func (uc *BatchUseCase) requirePersistence(operation string) error {
	if uc.repo == nil || uc.queue == nil {
		return domain.WrapError(domain.ErrUnavailable, operation, errors.New("batch persistence is not configured"))
	}
	return nil
}

// RunQueries executes a batch in process without persistence.
func (uc *BatchUseCase) RunQueries(ctx context.Context, queries []string, modes []domain.SearchMode, topK int) (*domain.BatchReport, error) {
	job, err := newBatchJob(queries, modes, topK)
	if err != nil {
		return nil, err
	}
	job.Status = domain.BatchRunning

	runs := make([]domain.EvaluationRun, 0, len(job.Queries)*len(job.Modes))
	err = uc.runAll(ctx, job, func(run *domain.EvaluationRun) error {
		runs = append(runs, *run)
		return nil
	})
	if err != nil {
		return nil, err
	}
	job.Status = domain.BatchCompleted
	job.UpdatedAt = time.Now().UTC()
	return &domain.BatchReport{
		Job:       *job,
		Runs:      runs,
		Summaries: SummarizeRuns(job.Modes, runs),
	}, nil
}

func (uc *BatchUseCase) runAll(ctx context.Context, job *domain.BatchJob, sink func(*domain.EvaluationRun) error) error {
	for i, query := range job.Queries {
		for _, mode := range job.Modes {
			if err := ctx.Err(); err != nil {
				return err
			}
			run := uc.runOne(ctx, job, query, mode)
			if err := sink(run); err != nil {
				return err
			}
		}
		slog.Info("batch_query_completed", "batch_id", job.ID, "index", i+1, "total", len(job.Queries))
	}
	return nil
}

func (uc *BatchUseCase) runOne(ctx context.Context, job *domain.BatchJob, query string, mode domain.SearchMode) *domain.EvaluationRun {
	run := &domain.EvaluationRun{
		ID:         uuid.NewString(),
		BatchID:    job.ID,
		Query:      query,
		SearchType: mode,
		CreatedAt:  time.Now().UTC(),
	}

	resp, err := uc.search.Search(ctx, domain.SearchRequest{
		Query:          query,
		TopK:           job.TopK,
		SearchType:     mode,
		GenerateAnswer: true,
		Evaluate:       true,
	})
	if err != nil {
		run.Failed = true
		run.Error = err.Error()
		return run
	}
	run.NumResults = len(resp.Results)
	run.Timings = resp.Timings
	if resp.Metrics != nil {
		run.Metrics = *resp.Metrics
	}
	if len(resp.Warnings) > 0 {
		run.Error = strings.Join(resp.Warnings, "; ")
	}
	return run
}

func newBatchJob(queries []string, modes []domain.SearchMode, topK int) (*domain.BatchJob, error) {
	cleaned := CleanQueries(queries)
	if len(cleaned) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "batch", errors.New("at least one query is required"))
	}
	if len(cleaned) > maxBatchQueries {
		return nil, domain.WrapError(domain.ErrInvalidInput, "batch", fmt.Errorf("at most %d queries per batch", maxBatchQueries))
	}
	if topK < 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "batch", errors.New("top_k must be positive"))
	}
	if len(modes) == 0 {
		modes = []domain.SearchMode{domain.SearchLocal, domain.SearchGlobal}
	}
	for _, m := range modes {
		if _, ok := domain.ParseSearchMode(string(m)); !ok || m == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "batch", fmt.Errorf("unknown search_type %q", m))
		}
	}

	now := time.Now().UTC()
	return &domain.BatchJob{
		ID:        uuid.NewString(),
		Queries:   cleaned,
		Modes:     modes,
		TopK:      topK,
		Status:    domain.BatchQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CleanQueries trims queries and drops blank lines and # comments.
func CleanQueries(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// SummarizeRuns averages timings and metrics per mode over runs that did not
// fail. Modes keep the given order.
func SummarizeRuns(modes []domain.SearchMode, runs []domain.EvaluationRun) []domain.ModeSummary {
	out := make([]domain.ModeSummary, 0, len(modes))
	for _, mode := range modes {
		s := domain.ModeSummary{SearchType: mode}
		for _, run := range runs {
			if run.SearchType != mode || run.Failed {
				continue
			}
			s.Runs++
			s.AvgTotalSeconds += run.Timings.TotalSeconds
			s.AvgMetrics.Relevance += run.Metrics.Relevance
			s.AvgMetrics.Coverage += run.Metrics.Coverage
			s.AvgMetrics.Quality += run.Metrics.Quality
			s.AvgMetrics.Faithfulness += run.Metrics.Faithfulness
			s.AvgMetrics.Overall += run.Metrics.Overall
		}
		if s.Runs > 0 {
			n := float64(s.Runs)
			s.AvgTotalSeconds /= n
			s.AvgMetrics.Relevance /= n
			s.AvgMetrics.Coverage /= n
			s.AvgMetrics.Quality /= n
			s.AvgMetrics.Faithfulness /= n
			s.AvgMetrics.Overall /= n
		}
		out = append(out, s)
	}
	return out
}
