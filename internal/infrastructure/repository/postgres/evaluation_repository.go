package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

const schemaLockID int64 = 2026101801

// EvaluationRepository stores batch jobs and their scored runs.
type EvaluationRepository struct {
	db *sql.DB
}

func NewEvaluationRepository(db *sql.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

func (r *EvaluationRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS batch_jobs (
	id TEXT PRIMARY KEY,
	queries JSONB NOT NULL,
	modes JSONB NOT NULL,
	top_k INTEGER NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS evaluation_runs (
	id TEXT PRIMARY KEY,
	batch_id TEXT REFERENCES batch_jobs(id) ON DELETE CASCADE,
	query TEXT NOT NULL,
	search_type TEXT NOT NULL,
	num_results INTEGER NOT NULL,
	relevance DOUBLE PRECISION NOT NULL,
	coverage DOUBLE PRECISION NOT NULL,
	quality DOUBLE PRECISION NOT NULL,
	faithfulness DOUBLE PRECISION NOT NULL,
	overall DOUBLE PRECISION NOT NULL,
	search_seconds DOUBLE PRECISION NOT NULL,
	generation_seconds DOUBLE PRECISION NOT NULL,
	total_seconds DOUBLE PRECISION NOT NULL,
	failed BOOLEAN NOT NULL DEFAULT FALSE,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_batch_jobs_status ON batch_jobs(status);
CREATE INDEX IF NOT EXISTS idx_evaluation_runs_batch ON evaluation_runs(batch_id, created_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *EvaluationRepository) CreateBatch(ctx context.Context, job *domain.BatchJob) error {
	queriesJSON, err := json.Marshal(job.Queries)
	if err != nil {
		return fmt.Errorf("marshal queries: %w", err)
	}
	modesJSON, err := json.Marshal(job.Modes)
	if err != nil {
		return fmt.Errorf("marshal modes: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO batch_jobs (id, queries, modes, top_k, status, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, job.ID, queriesJSON, modesJSON, job.TopK, string(job.Status), job.Error, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert batch job: %w", err)
	}
	return nil
}

func (r *EvaluationRepository) GetBatch(ctx context.Context, id string) (*domain.BatchJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, queries, modes, top_k, status, error_message, created_at, updated_at
FROM batch_jobs
WHERE id = $1
`, id)

	var (
		job        domain.BatchJob
		queriesRaw []byte
		modesRaw   []byte
		status     string
	)
	err := row.Scan(&job.ID, &queriesRaw, &modesRaw, &job.TopK, &status, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get batch job", fmt.Errorf("batch %s", id))
		}
		return nil, fmt.Errorf("scan batch job: %w", err)
	}
	if err := json.Unmarshal(queriesRaw, &job.Queries); err != nil {
		return nil, fmt.Errorf("unmarshal queries: %w", err)
	}
	if err := json.Unmarshal(modesRaw, &job.Modes); err != nil {
		return nil, fmt.Errorf("unmarshal modes: %w", err)
	}
	job.Status = domain.BatchStatus(status)
	return &job, nil
}

func (r *EvaluationRepository) UpdateBatchStatus(ctx context.Context, id string, status domain.BatchStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE batch_jobs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	return requireAffected(res, "update batch status", id)
}

func (r *EvaluationRepository) SaveRun(ctx context.Context, run *domain.EvaluationRun) error {
	var batchID any
	if run.BatchID != "" {
		batchID = run.BatchID
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO evaluation_runs (
	id, batch_id, query, search_type, num_results,
	relevance, coverage, quality, faithfulness, overall,
	search_seconds, generation_seconds, total_seconds,
	failed, error_message, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`,
		run.ID, batchID, run.Query, string(run.SearchType), run.NumResults,
		run.Metrics.Relevance, run.Metrics.Coverage, run.Metrics.Quality, run.Metrics.Faithfulness, run.Metrics.Overall,
		run.Timings.SearchSeconds, run.Timings.GenerationSeconds, run.Timings.TotalSeconds,
		run.Failed, run.Error, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation run: %w", err)
	}
	return nil
}

func (r *EvaluationRepository) ListRuns(ctx context.Context, batchID string) ([]domain.EvaluationRun, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, batch_id, query, search_type, num_results,
	relevance, coverage, quality, faithfulness, overall,
	search_seconds, generation_seconds, total_seconds,
	failed, error_message, created_at
FROM evaluation_runs
WHERE batch_id = $1
ORDER BY created_at ASC, id ASC
`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list evaluation runs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.EvaluationRun, 0)
	for rows.Next() {
		var (
			run        domain.EvaluationRun
			runBatchID sql.NullString
			searchType string
		)
		err := rows.Scan(
			&run.ID, &runBatchID, &run.Query, &searchType, &run.NumResults,
			&run.Metrics.Relevance, &run.Metrics.Coverage, &run.Metrics.Quality, &run.Metrics.Faithfulness, &run.Metrics.Overall,
			&run.Timings.SearchSeconds, &run.Timings.GenerationSeconds, &run.Timings.TotalSeconds,
			&run.Failed, &run.Error, &run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation run: %w", err)
		}
		run.BatchID = runBatchID.String
		run.SearchType = domain.SearchMode(searchType)
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluation runs: %w", err)
	}
	return out, nil
}

// Ping is used by readiness checks.
func (r *EvaluationRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func requireAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("batch %s", id))
	}
	return nil
}
