package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*EvaluationRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &EvaluationRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetBatchReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, queries, modes, top_k").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetBatch(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetBatchDecodesJSONColumns(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, queries, modes, top_k").
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "queries", "modes", "top_k", "status", "error_message", "created_at", "updated_at"}).
			AddRow("b1", []byte(`["protein","sleep"]`), []byte(`["local","global"]`), 5, "running", "", now, now))

	job, err := repo.GetBatch(context.Background(), "b1")
	if err != nil {
		t.Fatalf("GetBatch() error = %v", err)
	}
	if len(job.Queries) != 2 || job.Modes[1] != domain.SearchGlobal || job.Status != domain.BatchRunning || job.TopK != 5 {
		t.Fatalf("unexpected job: %+v", job)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateBatchStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE batch_jobs").
		WithArgs("missing", string(domain.BatchRunning), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateBatchStatus(context.Background(), "missing", domain.BatchRunning, "")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveRunWritesMetricsAndTimings(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	run := &domain.EvaluationRun{
		ID:         "r1",
		BatchID:    "b1",
		Query:      "protein",
		SearchType: domain.SearchLocal,
		NumResults: 3,
		Metrics:    domain.MetricsResult{Relevance: 0.8, Coverage: 0.5, Quality: 0.6, Faithfulness: 0.9, Overall: 0.7},
		Timings:    domain.SearchTimings{SearchSeconds: 0.1, GenerationSeconds: 1.2, TotalSeconds: 1.3},
		CreatedAt:  time.Now().UTC(),
	}
	mock.ExpectExec("INSERT INTO evaluation_runs").
		WithArgs("r1", "b1", "protein", "local", 3, 0.8, 0.5, 0.6, 0.9, 0.7, 0.1, 1.2, 1.3, false, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.SaveRun(context.Background(), run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListRunsScansRows(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("FROM evaluation_runs").
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "batch_id", "query", "search_type", "num_results",
			"relevance", "coverage", "quality", "faithfulness", "overall",
			"search_seconds", "generation_seconds", "total_seconds",
			"failed", "error_message", "created_at",
		}).
			AddRow("r1", "b1", "protein", "global", 2, 0.5, 0.4, 0.3, 0.2, 0.35, 0.1, 0.2, 0.3, true, "boom", now))

	runs, err := repo.ListRuns(context.Background(), "b1")
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].SearchType != domain.SearchGlobal || !runs[0].Failed || runs[0].Error != "boom" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(schemaLockID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS batch_jobs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
