package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/store"
)

type embedderFake struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *embedderFake) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := f.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

type sourceFake struct {
	chunks        []domain.Chunk
	chunkVectors  domain.Matrix
	entities      []domain.Entity
	entityVectors domain.Matrix
	reports       []domain.CommunityReport
	reportVectors domain.Matrix
	nodes         []domain.Entity
	relationships []domain.Relationship
	reportLoads   int
}

func (f *sourceFake) LoadChunks(context.Context) ([]domain.Chunk, domain.Matrix, error) {
	return f.chunks, f.chunkVectors, nil
}

func (f *sourceFake) LoadEntities(context.Context) ([]domain.Entity, domain.Matrix, error) {
	return f.entities, f.entityVectors, nil
}

func (f *sourceFake) LoadCommunityReports(context.Context) ([]domain.CommunityReport, domain.Matrix, error) {
	f.reportLoads++
	return f.reports, f.reportVectors, nil
}

func (f *sourceFake) LoadGraph(context.Context) ([]domain.Entity, []domain.Relationship, error) {
	return f.nodes, f.relationships, nil
}

// healthSource is a small protein/supplement corpus in three dimensions:
// x = protein, y = sleep, z = vitamins.
func healthSource() *sourceFake {
	return &sourceFake{
		chunks: []domain.Chunk{
			{ID: "c1", Text: "Adult males need about 1g protein per kg of body weight."},
			{ID: "c2", Text: "Sleep quality improves with magnesium."},
			{ID: "c3", Text: "Vitamin D is produced from sunlight exposure."},
			{ID: "c1", Text: "Duplicate row for c1 with a different text."},
		},
		chunkVectors: domain.NewMatrix([][]float32{
			{0.9, 0.1, 0},
			{0.1, 0.9, 0},
			{0, 0.2, 0.9},
			{0.8, 0.1, 0},
		}),
		entities: []domain.Entity{
			{ID: "Protein", Name: "Protein", Type: "nutrient", Description: "Macronutrient for muscle repair"},
			{ID: "Magnesium", Name: "Magnesium", Type: "mineral", Description: "Supports sleep"},
		},
		entityVectors: domain.NewMatrix([][]float32{
			{1, 0, 0},
			{0, 1, 0},
		}),
		reports: []domain.CommunityReport{
			{CommunityID: "0", Title: "Protein, Creatine and 4 others", Summary: "Muscle building nutrition community.", NumEntities: 6},
			{CommunityID: "1", Title: "Sleep and Magnesium", Summary: "Sleep hygiene community.", NumEntities: 2},
			{CommunityID: "2", Title: "Vitamin D", Summary: "Vitamin community.", Entities: []string{"Vitamin D", "Sunlight"}, NumEntities: 2},
		},
		reportVectors: domain.NewMatrix([][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		}),
		nodes: []domain.Entity{
			{ID: "Protein", Name: "Protein"},
			{ID: "Kidney", Name: "Kidney"},
			{ID: "Creatine", Name: "Creatine"},
			{ID: "Muscle", Name: "Muscle"},
		},
		relationships: []domain.Relationship{
			{SourceID: "Protein", TargetID: "Kidney", Relationship: "processed by"},
			{SourceID: "Protein", TargetID: "Muscle", Relationship: "builds"},
			{SourceID: "Muscle", TargetID: "Creatine", Relationship: "stores"},
		},
	}
}

func newHealthStores(t interface{ Fatalf(string, ...any) }, tier store.Tier) (*store.TieredStore, *store.CommunityStore) {
	src := healthSource()
	st := store.NewTieredStore(src, src)
	if tier > store.TierNone {
		if err := st.Load(context.Background(), tier); err != nil {
			t.Fatalf("load tier %s: %v", tier, err)
		}
	}
	return st, store.NewCommunityStore(src)
}

type generatorFake struct {
	mu      sync.Mutex
	answer  string
	err     error
	mode    domain.SearchMode
	context string
	calls   int
	onCall  func()
}

func (f *generatorFake) GenerateAnswer(_ context.Context, mode domain.SearchMode, _ string, contextText string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = mode
	f.context = contextText
	f.calls++
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type evaluatorFake struct {
	answers []string
}

func (f *evaluatorFake) Evaluate(_ string, results []domain.SearchResult, answer, _ string) domain.MetricsResult {
	f.answers = append(f.answers, answer)
	return domain.MetricsResult{Relevance: 0.5, Coverage: float64(len(results)) / 10, Overall: 0.4}
}

type repoFake struct {
	mu       sync.Mutex
	jobs     map[string]*domain.BatchJob
	runs     []domain.EvaluationRun
	statuses []domain.BatchStatus
	saveErr  error
}

func newRepoFake() *repoFake {
	return &repoFake{jobs: map[string]*domain.BatchJob{}}
}

func (f *repoFake) CreateBatch(_ context.Context, job *domain.BatchJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copyJob := *job
	f.jobs[job.ID] = &copyJob
	return nil
}

func (f *repoFake) GetBatch(_ context.Context, id string) (*domain.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get batch", errors.New(id))
	}
	copyJob := *job
	return &copyJob, nil
}

func (f *repoFake) UpdateBatchStatus(_ context.Context, id string, status domain.BatchStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update batch", errors.New(id))
	}
	job.Status = status
	job.Error = errMessage
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *repoFake) SaveRun(_ context.Context, run *domain.EvaluationRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.runs = append(f.runs, *run)
	return nil
}

func (f *repoFake) ListRuns(_ context.Context, batchID string) ([]domain.EvaluationRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.EvaluationRun, 0, len(f.runs))
	for _, run := range f.runs {
		if run.BatchID == batchID {
			out = append(out, run)
		}
	}
	return out, nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishBatchQueued(_ context.Context, batchID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, batchID)
	return nil
}

func (f *queueFake) SubscribeBatchQueued(context.Context, func(context.Context, string) error) error {
	return nil
}
