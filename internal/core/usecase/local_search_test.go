package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/store"
)

func TestLocalSearchChunksOnlyDedupesIDs(t *testing.T) {
	st, _ := newHealthStores(t, store.TierChunks)
	search := NewLocalSearch(st, &embedderFake{}, DefaultLocalSearchConfig())

	results, err := search.Search(context.Background(), "protein", LocalSearchOptions{TopK: 3})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results after dedupe, got %d", len(results))
	}
	assert.Equal(t, "c1", results[0].ID)
	assert.Equal(t, "c2", results[1].ID)
	assert.Equal(t, domain.ResultChunk, results[0].Type)
	assert.Contains(t, results[0].Content, "1g protein")
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.Equal(t, store.TierChunks, st.Tier(), "chunk search must not promote further")
}

func TestLocalSearchMergesEntitiesByScore(t *testing.T) {
	st, _ := newHealthStores(t, store.TierEntities)
	search := NewLocalSearch(st, &embedderFake{}, DefaultLocalSearchConfig())

	results, err := search.Search(context.Background(), "protein", LocalSearchOptions{TopK: 3, IncludeEntities: true})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	require.Len(t, results, 3)
	assert.Equal(t, "Protein", results[0].ID)
	assert.Equal(t, domain.ResultEntity, results[0].Type)
	assert.Equal(t, "Protein: Macronutrient for muscle repair", results[0].Content)
	require.NotNil(t, results[0].Metadata.Entity)
	assert.Equal(t, "nutrient", results[0].Metadata.Entity.Type)
	assert.Nil(t, results[0].Metadata.GraphContext, "graph context requires include_graph")
	assert.Equal(t, "c1", results[1].ID)
	assert.Equal(t, "c2", results[2].ID)

	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatalf("results not ordered by score at %d: %v > %v", i, results[i].Score, results[i-1].Score)
		}
	}
}

func TestLocalSearchGraphEnrichmentKeepsRanking(t *testing.T) {
	withoutGraph, _ := newHealthStores(t, store.TierEntities)
	withGraph, _ := newHealthStores(t, store.TierGraph)

	plain, err := NewLocalSearch(withoutGraph, &embedderFake{}, DefaultLocalSearchConfig()).
		Search(context.Background(), "protein", LocalSearchOptions{TopK: 4, IncludeEntities: true})
	if err != nil {
		t.Fatalf("Search() without graph error = %v", err)
	}
	enriched, err := NewLocalSearch(withGraph, &embedderFake{}, DefaultLocalSearchConfig()).
		Search(context.Background(), "protein", LocalSearchOptions{TopK: 4, IncludeEntities: true, IncludeGraph: true})
	if err != nil {
		t.Fatalf("Search() with graph error = %v", err)
	}

	require.Len(t, enriched, len(plain))
	for i := range plain {
		assert.Equal(t, plain[i].ID, enriched[i].ID)
		assert.InDelta(t, plain[i].Score, enriched[i].Score, 1e-12)
	}

	protein := enriched[0]
	require.NotNil(t, protein.Metadata.GraphContext)
	assert.Equal(t, 2, protein.Metadata.GraphContext.Degree)
	assert.ElementsMatch(t, []string{"Kidney", "Muscle"}, protein.Metadata.GraphContext.Neighbors)
	assert.ElementsMatch(t, []string{"Kidney", "Muscle"}, protein.Metadata.GraphNeighbors)
}

func TestLocalSearchAutoPromotesMissingTier(t *testing.T) {
	st, _ := newHealthStores(t, store.TierNone)
	search := NewLocalSearch(st, &embedderFake{}, DefaultLocalSearchConfig())

	if _, err := search.Search(context.Background(), "protein", LocalSearchOptions{TopK: 2, IncludeEntities: true, IncludeGraph: true}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if st.Tier() != store.TierGraph {
		t.Fatalf("expected store promoted to graph tier, got %s", st.Tier())
	}
}

func TestLocalSearchWithoutAutoPromoteFailsOnMissingTier(t *testing.T) {
	st, _ := newHealthStores(t, store.TierChunks)
	cfg := DefaultLocalSearchConfig()
	cfg.AutoPromote = false
	search := NewLocalSearch(st, &embedderFake{}, cfg)

	_, err := search.Search(context.Background(), "protein", LocalSearchOptions{TopK: 2, IncludeEntities: true})
	if !domain.IsKind(err, domain.ErrStoreNotLoaded) {
		t.Fatalf("expected ErrStoreNotLoaded, got %v", err)
	}
	assert.Equal(t, store.TierChunks, st.Tier())
}

func TestLocalSearchRejectsNonPositiveTopK(t *testing.T) {
	st, _ := newHealthStores(t, store.TierChunks)
	search := NewLocalSearch(st, &embedderFake{}, DefaultLocalSearchConfig())

	_, err := search.Search(context.Background(), "protein", LocalSearchOptions{TopK: 0})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLocalSearchDimensionMismatch(t *testing.T) {
	st, _ := newHealthStores(t, store.TierChunks)
	embedder := &embedderFake{vectors: map[string][]float32{"short": {1, 0}}}
	search := NewLocalSearch(st, embedder, DefaultLocalSearchConfig())

	_, err := search.Search(context.Background(), "short", LocalSearchOptions{TopK: 2})
	if !domain.IsKind(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestLocalSearchEmbedErrorIsWrapped(t *testing.T) {
	st, _ := newHealthStores(t, store.TierChunks)
	boom := errors.New("embedding backend down")
	search := NewLocalSearch(st, &embedderFake{err: boom}, DefaultLocalSearchConfig())

	_, err := search.Search(context.Background(), "protein", LocalSearchOptions{TopK: 2})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped embed error, got %v", err)
	}
}

func TestLocalSearchEmptyStoreReturnsNoResults(t *testing.T) {
	src := &sourceFake{}
	st := store.NewTieredStore(src, src)
	search := NewLocalSearch(st, &embedderFake{}, DefaultLocalSearchConfig())

	results, err := search.Search(context.Background(), "anything", LocalSearchOptions{TopK: 5})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}
