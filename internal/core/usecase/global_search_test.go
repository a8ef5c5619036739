package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/store"
)

func TestGlobalSearchRanksCommunities(t *testing.T) {
	src := healthSource()
	search := NewGlobalSearch(store.NewCommunityStore(src), &embedderFake{})

	results, err := search.Search(context.Background(), "protein", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	require.Len(t, results, 2)
	assert.Equal(t, "0", results[0].ID)
	assert.Equal(t, domain.ResultCommunity, results[0].Type)
	assert.Equal(t, "Muscle building nutrition community.", results[0].Content)
	require.NotNil(t, results[0].Metadata.Community)
	assert.Equal(t, 6, results[0].Metadata.Community.NumEntities)
	assert.Equal(t, []string{"Protein", "Creatine"}, results[0].Metadata.Entities)

	_, err = search.Search(context.Background(), "sleep", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, src.reportLoads)
}

func TestGlobalSearchEntitiesComeFromTitle(t *testing.T) {
	_, communities := newHealthStores(t, store.TierNone)
	embedder := &embedderFake{vectors: map[string][]float32{"vitamin": {0, 0, 1}}}
	search := NewGlobalSearch(communities, embedder)

	results, err := search.Search(context.Background(), "vitamin", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	require.Len(t, results, 1)
	assert.Equal(t, "2", results[0].ID)
	assert.Equal(t, []string{"Vitamin D"}, results[0].Metadata.Entities)
	require.NotNil(t, results[0].Metadata.Community)
	assert.Equal(t, []string{"Vitamin D", "Sunlight"}, results[0].Metadata.Community.Entities)
}

func TestGlobalSearchIgnoresStoredMembersForEntities(t *testing.T) {
	members := []string{"ProteinA", "CreatineA", "Whey", "Casein", "Leucine", "Muscle", "Kidney", "Glycogen"}
	src := &sourceFake{}
	rows := make([][]float32, 0, 5)
	for i := range 5 {
		src.reports = append(src.reports, domain.CommunityReport{
			CommunityID: fmt.Sprint(i),
			Title:       "ProteinA, CreatineA and 6 others",
			Summary:     "Muscle nutrition.",
			Entities:    members,
			NumEntities: len(members),
		})
		rows = append(rows, []float32{1, float32(i) / 10, 0})
	}
	src.reportVectors = domain.NewMatrix(rows)
	search := NewGlobalSearch(store.NewCommunityStore(src), &embedderFake{})

	results, err := search.Search(context.Background(), "protein", 5)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for _, r := range results {
		assert.Equal(t, []string{"ProteinA", "CreatineA"}, r.Metadata.Entities)
		require.NotNil(t, r.Metadata.Community)
		assert.Len(t, r.Metadata.Community.Entities, 8)
	}
}

func TestGlobalSearchFallsBackToTitleContent(t *testing.T) {
	src := &sourceFake{
		reports:       []domain.CommunityReport{{CommunityID: "7", Title: "Hydration"}},
		reportVectors: domain.NewMatrix([][]float32{{1, 0, 0}}),
	}
	search := NewGlobalSearch(store.NewCommunityStore(src), &embedderFake{})

	results, err := search.Search(context.Background(), "water", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	require.Len(t, results, 1)
	assert.Equal(t, "Hydration", results[0].Content)
	assert.Equal(t, []string{"Hydration"}, results[0].Metadata.Entities)
}

func TestGlobalSearchRejectsNonPositiveTopK(t *testing.T) {
	src := healthSource()
	search := NewGlobalSearch(store.NewCommunityStore(src), &embedderFake{})

	_, err := search.Search(context.Background(), "protein", -1)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if src.reportLoads != 0 {
		t.Fatalf("invalid request must not load communities")
	}
}
