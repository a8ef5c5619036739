package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/graphrag-search/internal/core/store"
)

func TestGraphStatsPromotesToGraphTier(t *testing.T) {
	tiered, _ := newHealthStores(t, store.TierChunks)
	uc := NewGraphStatsUseCase(tiered)

	stats, err := uc.GraphStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.TierGraph, tiered.Tier())
	assert.GreaterOrEqual(t, stats.Nodes, 4)
	assert.Equal(t, 3, stats.Edges)
}
