package usecase

import (
	"context"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/store"
)

// GraphStatsUseCase reports on the knowledge graph, promoting the store to
// the graph tier on first use.
type GraphStatsUseCase struct {
	store *store.TieredStore
}

func NewGraphStatsUseCase(st *store.TieredStore) *GraphStatsUseCase {
	return &GraphStatsUseCase{store: st}
}

func (uc *GraphStatsUseCase) GraphStats(ctx context.Context) (domain.GraphStats, error) {
	if err := uc.store.Load(ctx, store.TierGraph); err != nil {
		return domain.GraphStats{}, err
	}
	g := uc.store.Snapshot().Graph()
	if g == nil {
		return domain.GraphStats{}, nil
	}
	return g.Stats(), nil
}
