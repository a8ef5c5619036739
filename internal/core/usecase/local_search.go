package usecase

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/graph"
	"github.com/kirillkom/graphrag-search/internal/core/ports"
	"github.com/kirillkom/graphrag-search/internal/core/similarity"
	"github.com/kirillkom/graphrag-search/internal/core/store"
)

type LocalSearchConfig struct {
	// EntityTopK bounds entity candidates merged with chunk results.
	EntityTopK int
	// GraphSeeds is how many top entity results seed graph expansion.
	GraphSeeds int
	HopRadius  int
	// MaxNeighbors and MaxRelationships bound the per-entity graph context.
	MaxNeighbors      int
	MaxRelationships  int
	MaxGraphNeighbors int
	// AutoPromote loads a missing tier on demand instead of failing.
	AutoPromote bool
}

func DefaultLocalSearchConfig() LocalSearchConfig {
	return LocalSearchConfig{
		EntityTopK:        5,
		GraphSeeds:        5,
		HopRadius:         1,
		MaxNeighbors:      10,
		MaxRelationships:  5,
		MaxGraphNeighbors: 20,
		AutoPromote:       true,
	}
}

func (c LocalSearchConfig) normalize() LocalSearchConfig {
	def := DefaultLocalSearchConfig()
	if c.EntityTopK <= 0 {
		c.EntityTopK = def.EntityTopK
	}
	if c.GraphSeeds <= 0 {
		c.GraphSeeds = def.GraphSeeds
	}
	if c.HopRadius <= 0 {
		c.HopRadius = def.HopRadius
	}
	if c.MaxNeighbors <= 0 {
		c.MaxNeighbors = def.MaxNeighbors
	}
	if c.MaxRelationships <= 0 {
		c.MaxRelationships = def.MaxRelationships
	}
	if c.MaxGraphNeighbors <= 0 {
		c.MaxGraphNeighbors = def.MaxGraphNeighbors
	}
	return c
}

type LocalSearchOptions struct {
	TopK            int
	IncludeEntities bool
	IncludeGraph    bool
}

// LocalSearch ranks chunks, optionally merged with entities and enriched
// with graph neighborhoods.
type LocalSearch struct {
	store    *store.TieredStore
	embedder ports.Embedder
	cfg      LocalSearchConfig
}

func NewLocalSearch(st *store.TieredStore, embedder ports.Embedder, cfg LocalSearchConfig) *LocalSearch {
	return &LocalSearch{
		store:    st,
		embedder: embedder,
		cfg:      cfg.normalize(),
	}
}

func (s *LocalSearch) Search(ctx context.Context, query string, opts LocalSearchOptions) ([]domain.SearchResult, error) {
	if opts.TopK <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "local search", fmt.Errorf("top_k must be positive"))
	}

	snap, err := s.snapshotFor(ctx, requiredTier(opts))
	if err != nil {
		return nil, err
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.searchSnapshot(snap, queryVector, opts)
}

func requiredTier(opts LocalSearchOptions) store.Tier {
	switch {
	case opts.IncludeEntities && opts.IncludeGraph:
		return store.TierGraph
	case opts.IncludeEntities:
		return store.TierEntities
	default:
		return store.TierChunks
	}
}

func (s *LocalSearch) snapshotFor(ctx context.Context, tier store.Tier) (*store.Snapshot, error) {
	snap := s.store.Snapshot()
	if snap.Tier() >= tier {
		return snap, nil
	}
	if !s.cfg.AutoPromote {
		return nil, domain.WrapError(
			domain.ErrStoreNotLoaded,
			"local search",
			fmt.Errorf("need tier %s, loaded %s", tier, snap.Tier()),
		)
	}
	if err := s.store.Load(ctx, tier); err != nil {
		return nil, err
	}
	return s.store.Snapshot(), nil
}

func (s *LocalSearch) searchSnapshot(snap *store.Snapshot, queryVector []float32, opts LocalSearchOptions) ([]domain.SearchResult, error) {
	chunkMatches, err := similarity.TopK(queryVector, snap.ChunkVectors(), snap.ChunkIDs(), opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	chunks := snap.Chunks()
	results := make([]domain.SearchResult, 0, len(chunkMatches)+s.cfg.EntityTopK)
	for _, m := range chunkMatches {
		c := chunks[m.Index]
		results = append(results, domain.SearchResult{
			ID:       c.ID,
			Type:     domain.ResultChunk,
			Content:  c.Text,
			Score:    clampScore(m.Score),
			Metadata: domain.ResultMetadata{Source: c.Source},
		})
	}

	if opts.IncludeEntities {
		entityResults, err := s.entityResults(snap, queryVector, opts.IncludeGraph)
		if err != nil {
			return nil, err
		}
		results = append(results, entityResults...)
		slices.SortStableFunc(results, func(a, b domain.SearchResult) int {
			return cmp.Compare(b.Score, a.Score)
		})
	}

	return truncateResults(dedupeResults(results), opts.TopK), nil
}

func (s *LocalSearch) entityResults(snap *store.Snapshot, queryVector []float32, withGraph bool) ([]domain.SearchResult, error) {
	matches, err := similarity.TopK(queryVector, snap.EntityVectors(), snap.EntityIDs(), s.cfg.EntityTopK)
	if err != nil {
		return nil, fmt.Errorf("search entities: %w", err)
	}

	g := snap.Graph()
	entities := snap.Entities()
	out := make([]domain.SearchResult, 0, len(matches))
	for i, m := range matches {
		entity := entities[m.Index]
		result := domain.SearchResult{
			ID:      entity.ID,
			Type:    domain.ResultEntity,
			Content: entityContent(entity),
			Score:   clampScore(m.Score),
			Metadata: domain.ResultMetadata{
				Entity: &entity,
			},
		}
		if withGraph && g != nil {
			if node, ok := graphNodeFor(g, entity); ok {
				gc := g.Context(node, s.cfg.MaxNeighbors, s.cfg.MaxRelationships)
				result.Metadata.GraphContext = &gc
				if i < s.cfg.GraphSeeds {
					result.Metadata.GraphNeighbors = s.expandNames(g, node)
				}
			} else {
				slog.Debug("graph_seed_missing", "entity_id", entity.ID, "entity_name", entity.Name)
			}
		}
		out = append(out, result)
	}
	return out, nil
}

// expandNames returns the names of entities reachable from node within the
// hop radius, the node itself excluded.
func (s *LocalSearch) expandNames(g *graph.Graph, node string) []string {
	reached, _ := g.Expand([]string{node}, s.cfg.HopRadius)
	names := make([]string, 0, len(reached))
	for _, id := range reached {
		if id == node {
			continue
		}
		name := id
		if e, ok := g.Entity(id); ok && e.Name != "" {
			name = e.Name
		}
		names = append(names, name)
		if len(names) == s.cfg.MaxGraphNeighbors {
			break
		}
	}
	return names
}

// graphNodeFor resolves an entity to its graph node, by id first and then by
// name, since graph files commonly key nodes by entity name.
func graphNodeFor(g *graph.Graph, entity domain.Entity) (string, bool) {
	if g.HasNode(entity.ID) {
		return entity.ID, true
	}
	if entity.Name != "" && g.HasNode(entity.Name) {
		return entity.Name, true
	}
	return "", false
}

func entityContent(e domain.Entity) string {
	if e.Description == "" {
		return e.Name
	}
	return e.Name + ": " + e.Description
}

func clampScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

// dedupeResults keeps the first, highest-ranked occurrence of every id.
func dedupeResults(results []domain.SearchResult) []domain.SearchResult {
	return dedupeBy(results, func(r domain.SearchResult) string { return r.ID })
}

func dedupeBy(results []domain.SearchResult, key func(domain.SearchResult) string) []domain.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := results[:0]
	for _, r := range results {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

func truncateResults(results []domain.SearchResult, topK int) []domain.SearchResult {
	if len(results) > topK {
		return results[:topK]
	}
	return results
}
