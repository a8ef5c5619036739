// Package store loads precomputed embeddings in tiers and serves them as
// immutable snapshots.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/graph"
	"github.com/kirillkom/graphrag-search/internal/core/ports"
)

// TieredStore promotes forward through tiers. Readers get the current
// snapshot without locking; promotions are serialized and publish a new
// snapshot only after every step of the promotion succeeded.
type TieredStore struct {
	source ports.StoreSource
	graphs ports.GraphSource

	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

func NewTieredStore(source ports.StoreSource, graphs ports.GraphSource) *TieredStore {
	s := &TieredStore{source: source, graphs: graphs}
	s.current.Store(emptySnapshot)
	return s
}

func (s *TieredStore) Snapshot() *Snapshot {
	return s.current.Load()
}

func (s *TieredStore) Tier() Tier {
	return s.current.Load().tier
}

// Load makes sure at least tier is loaded. Loading an already satisfied tier
// is a no-op.
func (s *TieredStore) Load(ctx context.Context, tier Tier) error {
	if tier < TierChunks || tier > TierGraph {
		return domain.WrapError(domain.ErrInvalidInput, "store load", fmt.Errorf("unknown tier %d", tier))
	}
	if s.Tier() >= tier {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	if cur.tier >= tier {
		return nil
	}

	start := time.Now()
	next := cur.clone()
	if cur.tier < TierChunks {
		if err := s.loadChunks(ctx, next); err != nil {
			return err
		}
	}
	if tier >= TierEntities && cur.tier < TierEntities {
		if err := s.loadEntities(ctx, next); err != nil {
			return err
		}
	}
	if tier >= TierGraph && cur.tier < TierGraph {
		if err := s.loadGraph(ctx, next); err != nil {
			return err
		}
	}
	next.tier = tier
	s.current.Store(next)

	slog.Info("store_tier_loaded",
		"from", cur.tier.String(),
		"to", tier.String(),
		"chunks", len(next.chunks),
		"entities", len(next.entities),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return nil
}

func (s *TieredStore) loadChunks(ctx context.Context, next *Snapshot) error {
	chunks, vectors, err := s.source.LoadChunks(ctx)
	if err != nil {
		return wrapLoadError("load chunks", err)
	}
	if err := checkIntegrity("chunks", vectors, len(chunks)); err != nil {
		return err
	}
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	next.chunks = chunks
	next.chunkIDs = ids
	next.chunkVectors = vectors
	return nil
}

func (s *TieredStore) loadEntities(ctx context.Context, next *Snapshot) error {
	entities, vectors, err := s.source.LoadEntities(ctx)
	if err != nil {
		return wrapLoadError("load entities", err)
	}
	if err := checkIntegrity("entities", vectors, len(entities)); err != nil {
		return err
	}
	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}
	next.entities = entities
	next.entityIDs = ids
	next.entityVectors = vectors
	return nil
}

func (s *TieredStore) loadGraph(ctx context.Context, next *Snapshot) error {
	if s.graphs == nil {
		return domain.WrapError(domain.ErrStoreLoad, "load graph", fmt.Errorf("no graph source configured"))
	}
	nodes, relationships, err := s.graphs.LoadGraph(ctx)
	if err != nil {
		return wrapLoadError("load graph", err)
	}

	// Entities with embeddings join the node set so relationships between
	// them survive even when the graph file omits the node.
	known := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		known[n.ID] = struct{}{}
	}
	for _, e := range next.entities {
		if _, ok := known[e.ID]; !ok {
			nodes = append(nodes, e)
			known[e.ID] = struct{}{}
		}
	}

	g, dropped := graph.New(nodes, relationships)
	if dropped > 0 {
		slog.Warn("graph_relationships_dropped", "dropped", dropped, "total", len(relationships))
	}
	next.graph = g
	return nil
}

func checkIntegrity(name string, vectors domain.Matrix, records int) error {
	if vectors.Rows != records {
		return domain.WrapError(
			domain.ErrStoreLoad,
			"store integrity",
			fmt.Errorf("%s: %d vectors for %d records", name, vectors.Rows, records),
		)
	}
	if len(vectors.Data) != vectors.Rows*vectors.Dim {
		return domain.WrapError(
			domain.ErrStoreLoad,
			"store integrity",
			fmt.Errorf("%s: matrix data has %d values for shape %dx%d", name, len(vectors.Data), vectors.Rows, vectors.Dim),
		)
	}
	return nil
}

func wrapLoadError(operation string, err error) error {
	if domain.IsKind(err, domain.ErrStoreLoad) || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	return domain.WrapError(domain.ErrStoreLoad, operation, err)
}
