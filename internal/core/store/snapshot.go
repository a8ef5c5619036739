package store

import (
	"fmt"
	"strings"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/graph"
)

// Tier is an incremental level of store completeness.
type Tier int

const (
	TierNone     Tier = 0
	TierChunks   Tier = 1
	TierEntities Tier = 2
	TierGraph    Tier = 3
)

func (t Tier) String() string {
	switch t {
	case TierChunks:
		return "chunks"
	case TierEntities:
		return "entities"
	case TierGraph:
		return "graph"
	default:
		return "none"
	}
}

// ParseTier accepts a tier name or its number.
func ParseTier(raw string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none", "0":
		return TierNone, nil
	case "chunks", "1":
		return TierChunks, nil
	case "entities", "2":
		return TierEntities, nil
	case "graph", "3":
		return TierGraph, nil
	default:
		return TierNone, domain.WrapError(domain.ErrInvalidInput, "parse tier", fmt.Errorf("unknown tier %q", raw))
	}
}

// Snapshot is the read-only content of the store at one tier. Accessors
// return shared slices; callers must not modify them.
type Snapshot struct {
	tier Tier

	chunks       []domain.Chunk
	chunkIDs     []string
	chunkVectors domain.Matrix

	entities      []domain.Entity
	entityIDs     []string
	entityVectors domain.Matrix

	graph *graph.Graph
}

var emptySnapshot = &Snapshot{}

func (s *Snapshot) Tier() Tier { return s.tier }

func (s *Snapshot) Chunks() []domain.Chunk { return s.chunks }

func (s *Snapshot) ChunkIDs() []string { return s.chunkIDs }

func (s *Snapshot) ChunkVectors() domain.Matrix { return s.chunkVectors }

func (s *Snapshot) Entities() []domain.Entity { return s.entities }

func (s *Snapshot) EntityIDs() []string { return s.entityIDs }

func (s *Snapshot) EntityVectors() domain.Matrix { return s.entityVectors }

// Graph is nil below TierGraph.
func (s *Snapshot) Graph() *graph.Graph { return s.graph }

func (s *Snapshot) clone() *Snapshot {
	next := *s
	return &next
}
