package store

import (
	"context"
	"sync"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/ports"
)

// CommunityIndex holds every community report vector. It is loaded once and
// is not tiered.
type CommunityIndex struct {
	Reports []domain.CommunityReport
	IDs     []string
	Vectors domain.Matrix
}

type CommunityStore struct {
	source ports.StoreSource

	mu    sync.Mutex
	index *CommunityIndex
}

func NewCommunityStore(source ports.StoreSource) *CommunityStore {
	return &CommunityStore{source: source}
}

func (s *CommunityStore) Load(ctx context.Context) (*CommunityIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		return s.index, nil
	}

	reports, vectors, err := s.source.LoadCommunityReports(ctx)
	if err != nil {
		return nil, wrapLoadError("load community reports", err)
	}
	if err := checkIntegrity("community reports", vectors, len(reports)); err != nil {
		return nil, err
	}
	ids := make([]string, len(reports))
	for i, r := range reports {
		ids[i] = r.CommunityID
	}
	s.index = &CommunityIndex{Reports: reports, IDs: ids, Vectors: vectors}
	return s.index, nil
}
