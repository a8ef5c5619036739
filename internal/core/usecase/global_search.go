package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/ports"
	"github.com/kirillkom/graphrag-search/internal/core/similarity"
	"github.com/kirillkom/graphrag-search/internal/core/store"
)

// GlobalSearch ranks community reports against the query.
type GlobalSearch struct {
	communities *store.CommunityStore
	embedder    ports.Embedder
}

func NewGlobalSearch(communities *store.CommunityStore, embedder ports.Embedder) *GlobalSearch {
	return &GlobalSearch{
		communities: communities,
		embedder:    embedder,
	}
}

func (s *GlobalSearch) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "global search", fmt.Errorf("top_k must be positive"))
	}

	index, err := s.communities.Load(ctx)
	if err != nil {
		return nil, err
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := similarity.TopK(queryVector, index.Vectors, index.IDs, topK)
	if err != nil {
		return nil, fmt.Errorf("search communities: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(matches))
	for _, m := range matches {
		report := index.Reports[m.Index]
		content := report.Summary
		if content == "" {
			content = report.Title
		}
		results = append(results, domain.SearchResult{
			ID:      report.CommunityID,
			Type:    domain.ResultCommunity,
			Content: content,
			Score:   clampScore(m.Score),
			Metadata: domain.ResultMetadata{
				Community: &report,
				// Only the members named in the title; the full list stays on Community.
				Entities: ParseTitleEntities(report.Title),
			},
		})
	}
	return dedupeResults(results), nil
}
