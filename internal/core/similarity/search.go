// Package similarity ranks candidate vectors against a query vector.
package similarity

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

// Match is one ranked candidate.
type Match struct {
	ID    string
	Index int
	Score float64
}

// Cosine returns the cosine similarity of a and b. Zero-magnitude vectors
// score 0. The caller guarantees equal lengths.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// TopK returns the min(k, len(ids)) candidates most similar to query, best
// first. Equal scores keep candidate order. Inputs are not modified.
func TopK(query []float32, candidates domain.Matrix, ids []string, k int) ([]Match, error) {
	if candidates.Rows != len(ids) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"similarity top k",
			fmt.Errorf("matrix has %d rows for %d ids", candidates.Rows, len(ids)),
		)
	}
	if k <= 0 || len(ids) == 0 {
		return []Match{}, nil
	}
	if len(query) != candidates.Dim {
		return nil, domain.WrapError(
			domain.ErrDimensionMismatch,
			"similarity top k",
			fmt.Errorf("query has %d dimensions, candidates have %d", len(query), candidates.Dim),
		)
	}

	matches := make([]Match, len(ids))
	for i := range ids {
		matches[i] = Match{ID: ids[i], Index: i, Score: Cosine(query, candidates.Row(i))}
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}
