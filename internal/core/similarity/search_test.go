package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

func TestTopKOrdersByCosineDescending(t *testing.T) {
	m := domain.NewMatrix([][]float32{
		{0, 1},
		{1, 0},
		{1, 1},
	})
	got, err := TopK([]float32{1, 0}, m, []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.InDelta(t, 0.70710678, got[1].Score, 1e-6)
}

func TestTopKLengthIsMinOfKAndCandidates(t *testing.T) {
	m := domain.NewMatrix([][]float32{{1, 0}, {0, 1}})
	got, err := TopK([]float32{1, 1}, m, []string{"a", "b"}, 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = TopK([]float32{1, 1}, domain.Matrix{}, nil, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTopKBreaksTiesByCandidateOrder(t *testing.T) {
	m := domain.NewMatrix([][]float32{
		{2, 0},
		{0, 1},
		{1, 0},
		{3, 0},
	})
	got, err := TopK([]float32{1, 0}, m, []string{"first", "other", "second", "third"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestTopKScoresNonIncreasing(t *testing.T) {
	rows := [][]float32{{0.1, 0.9, 0.3}, {0.5, 0.5, 0.5}, {-1, 0, 0.2}, {0.9, 0.1, 0}, {0, 0, 1}}
	ids := []string{"a", "b", "c", "d", "e"}
	got, err := TopK([]float32{0.7, 0.2, 0.1}, domain.NewMatrix(rows), ids, 4)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i].Score, got[i-1].Score)
	}
}

func TestTopKDimensionMismatch(t *testing.T) {
	m := domain.NewMatrix([][]float32{{1, 0, 0}})
	_, err := TopK([]float32{1, 0}, m, []string{"a"}, 1)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrDimensionMismatch))
}

func TestTopKDoesNotMutateInputs(t *testing.T) {
	rows := [][]float32{{3, 4}, {1, 0}}
	m := domain.NewMatrix(rows)
	data := append([]float32(nil), m.Data...)
	ids := []string{"x", "y"}
	query := []float32{1, 0}

	_, err := TopK(query, m, ids, 2)
	require.NoError(t, err)
	assert.Equal(t, data, m.Data)
	assert.Equal(t, []string{"x", "y"}, ids)
	assert.Equal(t, []float32{1, 0}, query)
}

func TestCosineZeroVector(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
}
