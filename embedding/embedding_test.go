package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedInBatchesPreservesOrder(t *testing.T) {
	ctx := context.Background()
	mock := &MockEmbedder{Dim: 1}

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff", "g"}
	vectors, err := EmbedInBatches(ctx, mock, texts, 3)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	// Each key must end up zipped with the embedding of its own content,
	// regardless of which batch finished first.
	for i, text := range texts {
		assert.Equal(t, float64(len(text)), vectors[i][0], "vector %d", i)
	}

	// 7 texts with batch size 3 -> batches of 3, 3, 1.
	calls := mock.Calls()
	require.Len(t, calls, 3)
	sizes := map[int]int{}
	for _, batch := range calls {
		sizes[len(batch)]++
	}
	assert.Equal(t, map[int]int{3: 2, 1: 1}, sizes)
}

func TestEmbedInBatchesEmptyInput(t *testing.T) {
	mock := &MockEmbedder{Dim: 1}
	vectors, err := EmbedInBatches(context.Background(), mock, nil, 3)
	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Empty(t, mock.Calls())
}

func TestEmbedInBatchesFailurePropagates(t *testing.T) {
	boom := errors.New("backend down")
	mock := &MockEmbedder{Dim: 1, Err: boom}

	vectors, err := EmbedInBatches(context.Background(), mock, []string{"a", "b", "c"}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, vectors, "no partial result on failure")
}

func TestEmbedInBatchesDimensionMismatch(t *testing.T) {
	mock := &MockEmbedder{
		Dim: 3,
		Fn: func(text string) []float64 {
			return []float64{1, 2} // wrong length
		},
	}

	_, err := EmbedInBatches(context.Background(), mock, []string{"a"}, 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

type countMismatchEmbedder struct{}

func (countMismatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return [][]float64{{1}}, nil
}

func (countMismatchEmbedder) Dimensions() int { return 1 }

func TestEmbedInBatchesRowCountMismatch(t *testing.T) {
	_, err := EmbedInBatches(context.Background(), countMismatchEmbedder{}, []string{"a", "b"}, 8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 vectors for 2 texts")
}

func TestCosineSimilarity(t *testing.T) {
	sim, err := CosineSimilarity([]float64{1, 0}, []float64{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float64{1, 0}, []float64{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)

	dist, err := CosineDistance([]float64{1, 0}, []float64{-1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, dist, 1e-9)

	_, err = CosineSimilarity([]float64{1}, []float64{1, 2})
	assert.Error(t, err)

	_, err = CosineSimilarity([]float64{0, 0}, []float64{1, 0})
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	v, err := Normalize([]float64{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, v[0], 1e-9)
	assert.InDelta(t, 0.8, v[1], 1e-9)

	_, err = Normalize([]float64{0, 0})
	assert.Error(t, err)
}

func ExampleEmbedInBatches() {
	mock := &MockEmbedder{Dim: 1}
	vectors, _ := EmbedInBatches(context.Background(), mock, []string{"hi", "there"}, 1)
	fmt.Println(vectors[0][0], vectors[1][0])
	// Output: 2 5
}
