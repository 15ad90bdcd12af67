// Package embedding defines the embedding-function contract consumed by the
// vector stores and the shared batched-embedding protocol they drive.
package embedding

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when an embedding function produces a
// vector whose length differs from the configured dimensionality. Such
// vectors are rejected, never truncated or padded.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// BatchEmbedder maps a batch of texts to one float vector per text, in input
// order. Implementations must be safe for concurrent calls: the batching
// protocol keeps every batch of one upsert in flight simultaneously.
type BatchEmbedder interface {
	// EmbedBatch returns one vector per input text, positionally aligned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the fixed length of every produced vector.
	Dimensions() int
}
