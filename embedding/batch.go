package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// EmbedInBatches splits texts into contiguous batches of at most batchSize,
// embeds all batches concurrently, and returns the vectors reassembled in the
// original input order.
//
// Every batch must succeed: the first failure cancels the remaining batches
// and fails the whole call, so callers never observe a partial result. The
// positional guarantee matters because callers zip the returned vectors with
// their input keys rather than doing a keyed join.
func EmbedInBatches(ctx context.Context, e BatchEmbedder, texts []string, batchSize int) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	// Each batch writes into its own pre-computed slice window, so no
	// synchronization is needed beyond the errgroup join.
	vectors := make([][]float64, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batch := texts[start:end]
		offset := start

		g.Go(func() error {
			got, err := e.EmbedBatch(gctx, batch)
			if err != nil {
				return fmt.Errorf("embed batch at offset %d: %w", offset, err)
			}
			if len(got) != len(batch) {
				return fmt.Errorf("embed batch at offset %d: got %d vectors for %d texts", offset, len(got), len(batch))
			}
			for i, vec := range got {
				if dim := e.Dimensions(); dim > 0 && len(vec) != dim {
					return fmt.Errorf("vector %d has %d dimensions, want %d: %w",
						offset+i, len(vec), dim, ErrDimensionMismatch)
				}
				vectors[offset+i] = vec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
