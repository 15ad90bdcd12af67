package embedding

import (
	"context"
	"sync"
)

// MockEmbedder is a deterministic BatchEmbedder for tests. By default a text
// embeds to [len(text), 0, 0, ...] padded to Dim, so identical inputs always
// produce identical vectors.
type MockEmbedder struct {
	Dim int
	Fn  func(text string) []float64
	Err error

	mu    sync.Mutex
	calls [][]string
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), texts...))
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		if m.Fn != nil {
			vectors[i] = m.Fn(text)
			continue
		}
		vec := make([]float64, m.Dim)
		if m.Dim > 0 {
			vec[0] = float64(len(text))
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (m *MockEmbedder) Dimensions() int {
	return m.Dim
}

// Calls returns every batch passed to EmbedBatch, in call order.
func (m *MockEmbedder) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.calls...)
}

var _ BatchEmbedder = (*MockEmbedder)(nil)
