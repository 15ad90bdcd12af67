package graphstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/CodeStorm-SRL/LightRAG/config"
)

// Node2VecAlgorithm is the only algorithm name registered out of the box;
// the routine itself is supplied by the caller via WithNodeEmbedder.
const Node2VecAlgorithm = "node2vec"

// MemGraphStorage is the in-memory graph backend with JSON serialization to
// graph_<namespace>.json. The whole graph lives in memory between Flush
// calls; a crash before Flush loses uncommitted upserts.
type MemGraphStorage struct {
	namespace string
	fileName  string
	graph     *Graph
	n2vParams config.Node2VecParams
	embedders map[string]NodeEmbedder
	logger    *slog.Logger
}

// MemGraphOption configures a MemGraphStorage.
type MemGraphOption func(*MemGraphStorage)

// WithDirected makes a freshly created graph directed. It has no effect when
// an existing graph is loaded from disk; the serialized flag wins.
func WithDirected(directed bool) MemGraphOption {
	return func(s *MemGraphStorage) {
		s.graph = NewGraph(directed)
	}
}

// WithNodeEmbedder registers the external routine dispatched for the given
// algorithm name.
func WithNodeEmbedder(algorithm string, embedder NodeEmbedder) MemGraphOption {
	return func(s *MemGraphStorage) {
		s.embedders[algorithm] = embedder
	}
}

// NewMemGraphStorage binds a store to graph_<namespace>.json under the
// configured working directory, loading the graph if the file exists.
func NewMemGraphStorage(cfg *config.Config, namespace string, opts ...MemGraphOption) (*MemGraphStorage, error) {
	if err := os.MkdirAll(cfg.WorkingDir, 0755); err != nil {
		return nil, fmt.Errorf("create working dir: %w", err)
	}

	s := &MemGraphStorage{
		namespace: namespace,
		fileName:  filepath.Join(cfg.WorkingDir, fmt.Sprintf("graph_%s.json", namespace)),
		graph:     NewGraph(false),
		n2vParams: cfg.Node2Vec,
		embedders: make(map[string]NodeEmbedder),
		logger:    slog.Default().With("namespace", namespace),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, err := os.ReadFile(s.fileName)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", s.fileName, err)
	}
	if len(raw) > 0 {
		loaded := &Graph{}
		if err := json.Unmarshal(raw, loaded); err != nil {
			return nil, fmt.Errorf("parse %s: %w", s.fileName, err)
		}
		s.graph = loaded
	}

	s.logger.Info("loaded graph storage",
		"nodes", s.graph.NodeCount(), "edges", s.graph.EdgeCount())
	return s, nil
}

func (s *MemGraphStorage) HasNode(ctx context.Context, id string) (bool, error) {
	return s.graph.HasNode(id), nil
}

func (s *MemGraphStorage) HasEdge(ctx context.Context, source, target string) (bool, error) {
	return s.graph.HasEdge(source, target), nil
}

func (s *MemGraphStorage) GetNode(ctx context.Context, id string) (map[string]string, error) {
	return s.graph.Node(id), nil
}

func (s *MemGraphStorage) GetEdge(ctx context.Context, source, target string) (map[string]string, error) {
	return s.graph.Edge(source, target), nil
}

func (s *MemGraphStorage) NodeDegree(ctx context.Context, id string) (int, error) {
	return s.graph.Degree(id), nil
}

func (s *MemGraphStorage) EdgeDegree(ctx context.Context, source, target string) (int, error) {
	return s.graph.Degree(source) + s.graph.Degree(target), nil
}

func (s *MemGraphStorage) GetNodeEdges(ctx context.Context, id string) ([][2]string, error) {
	return s.graph.NeighborEdges(id), nil
}

func (s *MemGraphStorage) UpsertNode(ctx context.Context, id string, properties map[string]string) error {
	s.graph.UpsertNode(id, properties)
	return nil
}

func (s *MemGraphStorage) UpsertEdge(ctx context.Context, source, target string, properties map[string]string) error {
	s.graph.UpsertEdge(source, target, properties)
	return nil
}

// EmbedNodes canonicalizes the graph and hands it to the routine registered
// under the given algorithm name.
func (s *MemGraphStorage) EmbedNodes(ctx context.Context, algorithm string) ([][]float64, []string, error) {
	embedder, ok := s.embedders[algorithm]
	if !ok {
		return nil, nil, fmt.Errorf("%q: %w", algorithm, ErrUnsupportedAlgorithm)
	}
	return embedder(ctx, Canonicalize(s.graph), s.n2vParams)
}

// Canonical returns the deterministic largest-connected-component snapshot of
// the current graph. The snapshot is a fresh graph; the store keeps the full
// graph untouched.
func (s *MemGraphStorage) Canonical() *Graph {
	return Canonicalize(s.graph)
}

// Flush serializes the full graph atomically: a uniquely-named temp file in
// the same directory, then a rename over the target.
func (s *MemGraphStorage) Flush(ctx context.Context) error {
	s.logger.Info("writing graph",
		"nodes", s.graph.NodeCount(), "edges", s.graph.EdgeCount())

	raw, err := json.Marshal(s.graph)
	if err != nil {
		return fmt.Errorf("encode graph %s: %w", s.namespace, err)
	}

	tmp := fmt.Sprintf("%s.%s.tmp", s.fileName, uuid.NewString())
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.fileName); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

var _ GraphStorage = (*MemGraphStorage)(nil)
