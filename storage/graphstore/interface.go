package graphstore

import (
	"context"
	"errors"

	"github.com/CodeStorm-SRL/LightRAG/config"
)

// ErrUnsupportedAlgorithm is returned by EmbedNodes for an unknown
// node-embedding algorithm name. There is no silent fallback.
var ErrUnsupportedAlgorithm = errors.New("unsupported node embedding algorithm")

// NodeEmbedder is the external node-embedding routine: it maps a graph to one
// vector per node plus the aligned node ids.
type NodeEmbedder func(ctx context.Context, g *Graph, params config.Node2VecParams) ([][]float64, []string, error)

// GraphStorage is the contract every graph backend implements. Unlike the
// KV store's insert-only writes, node and edge upserts merge-overwrite
// properties: graph facts are expected to accumulate and refine across
// indexing passes.
type GraphStorage interface {
	HasNode(ctx context.Context, id string) (bool, error)
	HasEdge(ctx context.Context, source, target string) (bool, error)

	// GetNode returns the node's properties, or nil if it is absent.
	GetNode(ctx context.Context, id string) (map[string]string, error)

	// GetEdge returns the edge's properties, or nil if it is absent.
	GetEdge(ctx context.Context, source, target string) (map[string]string, error)

	// NodeDegree counts edges incident to id.
	NodeDegree(ctx context.Context, id string) (int, error)

	// EdgeDegree is degree(source) + degree(target): a cheap
	// relational-strength proxy, not an edge-specific metric.
	EdgeDegree(ctx context.Context, source, target string) (int, error)

	// GetNodeEdges returns the edges incident to id as endpoint pairs, or
	// nil if the node does not exist.
	GetNodeEdges(ctx context.Context, id string) ([][2]string, error)

	// UpsertNode merges properties into the node, creating it if needed.
	UpsertNode(ctx context.Context, id string, properties map[string]string) error

	// UpsertEdge merges properties into the edge, materializing missing
	// endpoint nodes implicitly.
	UpsertEdge(ctx context.Context, source, target string, properties map[string]string) error

	// EmbedNodes dispatches to the named node-embedding algorithm and
	// returns one vector per node plus the aligned node ids.
	EmbedNodes(ctx context.Context, algorithm string) ([][]float64, []string, error)

	// Flush serializes the full graph to durable storage.
	Flush(ctx context.Context) error
}
