package graphstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeStorm-SRL/LightRAG/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.WorkingDir = t.TempDir()
	return cfg
}

func TestUpsertNodeMergesProperties(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemGraphStorage(testConfig(t), "entities")
	require.NoError(t, err)

	require.NoError(t, store.UpsertNode(ctx, "alice", map[string]string{
		"desc": "first pass", "type": "person",
	}))
	require.NoError(t, store.UpsertNode(ctx, "alice", map[string]string{
		"desc": "refined",
	}))

	props, err := store.GetNode(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "refined", props["desc"], "later upsert overwrites per key")
	assert.Equal(t, "person", props["type"], "untouched keys survive")
}

func TestGetNodeAbsentReturnsNil(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemGraphStorage(testConfig(t), "entities")
	require.NoError(t, err)

	props, err := store.GetNode(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, props)

	edge, err := store.GetEdge(ctx, "ghost", "phantom")
	require.NoError(t, err)
	assert.Nil(t, edge)
}

func TestUpsertEdgeMaterializesEndpoints(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemGraphStorage(testConfig(t), "entities")
	require.NoError(t, err)

	require.NoError(t, store.UpsertEdge(ctx, "alice", "bob", map[string]string{"rel": "knows"}))

	hasNode, err := store.HasNode(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, hasNode, "edge endpoints are materialized implicitly")

	// Undirected: both endpoint orders resolve to the same edge.
	hasEdge, err := store.HasEdge(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, hasEdge)

	props, err := store.GetEdge(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, "knows", props["rel"])
}

func TestDegrees(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemGraphStorage(testConfig(t), "entities")
	require.NoError(t, err)

	require.NoError(t, store.UpsertEdge(ctx, "a", "b", nil))
	require.NoError(t, store.UpsertEdge(ctx, "a", "c", nil))
	require.NoError(t, store.UpsertEdge(ctx, "a", "d", nil))

	degree, err := store.NodeDegree(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, degree)

	// edgeDegree is the sum of the endpoint degrees.
	edgeDegree, err := store.EdgeDegree(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 4, edgeDegree)

	degree, err = store.NodeDegree(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, 0, degree)
}

func TestGetNodeEdges(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemGraphStorage(testConfig(t), "entities")
	require.NoError(t, err)

	require.NoError(t, store.UpsertEdge(ctx, "a", "c", nil))
	require.NoError(t, store.UpsertEdge(ctx, "a", "b", nil))

	edges, err := store.GetNodeEdges(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"a", "b"}, {"a", "c"}}, edges)

	edges, err = store.GetNodeEdges(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, edges, "absent node yields nil, not an empty list")
}

func TestEmbedNodes(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	var gotParams config.Node2VecParams
	var gotIDs []string
	embedder := func(ctx context.Context, g *Graph, params config.Node2VecParams) ([][]float64, []string, error) {
		gotParams = params
		gotIDs = g.NodeIDs()
		vectors := make([][]float64, g.NodeCount())
		for i := range vectors {
			vectors[i] = []float64{float64(i)}
		}
		return vectors, g.NodeIDs(), nil
	}

	store, err := NewMemGraphStorage(cfg, "entities",
		WithNodeEmbedder(Node2VecAlgorithm, embedder))
	require.NoError(t, err)

	require.NoError(t, store.UpsertEdge(ctx, "b", "a", nil))

	vectors, ids, err := store.EmbedNodes(ctx, Node2VecAlgorithm)
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Equal(t, []string{"A", "B"}, ids, "embedder sees the canonical graph")
	assert.Equal(t, []string{"A", "B"}, gotIDs)
	assert.Equal(t, cfg.Node2Vec, gotParams)
}

func TestEmbedNodesUnknownAlgorithm(t *testing.T) {
	store, err := NewMemGraphStorage(testConfig(t), "entities")
	require.NoError(t, err)

	_, _, err = store.EmbedNodes(context.Background(), "deepwalk")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestFlushAndReload(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	store, err := NewMemGraphStorage(cfg, "entities")
	require.NoError(t, err)
	require.NoError(t, store.UpsertNode(ctx, "alice", map[string]string{"type": "person"}))
	require.NoError(t, store.UpsertEdge(ctx, "alice", "bob", map[string]string{"rel": "knows"}))
	require.NoError(t, store.Flush(ctx))

	reopened, err := NewMemGraphStorage(cfg, "entities")
	require.NoError(t, err)

	props, err := reopened.GetNode(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "person", props["type"])

	hasEdge, err := reopened.HasEdge(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, hasEdge)
}

func TestFlushIsByteStable(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	path := filepath.Join(cfg.WorkingDir, "graph_entities.json")

	store, err := NewMemGraphStorage(cfg, "entities")
	require.NoError(t, err)
	require.NoError(t, store.UpsertEdge(ctx, "b", "a", nil))
	require.NoError(t, store.UpsertEdge(ctx, "c", "a", nil))
	require.NoError(t, store.Flush(ctx))

	first, err := os.ReadFile(path)
	require.NoError(t, err)

	// Reload and flush again: the serialized form must not change.
	reopened, err := NewMemGraphStorage(cfg, "entities")
	require.NoError(t, err)
	require.NoError(t, reopened.Flush(ctx))

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestDirectedGraphRoundTrip(t *testing.T) {
	g := NewGraph(true)
	g.UpsertEdge("b", "a", map[string]string{"rel": "follows"})

	raw, err := json.Marshal(g)
	require.NoError(t, err)

	loaded := &Graph{}
	require.NoError(t, json.Unmarshal(raw, loaded))
	assert.True(t, loaded.Directed())
	assert.True(t, loaded.HasEdge("b", "a"))
	assert.False(t, loaded.HasEdge("a", "b"))
}
