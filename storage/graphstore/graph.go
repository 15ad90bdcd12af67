// Package graphstore provides the property-graph storage contract, an
// in-memory graph engine with durable JSON serialization, and the
// deterministic canonicalizer that reduces a graph to its largest connected
// component in a byte-stable order.
package graphstore

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Graph is an owned adjacency structure: node ids map to string-keyed
// properties, edges map to properties under a canonical endpoint key. It is
// only manipulated through its methods; lookups return copies so callers
// cannot alias the internal maps.
type Graph struct {
	directed bool
	nodes    map[string]map[string]string
	edges    map[[2]string]map[string]string
	out      map[string]map[string]struct{}
	in       map[string]map[string]struct{} // directed graphs only
}

// NewGraph creates an empty graph.
func NewGraph(directed bool) *Graph {
	g := &Graph{
		directed: directed,
		nodes:    make(map[string]map[string]string),
		edges:    make(map[[2]string]map[string]string),
		out:      make(map[string]map[string]struct{}),
	}
	if directed {
		g.in = make(map[string]map[string]struct{})
	}
	return g
}

// Directed reports whether edges carry direction.
func (g *Graph) Directed() bool { return g.directed }

// edgeKey canonicalizes the endpoint pair: undirected edges always store the
// lexicographically smaller id first.
func (g *Graph) edgeKey(source, target string) [2]string {
	if !g.directed && source > target {
		source, target = target, source
	}
	return [2]string{source, target}
}

func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

func (g *Graph) HasEdge(source, target string) bool {
	_, ok := g.edges[g.edgeKey(source, target)]
	return ok
}

// Node returns a copy of the node's properties, or nil if the node is absent.
func (g *Graph) Node(id string) map[string]string {
	props, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return copyProps(props)
}

// Edge returns a copy of the edge's properties, or nil if the edge is absent.
func (g *Graph) Edge(source, target string) map[string]string {
	props, ok := g.edges[g.edgeKey(source, target)]
	if !ok {
		return nil
	}
	return copyProps(props)
}

// Degree counts edges incident to id. For directed graphs this is in-degree
// plus out-degree. Absent nodes have degree 0.
func (g *Graph) Degree(id string) int {
	degree := len(g.out[id])
	if g.directed {
		degree += len(g.in[id])
	}
	return degree
}

// UpsertNode creates the node or merges the given properties into it,
// last-writer-wins per property key.
func (g *Graph) UpsertNode(id string, properties map[string]string) {
	g.ensureNode(id)
	for k, v := range properties {
		g.nodes[id][k] = v
	}
}

// UpsertEdge creates the edge or merges the given properties into it.
// Endpoints that do not exist yet are materialized as implicit nodes with
// empty properties; this backend never rejects an edge for a missing node.
func (g *Graph) UpsertEdge(source, target string, properties map[string]string) {
	g.ensureNode(source)
	g.ensureNode(target)

	key := g.edgeKey(source, target)
	if _, ok := g.edges[key]; !ok {
		g.edges[key] = make(map[string]string)
	}
	for k, v := range properties {
		g.edges[key][k] = v
	}

	g.out[key[0]][key[1]] = struct{}{}
	if g.directed {
		g.in[key[1]][key[0]] = struct{}{}
	} else {
		g.out[key[1]][key[0]] = struct{}{}
	}
}

func (g *Graph) ensureNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = make(map[string]string)
	g.out[id] = make(map[string]struct{})
	if g.directed {
		g.in[id] = make(map[string]struct{})
	}
}

// NodeIDs returns every node id in lexicographic order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EdgeKeys returns every edge's canonical endpoint pair, sorted by the
// "source -> target" string.
func (g *Graph) EdgeKeys() [][2]string {
	keys := make([][2]string, 0, len(g.edges))
	for key := range g.edges {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return edgeSortKey(keys[i]) < edgeSortKey(keys[j])
	})
	return keys
}

// NeighborEdges returns the edges incident to id as (id, neighbor) pairs in
// lexicographic neighbor order, or nil if the node does not exist. For
// directed graphs only outgoing edges are reported.
func (g *Graph) NeighborEdges(id string) [][2]string {
	if !g.HasNode(id) {
		return nil
	}
	neighbors := make([]string, 0, len(g.out[id]))
	for n := range g.out[id] {
		neighbors = append(neighbors, n)
	}
	sort.Strings(neighbors)

	edges := make([][2]string, len(neighbors))
	for i, n := range neighbors {
		edges[i] = [2]string{id, n}
	}
	return edges
}

// undirectedNeighbors returns the neighbor set ignoring direction, used for
// connected-component traversal.
func (g *Graph) undirectedNeighbors(id string) []string {
	seen := make(map[string]struct{}, len(g.out[id]))
	for n := range g.out[id] {
		seen[n] = struct{}{}
	}
	if g.directed {
		for n := range g.in[id] {
			seen[n] = struct{}{}
		}
	}
	neighbors := make([]string, 0, len(seen))
	for n := range seen {
		neighbors = append(neighbors, n)
	}
	sort.Strings(neighbors)
	return neighbors
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

func edgeSortKey(key [2]string) string {
	return fmt.Sprintf("%s -> %s", key[0], key[1])
}

func copyProps(props map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// graphNodeJSON and graphEdgeJSON are the serialized forms.
type graphNodeJSON struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type graphEdgeJSON struct {
	Source     string            `json:"source"`
	Target     string            `json:"target"`
	Properties map[string]string `json:"properties"`
}

type graphJSON struct {
	Directed bool            `json:"directed"`
	Nodes    []graphNodeJSON `json:"nodes"`
	Edges    []graphEdgeJSON `json:"edges"`
}

// MarshalJSON serializes the graph with nodes in lexicographic order and
// edges sorted by their "source -> target" key, so equal graphs always
// produce identical bytes. A canonicalized graph therefore round-trips
// byte-for-byte.
func (g *Graph) MarshalJSON() ([]byte, error) {
	doc := graphJSON{
		Directed: g.directed,
		Nodes:    make([]graphNodeJSON, 0, len(g.nodes)),
		Edges:    make([]graphEdgeJSON, 0, len(g.edges)),
	}
	for _, id := range g.NodeIDs() {
		doc.Nodes = append(doc.Nodes, graphNodeJSON{ID: id, Properties: g.nodes[id]})
	}
	for _, key := range g.EdgeKeys() {
		doc.Edges = append(doc.Edges, graphEdgeJSON{
			Source:     key[0],
			Target:     key[1],
			Properties: g.edges[key],
		})
	}
	return json.Marshal(doc)
}

// UnmarshalJSON rebuilds the graph from its serialized form.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var doc graphJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	rebuilt := NewGraph(doc.Directed)
	for _, n := range doc.Nodes {
		rebuilt.UpsertNode(n.ID, n.Properties)
	}
	for _, e := range doc.Edges {
		rebuilt.UpsertEdge(e.Source, e.Target, e.Properties)
	}
	*g = *rebuilt
	return nil
}
