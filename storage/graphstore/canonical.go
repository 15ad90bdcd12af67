package graphstore

import (
	"html"
	"sort"
	"strings"
)

// NormalizeNodeID maps a raw node id to its canonical form: uppercased,
// stripped of surrounding whitespace, HTML entities unescaped.
func NormalizeNodeID(id string) string {
	return html.UnescapeString(strings.TrimSpace(strings.ToUpper(id)))
}

// Canonicalize reduces a graph to its largest connected component with
// normalized node ids and a fully deterministic structure: two structurally
// isomorphic graphs produce byte-identical serialized output regardless of
// insertion history. The input graph is not modified.
//
// Steps: pick the largest connected component (connectivity ignores edge
// direction; a size tie is broken in favor of the component containing the
// lexicographically smallest node id), rename every node via NormalizeNodeID
// (colliding ids merge, properties applied in sorted original-id order,
// last-writer-wins per key), then rebuild a fresh graph inserting nodes in
// sorted id order and edges sorted by their "source -> target" key, with
// undirected edges flipped so the smaller endpoint comes first.
func Canonicalize(g *Graph) *Graph {
	component := largestComponent(g)

	// Normalized id -> sorted original ids merging into it.
	mapping := make(map[string]string, len(component))
	grouped := make(map[string][]string)
	for id := range component {
		norm := NormalizeNodeID(id)
		mapping[id] = norm
		grouped[norm] = append(grouped[norm], id)
	}

	normIDs := make([]string, 0, len(grouped))
	for norm := range grouped {
		normIDs = append(normIDs, norm)
	}
	sort.Strings(normIDs)

	canonical := NewGraph(g.directed)

	for _, norm := range normIDs {
		originals := grouped[norm]
		sort.Strings(originals)

		props := make(map[string]string)
		for _, id := range originals {
			for k, v := range g.nodes[id] {
				props[k] = v
			}
		}
		canonical.UpsertNode(norm, props)
	}

	// Remap edges onto normalized endpoints. Iterating original edges in
	// their sorted order keeps property merges deterministic when several
	// original edges collapse onto one canonical edge.
	type canonicalEdge struct {
		key   [2]string
		props map[string]string
	}
	remapped := make(map[[2]string]*canonicalEdge)
	for _, key := range g.EdgeKeys() {
		source, sourceOK := mapping[key[0]]
		target, targetOK := mapping[key[1]]
		if !sourceOK || !targetOK {
			continue // endpoint outside the largest component
		}
		if !g.directed && source > target {
			source, target = target, source
		}

		ck := [2]string{source, target}
		edge, ok := remapped[ck]
		if !ok {
			edge = &canonicalEdge{key: ck, props: make(map[string]string)}
			remapped[ck] = edge
		}
		for k, v := range g.edges[key] {
			edge.props[k] = v
		}
	}

	ordered := make([]*canonicalEdge, 0, len(remapped))
	for _, edge := range remapped {
		ordered = append(ordered, edge)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return edgeSortKey(ordered[i].key) < edgeSortKey(ordered[j].key)
	})
	for _, edge := range ordered {
		canonical.UpsertEdge(edge.key[0], edge.key[1], edge.props)
	}

	return canonical
}

// largestComponent returns the node set of the largest connected component.
// Nodes are visited in lexicographic order, so when two components tie in
// size the one containing the smallest node id is found first and kept.
func largestComponent(g *Graph) map[string]struct{} {
	visited := make(map[string]struct{}, len(g.nodes))
	var best map[string]struct{}

	for _, start := range g.NodeIDs() {
		if _, ok := visited[start]; ok {
			continue
		}

		component := make(map[string]struct{})
		queue := []string{start}
		visited[start] = struct{}{}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			component[id] = struct{}{}
			for _, neighbor := range g.undirectedNeighbors(id) {
				if _, ok := visited[neighbor]; !ok {
					visited[neighbor] = struct{}{}
					queue = append(queue, neighbor)
				}
			}
		}

		if len(component) > len(best) {
			best = component
		}
	}

	if best == nil {
		best = make(map[string]struct{})
	}
	return best
}
