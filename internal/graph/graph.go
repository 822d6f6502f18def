package graph

import (
	"errors"

	"fx-arb-watch/internal/market"
)

// ErrEdgeNotFound signals removal of an edge that does not exist. Callers
// treat it as non-fatal: the matching pair may have been partially removed
// or never inserted.
var ErrEdgeNotFound = errors.New("graph: edge not found")

// Graph is a directed, edge-weighted graph keyed by currency. Vertices are
// implicit: any currency that is an endpoint of a live edge.
type Graph struct {
	edges map[market.Currency]map[market.Currency]float64
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{edges: make(map[market.Currency]map[market.Currency]float64)}
}

// AddEdge inserts or overwrites the directed edge u->v. Overwriting is the
// normal path for rate updates.
func (g *Graph) AddEdge(u, v market.Currency, weight float64) {
	out, ok := g.edges[u]
	if !ok {
		out = make(map[market.Currency]float64)
		g.edges[u] = out
	}
	out[v] = weight
}

// RemoveEdge deletes the directed edge u->v, returning ErrEdgeNotFound if it
// is not present.
func (g *Graph) RemoveEdge(u, v market.Currency) error {
	out, ok := g.edges[u]
	if !ok {
		return ErrEdgeNotFound
	}
	if _, ok := out[v]; !ok {
		return ErrEdgeNotFound
	}
	delete(out, v)
	if len(out) == 0 {
		delete(g.edges, u)
	}
	return nil
}

// Weight looks up the weight of edge u->v.
func (g *Graph) Weight(u, v market.Currency) (float64, bool) {
	w, ok := g.edges[u][v]
	return w, ok
}

// HasVertex reports whether c is an endpoint of any live edge.
func (g *Graph) HasVertex(c market.Currency) bool {
	if _, ok := g.edges[c]; ok {
		return true
	}
	for _, out := range g.edges {
		if _, ok := out[c]; ok {
			return true
		}
	}
	return false
}

// Vertices returns every currency with at least one incident edge.
func (g *Graph) Vertices() []market.Currency {
	set := make(map[market.Currency]struct{})
	for u, out := range g.edges {
		set[u] = struct{}{}
		for v := range out {
			set[v] = struct{}{}
		}
	}
	vertices := make([]market.Currency, 0, len(set))
	for c := range set {
		vertices = append(vertices, c)
	}
	return vertices
}

// VertexCount returns the number of live vertices.
func (g *Graph) VertexCount() int {
	return len(g.Vertices())
}

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, out := range g.edges {
		n += len(out)
	}
	return n
}
