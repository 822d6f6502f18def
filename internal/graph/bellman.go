package graph

import (
	"math"

	"fx-arb-watch/internal/market"
)

// Edge is a directed edge snapshot used by the relaxation passes and returned
// as the negative-cycle witness.
type Edge struct {
	From   market.Currency
	To     market.Currency
	Weight float64
}

// relaxTolerance guards the relaxation test against float noise: log weights
// of consistent rates cancel only to within an ulp or two, and a cycle that
// "improves" by 1e-16 is rounding error, not arbitrage.
const relaxTolerance = 1e-12

// ShortestPaths runs single-source Bellman-Ford from source. It returns the
// best known distances, the predecessor map for path reconstruction, and, if
// a negative cycle is reachable, one edge that still relaxes after |V|-1
// rounds. The witness is nil when no negative cycle exists. An isolated
// source trivially yields no witness.
//
// O(V*E); graphs here are tens of currencies at most.
func (g *Graph) ShortestPaths(source market.Currency) (map[market.Currency]float64, map[market.Currency]market.Currency, *Edge) {
	vertices := g.Vertices()

	edges := make([]Edge, 0, g.EdgeCount())
	for u, out := range g.edges {
		for v, w := range out {
			edges = append(edges, Edge{From: u, To: v, Weight: w})
		}
	}

	dist := make(map[market.Currency]float64, len(vertices))
	prev := make(map[market.Currency]market.Currency, len(vertices))
	for _, v := range vertices {
		dist[v] = math.Inf(1)
	}
	dist[source] = 0

	for round := 1; round < len(vertices); round++ {
		changed := false
		for _, e := range edges {
			du, ok := dist[e.From]
			if !ok || math.IsInf(du, 1) {
				continue
			}
			if du+e.Weight < dist[e.To]-relaxTolerance {
				dist[e.To] = du + e.Weight
				prev[e.To] = e.From
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	// One extra pass: an edge that still relaxes proves a reachable negative
	// cycle.
	for _, e := range edges {
		du, ok := dist[e.From]
		if !ok || math.IsInf(du, 1) {
			continue
		}
		if du+e.Weight < dist[e.To]-relaxTolerance {
			witness := e
			return dist, prev, &witness
		}
	}

	return dist, prev, nil
}
