package utils

import (
	"slices"

	"gonum.org/v1/gonum/graph/simple"
)

type edgeKey struct {
	from int64
	to   int64
}

func edgeWeights(g *simple.DirectedGraph) map[edgeKey]float64 {
	ret := make(map[edgeKey]float64)
	edges := g.Edges()
	for edges.Next() {
		edge := edges.Edge()
		key := edgeKey{edge.From().ID(), edge.To().ID()}
		if weighted, ok := edge.(simple.WeightedEdge); ok {
			ret[key] = weighted.W
		} else {
			ret[key] = 0
		}
	}
	return ret
}

// CompareGraphs reports whether both graphs have the same nodes, edges and weights
func CompareGraphs(g1, g2 *simple.DirectedGraph) bool {
	if g1.Nodes().Len() != g2.Nodes().Len() {
		return false
	}
	nodes := g1.Nodes()
	for nodes.Next() {
		if g2.Node(nodes.Node().ID()) == nil {
			return false
		}
	}

	w1 := edgeWeights(g1)
	w2 := edgeWeights(g2)
	if len(w1) != len(w2) {
		return false
	}
	for key, weight := range w1 {
		if w, ok := w2[key]; !ok || w != weight {
			return false
		}
	}
	return true
}

// Spreader is an agent ranked by how many others it infected
type Spreader struct {
	AgentID    int64
	Infections int
}

// TopSpreaders ranks nodes by out-degree, highest first, ties by lower id
func TopSpreaders(g *simple.DirectedGraph, k int) []Spreader {
	ids := make([]int64, 0, g.Nodes().Len())
	nodes := g.Nodes()
	for nodes.Next() {
		ids = append(ids, nodes.Node().ID())
	}
	slices.Sort(ids)

	degrees := make([]float64, len(ids))
	for i, id := range ids {
		degrees[i] = float64(g.From(id).Len())
	}

	ret := make([]Spreader, 0, k)
	for _, idx := range NewTopKFinder(k).FindTopK(degrees, k) {
		if degrees[idx] == 0 {
			break
		}
		ret = append(ret, Spreader{AgentID: ids[idx], Infections: int(degrees[idx])})
	}
	return ret
}
