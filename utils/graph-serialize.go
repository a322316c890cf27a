package utils

import (
	"os"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/graph/simple"
)

// NetworkXGraph mirrors the adjacency layout of networkx's adjacency_data,
// so transmission graphs can be read back in Python.
type NetworkXGraph struct {
	Adjacency map[int64]map[int64]map[string]float64 `msgpack:"adjacency"`
	Directed  bool                                   `msgpack:"directed"`
	Nodes     []int64                                `msgpack:"nodes"`
	Graph     map[string]string                      `msgpack:"graph"`
}

// SerializeGraph converts a directed graph; edge weights are kept under "weight"
func SerializeGraph(g *simple.DirectedGraph) *NetworkXGraph {
	nxGraph := &NetworkXGraph{
		Adjacency: make(map[int64]map[int64]map[string]float64),
		Directed:  true,
		Nodes:     make([]int64, 0, g.Nodes().Len()),
		Graph:     map[string]string{"name": "transmission"},
	}

	nodes := g.Nodes()
	for nodes.Next() {
		id := nodes.Node().ID()
		nxGraph.Nodes = append(nxGraph.Nodes, id)
		nxGraph.Adjacency[id] = make(map[int64]map[string]float64)
	}

	edges := g.Edges()
	for edges.Next() {
		edge := edges.Edge()
		attrs := map[string]float64{}
		if weighted, ok := edge.(simple.WeightedEdge); ok {
			attrs["weight"] = weighted.W
		}
		nxGraph.Adjacency[edge.From().ID()][edge.To().ID()] = attrs
	}

	return nxGraph
}

// DeserializeGraph rebuilds the directed graph written by SerializeGraph
func DeserializeGraph(nxGraph *NetworkXGraph) *simple.DirectedGraph {
	g := simple.NewDirectedGraph()

	ensure := func(id int64) {
		if g.Node(id) == nil {
			g.AddNode(simple.Node(id))
		}
	}

	for _, id := range nxGraph.Nodes {
		ensure(id)
	}

	for fromID, targets := range nxGraph.Adjacency {
		ensure(fromID)
		for toID, attrs := range targets {
			ensure(toID)
			if w, ok := attrs["weight"]; ok {
				g.SetEdge(simple.WeightedEdge{F: simple.Node(fromID), T: simple.Node(toID), W: w})
			} else {
				g.SetEdge(simple.Edge{F: simple.Node(fromID), T: simple.Node(toID)})
			}
		}
	}

	return g
}

func SaveGraphToFile(g *simple.DirectedGraph, filename string) error {
	data, err := msgpack.Marshal(SerializeGraph(g))
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

func LoadGraphFromFile(filename string) (*simple.DirectedGraph, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var nxGraph NetworkXGraph
	if err := msgpack.Unmarshal(data, &nxGraph); err != nil {
		return nil, err
	}

	return DeserializeGraph(&nxGraph), nil
}
