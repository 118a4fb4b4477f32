package pipeline

import (
	"fmt"
)

// Edge routes from one stage to the next when its predicate holds. A nil
// predicate always matches.
type Edge struct {
	From string
	To   string
	When func(State) bool
}

// Graph is the static wiring of a pipeline: nodes keyed by stage ID plus
// predicate edges. A node with no outgoing edges is terminal.
type Graph struct {
	start string
	nodes map[string]Node
	edges map[string][]Edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]Node),
		edges: make(map[string][]Edge),
	}
}

// AddNode registers a stage node. The first node added becomes the start
// unless SetStart overrides it.
func (g *Graph) AddNode(node Node) *Graph {
	id := node.Stage.ID()
	if g.start == "" {
		g.start = id
	}
	g.nodes[id] = node
	return g
}

// AddEdge registers a routing edge.
func (g *Graph) AddEdge(edge Edge) *Graph {
	g.edges[edge.From] = append(g.edges[edge.From], edge)
	return g
}

// SetStart overrides the entry node.
func (g *Graph) SetStart(id string) *Graph {
	g.start = id
	return g
}

// Validate checks that the wiring is internally consistent before any
// stage runs.
func (g *Graph) Validate() error {
	if g.start == "" {
		return fmt.Errorf("graph has no start node")
	}
	if _, ok := g.nodes[g.start]; !ok {
		return fmt.Errorf("start node %q is not registered", g.start)
	}
	for id, node := range g.nodes {
		if node.Stage == nil {
			return fmt.Errorf("node %q has no stage", id)
		}
		if node.Fallback != "" {
			if _, ok := g.nodes[node.Fallback]; !ok {
				return fmt.Errorf("node %q references unknown fallback %q", id, node.Fallback)
			}
		}
	}
	for from, edges := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("edge departs unknown node %q", from)
		}
		for _, edge := range edges {
			if _, ok := g.nodes[edge.To]; !ok {
				return fmt.Errorf("edge from %q targets unknown node %q", from, edge.To)
			}
		}
	}
	return nil
}

func (g *Graph) node(id string) (Node, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// next resolves the successor of a completed stage. The second return is
// false when the stage is terminal.
func (g *Graph) next(from string, state State) (string, bool, error) {
	edges := g.edges[from]
	if len(edges) == 0 {
		return "", false, nil
	}
	var (
		target  string
		matches int
	)
	for _, edge := range edges {
		if edge.When == nil || edge.When(state) {
			matches++
			target = edge.To
		}
	}
	if matches != 1 {
		return "", false, &GraphError{Stage: from, Matches: matches}
	}
	return target, true, nil
}
