package dependencies

import (
	"github.com/platinummonkey/hangar/pkg/semver"
)

// Edge is a declared dependency from one plugin on another.
// Range is empty when the dependency carries no version constraint.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Range string `json:"range,omitempty"`
}

// Node represents a plugin in the dependency graph
type Node struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Edges   []Edge `json:"edges,omitempty"`
}

// Graph is a dependency graph over plugins, keyed by name.
// Iteration follows the order nodes were supplied in.
type Graph struct {
	nodes map[string]*Node
	order []string
}

// NewGraph builds a graph from nodes. Later duplicates of a name are ignored.
func NewGraph(nodes []Node) *Graph {
	g := &Graph{
		nodes: make(map[string]*Node, len(nodes)),
		order: make([]string, 0, len(nodes)),
	}

	for i := range nodes {
		n := nodes[i]
		if _, exists := g.nodes[n.Name]; exists {
			continue
		}
		edges := make([]Edge, len(n.Edges))
		copy(edges, n.Edges)
		n.Edges = edges
		g.nodes[n.Name] = &n
		g.order = append(g.order, n.Name)
	}

	return g
}

// Node retrieves a node by name
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Names returns node names in insertion order
func (g *Graph) Names() []string {
	names := make([]string, len(g.order))
	copy(names, g.order)
	return names
}

type color int

const (
	unvisited color = iota
	inProgress
	done
)

// Resolve computes an install order for every node in the graph.
// Dependencies always precede their dependents; independent nodes keep insertion order.
func (g *Graph) Resolve() ([]string, error) {
	state := make(map[string]color, len(g.nodes))
	result := make([]string, 0, len(g.nodes))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		if state[name] == done {
			return nil
		}

		state[name] = inProgress
		path = append(path, name)
		node := g.nodes[name]

		for _, edge := range node.Edges {
			target, ok := g.nodes[edge.To]
			if !ok {
				return &MissingDependencyError{Name: edge.To, RequiredBy: name}
			}

			if edge.Range != "" && !semver.Satisfies(target.Version, edge.Range) {
				return &VersionMismatchError{
					Plugin:     name,
					Dependency: edge.To,
					Actual:     target.Version,
					Required:   edge.Range,
				}
			}

			switch state[edge.To] {
			case inProgress:
				return &CircularDependencyError{Path: cyclePath(path, edge.To)}
			case unvisited:
				if err := visit(edge.To, path); err != nil {
					return err
				}
			}
		}

		state[name] = done
		result = append(result, name)
		return nil
	}

	for _, name := range g.order {
		if state[name] != unvisited {
			continue
		}
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// Resolve builds a graph from nodes and resolves its install order
func Resolve(nodes []Node) ([]string, error) {
	return NewGraph(nodes).Resolve()
}

// cyclePath returns the portion of path starting at target, closed with target
func cyclePath(path []string, target string) []string {
	for i, name := range path {
		if name == target {
			cycle := make([]string, 0, len(path)-i+1)
			cycle = append(cycle, path[i:]...)
			return append(cycle, target)
		}
	}
	return append(append([]string{}, path...), target)
}

// Dependents returns the names of nodes that directly depend on name
func (g *Graph) Dependents(name string) []string {
	dependents := make([]string, 0)
	for _, key := range g.order {
		for _, edge := range g.nodes[key].Edges {
			if edge.To == name {
				dependents = append(dependents, key)
				break
			}
		}
	}
	return dependents
}

// TransitiveDependencies returns every node reachable from name, nearest first
func (g *Graph) TransitiveDependencies(name string) []string {
	visited := map[string]bool{name: true}
	result := make([]string, 0)

	var traverse func(string)
	traverse = func(current string) {
		node, ok := g.nodes[current]
		if !ok {
			return
		}
		for _, edge := range node.Edges {
			if visited[edge.To] {
				continue
			}
			visited[edge.To] = true
			result = append(result, edge.To)
			traverse(edge.To)
		}
	}

	traverse(name)
	return result
}

// ImpactAnalysis describes which plugins are affected by a change to one plugin
type ImpactAnalysis struct {
	Plugin               string   `json:"plugin"`
	DirectDependents     []string `json:"direct_dependents"`
	TransitiveDependents []string `json:"transitive_dependents"`
	TotalImpact          int      `json:"total_impact"`
}

// Impact returns the direct and transitive dependents of name
func (g *Graph) Impact(name string) *ImpactAnalysis {
	direct := g.Dependents(name)

	visited := map[string]bool{name: true}
	all := make([]string, 0)

	var traverse func(string)
	traverse = func(current string) {
		for _, dep := range g.Dependents(current) {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			all = append(all, dep)
			traverse(dep)
		}
	}
	traverse(name)

	return &ImpactAnalysis{
		Plugin:               name,
		DirectDependents:     direct,
		TransitiveDependents: all,
		TotalImpact:          len(all),
	}
}
