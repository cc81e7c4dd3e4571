package dependencies

import (
	"fmt"
	"strings"
)

// CytoscapeNode represents a node in Cytoscape.js format
type CytoscapeNode struct {
	Data CytoscapeNodeData `json:"data"`
}

// CytoscapeNodeData contains node data for Cytoscape.js
type CytoscapeNodeData struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Type    string `json:"type"` // "plugin", "missing"
}

// CytoscapeEdge represents an edge in Cytoscape.js format
type CytoscapeEdge struct {
	Data CytoscapeEdgeData `json:"data"`
}

// CytoscapeEdgeData contains edge data for Cytoscape.js
type CytoscapeEdgeData struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Range  string `json:"range,omitempty"`
}

// CytoscapeGraph represents the complete graph in Cytoscape.js format
type CytoscapeGraph struct {
	Nodes []CytoscapeNode `json:"nodes"`
	Edges []CytoscapeEdge `json:"edges"`
}

// ToCytoscape converts the graph for rendering with Cytoscape.js.
// Dependencies that are not registered appear as "missing" nodes.
func (g *Graph) ToCytoscape() CytoscapeGraph {
	cyto := CytoscapeGraph{
		Nodes: make([]CytoscapeNode, 0, len(g.order)),
		Edges: make([]CytoscapeEdge, 0),
	}

	seen := make(map[string]bool)
	for _, name := range g.order {
		node := g.nodes[name]
		cyto.Nodes = append(cyto.Nodes, CytoscapeNode{
			Data: CytoscapeNodeData{ID: name, Name: name, Version: node.Version, Type: "plugin"},
		})
		seen[name] = true
	}

	for _, name := range g.order {
		for _, edge := range g.nodes[name].Edges {
			if !seen[edge.To] {
				cyto.Nodes = append(cyto.Nodes, CytoscapeNode{
					Data: CytoscapeNodeData{ID: edge.To, Name: edge.To, Type: "missing"},
				})
				seen[edge.To] = true
			}
			cyto.Edges = append(cyto.Edges, CytoscapeEdge{
				Data: CytoscapeEdgeData{
					ID:     edge.From + "->" + edge.To,
					Source: edge.From,
					Target: edge.To,
					Range:  edge.Range,
				},
			})
		}
	}

	return cyto
}

// ToDOT renders the graph in Graphviz DOT format
func (g *Graph) ToDOT() string {
	var b strings.Builder
	b.WriteString("digraph plugins {\n")
	b.WriteString("  rankdir=LR;\n")

	for _, name := range g.order {
		node := g.nodes[name]
		fmt.Fprintf(&b, "  %q [label=%q];\n", name, name+"@"+node.Version)
	}

	for _, name := range g.order {
		for _, edge := range g.nodes[name].Edges {
			if _, ok := g.nodes[edge.To]; !ok {
				fmt.Fprintf(&b, "  %q [style=dashed];\n", edge.To)
			}
			if edge.Range != "" {
				fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", edge.From, edge.To, edge.Range)
			} else {
				fmt.Fprintf(&b, "  %q -> %q;\n", edge.From, edge.To)
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}
