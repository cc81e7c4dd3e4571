// Package dependencies resolves plugin install order from declared dependencies.
//
// # Overview
//
// Each plugin declares the plugins it depends on, optionally with a semver range.
// This package builds a directed graph from those declarations, verifies that every
// dependency is registered and version-compatible, detects cycles, and produces an
// install order in which dependencies precede their dependents.
//
// # Key Features
//
// Resolution: Three-colour depth-first traversal, post-order output
// Cycle Detection: Reports the cycle path (a -> b -> a)
// Version Checks: Caret, tilde, exact and ">=" ranges via pkg/semver
// Impact Analysis: Direct and transitive dependents of a plugin
// Visualization: Cytoscape.js JSON and Graphviz DOT output
//
// # Usage Example
//
//	order, err := dependencies.Resolve([]dependencies.Node{
//		{Name: "a", Version: "1.0.0", Edges: []dependencies.Edge{{From: "a", To: "b"}, {From: "a", To: "c"}}},
//		{Name: "b", Version: "1.0.0", Edges: []dependencies.Edge{{From: "b", To: "c", Range: "^1.0.0"}}},
//		{Name: "c", Version: "1.2.0"},
//	})
//	// order == []string{"c", "b", "a"}
//
//	var cycle *dependencies.CircularDependencyError
//	if errors.As(err, &cycle) {
//		fmt.Println(strings.Join(cycle.Path, " -> "))
//	}
//
// Resolution is stateless: callers build a fresh graph from the current registry
// contents every time they need an order.
//
// # Related Packages
//
//   - pkg/semver: Range matching
//   - pkg/plugins: Supplies nodes from registered descriptors
package dependencies
