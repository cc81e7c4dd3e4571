package dependencies

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(name, version string, deps ...string) Node {
	n := Node{Name: name, Version: version}
	for _, dep := range deps {
		n.Edges = append(n.Edges, Edge{From: name, To: dep})
	}
	return n
}

func rangedNode(name, version string, deps map[string]string, order ...string) Node {
	n := Node{Name: name, Version: version}
	for _, dep := range order {
		n.Edges = append(n.Edges, Edge{From: name, To: dep, Range: deps[dep]})
	}
	return n
}

func TestResolve_DependenciesFirst(t *testing.T) {
	// A depends on B and C; B depends on C
	order, err := Resolve([]Node{
		node("A", "1.0.0", "B", "C"),
		node("B", "1.0.0", "C"),
		node("C", "1.0.0"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, order)
}

func TestResolve_IndependentPluginsKeepRegistrationOrder(t *testing.T) {
	order, err := Resolve([]Node{
		node("zeta", "1.0.0"),
		node("alpha", "1.0.0"),
		node("mid", "1.0.0"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, order)
}

func TestResolve_EachPluginOnce(t *testing.T) {
	nodes := []Node{
		node("app", "1.0.0", "ui", "api"),
		node("ui", "1.0.0", "core"),
		node("api", "1.0.0", "core"),
		node("core", "1.0.0"),
		node("standalone", "1.0.0"),
	}

	order, err := Resolve(nodes)
	require.NoError(t, err)
	require.Len(t, order, len(nodes))

	position := make(map[string]int)
	for i, name := range order {
		_, dup := position[name]
		require.False(t, dup, "plugin %s emitted twice", name)
		position[name] = i
	}

	for _, n := range nodes {
		for _, e := range n.Edges {
			assert.Less(t, position[e.To], position[n.Name], "%s must precede %s", e.To, n.Name)
		}
	}
}

func TestResolve_CircularDependency(t *testing.T) {
	order, err := Resolve([]Node{
		node("a", "1.0.0", "b"),
		node("b", "1.0.0", "c"),
		node("c", "1.0.0", "a"),
	})
	require.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, ErrCircularDependency))
	assert.True(t, errors.Is(err, ErrDependency))

	var cycle *CircularDependencyError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycle.Path)
	assert.Contains(t, err.Error(), "a -> b -> c -> a")
}

func TestResolve_SelfDependency(t *testing.T) {
	_, err := Resolve([]Node{node("loop", "1.0.0", "loop")})
	assert.True(t, errors.Is(err, ErrCircularDependency))
}

func TestResolve_MissingDependency(t *testing.T) {
	_, err := Resolve([]Node{node("chat", "1.0.0", "realtime")})
	require.Error(t, err)

	var missing *MissingDependencyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "realtime", missing.Name)
	assert.Equal(t, "chat", missing.RequiredBy)
	assert.True(t, errors.Is(err, ErrMissingDependency))
}

func TestResolve_VersionRanges(t *testing.T) {
	t.Run("satisfied", func(t *testing.T) {
		order, err := Resolve([]Node{
			rangedNode("billing", "1.0.0", map[string]string{"core": "^2.0.0"}, "core"),
			node("core", "2.5.0"),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"core", "billing"}, order)
	})

	t.Run("mismatch", func(t *testing.T) {
		_, err := Resolve([]Node{
			rangedNode("billing", "1.0.0", map[string]string{"core": "^2.0.0"}, "core"),
			node("core", "1.5.0"),
		})
		require.Error(t, err)

		var mismatch *VersionMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, "core", mismatch.Dependency)
		assert.Equal(t, "1.5.0", mismatch.Actual)
		assert.Equal(t, "^2.0.0", mismatch.Required)
		assert.True(t, errors.Is(err, ErrVersionMismatch))
	})
}

func TestGraph_DependentsAndImpact(t *testing.T) {
	graph := NewGraph([]Node{
		node("core", "1.0.0"),
		node("auth", "1.0.0", "core"),
		node("billing", "1.0.0", "auth"),
		node("chat", "1.0.0", "core"),
	})

	assert.Equal(t, []string{"auth", "chat"}, graph.Dependents("core"))
	assert.Equal(t, []string{"auth", "core"}, graph.TransitiveDependencies("billing"))

	impact := graph.Impact("core")
	assert.Equal(t, []string{"auth", "chat"}, impact.DirectDependents)
	assert.ElementsMatch(t, []string{"auth", "billing", "chat"}, impact.TransitiveDependents)
	assert.Equal(t, 3, impact.TotalImpact)
}

func TestNewGraph_IgnoresDuplicateNames(t *testing.T) {
	graph := NewGraph([]Node{node("a", "1.0.0"), node("a", "2.0.0")})
	n, ok := graph.Node("a")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", n.Version)
	assert.Equal(t, []string{"a"}, graph.Names())
}

func TestGraph_Visualization(t *testing.T) {
	graph := NewGraph([]Node{
		rangedNode("billing", "1.0.0", map[string]string{"core": "^1.0.0"}, "core"),
		node("core", "1.1.0"),
		node("chat", "0.1.0", "realtime"),
	})

	dot := graph.ToDOT()
	assert.Contains(t, dot, `"billing" -> "core" [label="^1.0.0"];`)
	assert.Contains(t, dot, `"chat" -> "realtime";`)
	assert.Contains(t, dot, `"realtime" [style=dashed];`)

	cyto := graph.ToCytoscape()
	assert.Len(t, cyto.Nodes, 4)
	assert.Len(t, cyto.Edges, 2)
	assert.Equal(t, "missing", cyto.Nodes[3].Data.Type)
}
