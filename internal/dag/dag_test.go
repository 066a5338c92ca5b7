package dag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/antscope/internal/buildfile"
	"github.com/leapstack-labs/antscope/internal/testutil"
)

func graphOf(t *testing.T, nodes []string, edges ...[2]string) *Graph {
	t.Helper()
	g := NewGraph()
	for _, n := range nodes {
		g.AddNode(n, nil)
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e[0], e[1]))
	}
	return g
}

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := graphOf(t, []string{"a", "b", "c"}, [2]string{"a", "b"}, [2]string{"b", "c"})
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount())

	assert.Error(t, g.AddEdge("a", "nonexistent"))
	assert.Error(t, g.AddEdge("nonexistent", "a"))

	require.NoError(t, g.AddEdge("a", "b"))
	assert.Equal(t, 2, g.EdgeCount(), "duplicate edges collapse")
}

func TestGraph_SelfDependencyIsCycle(t *testing.T) {
	g := graphOf(t, []string{"a"}, [2]string{"a", "a"})
	hasCycle, path := g.HasCycle()
	assert.True(t, hasCycle)
	assert.Equal(t, []string{"a", "a"}, path)
}

func TestGraph_HasCycle(t *testing.T) {
	g := graphOf(t, []string{"a", "b", "c"}, [2]string{"a", "b"}, [2]string{"b", "c"})
	hasCycle, _ := g.HasCycle()
	assert.False(t, hasCycle)

	require.NoError(t, g.AddEdge("c", "a"))
	hasCycle, path := g.HasCycle()
	assert.True(t, hasCycle)
	assert.Equal(t, path[0], path[len(path)-1])

	_, err := g.ExecutionOrder("c")
	assert.ErrorContains(t, err, "cycle detected")
	_, err = g.GetExecutionLevels()
	assert.Error(t, err)
}

func TestGraph_Diamond(t *testing.T) {
	g := graphOf(t, []string{"a", "b", "c", "d"},
		[2]string{"a", "b"}, [2]string{"a", "c"}, [2]string{"b", "d"}, [2]string{"c", "d"})

	order, err := g.ExecutionOrder("d")
	require.NoError(t, err)
	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos["a"], pos["b"])
	assert.Less(t, pos["a"], pos["c"])
	assert.Less(t, pos["b"], pos["d"])
	assert.Less(t, pos["c"], pos["d"])

	levels, err := g.GetExecutionLevels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b", "c"}, {"d"}}, levels)
}

func TestGraph_Impact(t *testing.T) {
	g := graphOf(t, []string{"a", "b", "c", "d", "e"},
		[2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"d", "c"})

	assert.Equal(t, []string{"b", "c"}, g.GetAffectedNodes([]string{"b", "zzz"}))
	assert.Equal(t, []string{"a", "b", "d"}, g.GetUpstreamNodes("c"))
	assert.Equal(t, []string{"a", "d", "e"}, g.GetRoots())
	assert.Equal(t, []string{"c", "e"}, g.GetLeaves())

	sub := g.Subgraph([]string{"a", "b", "e"})
	assert.Equal(t, 3, sub.NodeCount())
	assert.Equal(t, 1, sub.EdgeCount())
}

func TestGraph_ExecutionOrder(t *testing.T) {
	// d depends on "c,b"; c and b both depend on a
	g := graphOf(t, []string{"a", "b", "c", "d"},
		[2]string{"a", "b"}, [2]string{"a", "c"}, [2]string{"c", "d"}, [2]string{"b", "d"})

	order, err := g.ExecutionOrder("d")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b", "d"}, order)

	order, err = g.ExecutionOrder("b", "d")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)

	_, err = g.ExecutionOrder("nope")
	assert.Error(t, err)

	sub := g.Subgraph([]string{"a", "b", "c", "d"})
	order, err = sub.ExecutionOrder("d")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b", "d"}, order, "a subgraph keeps depends order")

	require.NoError(t, g.AddEdge("d", "a"))
	_, err = g.ExecutionOrder("d")
	assert.ErrorContains(t, err, "cycle detected")
}

func TestBuild(t *testing.T) {
	fsys := testutil.BuildFS(
		"build.xml", `<project name="main" default="dist">
  <import file="lib.xml" as="lib"/>
  <extension-point name="ready"/>
  <target name="init"/>
  <target name="dist" depends="init,lib.compile,ready,ghost"/>
</project>`,
		"lib.xml", `<project name="lib">
  <target name="setup"/>
  <target name="compile" depends="setup" extensionOf="ready"/>
</project>`,
	)
	l := buildfile.NewLoader(buildfile.Options{FS: fsys, Logger: testutil.NewTestLogger(t)})
	p, err := l.Load("build.xml")
	require.NoError(t, err)

	g := Build(p, l)
	ids := make([]string, 0, g.NodeCount())
	for _, n := range g.GetAllNodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"dist", "init", "lib.compile", "lib.setup", "ready"}, ids)
	assert.Equal(t, []string{"init", "lib.compile", "ready"}, g.GetParents("dist"))
	assert.Equal(t, []string{"lib.setup"}, g.GetParents("lib.compile"))
	assert.Equal(t, []string{"lib.compile"}, g.GetParents("ready"))
	assert.Equal(t, map[string][]string{"dist": {"ghost"}}, g.GetMissing())

	order, err := g.ExecutionOrder("dist")
	require.NoError(t, err)
	assert.Equal(t, []string{"init", "lib.setup", "lib.compile", "ready", "dist"}, order)

	var buf bytes.Buffer
	require.NoError(t, g.WriteDOT(&buf))
	dot := buf.String()
	assert.Contains(t, dot, "digraph")
	assert.Contains(t, dot, `"dist" -> "init"`)
	assert.Contains(t, dot, `"ready" -> "lib.compile"`)
	assert.Contains(t, dot, "diamond")
}
