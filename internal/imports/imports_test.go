package imports_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/antscope/internal/buildfile"
	"github.com/leapstack-labs/antscope/internal/imports"
	"github.com/leapstack-labs/antscope/internal/testutil"
)

func TestExpand(t *testing.T) {
	fsys := testutil.BuildFS(
		"build.xml", `<project name="main">
  <import file="a.xml" as="pa"/>
  <import file="missing.xml"/>
  <include file="b.xml"/>
  <include file="b.xml" as="explicit" prefixSeparator="::"/>
  <import file="b.xml"/>
  <import file="${unknown}/c.xml"/>
</project>`,
		"a.xml", `<project name="a"/>`,
		"b.xml", `<project name="bee"/>`,
	)
	l := buildfile.NewLoader(buildfile.Options{FS: fsys, Logger: testutil.NewTestLogger(t)})
	main, err := l.Load("build.xml")
	require.NoError(t, err)

	edges := imports.Expand(main, l)
	require.Len(t, edges, 6, "unresolved directives do not abort siblings")

	tests := []struct {
		resolved  bool
		prefix    string
		separator string
		isImport  bool
	}{
		{resolved: true, prefix: "pa", separator: ".", isImport: true},
		{resolved: false, prefix: "", separator: ".", isImport: true},
		{resolved: true, prefix: "bee", separator: ".", isImport: false},
		{resolved: true, prefix: "explicit", separator: "::", isImport: false},
		{resolved: true, prefix: "", separator: ".", isImport: true},
		{resolved: false, prefix: "", separator: ".", isImport: true},
	}
	for i, tt := range tests {
		e := edges[i]
		assert.Equal(t, tt.resolved, e.Resolved(), "edge %d resolved", i)
		assert.Equal(t, tt.prefix, e.Prefix, "edge %d prefix", i)
		assert.Equal(t, tt.separator, e.Separator, "edge %d separator", i)
		assert.Equal(t, tt.isImport, e.IsImport, "edge %d isImport", i)
		assert.Same(t, main.Imports[i], e.Directive)
	}
}

func TestExpand_CyclesAreReturnedAsDeclared(t *testing.T) {
	fsys := testutil.BuildFS(
		"a.xml", `<project name="a"><import file="b.xml"/><import file="a.xml"/></project>`,
		"b.xml", `<project name="b"><import file="a.xml"/></project>`,
	)
	l := buildfile.NewLoader(buildfile.Options{FS: fsys})
	a, err := l.Load("a.xml")
	require.NoError(t, err)

	edges := imports.Expand(a, l)
	require.Len(t, edges, 2)
	assert.Equal(t, "b", edges[0].Project.Name)
	assert.Same(t, a, edges[1].Project)

	back := imports.Expand(edges[0].Project, l)
	require.Len(t, back, 1)
	assert.Same(t, a, back[0].Project)
}

func TestClosure(t *testing.T) {
	fsys := testutil.BuildFS(
		"build.xml", `<project name="m"><import file="a.xml"/><import file="missing.xml"/><import file="c.xml"/></project>`,
		"a.xml", `<project name="a"><import file="b.xml"/><import file="build.xml"/></project>`,
		"b.xml", `<project name="b"/>`,
		"c.xml", `<project name="c"><import file="b.xml"/></project>`,
	)
	l := buildfile.NewLoader(buildfile.Options{FS: fsys, Logger: testutil.NewTestLogger(t)})
	main, err := l.Load("build.xml")
	require.NoError(t, err)

	var names []string
	for _, p := range imports.Closure(main, l) {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"m", "a", "b", "c"}, names)
}

func TestScope(t *testing.T) {
	var root imports.Scope
	assert.True(t, root.IsRoot())
	assert.Equal(t, "build", root.Qualify("build"))

	outer := root.Enter(imports.Edge{Prefix: "p", Separator: "."})
	assert.Equal(t, "p.build", outer.Qualify("build"))

	bare := outer.Enter(imports.Edge{Separator: "."})
	assert.Equal(t, outer, bare, "unprefixed imports keep the enclosing scope")

	inner := outer.Enter(imports.Edge{Prefix: "q", Separator: "::"})
	assert.Equal(t, "p.q::build", inner.Qualify("build"))
}
