package targets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/antscope/internal/buildfile"
	"github.com/leapstack-labs/antscope/internal/targets"
	"github.com/leapstack-labs/antscope/internal/testutil"
	"github.com/leapstack-labs/antscope/pkg/core"
)

func load(t *testing.T, pairs ...string) (*core.Project, *buildfile.Loader) {
	t.Helper()
	l := buildfile.NewLoader(buildfile.Options{FS: testutil.BuildFS(pairs...), Logger: testutil.NewTestLogger(t)})
	p, err := l.Load(pairs[0])
	require.NoError(t, err)
	return p, l
}

func TestResolve_OwnTargets(t *testing.T) {
	p, l := load(t, "build.xml", `<project name="main" default="b">
  <target name="a"/>
  <target name="b" depends="a"/>
  <target name="c"/>
</project>`)

	res := targets.Resolve(p, l, nil, []string{"a", "b", "c"})
	for _, name := range []string{"a", "b", "c"} {
		ref, ok := res.Lookup(name)
		require.True(t, ok, name)
		assert.Same(t, p.TargetNamed(name), ref.Target)
		assert.Equal(t, name, ref.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, res.VariantNames())
}

func TestResolve_PrefixedImport(t *testing.T) {
	p, l := load(t,
		"build.xml", `<project name="main" default="all">
  <import file="lib.xml" as="p"/>
  <target name="all" depends="p.build"/>
</project>`,
		"lib.xml", `<project name="lib"><target name="build"/></project>`,
	)

	res := targets.Resolve(p, l, nil, []string{"p.build", "build"})
	ref, ok := res.Lookup("p.build")
	require.True(t, ok)
	assert.Equal(t, "lib.xml", ref.Target.Project.Path)
	assert.Equal(t, "build", ref.Target.Name)

	_, ok = res.Lookup("build")
	assert.False(t, ok, "bare names of prefixed imports are hidden")
}

func TestResolve_UnprefixedImport(t *testing.T) {
	p, l := load(t,
		"build.xml", `<project name="main"><import file="lib.xml"/></project>`,
		"lib.xml", `<project name="lib"><target name="build"/></project>`,
	)

	ref, ok := targets.Resolve(p, l, nil, []string{"build"}).Lookup("build")
	require.True(t, ok)
	assert.Equal(t, "lib.xml", ref.Target.Project.Path)
}

func TestResolve_ContextDependsWithMissingName(t *testing.T) {
	p, l := load(t, "build.xml", `<project name="main" default="other">
  <target name="compile"/>
  <target name="test"/>
  <target name="dist" depends="compile, nope ,test"/>
  <target name="other"/>
</project>`)
	dist := p.TargetNamed("dist")

	res := targets.Resolve(p, l, dist, dist.DependsList())
	_, ok := res.Lookup("nope")
	assert.False(t, ok)

	for _, name := range []string{"compile", "test"} {
		ref, ok := res.Lookup(name)
		require.True(t, ok, name)
		assert.Same(t, p.TargetNamed(name), ref.Target)
	}
}

func TestResolve_ContextInPrefixedImport(t *testing.T) {
	p, l := load(t,
		"build.xml", `<project name="main">
  <import file="lib.xml" as="l"/>
  <target name="init"/>
</project>`,
		"lib.xml", `<project name="lib">
  <target name="init"/>
  <target name="compile" depends="init"/>
</project>`,
	)
	lib := p.Imports[0]
	libProj, ok := l.ResolveImport(lib)
	require.True(t, ok)
	compile := libProj.TargetNamed("compile")

	ref, ok := targets.Resolve(p, l, compile, []string{"init"}).Lookup("init")
	require.True(t, ok)
	assert.Equal(t, "l.init", ref.Name)
	assert.Same(t, libProj.TargetNamed("init"), ref.Target)
}

func TestResolveDefault(t *testing.T) {
	p, l := load(t,
		"build.xml", `<project name="main" default="lib.go"><import file="lib.xml" as="lib"/></project>`,
		"lib.xml", `<project name="lib"><target name="go"/></project>`,
	)

	ref, ok := targets.ResolveDefault(p, l)
	require.True(t, ok)
	assert.Equal(t, "lib.go", ref.Name)

	empty, _ := load(t, "build.xml", `<project name="x"/>`)
	_, ok = targets.ResolveDefault(empty, nil)
	assert.False(t, ok)
}

func TestFindDuplicates_SiblingImports(t *testing.T) {
	p, l := load(t,
		"build.xml", `<project name="main">
  <import file="one.xml" as="x"/>
  <import file="two.xml" as="x"/>
</project>`,
		"one.xml", `<project name="one"><target name="default"/></project>`,
		"two.xml", `<project name="two"><target name="default"/></project>`,
	)

	conflicts := targets.FindDuplicates(p, l)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "x.default", conflicts[0].Name)
	assert.Equal(t, "one.xml", conflicts[0].First.Project.Path)
	assert.Equal(t, "two.xml", conflicts[0].Second.Project.Path)

	for i := 0; i < 3; i++ {
		ref, ok := targets.Resolve(p, l, nil, []string{"x.default"}).Lookup("x.default")
		require.True(t, ok)
		assert.Same(t, conflicts[0].First, ref.Target, "first visited stays authoritative")
	}
}

func TestFindDuplicates_None(t *testing.T) {
	p, l := load(t,
		"build.xml", `<project name="main">
  <import file="lib.xml" as="a"/>
  <import file="lib.xml" as="b"/>
  <import file="build.xml"/>
  <target name="t"/>
</project>`,
		"lib.xml", `<project name="lib"><target name="t"/></project>`,
	)

	assert.Empty(t, targets.FindDuplicates(p, l), "one file under two prefixes is not a duplicate")

	res := targets.Resolve(p, l, nil, []string{"a.t", "b.t", "t"})
	assert.Len(t, res.Resolved, 3)
}

func TestFindDuplicates_SameFile(t *testing.T) {
	p, l := load(t, "build.xml", `<project name="main">
  <target name="t" description="first"/>
  <target name="t" description="second"/>
</project>`)

	conflicts := targets.FindDuplicates(p, l)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "first", conflicts[0].First.Description)
	assert.Equal(t, "second", conflicts[0].Second.Description)
}

func TestFindDuplicates_SecondPrefixOfSharedFile(t *testing.T) {
	p, l := load(t,
		"build.xml", `<project name="main">
  <import file="b.xml" as="x"/>
  <import file="c.xml" as="y"/>
  <import file="c.xml" as="x"/>
</project>`,
		"b.xml", `<project name="b"><target name="default"/></project>`,
		"c.xml", `<project name="c"><target name="default"/></project>`,
	)

	conflicts := targets.FindDuplicates(p, l)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "x.default", conflicts[0].Name)
	assert.Equal(t, "b.xml", conflicts[0].First.Project.Path)
	assert.Equal(t, "c.xml", conflicts[0].Second.Project.Path)
}

func TestFindDuplicates_ShadowedExtensionContributor(t *testing.T) {
	p, l := load(t, "build.xml", `<project name="main" default="ready">
  <extension-point name="ready"/>
  <target name="pre" depends="t"/>
  <target name="t" description="first"/>
  <target name="t" description="shadowed" extensionOf="ready"/>
</project>`)

	conflicts := targets.FindDuplicates(p, l)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "first", conflicts[0].First.Description)
	assert.Equal(t, "shadowed", conflicts[0].Second.Description)

	ref, ok := targets.Resolve(p, l, nil, []string{"t"}).Lookup("t")
	require.True(t, ok)
	assert.Equal(t, "first", ref.Target.Description)
}

func TestResolve_SelfImportMatchesPlainProject(t *testing.T) {
	const body = `<target name="a"/><target name="b" depends="a"/>`
	self, ls := load(t, "build.xml", `<project name="m" default="b"><import file="build.xml"/>`+body+`</project>`)
	plain, lp := load(t, "build.xml", `<project name="m" default="b">`+body+`</project>`)

	rs := targets.Resolve(self, ls, nil, []string{"a", "b"})
	rp := targets.Resolve(plain, lp, nil, []string{"a", "b"})

	assert.Equal(t, rp.VariantNames(), rs.VariantNames())
	for _, name := range []string{"a", "b"} {
		s, ok := rs.Lookup(name)
		require.True(t, ok)
		pl, ok := rp.Lookup(name)
		require.True(t, ok)
		assert.Equal(t, pl.Name, s.Name)
		assert.Equal(t, pl.Target.Name, s.Target.Name)
	}
	assert.Empty(t, targets.FindDuplicates(self, ls))
}
