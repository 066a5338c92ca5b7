// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/antscope/internal/cli/output"
)

// ProjectBuildFile is the root build file written by SetupTestProject.
const ProjectBuildFile = `<project name="shop" default="dist" basedir=".">
  <property file="build.properties"/>
  <property name="build.dir" value="build"/>
  <include file="lib.xml" as="lib"/>

  <macrodef name="banner">
    <attribute name="text"/>
    <sequential><echo message="@{text}"/></sequential>
  </macrodef>
  <taskdef name="deploy" classname="com.example.Deploy"/>

  <target name="init">
    <mkdir dir="${build.dir}"/>
  </target>
  <target name="compile" depends="init,lib.setup" description="Compile sources">
    <property name="compiled" value="true"/>
  </target>
  <target name="dist" depends="compile,ghost" description="Build the distribution">
    <banner text="${version}"/>
  </target>
  <target name="init">
    <property name="late" value="second init"/>
  </target>
</project>
`

// LibBuildFile is the included file written by SetupTestProject.
const LibBuildFile = `<project name="lib">
  <target name="setup" depends="prepare"/>
  <target name="prepare"/>
</project>
`

// SetupTestProject creates a temporary project with a build file, an included file and a
// property file. It returns the project directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	files := map[string]string{
		"build.xml":        ProjectBuildFile,
		"lib.xml":          LibBuildFile,
		"build.properties": "version=1.2.3\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0644))
	}
	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
