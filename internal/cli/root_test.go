package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/antscope/internal/cli/config"
	"github.com/leapstack-labs/antscope/internal/cli/output"
	"github.com/leapstack-labs/antscope/internal/cli/testutil"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "antscope", cmd.Use)
	for _, name := range []string{"config", "file", "ant-home", "state", "verbose", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %q should exist", name)
	}

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{
		"completion", "customdefs", "dag", "discover", "duplicates", "init", "lsp",
		"resolve", "search", "targets", "version", "watch",
	} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"targets", "-f", filepath.Join(dir, "build.xml"), "-o", "json"})
	require.NoError(t, cmd.Execute())

	var targets []output.TargetOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &targets))
	assert.Len(t, targets, 5)

	cfg := config.GetCurrentConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, "json", cfg.OutputFormat)
}

func TestRootCmd_InvalidOutput(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"targets", "-f", filepath.Join(dir, "build.xml"), "-o", "yaml"})
	assert.ErrorContains(t, cmd.Execute(), "invalid output format")
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			cmd := NewRootCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"completion", shell})
			require.NoError(t, cmd.Execute())
			assert.Contains(t, out.String(), "antscope")
		})
	}

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"completion", "tcsh"})
	assert.Error(t, cmd.Execute())
}
