package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/antscope/internal/dag"
	"github.com/leapstack-labs/antscope/internal/session"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-check the build file whenever it changes",
		Long: `Watch the build file, everything it imports, its property files and the
configured classpath. After changes settle, the cached analysis of affected
projects is dropped and the build file is checked again: targets, missing
dependencies, duplicate names, dependency cycles and custom element problems.

The settle delay is configured with watch.debounce.`,
		Example: `  # Watch ./build.xml
  antscope watch

  # Watch with a longer settle delay
  ANTSCOPE_WATCH__DEBOUNCE=1s antscope watch`,
		RunE: runWatch,
	}

	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup := NewCommandContext(cmd)
	defer cleanup()

	if err := cmdCtx.Cfg.ValidateBuildFile(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := session.NewWatcher(cmdCtx.Session, "/", cmdCtx.Cfg.Watch.Debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	check := func(changed []string) {
		cmdCtx.Renderer.Header(2, fmt.Sprintf("%s (%s)", cmdCtx.RelPath(fsPath(cmdCtx.Cfg.BuildFile)), time.Now().Format(time.TimeOnly)))
		checkProject(cmdCtx, changed)
		w.Sync()
	}
	check(nil)
	cmdCtx.Renderer.Muted(fmt.Sprintf("Watching %d director(ies), press Ctrl+C to stop", w.Dirs()))

	err = w.Run(ctx, func(roots, files []string) {
		cmdCtx.Logger.Debug("build files changed", "roots", roots, "files", files)
		cmdCtx.Renderer.Println("")
		check(files)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// checkProject prints a one-screen health summary of the configured build file. Targets
// defined in the changed files, and everything depending on them, are listed as affected.
func checkProject(cmdCtx *CommandContext, changed []string) {
	r := cmdCtx.Renderer

	pc, err := cmdCtx.OpenProject("")
	if err != nil {
		r.StatusLine("load", "error", err.Error())
		return
	}

	graph := pc.Graph()
	r.StatusLine("targets", "success", fmt.Sprintf("%d targets, %d dependencies", graph.NodeCount(), graph.EdgeCount()))
	if affected := affectedTargets(graph, changed); len(affected) > 0 {
		r.StatusLine("affected", "warning", strings.Join(affected, ", "))
	}

	if pc.Project().DefaultTarget != "" {
		if _, ok := pc.DefaultTarget(); !ok {
			r.StatusLine("default", "error", fmt.Sprintf("default target %q does not exist", pc.Project().DefaultTarget))
		}
	}

	for _, id := range sortedKeys(graph.GetMissing()) {
		for _, ref := range graph.GetMissing()[id] {
			r.StatusLine(id, "error", fmt.Sprintf("depends on missing target %q", ref))
		}
	}

	if hasCycle, cycle := graph.HasCycle(); hasCycle {
		r.StatusLine("cycle", "error", fmt.Sprint(cycle))
	}

	for _, c := range pc.FindDuplicates() {
		r.StatusLine(c.Name, "warning", fmt.Sprintf("shadowed by %s", cmdCtx.Location(c.First.Element)))
	}

	reg := pc.Registry()
	for _, p := range reg.Problems() {
		r.StatusLine(cmdCtx.Location(p.Element), "warning", p.Message)
	}
	r.StatusLine("custom elements", "success", fmt.Sprintf("%d declared", reg.Len()))
}

// affectedTargets returns the targets defined in the given files and every target that
// depends on them.
func affectedTargets(graph *dag.Graph, files []string) []string {
	if len(files) == 0 {
		return nil
	}
	inFiles := make(map[string]bool, len(files))
	for _, f := range files {
		inFiles[f] = true
	}
	var changed []string
	for _, n := range graph.GetAllNodes() {
		if n.Target != nil && inFiles[n.Target.Project.Path] {
			changed = append(changed, n.ID)
		}
	}
	return graph.GetAffectedNodes(changed)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
