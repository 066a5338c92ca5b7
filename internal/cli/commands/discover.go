package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/antscope/internal/buildfile"
	"github.com/leapstack-labs/antscope/internal/cli/output"
	"github.com/leapstack-labs/antscope/internal/session"
	"github.com/leapstack-labs/antscope/internal/state"
)

// NewDiscoverCommand creates the discover command.
func NewDiscoverCommand() *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "discover [FILES...]",
		Short: "Index build files for search",
		Long: `Index targets, custom elements and duplicate names of build files into the
SQLite state database.

Each file is indexed as a root project together with everything it imports.
Re-indexing a file replaces its previous rows. Files that fail to load are
reported and skipped; the run is still recorded.

Output adapts to environment:
  - Terminal: Styled summary with success indicator
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Index ./build.xml
  antscope discover

  # Index several build files
  antscope discover build.xml modules/*/build.xml

  # Output as JSON
  antscope discover --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, args, jobs)
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "Number of build files indexed in parallel")

	return cmd
}

func runDiscover(cmd *cobra.Command, files []string, jobs int) error {
	cmdCtx, cleanup := NewCommandContext(cmd)
	defer cleanup()
	cfg := cmdCtx.Cfg
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(files) == 0 {
		if err := cfg.ValidateBuildFile(); err != nil {
			return err
		}
		files = []string{cfg.BuildFile}
	}

	// Ensure state directory exists
	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(cmdCtx.Logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	run, err := store.CreateRun(ctx, len(files))
	if err != nil {
		return err
	}

	var (
		mu     sync.Mutex
		saveMu sync.Mutex
		out = output.DiscoverOutput{RunID: run.ID, Projects: []output.DiscoveredProject{}}
	)

	g, gctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pc, err := cmdCtx.OpenProject(file)
			if err != nil {
				cmdCtx.Logger.Warn("skipping build file", "file", file, "error", err)
				mu.Lock()
				out.Failed = append(out.Failed, output.DiscoverFailure{File: file, Error: err.Error()})
				mu.Unlock()
				return nil
			}

			idx := buildIndex(pc)
			saveMu.Lock()
			err = store.SaveProjectIndex(gctx, run.ID, idx)
			saveMu.Unlock()
			if err != nil {
				return err
			}
			cmdCtx.Logger.Debug("indexed build file", "file", idx.Project.Path, "targets", len(idx.Targets))

			mu.Lock()
			out.Projects = append(out.Projects, output.DiscoveredProject{
				File:           cmdCtx.RelPath(pc.Project().Path),
				Name:           idx.Project.Name,
				Targets:        len(idx.Targets),
				CustomElements: len(idx.CustomElements),
				Duplicates:     len(idx.Duplicates),
			})
			mu.Unlock()
			return nil
		})
	}
	runErr := g.Wait()
	if err := store.CompleteRun(ctx, run.ID, runErr); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("discovery failed: %w", runErr)
	}

	sort.Slice(out.Projects, func(i, j int) bool { return out.Projects[i].File < out.Projects[j].File })
	sort.Slice(out.Failed, func(i, j int) bool { return out.Failed[i].File < out.Failed[j].File })

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		discoverMarkdown(r, out, cfg.StatePath)
	default:
		discoverText(r, out, cfg.StatePath)
	}
	return nil
}

// buildIndex collects the searchable rows of a root project.
func buildIndex(pc *session.ProjectContext) *state.ProjectIndex {
	p := pc.Project()
	root := buildfile.OSPath(p.Path)
	idx := &state.ProjectIndex{
		Project: state.Project{
			Path:          root,
			Name:          p.Name,
			DefaultTarget: p.DefaultTarget,
		},
	}

	graph := pc.Graph()
	for _, n := range graph.GetAllNodes() {
		t := n.Target
		idx.Targets = append(idx.Targets, state.Target{
			Project:          root,
			Name:             n.ID,
			Target:           t.Name,
			File:             buildfile.OSPath(t.Element.File),
			Line:             t.Element.Line,
			Description:      t.Description,
			Depends:          strings.Join(graph.GetParents(n.ID), ","),
			IsDefault:        isDefault(p.DefaultTarget, n),
			IsExtensionPoint: t.IsExtensionPoint,
		})
	}

	reg := pc.Registry()
	for _, d := range reg.Declarations() {
		if d.Parent != nil {
			continue
		}
		ce := state.CustomElement{
			Project:   root,
			Name:      d.Key.Name,
			Namespace: d.Key.Namespace,
			Kind:      d.Kind,
			File:      buildfile.OSPath(d.Element.File),
			Line:      d.Element.Line,
		}
		if d.Class != nil {
			ce.ClassName = d.Class.ClassName()
			ce.Error = d.Class.Error()
		}
		idx.CustomElements = append(idx.CustomElements, ce)
	}

	for _, c := range pc.FindDuplicates() {
		idx.Duplicates = append(idx.Duplicates, state.Duplicate{
			Project:    root,
			Name:       c.Name,
			FirstFile:  buildfile.OSPath(c.First.Element.File),
			FirstLine:  c.First.Element.Line,
			SecondFile: buildfile.OSPath(c.Second.Element.File),
			SecondLine: c.Second.Element.Line,
		})
	}
	return idx
}

// discoverText outputs discovery results in styled text format.
func discoverText(r *output.Renderer, out output.DiscoverOutput, statePath string) {
	for _, p := range out.Projects {
		r.StatusLine(p.File, "success", fmt.Sprintf("%d targets, %d custom elements", p.Targets, p.CustomElements))
		if p.Duplicates > 0 {
			r.StatusLine(p.File, "warning", fmt.Sprintf("%d duplicate target names", p.Duplicates))
		}
	}
	for _, f := range out.Failed {
		r.StatusLine(f.File, "error", f.Error)
	}
	r.Println("")
	r.Success(fmt.Sprintf("Indexed %d build file(s)", len(out.Projects)))
	r.Muted(fmt.Sprintf("State saved to %s", statePath))
}

// discoverMarkdown outputs discovery results in markdown format.
func discoverMarkdown(r *output.Renderer, out output.DiscoverOutput, statePath string) {
	r.Println(output.FormatHeader(1, "Discovery Results"))
	r.Println("")
	r.Println(output.FormatKeyValue("Run", out.RunID))
	r.Println(output.FormatKeyValue("Indexed", fmt.Sprintf("%d", len(out.Projects))))
	r.Println(output.FormatKeyValue("Failed", fmt.Sprintf("%d", len(out.Failed))))
	r.Println(output.FormatKeyValue("State Path", statePath))
	r.Println("")

	if len(out.Projects) > 0 {
		r.Println(output.FormatHeader(2, "Projects"))
		for _, p := range out.Projects {
			r.Printf("- %s (%d targets, %d custom elements, %d duplicates)\n", p.File, p.Targets, p.CustomElements, p.Duplicates)
		}
		r.Println("")
	}
	if len(out.Failed) > 0 {
		r.Println(output.FormatHeader(2, "Failures"))
		for _, f := range out.Failed {
			r.Printf("- %s: %s\n", f.File, f.Error)
		}
	}
}
