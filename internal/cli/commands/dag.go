package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/antscope/internal/cli/output"
)

// GraphQuerier provides read-only access to DAG structure.
type GraphQuerier interface {
	GetParents(string) []string
	GetChildren(string) []string
	GetRoots() []string
	GetLeaves() []string
	GetMissing() map[string][]string
	NodeCount() int
	EdgeCount() int
}

// NewDAGCommand creates the dag command.
func NewDAGCommand() *cobra.Command {
	var format, target string

	cmd := &cobra.Command{
		Use:   "dag",
		Short: "Show the target dependency graph",
		Long: `Display the dependency graph (DAG) of every target visible from the build file.

Targets are grouped by level: a target's level is one more than the deepest of
its dependencies. Extension points count their contributors as dependencies.
With --target, the order in which the build engine would run that target and
its dependencies is printed instead, and --format dot draws only that part of
the graph.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)

--format dot writes a Graphviz graph regardless of the output mode.`,
		Example: `  # Show the DAG
  antscope dag

  # Execution order of "dist"
  antscope dag --target dist

  # Render with Graphviz
  antscope dag --format dot | dot -Tsvg > build.svg

  # Render only what "dist" needs
  antscope dag --target dist --format dot

  # Output as JSON
  antscope dag --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDAG(cmd, format, target)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Graph format: text, dot")
	cmd.Flags().StringVar(&target, "target", "", "Print the execution order of this target")

	return cmd
}

func runDAG(cmd *cobra.Command, format, target string) error {
	if format != "text" && format != "dot" {
		return fmt.Errorf("invalid format %q (valid: text, dot)", format)
	}

	cmdCtx, cleanup := NewCommandContext(cmd)
	defer cleanup()

	pc, err := cmdCtx.OpenProject("")
	if err != nil {
		return err
	}

	graph := pc.Graph()
	r := cmdCtx.Renderer

	if target != "" {
		if _, ok := graph.GetNode(target); !ok {
			return fmt.Errorf("target %q does not exist", target)
		}
		graph = graph.Subgraph(append(graph.GetUpstreamNodes(target), target))
	}

	if format == "dot" {
		return graph.WriteDOT(r.Writer())
	}

	if target != "" {
		order, err := graph.ExecutionOrder(target)
		if err != nil {
			return err
		}
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(output.DAGOutput{
				Order:        order,
				TotalTargets: graph.NodeCount(),
				TotalEdges:   graph.EdgeCount(),
			})
		}
		r.Header(1, "Execution order of "+target)
		for i, id := range order {
			r.Printf("%d. %s\n", i+1, id)
		}
		return nil
	}

	if hasCycle, cycle := graph.HasCycle(); hasCycle {
		if r.EffectiveMode() == output.ModeJSON {
			if err := r.JSON(output.DAGOutput{
				Cycle:        cycle,
				Missing:      graph.GetMissing(),
				TotalTargets: graph.NodeCount(),
				TotalEdges:   graph.EdgeCount(),
			}); err != nil {
				return err
			}
		}
		return fmt.Errorf("dependency cycle: %s", strings.Join(cycle, " -> "))
	}

	levels, err := graph.GetExecutionLevels()
	if err != nil {
		return fmt.Errorf("failed to get execution levels: %w", err)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return dagJSON(r, graph, levels)
	case output.ModeMarkdown:
		return dagMarkdown(r, graph, levels)
	default:
		return dagText(r, graph, levels)
	}
}

// dagText outputs DAG in styled text format.
func dagText(r *output.Renderer, graph GraphQuerier, levels [][]string) error {
	styles := r.Styles()
	missing := graph.GetMissing()

	r.Header(1, "Dependency Graph")

	for i, level := range levels {
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", i)))
		for _, id := range level {
			deps := graph.GetParents(id)
			children := graph.GetChildren(id)

			r.Printf("  %s\n", styles.Name.Render(id))
			if len(deps) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("depends on:"), strings.Join(deps, ", "))
			}
			if len(children) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("used by:"), strings.Join(children, ", "))
			}
			if len(missing[id]) > 0 {
				r.Printf("    %s %s\n", styles.Error.Render("missing:"), strings.Join(missing[id], ", "))
			}
		}
		r.Println("")
	}

	r.Printf("%s %s\n", styles.Muted.Render("entry points:"), strings.Join(graph.GetLeaves(), ", "))
	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d targets, %d dependencies", graph.NodeCount(), graph.EdgeCount())))

	return nil
}

// dagMarkdown outputs DAG in markdown format.
func dagMarkdown(r *output.Renderer, graph GraphQuerier, levels [][]string) error {
	missing := graph.GetMissing()

	r.Println(output.FormatHeader(1, "Dependency Graph"))
	r.Println("")

	for i, level := range levels {
		levelName := fmt.Sprintf("Level %d", i)
		if i == 0 {
			levelName = "Level 0 (No dependencies)"
		}
		r.Println(output.FormatHeader(2, levelName))

		for _, id := range level {
			deps := graph.GetParents(id)
			children := graph.GetChildren(id)

			r.Printf("- %s\n", id)
			if len(deps) > 0 {
				r.Printf("  - depends on: %s\n", strings.Join(deps, ", "))
			}
			if len(children) > 0 {
				r.Printf("  - used by: %s\n", strings.Join(children, ", "))
			}
			if len(missing[id]) > 0 {
				r.Printf("  - missing: %s\n", strings.Join(missing[id], ", "))
			}
		}
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Targets", fmt.Sprintf("%d", graph.NodeCount())))
	r.Println(output.FormatKeyValue("Total Dependencies", fmt.Sprintf("%d", graph.EdgeCount())))
	r.Println(output.FormatKeyValue("Entry Points", strings.Join(graph.GetLeaves(), ", ")))

	return nil
}

// dagJSON outputs DAG in JSON format.
func dagJSON(r *output.Renderer, graph GraphQuerier, levels [][]string) error {
	dagOutput := output.DAGOutput{
		Levels:       make([]output.DAGLevel, 0, len(levels)),
		Missing:      graph.GetMissing(),
		Roots:        graph.GetRoots(),
		Leaves:       graph.GetLeaves(),
		TotalTargets: graph.NodeCount(),
		TotalEdges:   graph.EdgeCount(),
	}

	for i, level := range levels {
		dagLevel := output.DAGLevel{
			Level:   i,
			Targets: make([]output.DAGNode, 0, len(level)),
		}

		for _, id := range level {
			dagLevel.Targets = append(dagLevel.Targets, output.DAGNode{
				Name:      id,
				DependsOn: graph.GetParents(id),
				UsedBy:    graph.GetChildren(id),
			})
		}

		dagOutput.Levels = append(dagOutput.Levels, dagLevel)
	}

	return r.JSON(dagOutput)
}
