package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/antscope/internal/cli/output"
	"github.com/leapstack-labs/antscope/internal/dag"
)

// NewTargetsCommand creates the targets command.
func NewTargetsCommand() *cobra.Command {
	var described bool

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List the targets visible from the build file",
		Long: `List every target visible from the build file under its effective name.

Targets of imported files appear under the name they are reachable by: prefixed
names for <include> and <import as="...">, plain names for <import>. Depends
entries that name no target are reported as missing.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown table (agent-friendly)`,
		Example: `  # List targets of ./build.xml
  antscope targets

  # Only targets with a description
  antscope targets --described

  # Another build file, as JSON
  antscope targets -f ant/main.xml --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTargets(cmd, described)
		},
	}

	cmd.Flags().BoolVar(&described, "described", false, "Only list targets with a description")

	return cmd
}

func runTargets(cmd *cobra.Command, described bool) error {
	cmdCtx, cleanup := NewCommandContext(cmd)
	defer cleanup()

	pc, err := cmdCtx.OpenProject("")
	if err != nil {
		return err
	}

	graph := pc.Graph()
	missing := graph.GetMissing()
	var targets []output.TargetOutput
	for _, n := range graph.GetAllNodes() {
		t := n.Target
		if described && t.Description == "" {
			continue
		}
		targets = append(targets, output.TargetOutput{
			Name:           n.ID,
			Target:         t.Name,
			Location:       cmdCtx.OutputLocation(t.Element),
			Depends:        graph.GetParents(n.ID),
			Missing:        missing[n.ID],
			Description:    t.Description,
			Default:        isDefault(pc.Project().DefaultTarget, n),
			ExtensionPoint: t.IsExtensionPoint,
		})
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(targets)
	default:
		r.Header(1, fmt.Sprintf("Targets (%d)", len(targets)))
		rows := make([][]string, 0, len(targets))
		for _, t := range targets {
			name := t.Name
			if t.Default {
				name += " *"
			}
			deps := strings.Join(t.Depends, ", ")
			if len(t.Missing) > 0 {
				deps = strings.TrimPrefix(deps+", missing: "+strings.Join(t.Missing, ", "), ", ")
			}
			rows = append(rows, []string{name, fmt.Sprintf("%s:%d", t.Location.File, t.Location.Line), deps, t.Description})
		}
		r.Table([]string{"Name", "Location", "Depends", "Description"}, rows)
		if pc.Project().DefaultTarget != "" {
			r.Muted("* default target")
		}
	}
	return nil
}

func isDefault(defaultTarget string, n *dag.Node) bool {
	return defaultTarget != "" && n.ID == defaultTarget
}
