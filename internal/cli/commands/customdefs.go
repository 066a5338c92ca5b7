package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/antscope/internal/cli/output"
	"github.com/leapstack-labs/antscope/internal/customdef"
)

// NewCustomDefsCommand creates the customdefs command.
func NewCustomDefsCommand() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "customdefs",
		Short: "List custom elements declared by the build file",
		Long: `List the custom elements (macrodef, presetdef, scriptdef, typedef, taskdef,
antlib contents) visible from the build file, in registration order.

Backing classes are loaded lazily. With --check every class is loaded and
failures are reported; the command then exits with an error if any failed.`,
		Example: `  # List declarations
  antscope customdefs

  # Verify every taskdef/typedef class can be found
  antscope customdefs --check`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCustomDefs(cmd, check)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Load every backing class and report failures")

	return cmd
}

func runCustomDefs(cmd *cobra.Command, check bool) error {
	cmdCtx, cleanup := NewCommandContext(cmd)
	defer cleanup()

	pc, err := cmdCtx.OpenProject("")
	if err != nil {
		return err
	}

	reg := pc.Registry()
	failed := make(map[*customdef.Declaration]bool)
	if check {
		for _, d := range reg.ClassErrors() {
			failed[d] = true
		}
	}

	out := output.CustomDefsOutput{Declarations: []output.CustomDefOutput{}}
	for _, d := range reg.Declarations() {
		def := output.CustomDefOutput{
			Name:      d.Key.Name,
			Namespace: d.Key.Namespace,
			Kind:      d.Kind,
			Location:  cmdCtx.OutputLocation(d.Element),
		}
		if d.Parent != nil {
			def.Parent = d.Parent.Key.String()
		}
		if d.Class != nil {
			def.ClassName = d.Class.ClassName()
			if check {
				if c := d.Class.LookupClass(); c != nil {
					def.ClassName = c.Name
				}
			}
		}
		if failed[d] {
			def.Error = d.Class.Error()
		}
		out.Declarations = append(out.Declarations, def)
	}
	for _, p := range reg.Problems() {
		out.Problems = append(out.Problems, output.ProblemOutput{
			Location: cmdCtx.OutputLocation(p.Element),
			Message:  p.Message,
		})
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(out); err != nil {
			return err
		}
	} else {
		r.Header(1, fmt.Sprintf("Custom elements (%d)", len(out.Declarations)))
		rows := make([][]string, 0, len(out.Declarations))
		for _, d := range out.Declarations {
			name := d.Name
			if d.Namespace != "" {
				name = d.Namespace + ":" + name
			}
			if d.Parent != "" {
				name = d.Parent + " > " + name
			}
			class := d.ClassName
			if d.Error != "" {
				class = "error: " + d.Error
			}
			rows = append(rows, []string{name, d.Kind, fmt.Sprintf("%s:%d", d.Location.File, d.Location.Line), class})
		}
		r.Table([]string{"Name", "Kind", "Location", "Class"}, rows)
		for _, p := range out.Problems {
			r.Warning(fmt.Sprintf("%s:%d: %s", p.Location.File, p.Location.Line, p.Message))
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d custom element class(es) could not be loaded", len(failed))
	}
	return nil
}
