package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/antscope/internal/cli/output"
	"github.com/leapstack-labs/antscope/internal/state"
)

// SearchOutput is the JSON output of search.
type SearchOutput struct {
	Targets        []output.TargetOutput    `json:"targets"`
	CustomElements []output.CustomDefOutput `json:"custom_elements"`
}

// NewSearchCommand creates the search command.
func NewSearchCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "search PATTERN",
		Short: "Search indexed targets and custom elements",
		Long: `Search the state database filled by "antscope discover".

PATTERN matches effective target names and custom element names. It may use
* and ? wildcards; without wildcards it matches any name containing it.`,
		Example: `  # Targets and custom elements containing "test"
  antscope search test

  # Only targets of an included file
  antscope search 'lib.*' --kind targets`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], kind)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "all", "What to search: all, targets, customdefs")

	return cmd
}

func runSearch(cmd *cobra.Command, pattern, kind string) error {
	if kind != "all" && kind != "targets" && kind != "customdefs" {
		return fmt.Errorf("invalid kind %q (valid: all, targets, customdefs)", kind)
	}

	cmdCtx, cleanup := NewCommandContext(cmd)
	defer cleanup()
	ctx := cmd.Context()

	if _, err := os.Stat(cmdCtx.Cfg.StatePath); err != nil {
		return fmt.Errorf("no index at %s, run 'antscope discover' first", cmdCtx.Cfg.StatePath)
	}

	store := state.NewSQLiteStore(cmdCtx.Logger)
	if err := store.Open(cmdCtx.Cfg.StatePath); err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer store.Close()

	out := SearchOutput{Targets: []output.TargetOutput{}, CustomElements: []output.CustomDefOutput{}}
	if kind != "customdefs" {
		targets, err := store.SearchTargets(ctx, pattern)
		if err != nil {
			return err
		}
		for _, t := range targets {
			out.Targets = append(out.Targets, output.TargetOutput{
				Name:           t.Name,
				Target:         t.Target,
				Location:       output.Location{File: cmdCtx.relOSPath(t.File), Line: t.Line},
				Depends:        splitDepends(t.Depends),
				Description:    t.Description,
				Default:        t.IsDefault,
				ExtensionPoint: t.IsExtensionPoint,
			})
		}
	}
	if kind != "targets" {
		elems, err := store.SearchCustomElements(ctx, pattern)
		if err != nil {
			return err
		}
		for _, e := range elems {
			out.CustomElements = append(out.CustomElements, output.CustomDefOutput{
				Name:      e.Name,
				Namespace: e.Namespace,
				Kind:      e.Kind,
				ClassName: e.ClassName,
				Location:  output.Location{File: cmdCtx.relOSPath(e.File), Line: e.Line},
				Error:     e.Error,
			})
		}
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	if len(out.Targets) == 0 && len(out.CustomElements) == 0 {
		r.Muted(fmt.Sprintf("No matches for %q", pattern))
		return nil
	}
	if len(out.Targets) > 0 {
		r.Header(2, fmt.Sprintf("Targets (%d)", len(out.Targets)))
		rows := make([][]string, 0, len(out.Targets))
		for _, t := range out.Targets {
			rows = append(rows, []string{t.Name, fmt.Sprintf("%s:%d", t.Location.File, t.Location.Line), t.Description})
		}
		r.Table([]string{"Name", "Location", "Description"}, rows)
	}
	if len(out.CustomElements) > 0 {
		r.Header(2, fmt.Sprintf("Custom elements (%d)", len(out.CustomElements)))
		rows := make([][]string, 0, len(out.CustomElements))
		for _, e := range out.CustomElements {
			name := e.Name
			if e.Namespace != "" {
				name = e.Namespace + ":" + name
			}
			rows = append(rows, []string{name, e.Kind, fmt.Sprintf("%s:%d", e.Location.File, e.Location.Line), e.ClassName})
		}
		r.Table([]string{"Name", "Kind", "Location", "Class"}, rows)
	}
	return nil
}

func splitDepends(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
