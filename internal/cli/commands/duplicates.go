package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/antscope/internal/cli/output"
)

// NewDuplicatesCommand creates the duplicates command.
func NewDuplicatesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Report targets that share an effective name",
		Long: `Report pairs of targets registered under the same effective name.

The first registration wins at run time; the second is silently shadowed.
Exits with an error when duplicates are found, so it can gate CI.`,
		Example: `  # Check ./build.xml
  antscope duplicates

  # JSON for tooling
  antscope duplicates --output json`,
		RunE: runDuplicates,
	}

	return cmd
}

func runDuplicates(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup := NewCommandContext(cmd)
	defer cleanup()

	pc, err := cmdCtx.OpenProject("")
	if err != nil {
		return err
	}

	conflicts := pc.FindDuplicates()
	dups := make([]output.DuplicateOutput, 0, len(conflicts))
	for _, c := range conflicts {
		dups = append(dups, output.DuplicateOutput{
			Name:   c.Name,
			First:  cmdCtx.OutputLocation(c.First.Element),
			Second: cmdCtx.OutputLocation(c.Second.Element),
		})
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(dups); err != nil {
			return err
		}
	} else {
		if len(dups) == 0 {
			r.Success("No duplicate targets")
			return nil
		}
		r.Header(1, fmt.Sprintf("Duplicate targets (%d)", len(dups)))
		rows := make([][]string, 0, len(dups))
		for _, d := range dups {
			rows = append(rows, []string{
				d.Name,
				fmt.Sprintf("%s:%d", d.First.File, d.First.Line),
				fmt.Sprintf("%s:%d", d.Second.File, d.Second.Line),
			})
		}
		r.Table([]string{"Name", "Wins", "Shadowed"}, rows)
	}

	if len(dups) > 0 {
		return fmt.Errorf("found %d duplicate target(s)", len(dups))
	}
	return nil
}
