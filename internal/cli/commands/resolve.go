package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/antscope/internal/cli/output"
	"github.com/leapstack-labs/antscope/internal/properties"
	"github.com/leapstack-labs/antscope/internal/session"
	"github.com/leapstack-labs/antscope/pkg/core"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve target and property references",
		Long: `Resolve references the way the build engine would see them at run time.

Subcommands:
  target     Find the definitions of target names referenced from a target
  property   Find the assignment that wins for a property name`,
		Example: `  # Where is "compile" defined?
  antscope resolve target compile

  # Which assignment of "version" wins when "dist" runs?
  antscope resolve property version --context-target dist`,
	}

	cmd.AddCommand(newResolveTargetCommand())
	cmd.AddCommand(newResolvePropertyCommand())

	return cmd
}

func newResolveTargetCommand() *cobra.Command {
	var contextTarget string
	var variants bool

	cmd := &cobra.Command{
		Use:   "target NAME...",
		Short: "Resolve target names",
		Long: `Resolve target names referenced from a context target.

Inside an imported file a reference is first looked up in that file's scope
(with its import prefix) and then among the root project's effective names.
Without --context, names resolve from the default target.`,
		Example: `  # Where is "compile" defined?
  antscope resolve target compile

  # Resolve the depends entries of a target inside an included file
  antscope resolve target init setup --context lib.dist

  # Also list every name visible from the context
  antscope resolve target compile --variants`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolveTarget(cmd, args, contextTarget, variants)
		},
	}

	cmd.Flags().StringVar(&contextTarget, "context", "", "Effective name of the target the references are made from")
	cmd.Flags().BoolVar(&variants, "variants", false, "List every target name visible from the context")

	return cmd
}

func runResolveTarget(cmd *cobra.Command, names []string, contextName string, variants bool) error {
	cmdCtx, cleanup := NewCommandContext(cmd)
	defer cleanup()

	pc, err := cmdCtx.OpenProject("")
	if err != nil {
		return err
	}
	context, err := lookupTarget(pc, contextName)
	if err != nil {
		return err
	}

	res := pc.ResolveTarget(context, names)
	out := output.ResolveTargetsOutput{Context: contextName}
	for _, name := range names {
		ref := output.TargetRefOutput{Name: name}
		if r, ok := res.Lookup(name); ok {
			loc := cmdCtx.OutputLocation(r.Target.Element)
			ref.Resolved = true
			ref.Target = r.Name
			ref.Location = &loc
		}
		out.Refs = append(out.Refs, ref)
	}
	if variants {
		out.Variants = res.VariantNames()
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	styles := r.Styles()
	for _, ref := range out.Refs {
		if !ref.Resolved {
			r.StatusLine(ref.Name, "error", "unresolved")
			continue
		}
		detail := fmt.Sprintf("%s:%d", ref.Location.File, ref.Location.Line)
		if ref.Target != ref.Name {
			detail = ref.Target + " at " + detail
		}
		r.StatusLine(styles.Name.Render(ref.Name), "success", detail)
	}
	if variants {
		r.Println("")
		r.Header(2, fmt.Sprintf("Visible targets (%d)", len(out.Variants)))
		for _, v := range out.Variants {
			r.Println("  " + v)
		}
	}
	return nil
}

func newResolvePropertyCommand() *cobra.Command {
	var contextTarget string
	var fallback, variants bool

	cmd := &cobra.Command{
		Use:   "property NAME",
		Short: "Resolve a property name",
		Long: `Find the assignment of a property that takes effect first.

Properties are immutable once set, so the first provider reached in execution
order wins: top-level providers of the build file and its imports first, then
the bodies of the targets run before the context target. When nothing on that
path assigns the name, the remaining targets are searched and the result is
marked as a fallback. Parameters passed by antcall, ant and subant are listed
as well.`,
		Example: `  # Resolve at top level
  antscope resolve property version

  # Resolve as seen from inside a target
  antscope resolve property dist.dir --context-target package

  # List every property name visible in a target, fallback names included
  antscope resolve property "" --context-target package --variants --fallback`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolveProperty(cmd, args[0], contextTarget, fallback, variants)
		},
	}

	cmd.Flags().StringVar(&contextTarget, "context-target", "", "Effective name of the target the reference is made in")
	cmd.Flags().BoolVar(&fallback, "fallback", false, "Include names only found outside the execution order in --variants")
	cmd.Flags().BoolVar(&variants, "variants", false, "List every property name visible at the reference")

	return cmd
}

func runResolveProperty(cmd *cobra.Command, name, contextName string, fallback, variants bool) error {
	cmdCtx, cleanup := NewCommandContext(cmd)
	defer cleanup()

	pc, err := cmdCtx.OpenProject("")
	if err != nil {
		return err
	}
	context, err := lookupTarget(pc, contextName)
	if err != nil {
		return err
	}
	var at *core.Element
	if context != nil {
		at = context.Element
	}

	res := pc.ResolveProperty(name, at)
	out := output.PropertyOutput{
		Name:     name,
		Found:    res.Found(),
		Fallback: res.Fallback,
	}
	if res.Primary != nil {
		m := matchOutput(cmdCtx, *res.Primary)
		out.Primary = &m
	}
	for _, p := range res.Params {
		out.Params = append(out.Params, matchOutput(cmdCtx, p))
	}
	if variants {
		out.Variants = res.Variants
		if fallback {
			out.Variants = res.AllVariants()
		}
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	if name != "" {
		switch {
		case out.Primary != nil:
			detail := fmt.Sprintf("%s:%d %s", out.Primary.Location.File, out.Primary.Location.Line, out.Primary.Kind)
			if out.Primary.Value != nil {
				detail += " = " + *out.Primary.Value
			}
			if out.Fallback {
				detail += " (outside execution order)"
			}
			r.StatusLine(name, "success", detail)
		case len(out.Params) == 0:
			r.StatusLine(name, "error", "not assigned")
		}
		for _, p := range out.Params {
			r.StatusLine(name, "warning", fmt.Sprintf("%s:%d passed to %s", p.Location.File, p.Location.Line, p.Target))
		}
	}
	if variants {
		if name != "" {
			r.Println("")
		}
		r.Header(2, fmt.Sprintf("Visible properties (%d)", len(out.Variants)))
		r.Println("  " + strings.Join(out.Variants, "\n  "))
	}
	return nil
}

func matchOutput(cmdCtx *CommandContext, m properties.Match) output.PropertyMatchOutput {
	out := output.PropertyMatchOutput{
		Location: cmdCtx.OutputLocation(m.Declaration.Element),
		Kind:     m.Provider.Element().Tag,
	}
	if m.Declaration.Value.Known {
		v := m.Declaration.Value.Text
		out.Value = &v
	}
	if cp, ok := m.Provider.(core.CallSiteParameter); ok {
		out.Target = cp.CallSite().Attr("target")
		if out.Target == "" {
			out.Target = cp.CallSite().Tag
		}
	}
	return out
}

// lookupTarget finds a target by effective name; "" means no context.
func lookupTarget(pc *session.ProjectContext, name string) (*core.Target, error) {
	if name == "" {
		return nil, nil
	}
	n, ok := pc.Graph().GetNode(name)
	if !ok {
		return nil, fmt.Errorf("no target named %q", name)
	}
	return n.Target, nil
}
