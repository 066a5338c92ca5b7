// Package targets resolves target references and reports duplicate effective names.
package targets

import (
	"sort"

	"github.com/leapstack-labs/antscope/internal/traverse"
	"github.com/leapstack-labs/antscope/pkg/core"
)

// Result is the outcome of a target resolution.
type Result struct {
	// Resolved maps each resolvable queried reference to its target
	Resolved map[string]traverse.Ref
	// Variants maps every effective name discovered to its authoritative target
	Variants map[string]*core.Target
}

// Lookup returns the resolution of a queried reference.
func (r *Result) Lookup(name string) (traverse.Ref, bool) {
	ref, ok := r.Resolved[name]
	return ref, ok
}

// VariantNames returns the discovered effective names, sorted.
func (r *Result) VariantNames() []string {
	names := make([]string, 0, len(r.Variants))
	for n := range r.Variants {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve resolves target references made from context, usually the entries of its depends
// attribute. A nil context walks from the project's default target.
//
// References found in the context's dependency map are resolved in its scope. Anything left
// falls back to a flat lookup by effective name over every registered target, so bare names
// of prefixed imports never resolve.
func Resolve(p *core.Project, src core.ImportSource, context *core.Target, names []string) *Result {
	res := &Result{
		Resolved: make(map[string]traverse.Ref, len(names)),
		Variants: make(map[string]*core.Target),
	}
	pending := make(map[string]bool, len(names))
	for _, n := range names {
		pending[n] = true
	}

	opts := traverse.Options{SkipBodies: true}
	if context != nil {
		opts.StartTargets = []*core.Target{context}
	}

	w := traverse.Run(p, src, traverse.Funcs{
		OnTargetDefined: func(_ *traverse.Walk, t *core.Target, _ string, deps map[string]traverse.Ref) traverse.Action {
			if context == nil || t != context {
				return traverse.Continue
			}
			for ref, d := range deps {
				if pending[ref] {
					res.Resolved[ref] = d
					delete(pending, ref)
				}
			}
			// the context's dependency map is complete once it is defined
			return traverse.Stop
		},
	}, opts)

	for _, r := range w.Registrations() {
		if _, ok := res.Variants[r.Name]; !ok {
			res.Variants[r.Name] = r.Target
		}
	}
	for n := range pending {
		if t, ok := w.Lookup(n); ok {
			res.Resolved[n] = traverse.Ref{Target: t, Name: n}
		}
	}
	return res
}

// ResolveDefault resolves the project's default target attribute.
func ResolveDefault(p *core.Project, src core.ImportSource) (traverse.Ref, bool) {
	if p.DefaultTarget == "" {
		return traverse.Ref{}, false
	}
	return Resolve(p, src, nil, []string{p.DefaultTarget}).Lookup(p.DefaultTarget)
}
