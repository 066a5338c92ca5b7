// Package properties resolves property references the way the build engine would assign them.
//
// The resolver replays the default execution path: top-level providers in declaration order,
// then the default target's dependency closure, then the target enclosing the reference. The
// first provider offering a name wins; later assignments are no-ops, as at build time.
package properties

import (
	"sort"

	"github.com/leapstack-labs/antscope/internal/imports"
	"github.com/leapstack-labs/antscope/internal/traverse"
	"github.com/leapstack-labs/antscope/pkg/core"
)

// Match is one provider assigning the queried name.
type Match struct {
	Provider    core.PropertyProvider
	Declaration core.Declaration
	// Owner is the target whose body holds the provider, nil at top level
	Owner *core.Target
}

// Result is the outcome of a property resolution.
type Result struct {
	// Name is the queried property
	Name string
	// Primary is the assignment found on the execution path, or by fallback search
	Primary *Match
	// Fallback is true when Primary was found outside the ordered walk
	Fallback bool
	// Variants holds every name offered by providers on the ordered walk, sorted
	Variants []string
	// FallbackVariants holds names offered only by providers off the ordered walk, sorted
	FallbackVariants []string
	// Params holds call-site parameters binding the name, in document order
	Params []Match
}

// Found reports whether anything assigns the name, primary or parameter.
func (r *Result) Found() bool {
	return r.Primary != nil || len(r.Params) > 0
}

// Navigation returns the element a reference should navigate to.
// The primary assignment is preferred over call-site parameters.
func (r *Result) Navigation() *core.Element {
	if r.Primary != nil {
		return r.Primary.Declaration.Element
	}
	if len(r.Params) > 0 {
		return r.Params[0].Declaration.Element
	}
	return nil
}

// Value returns the primary assignment's value.
func (r *Result) Value() (core.Value, bool) {
	if r.Primary == nil {
		return core.Value{}, false
	}
	return r.Primary.Declaration.Value, true
}

// AllVariants returns the ordered-walk variants merged with the fallback variants.
func (r *Result) AllVariants() []string {
	return sortedUnion(r.Variants, r.FallbackVariants)
}

// Resolve resolves name as referenced at context. A nil context resolves at top level.
func Resolve(p *core.Project, src core.ImportSource, name string, context *core.Element) *Result {
	res := &Result{Name: name}
	s := newSearch(p, src, context, name)
	w := s.run()

	if s.found != nil {
		res.Primary = s.found
	} else if s.self != nil {
		if decl, ok := s.self.Lookup(name); ok {
			res.Primary = &Match{Provider: s.self, Declaration: decl, Owner: s.selfOwner}
		}
	}
	if s.self != nil {
		s.addVariants(s.self)
	}

	fallbackVariants := make(map[string]bool)
	for _, t := range unvisited(w) {
		for _, pp := range t.Providers {
			for _, n := range pp.Names() {
				if !s.variants[n] {
					fallbackVariants[n] = true
				}
			}
			if res.Primary != nil || name == "" {
				continue
			}
			if decl, ok := pp.Lookup(name); ok {
				res.Primary = &Match{Provider: pp, Declaration: decl, Owner: t}
				res.Fallback = true
			}
		}
	}

	res.Variants = sortedKeys(s.variants)
	res.FallbackVariants = sortedKeys(fallbackVariants)
	if name != "" {
		res.Params = FindCallSiteParams(imports.Closure(p, src), name)
	}
	return res
}

// Variants lists the property names visible at context. Names offered only off the execution
// path are included when includeFallback is set.
func Variants(p *core.Project, src core.ImportSource, context *core.Element, includeFallback bool) []string {
	res := Resolve(p, src, "", context)
	if includeFallback {
		return res.AllVariants()
	}
	return res.Variants
}

type search struct {
	project *core.Project
	src     core.ImportSource
	context *core.Element
	name    string

	variants map[string]bool
	found    *Match
	// self is the context element's own provider, skipped during the walk
	self      core.PropertyProvider
	selfOwner *core.Target
}

func newSearch(p *core.Project, src core.ImportSource, context *core.Element, name string) *search {
	return &search{
		project:  p,
		src:      src,
		context:  context,
		name:     name,
		variants: make(map[string]bool),
	}
}

func (s *search) run() *traverse.Walk {
	opts := traverse.Options{}
	if s.project.DefaultTarget != "" {
		opts.Start = []string{s.project.DefaultTarget}
	}
	if enclosing := EnclosingTarget(s.project, s.src, s.context); enclosing != nil {
		opts.StartTargets = []*core.Target{enclosing}
	}

	return traverse.Run(s.project, s.src, traverse.Funcs{
		OnPropertyProvider: func(_ *traverse.Walk, pp core.PropertyProvider, owner *core.Target) traverse.Action {
			if s.context != nil && pp.Element() == s.context {
				s.self, s.selfOwner = pp, owner
				return traverse.Continue
			}
			s.addVariants(pp)
			if s.name == "" {
				return traverse.Continue
			}
			if decl, ok := pp.Lookup(s.name); ok {
				s.found = &Match{Provider: pp, Declaration: decl, Owner: owner}
				return traverse.Stop
			}
			return traverse.Continue
		},
	}, opts)
}

func (s *search) addVariants(pp core.PropertyProvider) {
	for _, n := range pp.Names() {
		s.variants[n] = true
	}
}

// unvisited returns registered targets the walk never reached, in registration order.
func unvisited(w *traverse.Walk) []*core.Target {
	var out []*core.Target
	seen := make(map[*core.Target]bool)
	for _, r := range w.Registrations() {
		if seen[r.Target] || w.Visited(r.Target) {
			continue
		}
		seen[r.Target] = true
		out = append(out, r.Target)
	}
	return out
}

// EnclosingTarget returns the target whose body holds e, searching p and every project it
// imports. It returns nil for top-level elements and elements outside the import closure.
func EnclosingTarget(p *core.Project, src core.ImportSource, e *core.Element) *core.Target {
	if e == nil {
		return nil
	}
	seen := make(map[*core.Project]bool)
	queue := []*core.Project{p}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if cur.Path == e.File || e.File == "" {
			if t := cur.TargetAt(e); t != nil {
				return t
			}
		}
		for _, edge := range imports.Expand(cur, src) {
			if edge.Resolved() {
				queue = append(queue, edge.Project)
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedUnion(a, b []string) []string {
	m := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		m[s] = true
	}
	for _, s := range b {
		m[s] = true
	}
	return sortedKeys(m)
}
