package traverse

import (
	"github.com/leapstack-labs/antscope/internal/imports"
	"github.com/leapstack-labs/antscope/pkg/core"
)

// Registration records a target under one effective name.
// A target imported twice under different prefixes has two registrations.
type Registration struct {
	Target *core.Target
	Name   string
	Scope  imports.Scope
}

// Walk is the state of one traversal. It is local to the Run call that created it and is
// safe to inspect after Run returns.
type Walk struct {
	root    *core.Project
	stage   Stage
	stopped bool

	// names maps effective names to the first target registered under them
	names map[string]Registration
	// regs holds every registration in scan order, duplicates included
	regs []Registration
	// scopes holds the first scope each target was registered in
	scopes map[*core.Target]imports.Scope
	// extensions maps extension points to their contributors in declaration order
	extensions map[*core.Target][]Ref
	// visited holds targets whose walk has started
	visited map[*core.Target]bool
	// order holds visited targets in definition order
	order []Ref
	// projects holds every project scanned, in scan order
	projects []*core.Project
}

func newWalk(root *core.Project) *Walk {
	return &Walk{
		root:       root,
		names:      make(map[string]Registration),
		scopes:     make(map[*core.Target]imports.Scope),
		extensions: make(map[*core.Target][]Ref),
		visited:    make(map[*core.Target]bool),
	}
}

// Root returns the project the traversal started from.
func (w *Walk) Root() *core.Project { return w.root }

// Stage returns the stage currently running.
func (w *Walk) Stage() Stage { return w.stage }

// Stopped reports whether a callback ended the traversal early.
func (w *Walk) Stopped() bool { return w.stopped }

// Lookup returns the target registered first under an effective name.
func (w *Walk) Lookup(name string) (*core.Target, bool) {
	r, ok := w.names[name]
	return r.Target, ok
}

// Registrations returns every registration in scan order, duplicates included.
func (w *Walk) Registrations() []Registration {
	return w.regs
}

// Projects returns every project scanned, in scan order.
func (w *Walk) Projects() []*core.Project {
	return w.projects
}

// Visited reports whether t was reached by the target walk.
func (w *Walk) Visited(t *core.Target) bool {
	return w.visited[t]
}

// Order returns the targets defined so far, in execution order.
func (w *Walk) Order() []Ref {
	return w.order
}

// ScopeOf returns the scope t was first registered in.
func (w *Walk) ScopeOf(t *core.Target) imports.Scope {
	return w.scopes[t]
}

// NameOf returns the first effective name of t, or its declared name if unregistered.
func (w *Walk) NameOf(t *core.Target) string {
	if s, ok := w.scopes[t]; ok {
		return s.Qualify(t.Name)
	}
	return t.Name
}

// Resolve resolves a depends reference made from target from.
// References are looked up in from's scope first, then as written.
func (w *Walk) Resolve(from *core.Target, ref string) (Ref, bool) {
	if from != nil {
		if s := w.scopes[from]; !s.IsRoot() {
			name := s.Qualify(ref)
			if r, ok := w.names[name]; ok {
				return Ref{Target: r.Target, Name: name}, true
			}
		}
	}
	if r, ok := w.names[ref]; ok {
		return Ref{Target: r.Target, Name: ref}, true
	}
	return Ref{}, false
}

// Dependencies returns the ordered dependencies of t: resolvable depends entries followed by
// targets that declare themselves extensions of t. Unresolvable references are skipped.
func (w *Walk) Dependencies(t *core.Target) []Ref {
	var deps []Ref
	for _, ref := range t.DependsList() {
		if r, ok := w.Resolve(t, ref); ok {
			deps = append(deps, r)
		}
	}
	return append(deps, w.extensions[t]...)
}

func (w *Walk) register(t *core.Target, scope imports.Scope) {
	if t.Name == "" {
		return
	}
	r := Registration{Target: t, Name: scope.Qualify(t.Name), Scope: scope}
	w.regs = append(w.regs, r)
	if _, ok := w.names[r.Name]; !ok {
		w.names[r.Name] = r
	}
	if _, ok := w.scopes[t]; !ok {
		w.scopes[t] = scope
	}
}

// linkExtensions attaches extensionOf contributors to their extension points.
// Only authoritative registrations contribute; a shadowed duplicate never runs.
func (w *Walk) linkExtensions() {
	seen := make(map[*core.Target]bool)
	for _, r := range w.regs {
		if w.names[r.Name].Target != r.Target || seen[r.Target] {
			continue
		}
		seen[r.Target] = true
		for _, ref := range r.Target.ExtensionOfList() {
			ep, ok := w.Resolve(r.Target, ref)
			if !ok {
				continue
			}
			w.extensions[ep.Target] = append(w.extensions[ep.Target], Ref{Target: r.Target, Name: r.Name})
		}
	}
}
