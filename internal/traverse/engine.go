package traverse

import (
	"github.com/leapstack-labs/antscope/internal/imports"
	"github.com/leapstack-labs/antscope/pkg/core"
)

// Options configures a traversal.
type Options struct {
	// Start lists effective names of the targets to walk from, in order
	Start []string
	// StartTargets lists targets to walk from after Start
	StartTargets []*core.Target
	// AllTargets walks every registration, in scan order, after the explicit starts
	AllTargets bool
	// SkipBodies suppresses provider events for target bodies
	SkipBodies bool
}

type scanKey struct {
	project *core.Project
	prefix  string
}

type engine struct {
	src     core.ImportSource
	visitor Visitor
	opts    Options
	w       *Walk

	// onStack holds projects currently being scanned
	onStack map[*core.Project]bool
	// scanned holds projects already scanned under a composed prefix
	scanned map[scanKey]bool
}

// Run traverses root and returns the walk state.
//
// Without explicit starts and without AllTargets the walk begins at the root project's default
// target. src resolves import directives; a nil src treats every import as unresolved.
func Run(root *core.Project, src core.ImportSource, v Visitor, opts Options) *Walk {
	e := &engine{
		src:     src,
		visitor: v,
		opts:    opts,
		w:       newWalk(root),
		onStack: make(map[*core.Project]bool),
		scanned: make(map[scanKey]bool),
	}
	e.run()
	return e.w
}

func (e *engine) run() {
	w := e.w

	w.stage = StageProjectScan
	if e.scan(w.root, imports.Scope{}) == Stop {
		w.stopped = true
		return
	}
	w.linkExtensions()
	if e.visitor.StageCompleted(w, StageProjectScan) == Stop {
		w.stopped = true
		return
	}

	w.stage = StageTargetWalk
	if e.walkTargets() == Stop {
		w.stopped = true
		return
	}
	if e.visitor.StageCompleted(w, StageTargetWalk) == Stop {
		w.stopped = true
	}
}

// scan walks the top-level constructs of p in declaration order.
func (e *engine) scan(p *core.Project, scope imports.Scope) Action {
	key := scanKey{project: p, prefix: scope.Prefix}
	if e.onStack[p] || e.scanned[key] {
		return Continue
	}
	e.scanned[key] = true
	e.onStack[p] = true
	defer delete(e.onStack, p)
	e.w.projects = append(e.w.projects, p)

	for _, it := range p.Items {
		switch it.Kind {
		case core.ItemProvider:
			if e.visitor.PropertyProvider(e.w, it.Provider, nil) == Stop {
				return Stop
			}
		case core.ItemTarget:
			e.w.register(it.Target, scope)
		case core.ItemImport:
			edge := imports.Resolve(it.Import, e.src)
			if !edge.Resolved() {
				continue
			}
			if e.scan(edge.Project, scope.Enter(edge)) == Stop {
				return Stop
			}
		}
	}
	return Continue
}

func (e *engine) walkTargets() Action {
	w := e.w
	var starts []Ref

	for _, name := range e.opts.Start {
		if t, ok := w.Lookup(name); ok {
			starts = append(starts, Ref{Target: t, Name: name})
		}
	}
	for _, t := range e.opts.StartTargets {
		if t != nil {
			starts = append(starts, Ref{Target: t, Name: w.NameOf(t)})
		}
	}
	if e.opts.AllTargets {
		for _, r := range w.regs {
			starts = append(starts, Ref{Target: r.Target, Name: r.Name})
		}
	}
	if len(starts) == 0 && !e.opts.AllTargets {
		if t, ok := w.Lookup(w.root.DefaultTarget); ok {
			starts = append(starts, Ref{Target: t, Name: w.root.DefaultTarget})
		}
	}

	for _, s := range starts {
		if e.visit(s) == Stop {
			return Stop
		}
	}
	return Continue
}

// visit walks r's dependencies depth-first, then defines r.
// Targets are marked before recursing so dependency cycles terminate.
func (e *engine) visit(r Ref) Action {
	w := e.w
	if w.visited[r.Target] {
		return Continue
	}
	w.visited[r.Target] = true

	for _, dep := range w.Dependencies(r.Target) {
		if e.visit(dep) == Stop {
			return Stop
		}
	}

	deps := make(map[string]Ref)
	for _, ref := range r.Target.DependsList() {
		if d, ok := w.Resolve(r.Target, ref); ok {
			deps[ref] = d
		}
	}
	w.order = append(w.order, r)
	if e.visitor.TargetDefined(w, r.Target, r.Name, deps) == Stop {
		return Stop
	}

	if e.opts.SkipBodies {
		return Continue
	}
	for _, p := range r.Target.Providers {
		if e.visitor.PropertyProvider(w, p, r.Target) == Stop {
			return Stop
		}
	}
	return Continue
}
