package dag

import (
	"errors"
	"fmt"
	"io"

	graphlib "github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"github.com/leapstack-labs/antscope/internal/imports"
	"github.com/leapstack-labs/antscope/internal/traverse"
	"github.com/leapstack-labs/antscope/pkg/core"
)

// Build returns the dependency graph of every target reachable from p through imports.
// Edges follow depends lists and extension point contributions, resolved in the scope of the
// registration that defines each name.
func Build(p *core.Project, src core.ImportSource) *Graph {
	w := traverse.Run(p, src, traverse.Funcs{}, traverse.Options{AllTargets: true, SkipBodies: true})

	g := NewGraph()
	var regs []traverse.Registration
	for _, r := range w.Registrations() {
		if t, ok := w.Lookup(r.Name); !ok || t != r.Target {
			continue
		}
		if _, exists := g.GetNode(r.Name); exists {
			continue
		}
		g.AddNode(r.Name, r.Target)
		regs = append(regs, r)
	}

	resolve := func(scope imports.Scope, ref string) (string, bool) {
		if !scope.IsRoot() {
			if _, ok := w.Lookup(scope.Qualify(ref)); ok {
				return scope.Qualify(ref), true
			}
		}
		_, ok := w.Lookup(ref)
		return ref, ok
	}

	for _, r := range regs {
		for _, ref := range r.Target.DependsList() {
			dep, ok := resolve(r.Scope, ref)
			if !ok {
				g.AddMissing(r.Name, ref)
				continue
			}
			_ = g.AddEdge(dep, r.Name)
		}
		for _, ref := range r.Target.ExtensionOfList() {
			if point, ok := resolve(r.Scope, ref); ok {
				_ = g.AddEdge(r.Name, point)
			}
		}
	}
	return g
}

// WriteDOT renders the graph in Graphviz DOT, edges pointing from a target to its dependencies.
func (g *Graph) WriteDOT(w io.Writer) error {
	out := graphlib.New(graphlib.StringHash, graphlib.Directed())
	for _, n := range g.GetAllNodes() {
		attrs := []func(*graphlib.VertexProperties){graphlib.VertexAttribute("label", n.ID)}
		if n.Target != nil && n.Target.IsExtensionPoint {
			attrs = append(attrs, graphlib.VertexAttribute("shape", "diamond"))
		}
		if err := out.AddVertex(n.ID, attrs...); err != nil {
			return fmt.Errorf("add vertex %q: %w", n.ID, err)
		}
	}
	for _, n := range g.GetAllNodes() {
		for _, dep := range g.parents[n.ID] {
			if err := out.AddEdge(n.ID, dep); err != nil && !errors.Is(err, graphlib.ErrEdgeAlreadyExists) {
				return fmt.Errorf("add edge %s -> %s: %w", n.ID, dep, err)
			}
		}
	}
	return draw.DOT(out, w, draw.GraphAttribute("rankdir", "LR"))
}
