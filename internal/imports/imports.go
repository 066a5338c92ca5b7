// Package imports expands import and include directives to neighboring projects and
// computes the name prefixes they introduce.
//
// Expansion returns edges exactly as declared. Cycles are not detected here; callers that
// recurse keep their own visited set.
package imports

import (
	"github.com/leapstack-labs/antscope/pkg/core"
)

// Edge is one expanded directive.
type Edge struct {
	// Directive is the declaring import or include
	Directive *core.ImportDirective
	// Project is the resolved neighbor, nil when the path could not be resolved
	Project *core.Project
	// Prefix is the effective prefix introduced by this directive alone, "" for none
	Prefix string
	// Separator joins Prefix and the imported names
	Separator string
	// IsImport distinguishes <import> from <include>
	IsImport bool
}

// Resolved reports whether the directive resolved to a project.
func (e Edge) Resolved() bool {
	return e.Project != nil
}

// Expand returns one edge per directive of p, in declaration order.
// Unresolvable directives yield edges with a nil Project.
func Expand(p *core.Project, src core.ImportSource) []Edge {
	edges := make([]Edge, 0, len(p.Imports))
	for _, d := range p.Imports {
		edges = append(edges, Resolve(d, src))
	}
	return edges
}

// Resolve expands a single directive.
//
// An explicit "as" attribute always sets the prefix. Without it an <import> exposes bare
// names, while an <include> is prefixed by the included project's name.
func Resolve(d *core.ImportDirective, src core.ImportSource) Edge {
	e := Edge{
		Directive: d,
		Prefix:    d.Prefix,
		Separator: d.Separator,
		IsImport:  d.IsImport(),
	}
	if e.Separator == "" {
		e.Separator = core.DefaultPrefixSeparator
	}
	if src != nil {
		if proj, ok := src.ResolveImport(d); ok {
			e.Project = proj
		}
	}
	if e.Prefix == "" && d.IsInclude() && e.Project != nil {
		e.Prefix = e.Project.Name
	}
	return e
}

// Closure returns p and every project it transitively imports, depth-first in declaration
// order. Each project appears once.
func Closure(p *core.Project, src core.ImportSource) []*core.Project {
	var out []*core.Project
	seen := make(map[*core.Project]bool)
	var walk func(*core.Project)
	walk = func(cur *core.Project) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		out = append(out, cur)
		for _, e := range Expand(cur, src) {
			if e.Resolved() {
				walk(e.Project)
			}
		}
	}
	walk(p)
	return out
}
