package properties

import (
	"github.com/leapstack-labs/antscope/pkg/core"
)

// FindCallSiteParams searches the call sites of every target in the given projects for
// parameters binding name. Resolve passes the whole import closure. The search ignores execution order: parameters are bound when the
// call runs.
func FindCallSiteParams(projects []*core.Project, name string) []Match {
	var out []Match
	for _, p := range projects {
		for _, t := range p.Targets {
			for _, site := range t.CallSites {
				for _, pp := range site.Params {
					if decl, ok := pp.Lookup(name); ok {
						out = append(out, Match{Provider: pp, Declaration: decl, Owner: t})
					}
				}
			}
		}
	}
	return out
}
