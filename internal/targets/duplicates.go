package targets

import (
	"github.com/leapstack-labs/antscope/internal/traverse"
	"github.com/leapstack-labs/antscope/pkg/core"
)

// Conflict is a pair of distinct targets sharing an effective name.
// First is authoritative for resolution.
type Conflict struct {
	Name   string
	First  *core.Target
	Second *core.Target
}

type pairKey struct {
	name   string
	target *core.Target
}

// FindDuplicates walks every registered target and reports each target whose effective name
// was already taken by a different target. Conflicts are returned in scan order.
//
// The walk defines each target once, so conflicts are read from the registrations, which
// keep every effective name a target was imported under.
func FindDuplicates(p *core.Project, src core.ImportSource) []Conflict {
	w := traverse.Run(p, src, traverse.Funcs{
		OnStageCompleted: func(_ *traverse.Walk, s traverse.Stage) traverse.Action {
			if s == traverse.StageTargetWalk {
				return traverse.Stop
			}
			return traverse.Continue
		},
	}, traverse.Options{AllTargets: true, SkipBodies: true})

	var conflicts []Conflict
	reported := make(map[pairKey]bool)
	for _, r := range w.Registrations() {
		first, _ := w.Lookup(r.Name)
		key := pairKey{name: r.Name, target: r.Target}
		if first == r.Target || reported[key] {
			continue
		}
		reported[key] = true
		conflicts = append(conflicts, Conflict{Name: r.Name, First: first, Second: r.Target})
	}
	return conflicts
}
