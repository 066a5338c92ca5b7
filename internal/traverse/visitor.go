// Package traverse simulates the build engine's execution order for static resolution.
//
// A traversal runs in two stages. StageProjectScan walks every project's top-level constructs
// in declaration order, entering imports where they are declared: top-level property providers
// fire here, and every target is registered under its effective name. StageTargetWalk then
// walks targets depth-first over their depends lists from the start targets, visiting each
// target once, and fires TargetDefined followed by the providers nested in the target's body.
//
// Visitors steer the walk through the Action they return. Returning Stop from any callback
// ends the traversal.
package traverse

import (
	"github.com/leapstack-labs/antscope/pkg/core"
)

// Stage identifies a traversal stage.
type Stage int

// Stages, in execution order.
const (
	StageProjectScan Stage = iota + 1
	StageTargetWalk
)

func (s Stage) String() string {
	switch s {
	case StageProjectScan:
		return "project-scan"
	case StageTargetWalk:
		return "target-walk"
	default:
		return "unknown"
	}
}

// Action tells the engine how to proceed after a callback.
type Action int

const (
	// Continue proceeds with the traversal.
	Continue Action = iota
	// Stop ends the traversal. No further callbacks fire.
	Stop
)

// Ref is a target together with the effective name it was reached by.
type Ref struct {
	Target *core.Target
	Name   string
}

// Visitor receives traversal events.
type Visitor interface {
	// PropertyProvider fires for each provider in execution order.
	// owner is nil for top-level providers.
	PropertyProvider(w *Walk, p core.PropertyProvider, owner *core.Target) Action
	// TargetDefined fires once per visited target, after its dependencies.
	// deps maps each resolvable depends reference to the target it denotes.
	TargetDefined(w *Walk, t *core.Target, name string, deps map[string]Ref) Action
	// StageCompleted fires after each stage.
	StageCompleted(w *Walk, s Stage) Action
}

// Funcs adapts closures to Visitor. Nil fields continue.
type Funcs struct {
	OnPropertyProvider func(w *Walk, p core.PropertyProvider, owner *core.Target) Action
	OnTargetDefined    func(w *Walk, t *core.Target, name string, deps map[string]Ref) Action
	OnStageCompleted   func(w *Walk, s Stage) Action
}

// PropertyProvider implements Visitor.
func (f Funcs) PropertyProvider(w *Walk, p core.PropertyProvider, owner *core.Target) Action {
	if f.OnPropertyProvider == nil {
		return Continue
	}
	return f.OnPropertyProvider(w, p, owner)
}

// TargetDefined implements Visitor.
func (f Funcs) TargetDefined(w *Walk, t *core.Target, name string, deps map[string]Ref) Action {
	if f.OnTargetDefined == nil {
		return Continue
	}
	return f.OnTargetDefined(w, t, name, deps)
}

// StageCompleted implements Visitor.
func (f Funcs) StageCompleted(w *Walk, s Stage) Action {
	if f.OnStageCompleted == nil {
		return Continue
	}
	return f.OnStageCompleted(w, s)
}
