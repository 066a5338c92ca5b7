// Package customdef collects the custom elements a project declares and resolves their
// backing classes lazily.
//
// Visibility of a custom element does not depend on execution order, so the registry is
// built by a plain recursive scan of every element in the project, its imports and every
// antlib descriptor they reach.
package customdef

import (
	"github.com/leapstack-labs/antscope/pkg/core"
)

// Key identifies a custom element.
type Key struct {
	Name string
	// Namespace is the element's namespace URI, "" for the build engine's own namespace
	Namespace string
}

func (k Key) String() string {
	if k.Namespace == "" {
		return k.Name
	}
	return k.Namespace + ":" + k.Name
}

// KeyOf returns the key of a used element.
func KeyOf(e *core.Element) Key {
	return Key{Name: e.Tag, Namespace: Namespace(e.Space)}
}

// Namespace normalizes a namespace URI: the build engine's own antlib is the empty namespace.
func Namespace(uri string) string {
	if uri == core.AntNamespace {
		return ""
	}
	return uri
}

// Declaration is one registered custom element.
type Declaration struct {
	Key Key
	// Kind is the declaring directive (macrodef, typedef, ...) or "element" for nested elements
	Kind string
	// Element is the declaring construct
	Element *core.Element
	// Parent is the declaration whose usages accept this nested element, nil at top level
	Parent *Declaration
	// Class resolves the backing implementation
	Class *ClassProvider
}

// Problem is a declaration the registry could not process.
type Problem struct {
	Element *core.Element
	Message string
}

// Registry maps custom element keys to their declarations.
// It is immutable once built and safe for concurrent reads.
type Registry struct {
	entries map[Key]*Declaration
	nested  map[*Declaration]map[Key]*Declaration
	order   []*Declaration
	// problems holds build-time failures in scan order
	problems []Problem
}

func newRegistry() *Registry {
	return &Registry{
		entries: make(map[Key]*Declaration),
		nested:  make(map[*Declaration]map[Key]*Declaration),
	}
}

// Lookup returns the top-level declaration for k. Later definitions override earlier ones.
func (r *Registry) Lookup(k Key) (*Declaration, bool) {
	d, ok := r.entries[k]
	return d, ok
}

// LookupNested returns a nested element accepted by usages of parent.
func (r *Registry) LookupNested(parent *Declaration, k Key) (*Declaration, bool) {
	d, ok := r.nested[parent][k]
	return d, ok
}

// LookupElement resolves a used element. Nested elements of a custom element are visible
// only as direct children of its usages.
func (r *Registry) LookupElement(e *core.Element) (*Declaration, bool) {
	k := KeyOf(e)
	if e.Parent != nil {
		if parent, ok := r.Lookup(KeyOf(e.Parent)); ok {
			if d, ok := r.LookupNested(parent, k); ok {
				return d, true
			}
		}
	}
	return r.Lookup(k)
}

// Declarations returns every declaration in registration order, overridden and nested ones
// included.
func (r *Registry) Declarations() []*Declaration {
	return r.order
}

// Len returns the number of visible top-level keys.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Problems returns the declarations that could not be processed.
func (r *Registry) Problems() []Problem {
	return r.problems
}

// ClassErrors forces every class lookup and returns the declarations that failed.
func (r *Registry) ClassErrors() []*Declaration {
	var out []*Declaration
	for _, d := range r.order {
		if d.Class != nil && d.Class.Error() != "" {
			out = append(out, d)
		}
	}
	return out
}

func (r *Registry) add(d *Declaration) *Declaration {
	r.order = append(r.order, d)
	if d.Parent != nil {
		m := r.nested[d.Parent]
		if m == nil {
			m = make(map[Key]*Declaration)
			r.nested[d.Parent] = m
		}
		m[d.Key] = d
		return d
	}
	r.entries[d.Key] = d
	return d
}

func (r *Registry) problem(e *core.Element, msg string) {
	r.problems = append(r.problems, Problem{Element: e, Message: msg})
}
