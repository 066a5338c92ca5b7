package core

import (
	"path"
	"strings"
)

// ItemKind classifies a top-level construct of a project.
type ItemKind int

// Item kinds, in no particular order.
const (
	ItemOther ItemKind = iota
	ItemImport
	ItemProvider
	ItemTarget
	ItemDefinition
)

// Item is one top-level construct of a project, in declaration order.
// Exactly one of Import, Provider or Target is set for the matching kinds.
type Item struct {
	Kind     ItemKind
	Element  *Element
	Import   *ImportDirective
	Provider PropertyProvider
	Target   *Target
}

// Project is the in-memory model of one build file.
type Project struct {
	// Path identifies the file (slash separated, as seen by the loader)
	Path string
	// Name is the project's name attribute
	Name string
	// Basedir is the resolved base directory
	Basedir string
	// DefaultTarget is the raw default attribute, resolved lazily by callers
	DefaultTarget string
	// Root is the <project> element
	Root *Element
	// Items holds every top-level construct in declaration order
	Items []Item
	// Targets holds declared targets and extension points in declaration order
	Targets []*Target
	// Providers holds top-level property providers in declaration order
	Providers []PropertyProvider
	// Imports holds import and include directives in declaration order
	Imports []*ImportDirective
	// Definitions holds top-level custom definition directives in declaration order
	Definitions []*Element
}

// Dir returns the directory containing the build file.
func (p *Project) Dir() string {
	return path.Dir(p.Path)
}

// TargetNamed returns the first declared target with the given raw name.
func (p *Project) TargetNamed(name string) *Target {
	for _, t := range p.Targets {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// TargetAt returns the target whose body contains e, or nil for top-level elements.
func (p *Project) TargetAt(e *Element) *Target {
	var te *Element
	if e.Is("target") || e.Is("extension-point") {
		te = e
	} else {
		te = e.Ancestor("target")
		if te == nil {
			te = e.Ancestor("extension-point")
		}
	}
	if te == nil {
		return nil
	}
	for _, t := range p.Targets {
		if t.Element == te {
			return t
		}
	}
	return nil
}

// String returns the project's path.
func (p *Project) String() string {
	return p.Path
}

// Target is a named, dependency-ordered unit of declared build steps.
type Target struct {
	// Name is the raw name attribute
	Name string
	// Depends is the raw comma-separated depends attribute
	Depends string
	// Description is the description attribute
	Description string
	// If and Unless are the raw condition attributes
	If     string
	Unless string
	// ExtensionOf is the raw comma-separated extensionOf attribute
	ExtensionOf string
	// IsExtensionPoint is true for <extension-point>
	IsExtensionPoint bool
	// IsDefault is true when the target is its project's default target
	IsDefault bool
	// Element is the declaring element
	Element *Element
	// Providers holds property providers nested in the body, in body order
	Providers []PropertyProvider
	// CallSites holds antcall-like invocations in the body, in body order
	CallSites []*CallSite
	// Project is the origin project
	Project *Project
}

// DependsList returns the depends references, trimmed, in declaration order.
func (t *Target) DependsList() []string {
	return SplitNameList(t.Depends)
}

// ExtensionOfList returns the extension points this target extends.
func (t *Target) ExtensionOfList() []string {
	return SplitNameList(t.ExtensionOf)
}

func (t *Target) String() string {
	if t.Project == nil {
		return t.Name
	}
	return t.Project.Path + "#" + t.Name
}

// SplitNameList splits a comma separated reference list, dropping empty entries.
func SplitNameList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CallSite is an antcall-like invocation. Its parameters are bound at call time.
type CallSite struct {
	// Element is the invoking element (antcall, ant, subant)
	Element *Element
	// Target is the raw invoked target name, if any
	Target string
	// Params holds the parameters passed to the call
	Params []PropertyProvider
}

// DefaultPrefixSeparator separates an import prefix from the target name.
const DefaultPrefixSeparator = "."

// ImportDirective is an <import> or <include> statement.
type ImportDirective struct {
	// Element is the declaring element
	Element *Element
	// File is the raw path text
	File string
	// Prefix is the raw "as" attribute
	Prefix string
	// Separator is the prefix separator
	Separator string
	// Optional is true when a missing file is not an error at build time
	Optional bool
	// Include distinguishes <include> from <import>
	Include bool
	// Project is the declaring project
	Project *Project
}

// IsImport reports whether the directive is an <import>.
func (d *ImportDirective) IsImport() bool {
	return !d.Include
}

// IsInclude reports whether the directive is an <include>.
func (d *ImportDirective) IsInclude() bool {
	return d.Include
}

// ImportSource resolves import directives to neighboring projects.
// Unresolvable paths return false.
type ImportSource interface {
	ResolveImport(d *ImportDirective) (*Project, bool)
}

// definitionTags are the directives that introduce custom elements.
var definitionTags = map[string]bool{
	"macrodef":     true,
	"presetdef":    true,
	"scriptdef":    true,
	"typedef":      true,
	"taskdef":      true,
	"componentdef": true,
}

// IsDefinition reports whether e declares a custom element.
func IsDefinition(e *Element) bool {
	return e != nil && e.IsAnt() && definitionTags[e.Tag]
}

// callSiteTags are invocations whose nested properties are call-time parameters.
var callSiteTags = map[string]bool{
	"antcall": true,
	"ant":     true,
	"subant":  true,
}

// IsCallSite reports whether e is an antcall-like invocation.
func IsCallSite(e *Element) bool {
	return e != nil && e.IsAnt() && callSiteTags[e.Tag]
}
