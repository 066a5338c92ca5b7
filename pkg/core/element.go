package core

import "strconv"

// AntNamespace is the antlib URI of the build engine's own tasks and types.
// Elements in this namespace are treated as if they had no namespace.
const AntNamespace = "antlib:org.apache.tools.ant"

// Attr is a single attribute of an element, in declaration order.
type Attr struct {
	// Space is the namespace URI of the attribute, "xmlns" for namespace declarations
	Space string
	// Name is the local attribute name
	Name string
	// Value is the raw attribute text
	Value string
}

// Element is one node of a parsed build file.
type Element struct {
	// Tag is the local element name
	Tag string
	// Space is the resolved namespace URI ("" for the default namespace)
	Space string
	// Attrs holds attributes in declaration order
	Attrs []Attr
	// Children holds child elements in declaration order
	Children []*Element
	// Parent is nil for the root element
	Parent *Element
	// Text is the concatenated character data directly inside the element
	Text string
	// File is the path of the file the element was parsed from
	File string
	// Line and Column locate the start tag (1-based)
	Line   int
	Column int
}

// Attr returns the value of the unqualified attribute name, or "".
func (e *Element) Attr(name string) string {
	v, _ := e.LookupAttr(name)
	return v
}

// LookupAttr returns the value of the unqualified attribute name and whether it was present.
func (e *Element) LookupAttr(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, a := range e.Attrs {
		if a.Space == "" && a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttr reports whether the unqualified attribute is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.LookupAttr(name)
	return ok
}

// IsAnt reports whether the element belongs to the build engine's own namespace.
func (e *Element) IsAnt() bool {
	return e.Space == "" || e.Space == AntNamespace
}

// Is reports whether the element is the build engine's tag name.
func (e *Element) Is(tag string) bool {
	return e != nil && e.Tag == tag && e.IsAnt()
}

// ChildrenNamed returns the direct children with the given engine tag.
func (e *Element) ChildrenNamed(tag string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Is(tag) {
			out = append(out, c)
		}
	}
	return out
}

// Walk calls fn for e and every descendant in document order.
// Returning false from fn skips the element's children.
func (e *Element) Walk(fn func(*Element) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// Ancestor returns the nearest ancestor (excluding e) with the given engine tag.
func (e *Element) Ancestor(tag string) *Element {
	for p := e.Parent; p != nil; p = p.Parent {
		if p.Is(tag) {
			return p
		}
	}
	return nil
}

// NamespaceDecls returns the xmlns declarations made on this element, keyed by prefix.
// The default namespace declaration is keyed by "".
func (e *Element) NamespaceDecls() map[string]string {
	var decls map[string]string
	for _, a := range e.Attrs {
		prefix, ok := "", false
		switch {
		case a.Space == "xmlns":
			prefix, ok = a.Name, true
		case a.Space == "" && a.Name == "xmlns":
			ok = true
		}
		if !ok {
			continue
		}
		if decls == nil {
			decls = make(map[string]string)
		}
		decls[prefix] = a.Value
	}
	return decls
}

// Position returns "file:line" for diagnostics.
func (e *Element) Position() string {
	if e == nil {
		return ""
	}
	if e.Line <= 0 {
		return e.File
	}
	return e.File + ":" + strconv.Itoa(e.Line)
}
