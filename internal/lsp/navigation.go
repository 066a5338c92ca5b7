package lsp

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/antscope/internal/buildfile"
	"github.com/leapstack-labs/antscope/internal/session"
	"github.com/leapstack-labs/antscope/pkg/core"
)

type refKind int

const (
	refTarget refKind = iota + 1
	refProperty
	refElement
)

// reference is a name under the cursor.
type reference struct {
	kind refKind
	name string
	// at is the element the reference is made from
	at *core.Element
	// start and end delimit the name in the document
	start, end int
}

var attrPattern = regexp.MustCompile(`([\w:.-]+)\s*=\s*(?:"([^"]*)"|'([^']*)')`)

// elementStart returns the offset of the '<' opening e, or -1 when e lies outside doc.
func elementStart(doc *Document, e *core.Element) int {
	if e.Line < 1 || e.Line > len(doc.Lines) {
		return -1
	}
	return doc.PositionToOffset(Position{Line: uint32(e.Line - 1), Character: uint32(e.Column - 1)})
}

// elementRange spans e's start tag.
func elementRange(doc *Document, e *core.Element) Range {
	start := elementStart(doc, e)
	if start < 0 {
		return Range{}
	}
	end := len(doc.Content)
	if i := strings.IndexByte(doc.Content[start:], '>'); i >= 0 {
		end = start + i + 1
	}
	return Range{Start: doc.OffsetToPosition(start), End: doc.OffsetToPosition(end)}
}

// elementBefore returns the last element, in document order, whose start tag begins at or
// before offset.
func elementBefore(doc *Document, root *core.Element, offset int) *core.Element {
	var found *core.Element
	root.Walk(func(e *core.Element) bool {
		start := elementStart(doc, e)
		if start < 0 || start > offset {
			return false
		}
		found = e
		return true
	})
	return found
}

// findReference locates the target, property or custom element name at offset.
func findReference(doc *Document, proj *core.Project, offset int) (reference, bool) {
	at := elementBefore(doc, proj.Root, offset)
	if at == nil {
		return reference{}, false
	}

	if ref, ok := propertyAt(doc.Content, offset); ok {
		ref.at = at
		return ref, true
	}

	tagStart := elementStart(doc, at)
	tagEnd := strings.IndexByte(doc.Content[tagStart:], '>')
	if tagEnd < 0 {
		tagEnd = len(doc.Content)
	} else {
		tagEnd += tagStart
	}
	if offset > tagEnd {
		return reference{}, false
	}
	tag := doc.Content[tagStart:tagEnd]

	// Tag name.
	nameEnd := strings.IndexAny(tag, " \t\r\n/>")
	if nameEnd < 0 {
		nameEnd = len(tag)
	}
	if offset > tagStart && offset <= tagStart+nameEnd {
		return reference{kind: refElement, name: tag[1:nameEnd], at: at, start: tagStart + 1, end: tagStart + nameEnd}, true
	}

	for _, m := range attrPattern.FindAllStringSubmatchIndex(tag, -1) {
		vs, ve := m[4], m[5]
		if vs < 0 {
			vs, ve = m[6], m[7]
		}
		if offset < tagStart+vs || offset > tagStart+ve {
			continue
		}
		attr := tag[m[2]:m[3]]
		if !isTargetAttr(at, proj, attr) {
			return reference{}, false
		}
		name, s, e := listItem(tag[vs:ve], offset-tagStart-vs)
		if name == "" {
			return reference{}, false
		}
		return reference{kind: refTarget, name: name, at: at, start: tagStart + vs + s, end: tagStart + vs + e}, true
	}
	return reference{}, false
}

// isTargetAttr reports whether attr of e holds target names.
func isTargetAttr(e *core.Element, proj *core.Project, attr string) bool {
	switch attr {
	case "depends", "extensionOf":
		return e.Is("target") || e.Is("extension-point")
	case "default":
		return e == proj.Root
	case "target":
		return e.Is("antcall") || e.Is("runtarget")
	}
	return false
}

// propertyAt finds a ${name} reference enclosing offset.
func propertyAt(content string, offset int) (reference, bool) {
	start := strings.LastIndex(content[:offset], "${")
	if strings.HasPrefix(content[offset:], "${") {
		start = offset
	}
	if start < 0 || strings.ContainsAny(content[start:offset], "}\n") {
		return reference{}, false
	}
	end := strings.IndexByte(content[start:], '}')
	if end < 0 {
		return reference{}, false
	}
	end += start
	name := content[start+2 : end]
	if name == "" || strings.ContainsAny(name, "${\n") {
		return reference{}, false
	}
	return reference{kind: refProperty, name: name, start: start + 2, end: end}, true
}

// listItem returns the comma separated item of list at pos and its bounds.
func listItem(list string, pos int) (string, int, int) {
	start := strings.LastIndexByte(list[:pos], ',') + 1
	end := len(list)
	if i := strings.IndexByte(list[pos:], ','); i >= 0 {
		end = pos + i
	}
	item := list[start:end]
	trimmed := strings.TrimLeft(item, " \t\r\n")
	start += len(item) - len(trimmed)
	trimmed = strings.TrimRight(trimmed, " \t\r\n")
	return trimmed, start, start + len(trimmed)
}

// resolution is a reference together with what it denotes.
type resolution struct {
	ref reference
	pc  *session.ProjectContext
	// decls are the declaring elements, primary first
	decls  []*core.Element
	target *core.Target
}

// lookup resolves the reference at pos.
func (s *Server) lookup(doc *Document, pos Position) (resolution, bool) {
	proj, err := s.session.Loader().Load(doc.Path)
	if err != nil {
		return resolution{}, false
	}
	ref, ok := findReference(doc, proj, doc.PositionToOffset(pos))
	if !ok {
		return resolution{}, false
	}
	pc, err := s.contextFor(doc)
	if err != nil {
		s.logger.Debug("No project context", "path", doc.Path, "error", err)
		return resolution{}, false
	}

	res := resolution{ref: ref, pc: pc}
	switch ref.kind {
	case refTarget:
		var context *core.Target
		if ref.at != proj.Root {
			context = proj.TargetAt(ref.at)
		}
		if t, ok := pc.ResolveTarget(context, []string{ref.name}).Lookup(ref.name); ok {
			res.target = t.Target
			res.decls = []*core.Element{t.Target.Element}
		}
	case refProperty:
		pr := pc.ResolveProperty(ref.name, ref.at)
		if pr.Primary != nil {
			res.decls = append(res.decls, pr.Primary.Declaration.Element)
		}
		for _, m := range pr.Params {
			res.decls = append(res.decls, m.Declaration.Element)
		}
	case refElement:
		if d, ok := pc.Registry().LookupElement(ref.at); ok {
			res.decls = []*core.Element{d.Element}
		}
	}
	return res, true
}

func (s *Server) definition(doc *Document, pos Position) []Location {
	res, _ := s.lookup(doc, pos)
	locations := make([]Location, 0, len(res.decls))
	for _, e := range res.decls {
		locations = append(locations, elementLocation(e))
	}
	return locations
}

func (s *Server) hover(doc *Document, pos Position) *Hover {
	res, ok := s.lookup(doc, pos)
	if !ok {
		return nil
	}
	ref := res.ref

	var b strings.Builder
	switch ref.kind {
	case refTarget:
		t := res.target
		if t == nil {
			fmt.Fprintf(&b, "**target** `%s` is not defined", ref.name)
			break
		}
		fmt.Fprintf(&b, "**target** `%s`", ref.name)
		if t.Description != "" {
			fmt.Fprintf(&b, "\n\n%s", t.Description)
		}
		if t.Depends != "" {
			fmt.Fprintf(&b, "\n\ndepends: `%s`", t.Depends)
		}
		fmt.Fprintf(&b, "\n\nDefined at %s", position(t.Element))
	case refProperty:
		pr := res.pc.ResolveProperty(ref.name, ref.at)
		if !pr.Found() {
			fmt.Fprintf(&b, "**property** `%s` is not assigned", ref.name)
			break
		}
		if v, ok := pr.Value(); ok {
			if v.Known {
				fmt.Fprintf(&b, "**property** `%s` = `%s`", ref.name, v.Text)
			} else {
				fmt.Fprintf(&b, "**property** `%s` is computed at build time", ref.name)
			}
			fmt.Fprintf(&b, "\n\nAssigned at %s", position(pr.Primary.Declaration.Element))
			if pr.Fallback {
				b.WriteString(" (not on the default execution path)")
			}
		} else {
			fmt.Fprintf(&b, "**property** `%s` is a call parameter", ref.name)
		}
		for _, m := range pr.Params {
			fmt.Fprintf(&b, "\n\nBound by `<%s>` at %s", m.Provider.Element().Tag, position(m.Declaration.Element))
		}
	case refElement:
		d, ok := res.pc.Registry().LookupElement(ref.at)
		if !ok {
			return nil
		}
		fmt.Fprintf(&b, "**%s** `%s`", d.Kind, d.Key)
		if d.Class != nil && d.Class.ClassName() != "" {
			fmt.Fprintf(&b, "\n\nclass: `%s`", d.Class.ClassName())
		}
		fmt.Fprintf(&b, "\n\nDeclared at %s", position(d.Element))
	}

	r := Range{Start: doc.OffsetToPosition(ref.start), End: doc.OffsetToPosition(ref.end)}
	return &Hover{
		Contents: MarkupContent{Kind: MarkupKindMarkdown, Value: b.String()},
		Range:    &r,
	}
}

func position(e *core.Element) string {
	return fmt.Sprintf("`%s:%d`", buildfile.OSPath(e.File), e.Line)
}

func elementLocation(e *core.Element) Location {
	p := Position{Line: uint32(max(e.Line-1, 0)), Character: uint32(max(e.Column-1, 0))}
	return Location{
		URI:   PathToURI(buildfile.OSPath(e.File)),
		Range: Range{Start: p, End: p},
	}
}
