package lsp

import (
	"errors"
	"fmt"
	"sort"

	"github.com/leapstack-labs/antscope/internal/buildfile"
)

const diagnosticSource = "antscope"

// publishDiagnostics analyzes a document and publishes what it finds.
func (s *Server) publishDiagnostics(uri string) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return
	}

	diagnostics := s.diagnose(doc)
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnose reports the document's parse error, or the problems of its targets and custom
// element declarations within its project context.
func (s *Server) diagnose(doc *Document) []Diagnostic {
	diagnostics := []Diagnostic{}

	if _, err := s.session.Loader().Load(doc.Path); err != nil {
		return append(diagnostics, loadDiagnostic(doc, err))
	}
	pc, err := s.contextFor(doc)
	if err != nil {
		s.logger.Debug("No project context", "path", doc.Path, "error", err)
		return diagnostics
	}

	g := pc.Graph()
	missing := g.GetMissing()
	ids := make([]string, 0, len(missing))
	for id := range missing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		node, ok := g.GetNode(id)
		if !ok || node.Target == nil || node.Target.Element.File != doc.Path {
			continue
		}
		for _, ref := range missing[id] {
			diagnostics = append(diagnostics, Diagnostic{
				Range:    elementRange(doc, node.Target.Element),
				Severity: DiagnosticSeverityError,
				Code:     "missing-target",
				Source:   diagnosticSource,
				Message:  fmt.Sprintf("target %q depends on unknown target %q", id, ref),
			})
		}
	}

	for _, c := range pc.FindDuplicates() {
		if c.Second.Element.File != doc.Path {
			continue
		}
		first := c.First.Element
		diagnostics = append(diagnostics, Diagnostic{
			Range:    elementRange(doc, c.Second.Element),
			Severity: DiagnosticSeverityWarning,
			Code:     "duplicate-target",
			Source:   diagnosticSource,
			Message:  fmt.Sprintf("target %q is shadowed by the definition at %s:%d", c.Name, buildfile.OSPath(first.File), first.Line),
		})
	}

	for _, p := range pc.Registry().Problems() {
		if p.Element == nil || p.Element.File != doc.Path {
			continue
		}
		diagnostics = append(diagnostics, Diagnostic{
			Range:    elementRange(doc, p.Element),
			Severity: DiagnosticSeverityError,
			Code:     "custom-element",
			Source:   diagnosticSource,
			Message:  p.Message,
		})
	}

	return diagnostics
}

func loadDiagnostic(doc *Document, err error) Diagnostic {
	d := Diagnostic{
		Severity: DiagnosticSeverityError,
		Code:     "parse-error",
		Source:   diagnosticSource,
		Message:  err.Error(),
	}
	var perr *buildfile.ParseError
	if errors.As(err, &perr) {
		d.Message = perr.Message
		if perr.Line > 0 {
			line := uint32(perr.Line - 1)
			end := len(doc.Content)
			if perr.Line < len(doc.Lines) {
				end = doc.Lines[perr.Line] - 1
			}
			d.Range = Range{
				Start: Position{Line: line},
				End:   doc.OffsetToPosition(end),
			}
		}
	}
	return d
}
