// Package buildfile turns build files into the project model.
//
// It plays the part of the external file model: it parses XML into core.Element trees,
// derives core.Project values from them, caches projects per file until invalidated, and
// resolves import paths to neighboring projects.
package buildfile

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/antscope/pkg/core"
)

// ParseError represents an error parsing a build file.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", filepath.Base(e.File), e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", filepath.Base(e.File), e.Message)
}

// Parse parses XML content into an element tree rooted at the document element.
func Parse(file string, data []byte) (*core.Element, error) {
	d := xml.NewDecoder(bytes.NewReader(data))

	var (
		root  *core.Element
		stack []*core.Element
		text  []*strings.Builder
	)

	for {
		line, col := d.InputPos()
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var syn *xml.SyntaxError
			if errors.As(err, &syn) {
				return nil, &ParseError{File: file, Line: syn.Line, Message: syn.Msg}
			}
			return nil, &ParseError{File: file, Line: line, Message: err.Error()}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			e := &core.Element{
				Tag:    t.Name.Local,
				Space:  t.Name.Space,
				File:   file,
				Line:   line,
				Column: col,
			}
			if len(t.Attr) > 0 {
				e.Attrs = make([]core.Attr, 0, len(t.Attr))
				for _, a := range t.Attr {
					e.Attrs = append(e.Attrs, core.Attr{Space: a.Name.Space, Name: a.Name.Local, Value: a.Value})
				}
			}
			if n := len(stack); n > 0 {
				parent := stack[n-1]
				e.Parent = parent
				parent.Children = append(parent.Children, e)
			} else if root == nil {
				root = e
			}
			stack = append(stack, e)
			text = append(text, &strings.Builder{})

		case xml.EndElement:
			n := len(stack)
			if n == 0 {
				return nil, &ParseError{File: file, Line: line, Message: "unexpected end element " + t.Name.Local}
			}
			stack[n-1].Text = strings.TrimSpace(text[n-1].String())
			stack = stack[:n-1]
			text = text[:n-1]

		case xml.CharData:
			if n := len(text); n > 0 {
				text[n-1].Write(t)
			}
		}
	}

	if root == nil {
		return nil, &ParseError{File: file, Message: "no document element"}
	}
	return root, nil
}
