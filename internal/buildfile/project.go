package buildfile

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/leapstack-labs/antscope/internal/props"
	"github.com/leapstack-labs/antscope/pkg/core"
)

// Env returns the provider environment for projects read from fsys.
func Env(fsys fs.FS) props.Env {
	return props.Env{FS: fsys}
}

// NewProject derives the project model of the build file at p from its parsed root.
func NewProject(p string, root *core.Element, env props.Env) (*core.Project, error) {
	if !root.Is("project") {
		return nil, &ParseError{File: p, Line: root.Line, Message: fmt.Sprintf("root element is <%s>, want <project>", root.Tag)}
	}

	proj := &core.Project{
		Path:          p,
		Name:          root.Attr("name"),
		DefaultTarget: strings.TrimSpace(root.Attr("default")),
		Root:          root,
	}
	proj.Basedir = resolveBasedir(path.Dir(p), root.Attr("basedir"))
	env.Basedir = proj.Basedir

	for _, c := range root.Children {
		switch {
		case c.Is("import") || c.Is("include"):
			d := &core.ImportDirective{
				Element:   c,
				File:      c.Attr("file"),
				Prefix:    c.Attr("as"),
				Separator: core.DefaultPrefixSeparator,
				Optional:  c.Attr("optional") == "true",
				Include:   c.Tag == "include",
				Project:   proj,
			}
			if sep, ok := c.LookupAttr("prefixSeparator"); ok {
				d.Separator = sep
			}
			proj.Imports = append(proj.Imports, d)
			proj.Items = append(proj.Items, core.Item{Kind: core.ItemImport, Element: c, Import: d})

		case c.Is("target") || c.Is("extension-point"):
			t := newTarget(proj, c, env)
			proj.Targets = append(proj.Targets, t)
			proj.Items = append(proj.Items, core.Item{Kind: core.ItemTarget, Element: c, Target: t})

		case core.IsDefinition(c):
			proj.Definitions = append(proj.Definitions, c)
			proj.Items = append(proj.Items, core.Item{Kind: core.ItemDefinition, Element: c})

		default:
			if pp := props.FromElement(c, env); pp != nil {
				proj.Providers = append(proj.Providers, pp)
				proj.Items = append(proj.Items, core.Item{Kind: core.ItemProvider, Element: c, Provider: pp})
				continue
			}
			// top-level containers (sequential, antcontrib if, ...) still execute unconditionally
			var nested []core.PropertyProvider
			scanBody(c, env, &nested, nil)
			if len(nested) == 0 {
				proj.Items = append(proj.Items, core.Item{Kind: core.ItemOther, Element: c})
				continue
			}
			for _, pp := range nested {
				proj.Providers = append(proj.Providers, pp)
				proj.Items = append(proj.Items, core.Item{Kind: core.ItemProvider, Element: pp.Element(), Provider: pp})
			}
		}
	}

	return proj, nil
}

func newTarget(proj *core.Project, e *core.Element, env props.Env) *core.Target {
	t := &core.Target{
		Name:             e.Attr("name"),
		Depends:          e.Attr("depends"),
		Description:      e.Attr("description"),
		If:               e.Attr("if"),
		Unless:           e.Attr("unless"),
		ExtensionOf:      e.Attr("extensionOf"),
		IsExtensionPoint: e.Tag == "extension-point",
		Element:          e,
		Project:          proj,
	}
	t.IsDefault = t.Name != "" && t.Name == proj.DefaultTarget
	scanBody(e, env, &t.Providers, &t.CallSites)
	return t
}

// scanBody collects providers and call sites nested in e, in body order.
// Definition bodies are skipped: they run only when the defined element is used.
func scanBody(e *core.Element, env props.Env, providers *[]core.PropertyProvider, calls *[]*core.CallSite) {
	for _, c := range e.Children {
		switch {
		case core.IsDefinition(c):
			continue
		case core.IsCallSite(c):
			if calls == nil {
				continue
			}
			site := &core.CallSite{Element: c, Target: c.Attr("target")}
			for _, p := range c.Children {
				if pp := props.FromElement(p, env); pp != nil {
					site.Params = append(site.Params, pp)
				}
			}
			*calls = append(*calls, site)
		default:
			if pp := props.FromElement(c, env); pp != nil {
				*providers = append(*providers, pp)
				continue
			}
			scanBody(c, env, providers, calls)
		}
	}
}

func resolveBasedir(dir, attr string) string {
	switch {
	case attr == "" || attr == ".":
		return dir
	case strings.HasPrefix(attr, "/"):
		return FSPath(attr)
	default:
		return path.Join(dir, attr)
	}
}
