package props

import (
	"io/fs"
	"path"
	"strings"

	"github.com/leapstack-labs/antscope/pkg/core"
)

// Env carries what providers need to compute values.
type Env struct {
	// FS is used to read property files lazily
	FS fs.FS
	// Basedir is the project's base directory within FS
	Basedir string
}

// outputAttrs lists tasks whose attributes name properties set at build time.
var outputAttrs = map[string][]string{
	"available":         {"property"},
	"condition":         {"property"},
	"uptodate":          {"property"},
	"checksum":          {"property", "totalproperty", "verifyproperty"},
	"length":            {"property"},
	"pathconvert":       {"property"},
	"makeurl":           {"property"},
	"loadfile":          {"property"},
	"loadresource":      {"property"},
	"whichresource":     {"property"},
	"manifestclasspath": {"property"},
	"tempfile":          {"property"},
	"input":             {"addproperty"},
	"exec":              {"outputproperty", "errorproperty", "resultproperty"},
	"java":              {"outputproperty", "errorproperty", "resultproperty"},
	"apply":             {"outputproperty", "errorproperty", "resultproperty"},
}

// trueByDefault lists condition-like tasks whose value attribute defaults to "true".
var trueByDefault = map[string]bool{
	"available": true,
	"condition": true,
	"uptodate":  true,
}

// FromElement returns the provider declared by e, or nil.
func FromElement(e *core.Element, env Env) core.PropertyProvider {
	if e == nil || !e.IsAnt() {
		return nil
	}
	if e.Parent != nil && core.IsCallSite(e.Parent) {
		return callSiteParam(e)
	}

	switch e.Tag {
	case "property":
		return property(e, env)
	case "loadproperties":
		return loadProperties(e, env)
	case "dirname":
		return pathDerived(e, env, func(p string) string { return path.Dir(p) })
	case "basename":
		suffix := e.Attr("suffix")
		if suffix != "" && !strings.HasPrefix(suffix, ".") {
			suffix = "." + suffix
		}
		return pathDerived(e, env, func(p string) string {
			return strings.TrimSuffix(path.Base(p), suffix)
		})
	case "tstamp":
		return tstamp(e)
	case "buildnumber":
		s := &Static{el: e, kind: e.Tag}
		s.add("build.number", nil, core.UnknownValue())
		return s
	case "local":
		s := &Static{el: e, kind: e.Tag}
		s.add(e.Attr("name"), nil, core.UnknownValue())
		return nonEmpty(s)
	}

	attrs, ok := outputAttrs[e.Tag]
	if !ok {
		return nil
	}
	s := &Static{el: e, kind: e.Tag}
	value := core.UnknownValue()
	if trueByDefault[e.Tag] {
		if v, ok := e.LookupAttr("value"); ok {
			value = core.KnownValue(v)
		} else {
			value = core.KnownValue("true")
		}
	}
	for _, a := range attrs {
		s.add(e.Attr(a), nil, value)
	}
	return nonEmpty(s)
}

// nonEmpty avoids returning a typed nil interface for providers with no names.
func nonEmpty(s *Static) core.PropertyProvider {
	if len(s.entries) == 0 {
		return nil
	}
	return s
}

func property(e *core.Element, env Env) core.PropertyProvider {
	name := e.Attr("name")
	if name != "" {
		s := &Static{el: e, kind: e.Tag}
		switch {
		case e.HasAttr("value"):
			s.add(name, nil, core.KnownValue(e.Attr("value")))
		case e.HasAttr("location"):
			s.add(name, nil, locationValue(env.Basedir, e.Attr("location")))
		default:
			s.add(name, nil, core.UnknownValue())
		}
		return s
	}
	if file := e.Attr("file"); file != "" {
		return &File{
			el:     e,
			fsys:   env.FS,
			path:   resolvePath(env.Basedir, file),
			prefix: dottedPrefix(e.Attr("prefix")),
		}
	}
	if prefix := e.Attr("environment"); prefix != "" {
		return &Environment{el: e, prefix: dottedPrefix(prefix)}
	}
	return nil
}

func loadProperties(e *core.Element, env Env) core.PropertyProvider {
	src := e.Attr("srcfile")
	if src == "" {
		return nil
	}
	return &File{
		el:     e,
		fsys:   env.FS,
		path:   resolvePath(env.Basedir, src),
		prefix: dottedPrefix(e.Attr("prefix")),
	}
}

func pathDerived(e *core.Element, env Env, derive func(string) string) core.PropertyProvider {
	name := e.Attr("property")
	if name == "" {
		return nil
	}
	s := &Static{el: e, kind: e.Tag}
	file := e.Attr("file")
	if file == "" || strings.Contains(file, "${") {
		s.add(name, nil, core.UnknownValue())
		return s
	}
	s.add(name, nil, core.KnownValue(derive(absPath(env.Basedir, file))))
	return s
}

func tstamp(e *core.Element) core.PropertyProvider {
	prefix := dottedPrefix(e.Attr("prefix"))
	s := &Static{el: e, kind: e.Tag}
	for _, n := range []string{"DSTAMP", "TSTAMP", "TODAY"} {
		s.add(prefix+n, nil, core.UnknownValue())
	}
	for _, f := range e.ChildrenNamed("format") {
		if p := f.Attr("property"); p != "" {
			s.add(prefix+p, f, core.UnknownValue())
		}
	}
	return s
}

func callSiteParam(e *core.Element) core.PropertyProvider {
	site := e.Parent
	if !(e.Is("param") && site.Is("antcall")) && !e.Is("property") {
		return nil
	}
	name := e.Attr("name")
	if name == "" {
		return nil
	}
	p := &Param{Static: Static{el: e, kind: e.Tag}, site: site}
	// locations are relative to the callee's basedir, which is only known at call time
	if v, ok := e.LookupAttr("value"); ok {
		p.add(name, nil, core.KnownValue(v))
	} else {
		p.add(name, nil, core.UnknownValue())
	}
	return p
}

func locationValue(basedir, loc string) core.Value {
	if strings.Contains(loc, "${") {
		return core.UnknownValue()
	}
	return core.KnownValue(absPath(basedir, loc))
}

// absPath renders a resolved location the way the build engine reports it: absolute.
func absPath(basedir, loc string) string {
	p := resolvePath(basedir, loc)
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}
