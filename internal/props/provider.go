// Package props implements the concrete property declaration kinds of a build file.
//
// Every kind satisfies core.PropertyProvider. FromElement classifies an element and returns
// the matching provider, or nil when the element does not assign properties.
package props

import (
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/magiconair/properties"

	"github.com/leapstack-labs/antscope/pkg/core"
)

type entry struct {
	name  string
	decl  *core.Element
	value core.Value
}

// Static is a provider whose names are fixed by its attributes.
type Static struct {
	el      *core.Element
	kind    string
	entries []entry
}

// Element implements core.PropertyProvider.
func (s *Static) Element() *core.Element { return s.el }

// Kind returns the declaring tag, e.g. "property" or "dirname".
func (s *Static) Kind() string { return s.kind }

// Names implements core.PropertyProvider.
func (s *Static) Names() []string {
	names := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		names = append(names, e.name)
	}
	return names
}

// Lookup implements core.PropertyProvider.
func (s *Static) Lookup(name string) (core.Declaration, bool) {
	for _, e := range s.entries {
		if e.name == name {
			return core.Declaration{Element: e.decl, Value: e.value}, true
		}
	}
	return core.Declaration{}, false
}

func (s *Static) add(name string, decl *core.Element, v core.Value) {
	if name == "" {
		return
	}
	if decl == nil {
		decl = s.el
	}
	s.entries = append(s.entries, entry{name: name, decl: decl, value: v})
}

// Param is a call-site parameter: a property passed to antcall, ant or subant.
type Param struct {
	Static
	site *core.Element
}

// CallSite implements core.CallSiteParameter.
func (p *Param) CallSite() *core.Element { return p.site }

// File loads its names from a .properties file on first use.
type File struct {
	el     *core.Element
	fsys   fs.FS
	path   string
	prefix string

	once    sync.Once
	entries []entry
	err     error
}

// Element implements core.PropertyProvider.
func (f *File) Element() *core.Element { return f.el }

// Path returns the resolved path of the properties file.
func (f *File) Path() string { return f.path }

// Err returns the load error, if the file could not be read or parsed.
func (f *File) Err() error {
	f.load()
	return f.err
}

// Names implements core.PropertyProvider.
func (f *File) Names() []string {
	f.load()
	names := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		names = append(names, e.name)
	}
	return names
}

// Lookup implements core.PropertyProvider.
func (f *File) Lookup(name string) (core.Declaration, bool) {
	f.load()
	for _, e := range f.entries {
		if e.name == name {
			return core.Declaration{Element: f.el, Value: e.value}, true
		}
	}
	return core.Declaration{}, false
}

func (f *File) load() {
	f.once.Do(func() {
		if f.fsys == nil || f.path == "" {
			return
		}
		data, err := fs.ReadFile(f.fsys, strings.TrimPrefix(f.path, "/"))
		if err != nil {
			f.err = err
			return
		}
		p, err := ParseProperties(data)
		if err != nil {
			f.err = err
			return
		}
		for _, key := range p.Keys() {
			v, _ := p.Get(key)
			f.entries = append(f.entries, entry{name: f.prefix + key, value: core.KnownValue(v)})
		}
	})
}

// ParseProperties parses Java .properties content without expanding ${} references.
func ParseProperties(data []byte) (*properties.Properties, error) {
	l := &properties.Loader{Encoding: properties.ISO_8859_1, DisableExpansion: true}
	return l.LoadBytes(data)
}

// Environment exposes the process environment under a prefix.
// Its names cannot be enumerated statically.
type Environment struct {
	el     *core.Element
	prefix string
}

// Element implements core.PropertyProvider.
func (e *Environment) Element() *core.Element { return e.el }

// Prefix returns the prefix including the trailing dot.
func (e *Environment) Prefix() string { return e.prefix }

// Names implements core.PropertyProvider.
func (e *Environment) Names() []string { return nil }

// Lookup implements core.PropertyProvider.
func (e *Environment) Lookup(name string) (core.Declaration, bool) {
	if len(name) <= len(e.prefix) || !strings.HasPrefix(name, e.prefix) {
		return core.Declaration{}, false
	}
	return core.Declaration{Element: e.el, Value: core.UnknownValue()}, true
}

// dottedPrefix normalizes a prefix attribute the way the build engine does.
func dottedPrefix(p string) string {
	if p == "" || strings.HasSuffix(p, ".") {
		return p
	}
	return p + "."
}

// resolvePath resolves a location relative to basedir.
// Absolute and unexpanded paths are returned unchanged.
func resolvePath(basedir, loc string) string {
	if loc == "" || strings.HasPrefix(loc, "/") || strings.Contains(loc, "${") {
		return loc
	}
	if basedir == "" {
		return path.Clean(loc)
	}
	return path.Join(basedir, loc)
}
