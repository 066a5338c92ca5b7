package customdef

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/leapstack-labs/antscope/internal/buildfile"
	"github.com/leapstack-labs/antscope/internal/classpath"
	"github.com/leapstack-labs/antscope/internal/imports"
	"github.com/leapstack-labs/antscope/internal/props"
	"github.com/leapstack-labs/antscope/pkg/core"
)

// Classes the engine instantiates for definitions that have no class of their own.
const (
	macroInstanceClass = "org.apache.tools.ant.taskdefs.MacroInstance"
	scriptDefClass     = "org.apache.tools.ant.taskdefs.optional.script.ScriptDefBase"
	sequentialClass    = "org.apache.tools.ant.taskdefs.Sequential"
)

// Options configures a registry build.
type Options struct {
	// Source resolves imports; nil limits the scan to the root project
	Source core.ImportSource
	// Factory creates loaders for definitions with their own classpath; nil reuses Base
	Factory *classpath.Factory
	// Introspector answers reverse lookups against the engine's definition tables
	Introspector *classpath.Introspector
	// Base is the project's class loader; nil means classpath.Builtin()
	Base classpath.Loader
	// Loaders holds named loaders shared across builds of the same context
	Loaders *LoaderCache
	Logger  *slog.Logger
}

// scope is the state a definition is interpreted in.
type scope struct {
	// basedir resolves relative classpath locations
	basedir string
	// namespace applies to definitions without a uri attribute
	namespace string
	// loader loads classes named by definitions in this scope
	loader classpath.Loader
}

type builder struct {
	opts Options
	reg  *Registry

	// visited holds elements already scanned during this build
	visited map[*core.Element]bool
	// antlibs holds descriptors already loaded, keyed by loader and resource
	antlibs map[string]bool
	// refs holds path-like elements by id across the import closure
	refs map[string]*core.Element
}

// Build scans p, every project it imports and every antlib they reach.
func Build(p *core.Project, opts Options) *Registry {
	if opts.Base == nil {
		opts.Base = classpath.Builtin()
	}
	if opts.Introspector == nil {
		opts.Introspector = classpath.NewIntrospector(0, opts.Logger)
	}
	if opts.Loaders == nil {
		opts.Loaders = NewLoaderCache()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	b := &builder{
		opts:    opts,
		reg:     newRegistry(),
		visited: make(map[*core.Element]bool),
		antlibs: make(map[string]bool),
		refs:    make(map[string]*core.Element),
	}

	projects := imports.Closure(p, opts.Source)
	for _, proj := range projects {
		b.collectRefs(proj)
	}
	for _, proj := range projects {
		b.scan(proj.Root, scope{basedir: proj.Basedir, loader: opts.Base})
	}

	opts.Logger.Debug("custom element registry built",
		"project", p.Path,
		"projects", len(projects),
		"declarations", len(b.reg.order),
		"problems", len(b.reg.problems))
	return b.reg
}

var pathLikeTags = map[string]bool{
	"path":      true,
	"classpath": true,
	"fileset":   true,
	"filelist":  true,
}

func (b *builder) collectRefs(p *core.Project) {
	p.Root.Walk(func(e *core.Element) bool {
		if id := e.Attr("id"); id != "" && e.IsAnt() && pathLikeTags[e.Tag] {
			if _, ok := b.refs[id]; !ok {
				b.refs[id] = e
			}
		}
		return true
	})
}

func (b *builder) scan(e *core.Element, s scope) {
	if e == nil || b.visited[e] {
		return
	}
	b.visited[e] = true

	if decls := e.NamespaceDecls(); len(decls) > 0 {
		prefixes := make([]string, 0, len(decls))
		for prefix := range decls {
			prefixes = append(prefixes, prefix)
		}
		sort.Strings(prefixes)
		for _, prefix := range prefixes {
			b.loadNamespace(e, decls[prefix], s)
		}
	}

	if core.IsDefinition(e) {
		b.define(e, s)
	}
	for _, c := range e.Children {
		b.scan(c, s)
	}
}

// loadNamespace loads the antlib descriptor behind an "antlib:" namespace declaration.
func (b *builder) loadNamespace(e *core.Element, uri string, s scope) {
	if Namespace(uri) == "" {
		return
	}
	res, ok := classpath.AntlibResource(uri)
	if !ok {
		return
	}
	b.loadAntlib(e, res, scope{basedir: s.basedir, namespace: uri, loader: b.opts.Base})
}

func (b *builder) loadAntlib(e *core.Element, res string, s scope) {
	key := s.loader.String() + "|" + res
	if b.antlibs[key] {
		return
	}
	b.antlibs[key] = true

	data, err := s.loader.Resource(res)
	if err != nil {
		b.fail(e, fmt.Sprintf("antlib %s: %v", res, err))
		return
	}
	b.antlibData(e, res, data, s)
}

func (b *builder) antlibData(e *core.Element, name string, data []byte, s scope) {
	root, err := buildfile.Parse(name, data)
	if err != nil {
		b.fail(e, err.Error())
		return
	}
	if !root.Is("antlib") {
		b.fail(e, fmt.Sprintf("%s: root element is <%s>, want <antlib>", name, root.Tag))
		return
	}
	for _, c := range root.Children {
		b.scan(c, s)
	}
}

func (b *builder) define(e *core.Element, s scope) {
	ns := s.namespace
	if uri, ok := e.LookupAttr("uri"); ok {
		ns = Namespace(uri)
	}

	switch e.Tag {
	case "macrodef":
		b.macrodef(e, ns)
	case "presetdef":
		b.presetdef(e, ns, s)
	case "scriptdef":
		b.scriptdef(e, ns, s)
	default:
		b.typedef(e, ns, s)
	}
}

func (b *builder) named(e *core.Element) (string, bool) {
	name := strings.TrimSpace(e.Attr("name"))
	if name == "" {
		b.fail(e, fmt.Sprintf("<%s> without a name", e.Tag))
		return "", false
	}
	return name, true
}

func (b *builder) macrodef(e *core.Element, ns string) {
	name, ok := b.named(e)
	if !ok {
		return
	}
	d := b.reg.add(&Declaration{
		Key:     Key{Name: name, Namespace: ns},
		Kind:    e.Tag,
		Element: e,
		Class:   NewClassProvider(macroInstanceClass, classpath.Builtin()),
	})
	for _, c := range e.ChildrenNamed("element") {
		if n := c.Attr("name"); n != "" {
			b.reg.add(&Declaration{
				Key:     Key{Name: n, Namespace: ns},
				Kind:    "element",
				Element: c,
				Parent:  d,
				Class:   NewClassProvider(sequentialClass, classpath.Builtin()),
			})
		}
	}
}

func (b *builder) presetdef(e *core.Element, ns string, s scope) {
	name, ok := b.named(e)
	if !ok {
		return
	}
	d := &Declaration{Key: Key{Name: name, Namespace: ns}, Kind: e.Tag, Element: e}
	d.Class = DeferredClassProvider(func() (*classpath.Class, error) {
		return b.presetClass(d, s.loader)
	})
	b.reg.add(d)
}

// presetClass follows a chain of presetdefs to the element they preset.
// A presetdef overriding the element it presets refers to the earlier definition.
func (b *builder) presetClass(d *Declaration, l classpath.Loader) (*classpath.Class, error) {
	seen := map[*Declaration]bool{}
	cur := d
	for {
		seen[cur] = true
		if len(cur.Element.Children) == 0 {
			return nil, fmt.Errorf("presetdef %s has no nested element", d.Key)
		}
		target := cur.Element.Children[0]
		next, ok := b.reg.Lookup(KeyOf(target))
		switch {
		case ok && !seen[next] && next.Kind == "presetdef":
			cur = next
			continue
		case ok && !seen[next]:
			if c := next.Class.LookupClass(); c != nil {
				return c, nil
			}
			return nil, errors.New(next.Class.Error())
		}
		cn, found := b.opts.Introspector.ClassFor(l, target.Tag)
		if !found {
			return nil, fmt.Errorf("presetdef %s: unknown element <%s>", d.Key, target.Tag)
		}
		return l.LoadClass(cn)
	}
}

func (b *builder) scriptdef(e *core.Element, ns string, s scope) {
	name, ok := b.named(e)
	if !ok {
		return
	}
	l := b.loaderFor(e, s)
	d := b.reg.add(&Declaration{
		Key:     Key{Name: name, Namespace: ns},
		Kind:    e.Tag,
		Element: e,
		Class:   NewClassProvider(scriptDefClass, classpath.Builtin()),
	})
	for _, c := range e.ChildrenNamed("element") {
		n := c.Attr("name")
		if n == "" {
			continue
		}
		nested := &Declaration{Key: Key{Name: n, Namespace: ns}, Kind: "element", Element: c, Parent: d}
		switch {
		case c.Attr("classname") != "":
			nested.Class = NewClassProvider(c.Attr("classname"), l)
		case c.Attr("type") != "":
			typ := c.Attr("type")
			nested.Class = DeferredClassProvider(func() (*classpath.Class, error) {
				cn, ok := b.opts.Introspector.ClassFor(l, typ)
				if !ok {
					return nil, fmt.Errorf("unknown type %q", typ)
				}
				return l.LoadClass(cn)
			})
		default:
			nested.Class = FailedClassProvider(fmt.Sprintf("nested element %q declares neither classname nor type", n))
		}
		b.reg.add(nested)
	}
}

// typedef handles typedef, taskdef and componentdef.
func (b *builder) typedef(e *core.Element, ns string, s scope) {
	l := b.loaderFor(e, s)
	if cn := e.Attr("classname"); cn != "" {
		name, ok := b.named(e)
		if !ok {
			return
		}
		b.reg.add(&Declaration{
			Key:     Key{Name: name, Namespace: ns},
			Kind:    e.Tag,
			Element: e,
			Class:   NewClassProvider(cn, l),
		})
		return
	}

	var (
		name string
		data []byte
		err  error
	)
	switch {
	case e.Attr("resource") != "":
		name = e.Attr("resource")
		key := l.String() + "|" + name
		if b.antlibs[key] {
			return
		}
		b.antlibs[key] = true
		data, err = l.Resource(name)
	case e.Attr("file") != "":
		name = e.Attr("file")
		if strings.Contains(name, "${") {
			b.fail(e, fmt.Sprintf("definition file %s depends on build-time properties", name))
			return
		}
		data, err = b.readFile(s.basedir, name)
	default:
		b.fail(e, fmt.Sprintf("<%s> needs classname, resource or file", e.Tag))
		return
	}
	if err != nil {
		b.fail(e, fmt.Sprintf("definitions %s: %v", name, err))
		return
	}

	if e.Attr("format") == "xml" || strings.HasSuffix(name, ".xml") {
		b.antlibData(e, name, data, scope{basedir: s.basedir, namespace: ns, loader: l})
		return
	}

	p, err := props.ParseProperties(data)
	if err != nil {
		b.fail(e, fmt.Sprintf("definitions %s: %v", name, err))
		return
	}
	for _, k := range p.Keys() {
		cn, _ := p.Get(k)
		b.reg.add(&Declaration{
			Key:     Key{Name: k, Namespace: ns},
			Kind:    e.Tag,
			Element: e,
			Class:   NewClassProvider(strings.TrimSpace(cn), l),
		})
	}
}

func (b *builder) readFile(basedir, name string) ([]byte, error) {
	if b.opts.Factory == nil {
		return nil, errors.New("no file system")
	}
	p := name
	if strings.HasPrefix(p, "/") {
		p = strings.TrimPrefix(path.Clean(p), "/")
	} else {
		p = path.Join(basedir, p)
	}
	return fs.ReadFile(b.opts.Factory.FS(), p)
}

// loaderFor returns the loader a definition loads classes with: a named loader when
// loaderref is set, a fresh loader over its own classpath, or the enclosing scope's loader.
func (b *builder) loaderFor(e *core.Element, s scope) classpath.Loader {
	parent := s.loader
	if parent == nil {
		parent = b.opts.Base
	}
	if b.opts.Factory == nil {
		return parent
	}

	hasOwn := e.HasAttr("classpath") || len(e.ChildrenNamed("classpath")) > 0
	cpRef := e.Attr("classpathref")
	create := func() classpath.Loader {
		r := classpath.PathResolver{FS: b.opts.Factory.FS(), Basedir: s.basedir, Refs: b.ref}
		return b.opts.Factory.NewLoader(r.Expand(e), parent)
	}

	switch {
	case e.Attr("loaderref") != "":
		return b.opts.Loaders.GetOrCreate("loader:"+e.Attr("loaderref"), create)
	case hasOwn:
		return create()
	case cpRef != "":
		return b.opts.Loaders.GetOrCreate("path:"+cpRef, create)
	default:
		return parent
	}
}

func (b *builder) ref(id string) *core.Element {
	return b.refs[id]
}

func (b *builder) fail(e *core.Element, msg string) {
	b.opts.Logger.Debug("custom definition skipped", "at", e.Position(), "reason", msg)
	b.reg.problem(e, msg)
}
