package session

import (
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/antscope/internal/classpath"
	"github.com/leapstack-labs/antscope/internal/customdef"
	"github.com/leapstack-labs/antscope/internal/dag"
	"github.com/leapstack-labs/antscope/internal/imports"
	"github.com/leapstack-labs/antscope/internal/properties"
	"github.com/leapstack-labs/antscope/internal/props"
	"github.com/leapstack-labs/antscope/internal/targets"
	"github.com/leapstack-labs/antscope/internal/traverse"
	"github.com/leapstack-labs/antscope/pkg/core"
)

type targetKey struct {
	context *core.Target
	names   string
}

type propertyKey struct {
	name    string
	context *core.Element
}

// ProjectContext memoizes resolution for one root project.
// Queries on one context are serialized.
type ProjectContext struct {
	session *Session
	project *core.Project
	// files holds every file the context depends on
	files map[string]bool

	mu         sync.Mutex
	targets    map[targetKey]*targets.Result
	duplicates []targets.Conflict
	dupsDone   bool
	graph      *dag.Graph
	properties map[propertyKey]*properties.Result
	registry   *customdef.Registry
	base       classpath.Loader
	loaders    *customdef.LoaderCache
}

func newProjectContext(s *Session, p *core.Project) *ProjectContext {
	c := &ProjectContext{
		session:    s,
		project:    p,
		files:      make(map[string]bool),
		targets:    make(map[targetKey]*targets.Result),
		properties: make(map[propertyKey]*properties.Result),
		loaders:    customdef.NewLoaderCache(),
	}
	for _, proj := range imports.Closure(p, s.loader) {
		c.files[proj.Path] = true
		// missing or broken imports still count, so fixing them reloads the context
		for _, d := range proj.Imports {
			if ip, ok := s.loader.ImportPath(d); ok {
				c.files[ip] = true
			}
		}
		for _, pp := range allProviders(proj) {
			if f, ok := pp.(*props.File); ok && f.Path() != "" {
				c.files[strings.TrimPrefix(f.Path(), "/")] = true
			}
		}
	}
	for _, e := range s.baseEntries {
		c.files[e] = true
	}
	return c
}

func allProviders(p *core.Project) []core.PropertyProvider {
	out := append([]core.PropertyProvider(nil), p.Providers...)
	for _, t := range p.Targets {
		out = append(out, t.Providers...)
	}
	return out
}

// Project returns the root project.
func (c *ProjectContext) Project() *core.Project {
	return c.project
}

// Files returns the files the context depends on, sorted.
func (c *ProjectContext) Files() []string {
	files := make([]string, 0, len(c.files))
	for f := range c.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

func (c *ProjectContext) dependsOn(p string) bool {
	return c.files[p]
}

// ResolveTarget resolves target references made from context (nil for the default target).
func (c *ProjectContext) ResolveTarget(context *core.Target, names []string) *targets.Result {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	key := targetKey{context: context, names: strings.Join(sorted, "\x00")}

	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.targets[key]; ok {
		return r
	}
	r := targets.Resolve(c.project, c.session.loader, context, names)
	c.targets[key] = r
	return r
}

// DefaultTarget resolves the root project's default target.
func (c *ProjectContext) DefaultTarget() (traverse.Ref, bool) {
	if c.project.DefaultTarget == "" {
		return traverse.Ref{}, false
	}
	return c.ResolveTarget(nil, []string{c.project.DefaultTarget}).Lookup(c.project.DefaultTarget)
}

// FindDuplicates reports targets sharing an effective name.
func (c *ProjectContext) FindDuplicates() []targets.Conflict {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dupsDone {
		c.duplicates = targets.FindDuplicates(c.project, c.session.loader)
		c.dupsDone = true
	}
	return c.duplicates
}

// Graph returns the dependency graph of every target visible from the root project.
func (c *ProjectContext) Graph() *dag.Graph {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.graph == nil {
		c.graph = dag.Build(c.project, c.session.loader)
	}
	return c.graph
}

// ResolveProperty resolves a property reference made at the given element (nil for top level).
func (c *ProjectContext) ResolveProperty(name string, at *core.Element) *properties.Result {
	key := propertyKey{name: name, context: at}

	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.properties[key]; ok {
		return r
	}
	r := properties.Resolve(c.project, c.session.loader, name, at)
	c.properties[key] = r
	return r
}

// Variants lists the property names visible at the given element.
func (c *ProjectContext) Variants(at *core.Element, includeFallback bool) []string {
	r := c.ResolveProperty("", at)
	if includeFallback {
		return r.AllVariants()
	}
	return r.Variants
}

// BaseLoader returns the root project's class loader.
func (c *ProjectContext) BaseLoader() classpath.Loader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseLoader()
}

func (c *ProjectContext) baseLoader() classpath.Loader {
	if c.base == nil {
		c.base = c.session.factory.NewLoader(c.session.baseEntries, nil)
	}
	return c.base
}

// Registry returns the custom element registry, building it on first use.
func (c *ProjectContext) Registry() *customdef.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registry == nil {
		c.registry = customdef.Build(c.project, customdef.Options{
			Source:       c.session.loader,
			Factory:      c.session.factory,
			Introspector: c.session.introspector,
			Base:         c.baseLoader(),
			Loaders:      c.loaders,
			Logger:       c.session.logger,
		})
	}
	return c.registry
}

// close drops every cache the context owns.
func (c *ProjectContext) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets = make(map[targetKey]*targets.Result)
	c.properties = make(map[propertyKey]*properties.Result)
	c.duplicates, c.dupsDone = nil, false
	c.graph = nil
	c.registry = nil
	c.base = nil
	c.loaders.Clear()
}
