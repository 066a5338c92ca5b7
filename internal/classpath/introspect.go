package classpath

import (
	"log/slog"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/leapstack-labs/antscope/internal/props"
)

// DefaultIntrospectionCacheSize bounds the number of loaders whose tables are kept.
const DefaultIntrospectionCacheSize = 64

// Tables holds the task and type definitions visible through a loader.
type Tables struct {
	// Tasks maps task names to class names
	Tasks map[string]string
	// Types maps type names to class names
	Types map[string]string
}

// Lookup returns the class defining a task or type name. Tasks take precedence.
func (t *Tables) Lookup(name string) (string, bool) {
	if c, ok := t.Tasks[name]; ok {
		return c, true
	}
	c, ok := t.Types[name]
	return c, ok
}

// Names returns every task and type name, sorted.
func (t *Tables) Names() []string {
	names := make([]string, 0, len(t.Tasks)+len(t.Types))
	for n := range t.Tasks {
		names = append(names, n)
	}
	for n := range t.Types {
		if _, dup := t.Tasks[n]; !dup {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Introspector reads the engine's definition tables through a loader and keeps the results
// in a bounded cache. Safe for concurrent use.
type Introspector struct {
	cache  *lru.Cache[Loader, *Tables]
	logger *slog.Logger
}

// NewIntrospector creates an Introspector caching tables for up to size loaders.
func NewIntrospector(size int, logger *slog.Logger) *Introspector {
	if size <= 0 {
		size = DefaultIntrospectionCacheSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cache, _ := lru.New[Loader, *Tables](size)
	return &Introspector{cache: cache, logger: logger}
}

// Tables returns the definition tables visible through l.
func (i *Introspector) Tables(l Loader) *Tables {
	if t, ok := i.cache.Get(l); ok {
		return t
	}
	t := &Tables{
		Tasks: i.read(l, TaskDefaults),
		Types: i.read(l, TypeDefaults),
	}
	i.cache.Add(l, t)
	return t
}

// ClassFor returns the class defining a task or type name as seen through l.
func (i *Introspector) ClassFor(l Loader, name string) (string, bool) {
	return i.Tables(l).Lookup(name)
}

// Len returns the number of cached loaders.
func (i *Introspector) Len() int {
	return i.cache.Len()
}

// Purge drops every cached table.
func (i *Introspector) Purge() {
	i.cache.Purge()
}

func (i *Introspector) read(l Loader, resource string) map[string]string {
	out := make(map[string]string)
	data, err := l.Resource(resource)
	if err != nil {
		i.logger.Debug("definition table unavailable", "loader", l.String(), "resource", resource, "error", err)
		return out
	}
	p, err := props.ParseProperties(data)
	if err != nil {
		i.logger.Debug("definition table unreadable", "resource", resource, "error", err)
		return out
	}
	for _, k := range p.Keys() {
		out[k], _ = p.Get(k)
	}
	return out
}
