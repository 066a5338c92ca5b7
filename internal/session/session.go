// Package session owns the caches behind resolution queries.
//
// A Session wraps one file loader and hands out a ProjectContext per root build file. Each
// context memoizes its resolution results, its custom element registry and its class loaders
// until a file in its import closure changes.
package session

import (
	"errors"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/leapstack-labs/antscope/internal/buildfile"
	"github.com/leapstack-labs/antscope/internal/classpath"
)

// ErrClosed is returned by a closed Session.
var ErrClosed = errors.New("session closed")

// Options configures a Session.
type Options struct {
	// FS holds build files, property files and classpath entries
	FS fs.FS
	// Properties are user properties used to expand import paths
	Properties map[string]string
	// AntHome is the FS path of the build engine's installation; its lib/*.jar join every
	// base class loader
	AntHome string
	// Classpath lists extra base classpath entries (FS paths)
	Classpath []string
	// IntrospectionCacheSize bounds the definition table cache
	IntrospectionCacheSize int
	Logger                 *slog.Logger
}

// Session owns a loader and the contexts opened on it. Safe for concurrent use.
type Session struct {
	loader       *buildfile.Loader
	factory      *classpath.Factory
	introspector *classpath.Introspector
	baseEntries  []string
	logger       *slog.Logger

	mu       sync.Mutex
	contexts map[string]*ProjectContext
	closed   bool
}

// New creates a Session.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		loader: buildfile.NewLoader(buildfile.Options{
			FS:         opts.FS,
			Properties: opts.Properties,
			AntHome:    opts.AntHome,
			Logger:     logger,
		}),
		factory:      classpath.NewFactory(opts.FS, logger),
		introspector: classpath.NewIntrospector(opts.IntrospectionCacheSize, logger),
		logger:       logger,
		contexts:     make(map[string]*ProjectContext),
	}
	s.baseEntries = baseClasspath(opts)
	return s
}

// baseClasspath lists the engine's own jars followed by the configured entries.
func baseClasspath(opts Options) []string {
	var entries []string
	if opts.AntHome != "" && opts.FS != nil {
		jars, err := doublestar.Glob(opts.FS, path.Join(strings.TrimPrefix(opts.AntHome, "/"), "lib", "*.jar"))
		if err == nil {
			sort.Strings(jars)
			entries = append(entries, jars...)
		}
	}
	for _, e := range opts.Classpath {
		entries = append(entries, strings.TrimPrefix(path.Clean(e), "/"))
	}
	return entries
}

// Loader returns the session's file loader.
func (s *Session) Loader() *buildfile.Loader {
	return s.loader
}

// Introspector returns the session's definition table cache.
func (s *Session) Introspector() *classpath.Introspector {
	return s.introspector
}

// Context returns the context of the root build file at p, opening it on first use.
func (s *Session) Context(p string) (*ProjectContext, error) {
	p = path.Clean(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if c, ok := s.contexts[p]; ok {
		return c, nil
	}

	proj, err := s.loader.Load(p)
	if err != nil {
		return nil, err
	}
	c := newProjectContext(s, proj)
	s.contexts[p] = c
	s.logger.Debug("project context opened", "root", p, "files", len(c.files))
	return c, nil
}

// Roots returns the root files of the open contexts, sorted.
func (s *Session) Roots() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	roots := make([]string, 0, len(s.contexts))
	for r := range s.contexts {
		roots = append(roots, r)
	}
	sort.Strings(roots)
	return roots
}

// Files returns every file the open contexts depend on, sorted.
func (s *Session) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]bool)
	for _, c := range s.contexts {
		for f := range c.files {
			set[f] = true
		}
	}
	files := make([]string, 0, len(set))
	for f := range set {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Invalidate drops the cached model of the file at p and every context depending on it.
// It returns the roots of the dropped contexts, sorted.
func (s *Session) Invalidate(p string) []string {
	p = path.Clean(p)
	s.loader.Invalidate(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	var dropped []string
	for root, c := range s.contexts {
		if !c.dependsOn(p) {
			continue
		}
		c.close()
		delete(s.contexts, root)
		dropped = append(dropped, root)
	}
	sort.Strings(dropped)
	if len(dropped) > 0 {
		s.logger.Debug("contexts invalidated", "file", p, "roots", dropped)
	}
	return dropped
}

// Close tears down every context and cache. Further Context calls fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for root, c := range s.contexts {
		c.close()
		delete(s.contexts, root)
	}
	s.closed = true
	s.loader.InvalidateAll()
	s.introspector.Purge()
}
