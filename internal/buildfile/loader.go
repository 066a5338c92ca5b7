package buildfile

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/leapstack-labs/antscope/pkg/core"
)

// LoadError represents an error reading a build file.
type LoadError struct {
	File    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Options configures a Loader.
type Options struct {
	// FS is the file system build files are read from. Paths are slash separated.
	FS fs.FS
	// Properties are user properties available to import path expansion
	Properties map[string]string
	// AntHome is the FS path of the build engine's installation, if known
	AntHome string
	// Logger receives load diagnostics
	Logger *slog.Logger
}

type cached struct {
	project *core.Project
	err     error
}

// Loader reads build files from a file system and caches the resulting projects.
// It implements core.ImportSource. Safe for concurrent use.
type Loader struct {
	fsys    fs.FS
	props   map[string]string
	antHome string
	logger  *slog.Logger

	projects   map[string]cached
	projectsMu sync.RWMutex
}

// NewLoader creates a Loader.
func NewLoader(opts Options) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		fsys:     opts.FS,
		props:    opts.Properties,
		antHome:  opts.AntHome,
		logger:   logger,
		projects: make(map[string]cached),
	}
}

// FS returns the loader's file system.
func (l *Loader) FS() fs.FS {
	return l.fsys
}

// Load returns the project for the build file at p, parsing it on first use.
// Failures are cached as well until the path is invalidated.
func (l *Loader) Load(p string) (*core.Project, error) {
	p = path.Clean(p)

	l.projectsMu.RLock()
	c, ok := l.projects[p]
	l.projectsMu.RUnlock()
	if ok {
		return c.project, c.err
	}

	l.projectsMu.Lock()
	defer l.projectsMu.Unlock()

	// Double-check after acquiring write lock
	if c, ok := l.projects[p]; ok {
		return c.project, c.err
	}

	proj, err := l.parse(p)
	if err != nil {
		l.logger.Debug("build file not loaded", "path", p, "error", err)
	} else {
		l.logger.Debug("build file loaded", "path", p, "targets", len(proj.Targets), "imports", len(proj.Imports))
	}
	l.projects[p] = cached{project: proj, err: err}
	return proj, err
}

func (l *Loader) parse(p string) (*core.Project, error) {
	data, err := fs.ReadFile(l.fsys, p)
	if err != nil {
		return nil, &LoadError{File: p, Message: "failed to read file", Err: err}
	}
	root, err := Parse(p, data)
	if err != nil {
		return nil, err
	}
	return NewProject(p, root, Env(l.fsys))
}

// Cached returns the cached project for p without loading it.
func (l *Loader) Cached(p string) *core.Project {
	l.projectsMu.RLock()
	defer l.projectsMu.RUnlock()
	return l.projects[path.Clean(p)].project
}

// Invalidate drops the cached project for p.
func (l *Loader) Invalidate(p string) {
	l.projectsMu.Lock()
	defer l.projectsMu.Unlock()
	delete(l.projects, path.Clean(p))
}

// InvalidateAll clears the cache.
func (l *Loader) InvalidateAll() {
	l.projectsMu.Lock()
	defer l.projectsMu.Unlock()
	l.projects = make(map[string]cached)
}

// ResolveImport implements core.ImportSource.
func (l *Loader) ResolveImport(d *core.ImportDirective) (*core.Project, bool) {
	p, ok := l.ImportPath(d)
	if !ok {
		return nil, false
	}
	proj, err := l.Load(p)
	if err != nil {
		if !d.Optional {
			l.logger.Debug("import not resolved", "at", d.Element.Position(), "file", d.File, "error", err)
		}
		return nil, false
	}
	return proj, true
}

var propertyRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ImportPath expands the directive's file attribute to an FS path.
// It returns false when the path depends on properties that are not statically known.
func (l *Loader) ImportPath(d *core.ImportDirective) (string, bool) {
	raw := strings.TrimSpace(d.File)
	if raw == "" {
		return "", false
	}

	unresolved := false
	expanded := propertyRef.ReplaceAllStringFunc(raw, func(ref string) string {
		name := ref[2 : len(ref)-1]
		if v, ok := l.lookup(name, d.Project); ok {
			return v
		}
		unresolved = true
		return ref
	})
	if unresolved {
		return "", false
	}

	expanded = filepath.ToSlash(expanded)
	if strings.HasPrefix(expanded, "/") {
		return FSPath(expanded), true
	}
	// import paths are relative to the importing file, not to basedir
	return path.Join(d.Project.Dir(), expanded), true
}

func (l *Loader) lookup(name string, proj *core.Project) (string, bool) {
	switch {
	case name == "basedir":
		return OSPath(proj.Basedir), true
	case name == "ant.file":
		return OSPath(proj.Path), true
	case name == "ant.home":
		if l.antHome == "" {
			return "", false
		}
		return OSPath(l.antHome), true
	case strings.HasPrefix(name, "ant.file."):
		if proj.Name != "" && name == "ant.file."+proj.Name {
			return OSPath(proj.Path), true
		}
	}
	v, ok := l.props[name]
	return v, ok
}

// FSPath converts an absolute OS path to a path in an os.DirFS("/") file system.
func FSPath(osPath string) string {
	p := strings.TrimPrefix(path.Clean(filepath.ToSlash(osPath)), "/")
	if p == "" {
		return "."
	}
	return p
}

// OSPath is the inverse of FSPath.
func OSPath(fsPath string) string {
	if fsPath == "." {
		return "/"
	}
	return "/" + fsPath
}
