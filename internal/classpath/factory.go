package classpath

import (
	"io/fs"
	"log/slog"
	"path"
	"strings"
)

// Factory creates class loaders over a file system.
type Factory struct {
	fsys   fs.FS
	logger *slog.Logger
}

// NewFactory creates a Factory reading classpath entries from fsys.
func NewFactory(fsys fs.FS, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Factory{fsys: fsys, logger: logger}
}

// FS returns the factory's file system.
func (f *Factory) FS() fs.FS {
	return f.fsys
}

// NewLoader creates a loader over the given classpath entries with parent-first delegation.
// Entries are slash-separated FS paths of directories, .jar or .zip files. A nil parent
// delegates to Builtin.
func (f *Factory) NewLoader(urls []string, parent Loader) Loader {
	if parent == nil {
		parent = Builtin()
	}
	l := &urlLoader{fsys: f.fsys, parent: parent, logger: f.logger}
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		u = path.Clean(strings.TrimPrefix(u, "/"))
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		l.entries = append(l.entries, &entry{path: u})
	}
	return l
}
