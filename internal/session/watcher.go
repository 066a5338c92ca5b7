package session

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 300 * time.Millisecond

// Watcher invalidates a session when files its contexts depend on change on disk.
type Watcher struct {
	session *Session
	// root is the OS directory the session's FS is rooted at
	root     string
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	dirs    map[string]bool
	pending map[string]bool
}

// NewWatcher creates a watcher for a session whose FS is rooted at the OS directory root.
// A zero debounce means DefaultDebounce.
func NewWatcher(s *Session, root string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		session:  s,
		root:     filepath.Clean(root),
		debounce: debounce,
		logger:   s.logger,
		fsw:      fsw,
		dirs:     make(map[string]bool),
		pending:  make(map[string]bool),
	}, nil
}

// Sync watches the directories of every file the session's contexts depend on.
func (w *Watcher) Sync() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, f := range w.session.Files() {
		dir := filepath.Dir(w.osPath(f))
		if w.dirs[dir] {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			w.logger.Debug("cannot watch directory", "dir", dir, "error", err)
			continue
		}
		w.dirs[dir] = true
	}
}

// Dirs returns the number of watched directories.
func (w *Watcher) Dirs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}

// Run processes file events until ctx is done. After changes settle, the changed files are
// invalidated and onChange receives the roots of the dropped contexts and the changed files
// that caused it, both sorted.
func (w *Watcher) Run(ctx context.Context, onChange func(roots, files []string)) error {
	w.Sync()

	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !isRelevantChange(event) {
				continue
			}
			fsPath, ok := w.fsPath(event.Name)
			if !ok {
				continue
			}
			w.mu.Lock()
			w.pending[fsPath] = true
			w.mu.Unlock()

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				w.flush(onChange)
			})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) flush(onChange func(roots, files []string)) {
	w.mu.Lock()
	changed := w.pending
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	seen := make(map[string]bool)
	var roots, files []string
	for f := range changed {
		dropped := w.session.Invalidate(f)
		if len(dropped) > 0 {
			files = append(files, f)
		}
		for _, r := range dropped {
			if !seen[r] {
				seen[r] = true
				roots = append(roots, r)
			}
		}
	}
	sort.Strings(roots)
	sort.Strings(files)
	w.logger.Debug("files changed", "files", len(changed), "roots", roots)
	if len(roots) > 0 && onChange != nil {
		onChange(roots, files)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) osPath(fsPath string) string {
	return filepath.Join(w.root, filepath.FromSlash(fsPath))
}

func (w *Watcher) fsPath(osPath string) (string, bool) {
	rel, err := filepath.Rel(w.root, filepath.Clean(osPath))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return path.Clean(filepath.ToSlash(rel)), true
}

func isRelevantChange(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
