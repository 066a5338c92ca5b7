package classpath

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"
)

// entry is one classpath element: a directory or an archive.
type entry struct {
	path string

	once sync.Once
	zip  *zip.Reader
	err  error
}

func (e *entry) isArchive() bool {
	ext := strings.ToLower(path.Ext(e.path))
	return ext == ".jar" || ext == ".zip"
}

func (e *entry) open(fsys fs.FS) (*zip.Reader, error) {
	e.once.Do(func() {
		data, err := fs.ReadFile(fsys, e.path)
		if err != nil {
			e.err = err
			return
		}
		e.zip, e.err = zip.NewReader(bytes.NewReader(data), int64(len(data)))
	})
	return e.zip, e.err
}

func (e *entry) read(fsys fs.FS, name string) ([]byte, error) {
	if !e.isArchive() {
		return fs.ReadFile(fsys, path.Join(e.path, name))
	}
	zr, err := e.open(fsys)
	if err != nil {
		return nil, err
	}
	f, err := zr.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (e *entry) has(fsys fs.FS, name string) bool {
	if !e.isArchive() {
		_, err := fs.Stat(fsys, path.Join(e.path, name))
		return err == nil
	}
	zr, err := e.open(fsys)
	if err != nil {
		return false
	}
	_, err = fs.Stat(zr, name)
	return err == nil
}

// urlLoader searches directories and archives in order after its parent.
type urlLoader struct {
	fsys    fs.FS
	parent  Loader
	entries []*entry
	logger  *slog.Logger
}

func (l *urlLoader) LoadClass(name string) (*Class, error) {
	if l.parent != nil {
		if c, err := l.parent.LoadClass(name); err == nil {
			return c, nil
		}
	}
	file := ClassFile(name)
	for _, e := range l.entries {
		if e.has(l.fsys, file) {
			return &Class{Name: name, Location: e.path, Loader: l}, nil
		}
	}
	return nil, &ClassNotFoundError{Name: name, Loader: l.String()}
}

func (l *urlLoader) Resource(name string) ([]byte, error) {
	name = strings.TrimPrefix(name, "/")
	if l.parent != nil {
		if data, err := l.parent.Resource(name); err == nil {
			return data, nil
		}
	}
	for _, e := range l.entries {
		data, err := e.read(l.fsys, name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Debug("classpath entry unreadable", "entry", e.path, "error", err)
		}
	}
	return nil, &ResourceNotFoundError{Name: name, Loader: l.String()}
}

func (l *urlLoader) Parent() Loader { return l.parent }

func (l *urlLoader) String() string {
	paths := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		paths = append(paths, e.path)
	}
	return fmt.Sprintf("classpath[%s]", strings.Join(paths, ":"))
}
