package lsp

import (
	"bytes"
	"io/fs"
	"path"
	"sync"
	"time"
)

// Overlay is a file system that serves the editor's unsaved buffers in place of the files
// on disk. Paths are slash separated, as in fs.FS.
type Overlay struct {
	base fs.FS

	mu    sync.RWMutex
	files map[string][]byte
}

// NewOverlay wraps base.
func NewOverlay(base fs.FS) *Overlay {
	return &Overlay{base: base, files: make(map[string][]byte)}
}

// Set replaces the content of name.
func (o *Overlay) Set(name string, data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[name] = data
}

// Delete drops the buffer of name; reads fall through to the base file system again.
func (o *Overlay) Delete(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.files, name)
}

func (o *Overlay) get(name string) ([]byte, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	data, ok := o.files[name]
	return data, ok
}

// Open implements fs.FS.
func (o *Overlay) Open(name string) (fs.File, error) {
	if data, ok := o.get(name); ok {
		return &memFile{name: name, Reader: bytes.NewReader(data), size: int64(len(data))}, nil
	}
	return o.base.Open(name)
}

// ReadFile implements fs.ReadFileFS.
func (o *Overlay) ReadFile(name string) ([]byte, error) {
	if data, ok := o.get(name); ok {
		return bytes.Clone(data), nil
	}
	return fs.ReadFile(o.base, name)
}

type memFile struct {
	*bytes.Reader
	name string
	size int64
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f, nil }
func (f *memFile) Close() error               { return nil }

func (f *memFile) Name() string       { return path.Base(f.name) }
func (f *memFile) Size() int64        { return f.size }
func (f *memFile) Mode() fs.FileMode  { return 0o444 }
func (f *memFile) ModTime() time.Time { return time.Time{} }
func (f *memFile) IsDir() bool        { return false }
func (f *memFile) Sys() any           { return nil }
