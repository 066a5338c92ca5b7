package customdef

import (
	"sync"

	"github.com/leapstack-labs/antscope/internal/classpath"
)

// LoaderCache holds named class loaders shared by every definition that references them.
// Safe for concurrent use.
type LoaderCache struct {
	mu      sync.Mutex
	loaders map[string]classpath.Loader
}

// NewLoaderCache creates an empty cache.
func NewLoaderCache() *LoaderCache {
	return &LoaderCache{loaders: make(map[string]classpath.Loader)}
}

// GetOrCreate returns the loader registered under name, creating it with create on first use.
func (c *LoaderCache) GetOrCreate(name string, create func() classpath.Loader) classpath.Loader {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.loaders[name]; ok {
		return l
	}
	l := create()
	c.loaders[name] = l
	return l
}

// Len returns the number of named loaders.
func (c *LoaderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.loaders)
}

// Clear drops every named loader.
func (c *LoaderCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaders = make(map[string]classpath.Loader)
}
