package customdef

import (
	"sync"

	"github.com/leapstack-labs/antscope/internal/classpath"
)

// ClassProvider resolves the class backing a custom element on first use and memoizes the
// outcome. Failures are kept as display strings and never returned as errors.
type ClassProvider struct {
	name    string
	resolve func() (*classpath.Class, error)

	once  sync.Once
	class *classpath.Class
	err   string
}

// NewClassProvider returns a provider that loads name through l.
func NewClassProvider(name string, l classpath.Loader) *ClassProvider {
	return &ClassProvider{
		name:    name,
		resolve: func() (*classpath.Class, error) { return l.LoadClass(name) },
	}
}

// DeferredClassProvider returns a provider whose class is computed by resolve on first use.
func DeferredClassProvider(resolve func() (*classpath.Class, error)) *ClassProvider {
	return &ClassProvider{resolve: resolve}
}

// FailedClassProvider returns a provider that always reports msg.
func FailedClassProvider(msg string) *ClassProvider {
	p := &ClassProvider{err: msg}
	p.once.Do(func() {})
	return p
}

// ClassName returns the declared class name, "" for deferred or failed providers.
func (p *ClassProvider) ClassName() string {
	return p.name
}

// LookupClass returns the backing class, or nil when it could not be loaded.
func (p *ClassProvider) LookupClass() *classpath.Class {
	p.load()
	return p.class
}

// Error returns the load failure, "" on success.
func (p *ClassProvider) Error() string {
	p.load()
	return p.err
}

func (p *ClassProvider) load() {
	p.once.Do(func() {
		defer func() {
			// loader failures surface as strings, panics included
			if r := recover(); r != nil {
				p.class = nil
				p.err = "class loading panicked"
			}
		}()
		c, err := p.resolve()
		if err != nil {
			p.err = err.Error()
			return
		}
		p.class = c
	})
}
