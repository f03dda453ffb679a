package ipcwire

import (
	"sync"
	"sync/atomic"
)

// Provider registers a class under a token. When UseClass is nil the token is
// its own implementation.
type Provider struct {
	Provided *Class
	UseClass *Class
}

// Provide registers cls as its own implementation.
func Provide(cls *Class) Provider {
	return Provider{Provided: cls}
}

// ProvideAs registers impl under token.
func ProvideAs(token, impl *Class) Provider {
	return Provider{Provided: token, UseClass: impl}
}

func (p Provider) implementation() *Class {
	if p.UseClass != nil {
		return p.UseClass
	}
	return p.Provided
}

// instanceCell holds one singleton. The mutex serializes construction; ready
// lets cache hits skip the mutex.
type instanceCell struct {
	mu    sync.Mutex
	ready atomic.Bool
	value any
}

func (c *instanceCell) get() (any, bool) {
	if c.ready.Load() {
		return c.value, true
	}
	return nil, false
}

// Container resolves classes to instances, constructing their dependency
// graph on demand. Singleton instances are cached per container.
//
// Container is safe for concurrent use. Concurrent first resolutions of a
// singleton construct it once.
type Container struct {
	meta *Metadata

	mu        sync.RWMutex
	providers map[*Class]Provider
	cells     map[*Class]*instanceCell
}

// NewContainer returns an empty container reading lifetimes from meta.
func NewContainer(meta *Metadata) *Container {
	if meta == nil {
		meta = Default
	}
	return &Container{
		meta:      meta,
		providers: make(map[*Class]Provider),
		cells:     make(map[*Class]*instanceCell),
	}
}

// AddProvider registers p, replacing any provider for the same token.
func (c *Container) AddProvider(p Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[p.Provided] = p
}

// Has reports whether token is registered.
func (c *Container) Has(token *Class) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.providers[token]
	return ok
}

// Resolve returns an instance for token.
//
// Errors:
//   - ProviderNotFoundError when token is not registered
//   - CircularDependencyError when token depends on itself
//   - ProviderNotInjectableError when the implementation has no lifetime
//   - ConstructionError when a factory fails or panics
func (c *Container) Resolve(token *Class) (any, error) {
	return c.resolve(token, nil)
}

// Resolve returns an instance for token as T.
func Resolve[T any](c *Container, token *Class) (T, error) {
	var zero T
	v, err := c.Resolve(token)
	if err != nil {
		return zero, err
	}
	return argAt[T]([]any{v}, 0)
}

func (c *Container) resolve(token *Class, path []*Class) (any, error) {
	if token == ReflectorClass {
		return NewReflector(c.meta), nil
	}

	c.mu.RLock()
	cell, hasCell := c.cells[token]
	p, registered := c.providers[token]
	c.mu.RUnlock()

	if hasCell {
		if v, ok := cell.get(); ok {
			return v, nil
		}
	}
	if !registered {
		return nil, &ProviderNotFoundError{Provider: token.Name()}
	}
	if containsClass(path, token) {
		return nil, &CircularDependencyError{Provider: token.Name(), Path: classNames(path)}
	}

	impl := p.implementation()
	lifetime, ok := c.meta.LifetimeOf(impl)
	if !ok {
		return nil, &ProviderNotInjectableError{Provider: token.Name()}
	}

	if lifetime == Singleton {
		return c.singleton(token, impl, path)
	}
	return c.build(token, impl, path)
}

func (c *Container) singleton(token, impl *Class, path []*Class) (any, error) {
	c.mu.Lock()
	cell, ok := c.cells[token]
	if !ok {
		cell = &instanceCell{}
		c.cells[token] = cell
	}
	c.mu.Unlock()

	cell.mu.Lock()
	defer cell.mu.Unlock()

	if v, ok := cell.get(); ok {
		return v, nil
	}

	v, err := c.build(token, impl, path)
	if err != nil {
		return nil, err
	}
	cell.value = v
	cell.ready.Store(true)
	return v, nil
}

// build resolves the dependencies of impl with token appended to the path and
// constructs it.
func (c *Container) build(token, impl *Class, path []*Class) (any, error) {
	next := append(path[:len(path):len(path)], token)

	args := make([]any, len(impl.deps))
	for i, dep := range impl.deps {
		v, err := c.resolve(dep, next)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return impl.construct(args)
}

// instantiate builds cls from its declared dependencies without registering
// or caching it. Controllers are built this way.
func (c *Container) instantiate(cls *Class) (any, error) {
	args := make([]any, len(cls.deps))
	for i, dep := range cls.deps {
		v, err := c.resolve(dep, nil)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return cls.construct(args)
}

// Validate walks the declared dependency lists of every registered provider
// and reports the first cycle. Unregistered dependencies are left for
// Resolve to report.
func (c *Container) Validate() error {
	c.mu.RLock()
	providers := make(map[*Class]Provider, len(c.providers))
	for k, v := range c.providers {
		providers[k] = v
	}
	c.mu.RUnlock()

	done := make(map[*Class]bool, len(providers))
	var visit func(token *Class, path []*Class) error
	visit = func(token *Class, path []*Class) error {
		if done[token] {
			return nil
		}
		if containsClass(path, token) {
			return &CircularDependencyError{Provider: token.Name(), Path: classNames(path)}
		}
		p, ok := providers[token]
		if !ok {
			return nil
		}
		next := append(path[:len(path):len(path)], token)
		for _, dep := range p.implementation().deps {
			if err := visit(dep, next); err != nil {
				return err
			}
		}
		done[token] = true
		return nil
	}

	for token := range providers {
		if err := visit(token, nil); err != nil {
			return err
		}
	}
	return nil
}

func classNames(list []*Class) []string {
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Name()
	}
	return names
}
