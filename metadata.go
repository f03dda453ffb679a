package ipcwire

import (
	"strings"
	"sync"
)

// Lifetime controls how often the container constructs a provider.
type Lifetime string

const (
	// Singleton providers are constructed once per container.
	Singleton Lifetime = "singleton"
	// Transient providers are constructed on every resolution.
	Transient Lifetime = "transient"
)

// Mode says whether a channel expects a reply.
type Mode string

const (
	// ModeInvoke channels return the dispatch result to the caller.
	ModeInvoke Mode = "invoke"
	// ModeSend channels are fire-and-forget; the result is discarded.
	ModeSend Mode = "send"
)

// HandlerMetadata routes a method to a channel.
type HandlerMetadata struct {
	Path string
	Mode Mode
}

type metaKey int

const (
	keyInjectable metaKey = iota
	keyController
	keyHandler
	keyGuards
	keyParams
	keyFilter
)

type controllerMeta struct {
	prefix  string
	methods []*Method
}

type entryKey struct {
	subject any
	key     any
}

// Metadata is a queryable store of facts attached to classes and methods,
// keyed by (subject, key). Registration calls populate it at configuration
// time; the container and the application read it at bootstrap.
//
// Metadata is safe for concurrent use.
type Metadata struct {
	mu      sync.RWMutex
	entries map[entryKey]any
}

// Default is the store used when a Config carries no Metadata. It lets
// packages annotate their classes from init functions.
var Default = NewMetadata()

// NewMetadata returns an empty store.
func NewMetadata() *Metadata {
	return &Metadata{entries: make(map[entryKey]any)}
}

// Set attaches value to subject under key, replacing any previous value.
// Subjects and keys must be comparable.
func (m *Metadata) Set(key, value, subject any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entryKey{subject: subject, key: key}] = value
}

// Get returns the value attached to subject under key.
func (m *Metadata) Get(key, subject any) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[entryKey{subject: subject, key: key}]
	return v, ok
}

// Injectable marks cls as constructible by the container. The lifetime
// defaults to Singleton.
func (m *Metadata) Injectable(cls *Class, lifetime ...Lifetime) {
	lt := Singleton
	if len(lifetime) > 0 && lifetime[0] != "" {
		lt = lifetime[0]
	}
	m.Set(keyInjectable, lt, cls)
}

// LifetimeOf returns the lifetime cls was marked with.
func (m *Metadata) LifetimeOf(cls *Class) (Lifetime, bool) {
	return lookup[Lifetime](m, keyInjectable, cls)
}

// Controller marks cls as a controller with a channel prefix and the methods
// it exposes. Methods without handler metadata are ignored at bootstrap.
func (m *Metadata) Controller(cls *Class, prefix string, methods ...*Method) {
	m.Set(keyController, controllerMeta{prefix: prefix, methods: methods}, cls)
}

// OnInvoke routes method to a reply-expected channel.
func (m *Metadata) OnInvoke(method *Method, path string) {
	m.Set(keyHandler, HandlerMetadata{Path: path, Mode: ModeInvoke}, method)
}

// OnSend routes method to a fire-and-forget channel.
func (m *Metadata) OnSend(method *Method, path string) {
	m.Set(keyHandler, HandlerMetadata{Path: path, Mode: ModeSend}, method)
}

// HandlerOf returns the routing metadata of method.
func (m *Metadata) HandlerOf(method *Method) (HandlerMetadata, bool) {
	return lookup[HandlerMetadata](m, keyHandler, method)
}

// UseGuards attaches guard classes to a controller class or a method. Guards
// from a later call run before guards from an earlier one; a guard already
// attached is moved rather than duplicated.
func (m *Metadata) UseGuards(subject any, guards ...*Class) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := entryKey{subject: subject, key: keyGuards}
	prev, _ := m.entries[k].([]*Class)

	merged := make([]*Class, 0, len(guards)+len(prev))
	merged = append(merged, guards...)
	for _, g := range prev {
		if !containsClass(guards, g) {
			merged = append(merged, g)
		}
	}
	m.entries[k] = merged
}

// GuardsOf returns the guards attached to subject.
func (m *Metadata) GuardsOf(subject any) []*Class {
	guards, _ := lookup[[]*Class](m, keyGuards, subject)
	return guards
}

// Params declares the positional parameter roles of method. A nil role
// leaves the slot at its zero value.
func (m *Metadata) Params(method *Method, roles ...Param) {
	m.Set(keyParams, roles, method)
}

// ParamsOf returns the parameter roles of method.
func (m *Metadata) ParamsOf(method *Method) []Param {
	roles, _ := lookup[[]Param](m, keyParams, method)
	return roles
}

// Catch marks filter as an exception filter handling the given error kinds.
func (m *Metadata) Catch(filter *Class, kinds ...ErrorKind) {
	m.Set(keyFilter, kinds, filter)
}

// KindsOf returns the error kinds filter handles.
func (m *Metadata) KindsOf(filter *Class) ([]ErrorKind, bool) {
	return lookup[[]ErrorKind](m, keyFilter, filter)
}

func (m *Metadata) controllerOf(cls *Class) (controllerMeta, bool) {
	return lookup[controllerMeta](m, keyController, cls)
}

func lookup[T any](m *Metadata, key, subject any) (T, bool) {
	v, ok := m.Get(key, subject)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

func containsClass(list []*Class, c *Class) bool {
	for _, item := range list {
		if item == c {
			return true
		}
	}
	return false
}

// buildPath joins a controller prefix and a method path with ':'. Either part
// may be empty.
func buildPath(prefix, path string) string {
	prefix = strings.TrimSpace(prefix)
	path = strings.TrimSpace(path)
	switch {
	case prefix != "" && path != "":
		return prefix + ":" + path
	case prefix != "":
		return prefix
	default:
		return path
	}
}
