package ipcwire

import (
	"fmt"
	"reflect"
)

// Factory builds an instance from its resolved dependencies, given in the
// order they were declared on the class.
type Factory func(deps []any) (any, error)

// Class is an injectable type: a name, a factory, and the ordered list of
// classes whose instances the factory receives. Classes compare by identity,
// so a *Class doubles as a provider token.
//
// Example:
//
//	var Users = ipcwire.NewClass("UsersService", ipcwire.Ctor1(NewUsersService), Repo)
type Class struct {
	name    string
	factory Factory
	deps    []*Class
}

// NewClass creates a class. A nil factory is allowed for classes used only as
// abstract tokens.
func NewClass(name string, factory Factory, deps ...*Class) *Class {
	return &Class{name: name, factory: factory, deps: deps}
}

// Name returns the class name used in errors and logs.
func (c *Class) Name() string {
	if c == nil {
		return "<nil>"
	}
	return c.name
}

// Deps returns the declared dependencies.
func (c *Class) Deps() []*Class {
	out := make([]*Class, len(c.deps))
	copy(out, c.deps)
	return out
}

func (c *Class) String() string { return c.Name() }

func (c *Class) construct(args []any) (instance any, err error) {
	if c.factory == nil {
		return nil, &ConstructionError{Provider: c.name, Err: fmt.Errorf("class has no factory")}
	}
	defer func() {
		if rec := recover(); rec != nil {
			instance = nil
			err = &ConstructionError{Provider: c.name, Err: &PanicError{Value: rec}}
		}
	}()
	instance, err = c.factory(args)
	if err != nil {
		return nil, &ConstructionError{Provider: c.name, Err: err}
	}
	return instance, nil
}

// Ctor0 adapts a constructor without dependencies.
func Ctor0[T any](fn func() T) Factory {
	return func([]any) (any, error) {
		return fn(), nil
	}
}

// Ctor1 adapts a constructor taking one dependency.
func Ctor1[T, A any](fn func(A) T) Factory {
	return func(deps []any) (any, error) {
		a, err := argAt[A](deps, 0)
		if err != nil {
			return nil, err
		}
		return fn(a), nil
	}
}

// Ctor2 adapts a constructor taking two dependencies.
func Ctor2[T, A, B any](fn func(A, B) T) Factory {
	return func(deps []any) (any, error) {
		a, err := argAt[A](deps, 0)
		if err != nil {
			return nil, err
		}
		b, err := argAt[B](deps, 1)
		if err != nil {
			return nil, err
		}
		return fn(a, b), nil
	}
}

// Ctor3 adapts a constructor taking three dependencies.
func Ctor3[T, A, B, C any](fn func(A, B, C) T) Factory {
	return func(deps []any) (any, error) {
		a, err := argAt[A](deps, 0)
		if err != nil {
			return nil, err
		}
		b, err := argAt[B](deps, 1)
		if err != nil {
			return nil, err
		}
		c, err := argAt[C](deps, 2)
		if err != nil {
			return nil, err
		}
		return fn(a, b, c), nil
	}
}

// argAt returns args[i] as T. A missing or nil slot yields the zero value.
func argAt[T any](args []any, i int) (T, error) {
	var zero T
	if i >= len(args) || args[i] == nil {
		return zero, nil
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, &TypeMismatchError{
			Expected: reflect.TypeOf((*T)(nil)).Elem().String(),
			Got:      typeName(args[i]),
		}
	}
	return v, nil
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
