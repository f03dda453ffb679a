package ipcwire

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrEmptyStream is returned when a stream completes without emitting a value.
	ErrEmptyStream = errors.New("stream completed without emitting a value")

	// ErrAlreadyBootstrapped is returned by a second call to Bootstrap.
	ErrAlreadyBootstrapped = errors.New("application already bootstrapped")
)

// ProviderNotFoundError is returned when no provider is registered for a token.
type ProviderNotFoundError struct {
	Provider string
}

func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("provider '%s' not found", e.Provider)
}

// CircularDependencyError is returned when a token appears twice on the
// current resolution path.
type CircularDependencyError struct {
	Provider string
	Path     []string
}

func (e *CircularDependencyError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("circular dependency detected for provider '%s'", e.Provider)
	}
	return fmt.Sprintf("circular dependency detected for provider '%s' (%s -> %s)",
		e.Provider, strings.Join(e.Path, " -> "), e.Provider)
}

// ProviderNotInjectableError is returned when the implementation class of a
// provider was never marked injectable.
type ProviderNotInjectableError struct {
	Provider string
}

func (e *ProviderNotInjectableError) Error() string {
	return fmt.Sprintf("provider '%s' is not injectable: mark it with Metadata.Injectable", e.Provider)
}

// ConstructionError wraps a failure raised by a provider factory.
type ConstructionError struct {
	Provider string
	Err      error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct provider '%s': %v", e.Provider, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// TypeMismatchError represents a failed type assertion on a resolved value or
// a handler argument.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// ControllerNotValidError is returned at bootstrap when a controller class has
// no controller metadata.
type ControllerNotValidError struct {
	Controller string
}

func (e *ControllerNotValidError) Error() string {
	return fmt.Sprintf("controller '%s' is not valid: register it with Metadata.Controller", e.Controller)
}

// NotExceptionFilterError is returned when a class without catch metadata is
// registered as a global filter.
type NotExceptionFilterError struct {
	Filter string
}

func (e *NotExceptionFilterError) Error() string {
	return fmt.Sprintf("'%s' is not an exception filter: register it with Metadata.Catch", e.Filter)
}

// DuplicateRouteError is returned at bootstrap when two handlers resolve to
// the same channel path.
type DuplicateRouteError struct {
	Path string
}

func (e *DuplicateRouteError) Error() string {
	return fmt.Sprintf("route '%s' is registered more than once", e.Path)
}

// RouteNotFoundError is returned by Application.Dispatch for an unknown path.
type RouteNotFoundError struct {
	Path string
}

func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("no route for channel '%s'", e.Path)
}

// ForbiddenAccessError describes a dispatch denied by a guard.
type ForbiddenAccessError struct {
	Path  string
	Guard string
}

func (e *ForbiddenAccessError) Error() string {
	return fmt.Sprintf("access to '%s' denied by guard '%s'", e.Path, e.Guard)
}

// DataValidationError is raised when a payload fails validation. It carries
// the constraints violated by the first failing field only.
type DataValidationError struct {
	Field       string
	Value       any
	Constraints map[string]string
}

func (e *DataValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, strings.Join(e.Messages(), "; "))
}

// Messages returns the constraint messages sorted by constraint name.
func (e *DataValidationError) Messages() []string {
	names := make([]string, 0, len(e.Constraints))
	for name := range e.Constraints {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, e.Constraints[name])
	}
	return msgs
}

// UnwrapDepthError is returned when a result keeps yielding futures or streams
// past the configured depth.
type UnwrapDepthError struct {
	Depth int
}

func (e *UnwrapDepthError) Error() string {
	return fmt.Sprintf("result still asynchronous after %d unwraps", e.Depth)
}

// PanicError carries a value recovered from a panicking guard, parameter
// role, handler, filter or factory.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
