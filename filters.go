package ipcwire

import (
	"context"
	"errors"
	"reflect"

	"go.uber.org/zap"
)

// ExceptionFilter turns an error raised during a dispatch into the response
// sent back to the caller. Catch may return a plain value, a Future or a
// Stream.
type ExceptionFilter interface {
	Catch(err error, ec *ExecutionContext) (any, error)
}

// ExceptionFilterFunc adapts a function to ExceptionFilter.
type ExceptionFilterFunc func(err error, ec *ExecutionContext) (any, error)

// Catch implements ExceptionFilter.
func (f ExceptionFilterFunc) Catch(err error, ec *ExecutionContext) (any, error) { return f(err, ec) }

// ErrorKind selects the errors a filter handles.
type ErrorKind struct {
	name  string
	id    any
	match func(error) bool
}

// KindOf matches errors for which errors.As finds an E in the chain.
func KindOf[E error]() ErrorKind {
	t := reflect.TypeOf((*E)(nil)).Elem()
	return ErrorKind{
		name: t.String(),
		id:   t,
		match: func(err error) bool {
			var target E
			return errors.As(err, &target)
		},
	}
}

// KindIs matches errors for which errors.Is(err, target) holds.
func KindIs(target error) ErrorKind {
	return ErrorKind{
		name:  target.Error(),
		id:    target,
		match: func(err error) bool { return errors.Is(err, target) },
	}
}

type anyErrorID struct{}

// AnyError matches every error.
func AnyError() ErrorKind {
	return ErrorKind{
		name:  "any",
		id:    anyErrorID{},
		match: func(error) bool { return true },
	}
}

// String returns the kind's name.
func (k ErrorKind) String() string { return k.name }

// Matches reports whether err is of this kind.
func (k ErrorKind) Matches(err error) bool {
	return k.match != nil && k.match(err)
}

func (k ErrorKind) sameAs(other ErrorKind) bool {
	if k.id == nil || other.id == nil {
		return false
	}
	if !reflect.TypeOf(k.id).Comparable() || reflect.TypeOf(k.id) != reflect.TypeOf(other.id) {
		return false
	}
	return k.id == other.id
}

type filterEntry struct {
	kind   ErrorKind
	filter *Class
}

// UseGlobalFilters registers exception filter classes for every route. Each
// class must declare the kinds it handles with Metadata.Catch. A kind that is
// already registered keeps its position and switches to the new filter.
func (a *Application) UseGlobalFilters(filters ...*Class) error {
	for _, f := range filters {
		if _, ok := a.meta.KindsOf(f); !ok {
			return &NotExceptionFilterError{Filter: f.Name()}
		}
	}

	a.filterMu.Lock()
	defer a.filterMu.Unlock()

	for _, f := range filters {
		kinds, _ := a.meta.KindsOf(f)
		a.container.AddProvider(Provide(f))
		for _, kind := range kinds {
			a.setFilter(kind, f)
		}
		a.logger.Debug("exception filter registered", zap.String("filter", f.Name()))
	}
	return nil
}

func (a *Application) setFilter(kind ErrorKind, filter *Class) {
	for i := range a.filters {
		if a.filters[i].kind.sameAs(kind) {
			a.filters[i].filter = filter
			return
		}
	}
	a.filters = append(a.filters, filterEntry{kind: kind, filter: filter})
}

// useFilter logs err and converts it into a response through the first
// matching filter, or into a Failure when none matches. A failing filter
// yields a Failure carrying the filter's error.
func (a *Application) useFilter(ctx context.Context, err error, ec *ExecutionContext) any {
	a.logger.Error("dispatch failed", zap.String("channel", ec.Path()), zap.Error(err))

	a.filterMu.RLock()
	entries := make([]filterEntry, len(a.filters))
	copy(entries, a.filters)
	a.filterMu.RUnlock()

	for _, entry := range entries {
		if !entry.kind.Matches(err) {
			continue
		}
		res, ferr := a.runFilter(ctx, entry.filter, err, ec)
		if ferr != nil {
			a.logger.Error("exception filter failed",
				zap.String("channel", ec.Path()),
				zap.String("filter", entry.filter.Name()),
				zap.Error(ferr),
			)
			return NewFailure(ferr)
		}
		return res
	}

	return NewFailure(err)
}

func (a *Application) runFilter(ctx context.Context, cls *Class, err error, ec *ExecutionContext) (any, error) {
	v, rerr := a.container.Resolve(cls)
	if rerr != nil {
		return nil, rerr
	}
	filter, ok := v.(ExceptionFilter)
	if !ok {
		return nil, &TypeMismatchError{Expected: "ipcwire.ExceptionFilter", Got: typeName(v)}
	}
	res, ferr := safeCall(func() (any, error) { return filter.Catch(err, ec) })
	if ferr != nil {
		return nil, ferr
	}
	return Unwrap(ctx, res, a.maxUnwrapDepth)
}
