package ipcwire

import (
	"context"
	"time"
)

// OnReceiveFunc is called when a message reaches a route, before any guard
// runs. Use it to enrich the context with logging fields or trace spans. The
// returned context is used for the rest of the dispatch.
type OnReceiveFunc func(ctx context.Context, path string, mode Mode) context.Context

// OnSuccessFunc is called after the handler's result has been unwrapped.
type OnSuccessFunc func(ctx context.Context, path string, duration time.Duration)

// OnFailureFunc is called after an error from a guard, a parameter role or
// the handler has been passed through the exception filters.
type OnFailureFunc func(ctx context.Context, path string, err error, duration time.Duration)

// OnDeniedFunc is called when a guard denies the dispatch.
type OnDeniedFunc func(ctx context.Context, path, guard string, duration time.Duration)

// hooks holds all configured hook functions.
type hooks struct {
	onReceive []OnReceiveFunc
	onSuccess []OnSuccessFunc
	onFailure []OnFailureFunc
	onDenied  []OnDeniedFunc
}

// WithOnReceive adds a hook called when a message reaches a route.
// Multiple hooks are called in order, with context chaining through each.
//
// Example:
//
//	ipcwire.WithOnReceive(func(ctx context.Context, path string, mode ipcwire.Mode) context.Context {
//	    return context.WithValue(ctx, requestKey{}, uuid.NewString())
//	})
func WithOnReceive(fn OnReceiveFunc) Option {
	return func(a *Application) {
		a.hooks.onReceive = append(a.hooks.onReceive, fn)
	}
}

// WithOnSuccess adds a hook called after a handler completes.
// Multiple hooks are called in order.
//
// Example:
//
//	ipcwire.WithOnSuccess(func(ctx context.Context, path string, d time.Duration) {
//	    logger.Debug("handled", zap.String("channel", path), zap.Duration("took", d))
//	})
func WithOnSuccess(fn OnSuccessFunc) Option {
	return func(a *Application) {
		a.hooks.onSuccess = append(a.hooks.onSuccess, fn)
	}
}

// WithOnFailure adds a hook called after a dispatch error was filtered.
// Multiple hooks are called in order.
func WithOnFailure(fn OnFailureFunc) Option {
	return func(a *Application) {
		a.hooks.onFailure = append(a.hooks.onFailure, fn)
	}
}

// WithOnDenied adds a hook called when a guard denies a dispatch.
// Multiple hooks are called in order.
func WithOnDenied(fn OnDeniedFunc) Option {
	return func(a *Application) {
		a.hooks.onDenied = append(a.hooks.onDenied, fn)
	}
}

func (a *Application) callOnReceive(ctx context.Context, path string, mode Mode) context.Context {
	for _, fn := range a.hooks.onReceive {
		ctx = fn(ctx, path, mode)
	}
	return ctx
}

func (a *Application) callOnSuccess(ctx context.Context, path string, d time.Duration) {
	for _, fn := range a.hooks.onSuccess {
		fn(ctx, path, d)
	}
}

func (a *Application) callOnFailure(ctx context.Context, path string, err error, d time.Duration) {
	for _, fn := range a.hooks.onFailure {
		fn(ctx, path, err, d)
	}
}

func (a *Application) callOnDenied(ctx context.Context, path, guard string, d time.Duration) {
	for _, fn := range a.hooks.onDenied {
		fn(ctx, path, guard, d)
	}
}
