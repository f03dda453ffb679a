package ipcwire

import (
	"context"
	"io"
	"reflect"
	"sync"
)

// DefaultMaxUnwrapDepth bounds how many nested futures and streams a result
// may carry before Unwrap gives up.
const DefaultMaxUnwrapDepth = 32

// Future is a value that becomes available later. Guards, parameter roles,
// handlers and filters may return a Future wherever they return a value.
type Future interface {
	Await(ctx context.Context) (any, error)
}

// FutureFunc adapts a function to Future. The function runs on every Await.
type FutureFunc func(ctx context.Context) (any, error)

// Await implements Future.
func (f FutureFunc) Await(ctx context.Context) (any, error) { return f(ctx) }

// Async runs fn in its own goroutine and returns a Future for its result.
// A panic in fn rejects the future with a PanicError.
func Async(fn func() (any, error)) Future {
	f := &future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if rec := recover(); rec != nil {
				f.value, f.err = nil, &PanicError{Value: rec}
			}
		}()
		f.value, f.err = fn()
	}()
	return f
}

type future struct {
	done  chan struct{}
	value any
	err   error
}

func (f *future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Resolved returns a Future that yields v.
func Resolved(v any) Future {
	return FutureFunc(func(context.Context) (any, error) { return v, nil })
}

// Rejected returns a Future that fails with err.
func Rejected(err error) Future {
	return FutureFunc(func(context.Context) (any, error) { return nil, err })
}

// Stream emits a sequence of values. Next returns ok=false once the stream is
// complete. Only the first value of a stream is ever consumed by the
// pipeline; streams that implement io.Closer are closed afterwards.
//
// Receive-capable Go channels are treated as streams as well.
type Stream interface {
	Next(ctx context.Context) (value any, ok bool, err error)
}

// StreamFunc adapts a function to Stream.
type StreamFunc func(ctx context.Context) (any, bool, error)

// Next implements Stream.
func (f StreamFunc) Next(ctx context.Context) (any, bool, error) { return f(ctx) }

// StreamOf returns a stream emitting values in order.
func StreamOf(values ...any) Stream {
	return &sliceStream{values: values}
}

type sliceStream struct {
	mu     sync.Mutex
	values []any
	pos    int
}

func (s *sliceStream) Next(context.Context) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.values) {
		return nil, false, nil
	}
	v := s.values[s.pos]
	s.pos++
	return v, true, nil
}

// Unwrap resolves v until it is a plain value: futures are awaited, streams
// and channels yield their first value. The loop stops with an
// UnwrapDepthError after maxDepth steps; maxDepth <= 0 means
// DefaultMaxUnwrapDepth. A panic raised while awaiting or reading is
// returned as a PanicError.
func Unwrap(ctx context.Context, v any, maxDepth int) (_ any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec}
		}
	}()
	if maxDepth <= 0 {
		maxDepth = DefaultMaxUnwrapDepth
	}

	for depth := 0; ; depth++ {
		if !isAsync(v) {
			return v, nil
		}
		if depth >= maxDepth {
			return nil, &UnwrapDepthError{Depth: maxDepth}
		}

		switch t := v.(type) {
		case Future:
			v, err = t.Await(ctx)
		case Stream:
			v, err = firstOf(ctx, t)
		default:
			v, err = receiveFirst(ctx, reflect.ValueOf(v))
		}
		if err != nil {
			return nil, err
		}
	}
}

func isAsync(v any) bool {
	switch v.(type) {
	case nil:
		return false
	case Future, Stream:
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Chan && rv.Type().ChanDir()&reflect.RecvDir != 0
}

func firstOf(ctx context.Context, s Stream) (any, error) {
	if c, ok := s.(io.Closer); ok {
		defer c.Close()
	}
	v, ok, err := s.Next(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEmptyStream
	}
	return v, nil
}

func receiveFirst(ctx context.Context, ch reflect.Value) (any, error) {
	cases := []reflect.SelectCase{
		{Dir: reflect.SelectRecv, Chan: ch},
		{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())},
	}
	chosen, v, ok := reflect.Select(cases)
	if chosen == 1 {
		return nil, ctx.Err()
	}
	if !ok {
		return nil, ErrEmptyStream
	}
	return v.Interface(), nil
}
