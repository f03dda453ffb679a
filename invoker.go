package ipcwire

import "context"

// invoke calls the route's method on its controller instance and unwraps the
// result.
func (a *Application) invoke(ctx context.Context, r *route, args []any) (any, error) {
	v, err := safeCall(func() (any, error) { return r.method.invoke(r.instance, args) })
	if err != nil {
		return nil, err
	}
	return Unwrap(ctx, v, a.maxUnwrapDepth)
}

// safeCall runs fn, turning a panic into a PanicError.
func safeCall(fn func() (any, error)) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			v, err = nil, &PanicError{Value: p}
		}
	}()
	return fn()
}
