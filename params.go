package ipcwire

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/bjaus/ipcwire/internal/jsoncodec"
)

// Param is the role of one handler parameter, declared with Metadata.Params.
// Roles are resolved concurrently for every dispatch and passed to the
// handler in declaration order.
type Param interface {
	resolve(ctx context.Context, ec *ExecutionContext, a *Application) (any, error)
}

type paramFunc func(ctx context.Context, ec *ExecutionContext, a *Application) (any, error)

func (f paramFunc) resolve(ctx context.Context, ec *ExecutionContext, a *Application) (any, error) {
	return f(ctx, ec, a)
}

// Ctx binds the *ExecutionContext.
func Ctx() Param {
	return paramFunc(func(_ context.Context, ec *ExecutionContext, _ *Application) (any, error) {
		return ec, nil
	})
}

// Event binds the raw transport event.
func Event() Param {
	return paramFunc(func(_ context.Context, ec *ExecutionContext, _ *Application) (any, error) {
		return ec.Event(), nil
	})
}

// Payload binds the payload as received.
func Payload() Param {
	return paramFunc(func(_ context.Context, ec *ExecutionContext, _ *Application) (any, error) {
		return ec.Payload(), nil
	})
}

// PayloadAs binds the payload transformed into T and checked by the
// application's Validator. The first invalid field fails the dispatch with a
// DataValidationError.
//
//	type CreateUser struct {
//	    Name  string `json:"name" validate:"required"`
//	    Email string `json:"email" validate:"required,email"`
//	}
//
//	meta.Params(CreateMethod, ipcwire.PayloadAs[CreateUser]())
func PayloadAs[T any]() Param {
	return paramFunc(func(_ context.Context, ec *ExecutionContext, a *Application) (any, error) {
		var out T
		switch p := ec.Payload().(type) {
		case nil:
		case T:
			out = p
		case *T:
			if p != nil {
				out = *p
			}
		default:
			if err := jsoncodec.Convert(p, &out); err != nil {
				return nil, &DataValidationError{
					Field:       "payload",
					Value:       p,
					Constraints: map[string]string{"decode": err.Error()},
				}
			}
		}

		failures, err := a.validator.Validate(&out)
		if err != nil {
			return nil, err
		}
		if len(failures) > 0 {
			first := failures[0]
			return nil, &DataValidationError{
				Field:       first.Field,
				Value:       first.Value,
				Constraints: first.Constraints,
			}
		}
		return out, nil
	})
}

// Custom binds the value fn derives from the execution context. fn may return
// a Future or a Stream.
func Custom(fn func(ec *ExecutionContext) (any, error)) Param {
	return paramFunc(func(ctx context.Context, ec *ExecutionContext, a *Application) (any, error) {
		v, err := fn(ec)
		if err != nil {
			return nil, err
		}
		return Unwrap(ctx, v, a.maxUnwrapDepth)
	})
}

// Field binds the value at a gjson path of the payload, or nil when the path
// does not exist.
func Field(path string) Param {
	inspector := JSONInspector()
	return paramFunc(func(_ context.Context, ec *ExecutionContext, _ *Application) (any, error) {
		view, err := inspector.Inspect(ec.Payload())
		if err != nil {
			return nil, err
		}
		v, _ := view.Get(path)
		return v, nil
	})
}

// resolveParams resolves all roles concurrently and returns them by position.
// A nil role leaves its slot nil. The first error cancels the batch.
func (a *Application) resolveParams(ctx context.Context, ec *ExecutionContext, roles []Param) ([]any, error) {
	args := make([]any, len(roles))
	if len(roles) == 0 {
		return args, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, role := range roles {
		if role == nil {
			continue
		}
		i, role := i, role
		g.Go(func() error {
			v, err := safeCall(func() (any, error) { return role.resolve(gctx, ec, a) })
			if err != nil {
				return err
			}
			args[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return args, nil
}
