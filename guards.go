package ipcwire

import "context"

// Guard decides whether a dispatch may proceed. CanActivate may return a
// bool, a Future of a bool, or a Stream whose first value is the verdict.
// Anything other than true denies the dispatch.
//
// Returning an error (or panicking) is not a denial: the error goes through
// the exception filters like a handler error would.
type Guard interface {
	CanActivate(ec *ExecutionContext) (any, error)
}

// GuardFunc adapts a function to Guard.
type GuardFunc func(ec *ExecutionContext) (any, error)

// CanActivate implements Guard.
func (f GuardFunc) CanActivate(ec *ExecutionContext) (any, error) { return f(ec) }

// MatchGuard allows a dispatch only when the payload matches d.
func MatchGuard(d Discriminator) Guard {
	inspector := JSONInspector()
	return GuardFunc(func(ec *ExecutionContext) (any, error) {
		view, err := inspector.Inspect(ec.Payload())
		if err != nil {
			return false, nil
		}
		return d.Match(view), nil
	})
}

// boundGuard is a guard instance resolved at bootstrap.
type boundGuard struct {
	name  string
	guard Guard
}

// resolveGuards builds the effective guard list of a route: controller guards
// not repeated on the method, then the method's guards.
func (a *Application) resolveGuards(controller *Class, method *Method) ([]boundGuard, error) {
	classGuards := a.meta.GuardsOf(controller)
	methodGuards := a.meta.GuardsOf(method)

	classes := make([]*Class, 0, len(classGuards)+len(methodGuards))
	for _, g := range classGuards {
		if !containsClass(methodGuards, g) {
			classes = append(classes, g)
		}
	}
	classes = append(classes, methodGuards...)

	bound := make([]boundGuard, 0, len(classes))
	for _, cls := range classes {
		v, err := a.container.Resolve(cls)
		if err != nil {
			return nil, err
		}
		g, ok := v.(Guard)
		if !ok {
			return nil, &TypeMismatchError{Expected: "ipcwire.Guard", Got: typeName(v)}
		}
		bound = append(bound, boundGuard{name: cls.Name(), guard: g})
	}
	return bound, nil
}

// checkGuards runs guards in order. It returns the name of the first guard
// whose verdict is not true, or an error raised by a guard.
func (a *Application) checkGuards(ctx context.Context, ec *ExecutionContext, guards []boundGuard) (string, error) {
	for _, g := range guards {
		v, err := safeCall(func() (any, error) { return g.guard.CanActivate(ec) })
		if err != nil {
			return "", err
		}
		v, err = Unwrap(ctx, v, a.maxUnwrapDepth)
		if err != nil {
			return "", err
		}
		if allowed, _ := v.(bool); !allowed {
			return g.name, nil
		}
	}
	return "", nil
}
