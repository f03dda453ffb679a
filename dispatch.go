package ipcwire

import (
	"context"
	"reflect"
)

// Invoke calls a handler on a controller instance with positional arguments.
// The result may be a plain value, a Future, a Stream or a channel.
type Invoke func(receiver any, args []any) (any, error)

// Method is a controller handler. It is bound to the controller instance at
// bootstrap and routed with Metadata.OnInvoke or Metadata.OnSend.
//
// Example:
//
//	type UsersController struct{ users *UsersService }
//
//	func (c *UsersController) Get(req GetUser) (*User, error) {
//	    return c.users.Find(req.ID)
//	}
//
//	var GetUserMethod = ipcwire.NewMethod("Get", ipcwire.Bind1((*UsersController).Get))
type Method struct {
	name   string
	invoke Invoke
}

// NewMethod creates a method.
func NewMethod(name string, invoke Invoke) *Method {
	return &Method{name: name, invoke: invoke}
}

// Name returns the method name.
func (m *Method) Name() string {
	if m == nil {
		return "<nil>"
	}
	return m.name
}

func (m *Method) String() string { return m.Name() }

// Bind0 adapts a method expression without parameters.
func Bind0[C, R any](fn func(C) (R, error)) Invoke {
	return func(receiver any, _ []any) (any, error) {
		c, err := receiverAs[C](receiver)
		if err != nil {
			return nil, err
		}
		return fn(c)
	}
}

// Bind1 adapts a method expression with one parameter.
func Bind1[C, A, R any](fn func(C, A) (R, error)) Invoke {
	return func(receiver any, args []any) (any, error) {
		c, err := receiverAs[C](receiver)
		if err != nil {
			return nil, err
		}
		a, err := argAt[A](args, 0)
		if err != nil {
			return nil, err
		}
		return fn(c, a)
	}
}

// Bind2 adapts a method expression with two parameters.
func Bind2[C, A, B, R any](fn func(C, A, B) (R, error)) Invoke {
	return func(receiver any, args []any) (any, error) {
		c, err := receiverAs[C](receiver)
		if err != nil {
			return nil, err
		}
		a, err := argAt[A](args, 0)
		if err != nil {
			return nil, err
		}
		b, err := argAt[B](args, 1)
		if err != nil {
			return nil, err
		}
		return fn(c, a, b)
	}
}

// Bind3 adapts a method expression with three parameters.
func Bind3[C, A, B, D, R any](fn func(C, A, B, D) (R, error)) Invoke {
	return func(receiver any, args []any) (any, error) {
		c, err := receiverAs[C](receiver)
		if err != nil {
			return nil, err
		}
		a, err := argAt[A](args, 0)
		if err != nil {
			return nil, err
		}
		b, err := argAt[B](args, 1)
		if err != nil {
			return nil, err
		}
		d, err := argAt[D](args, 2)
		if err != nil {
			return nil, err
		}
		return fn(c, a, b, d)
	}
}

func receiverAs[C any](receiver any) (C, error) {
	c, ok := receiver.(C)
	if !ok {
		var zero C
		return zero, &TypeMismatchError{
			Expected: reflect.TypeOf((*C)(nil)).Elem().String(),
			Got:      typeName(receiver),
		}
	}
	return c, nil
}

// HandlerFunc is what the application registers on a transport for each
// route. The returned value is the reply for invoke channels and is ignored
// for send channels. It never panics.
type HandlerFunc func(ctx context.Context, event any, payload any) any

// Transport delivers inbound messages to registered handlers.
//
// Implement Transport to plug the application into an IPC system. The ipc
// package provides an in-process implementation.
type Transport interface {
	// Handle registers a reply-expected channel.
	Handle(channel string, h HandlerFunc) error

	// On registers a fire-and-forget channel.
	On(channel string, h HandlerFunc) error
}

// Remover is implemented by transports that can drop a registered channel.
// Bootstrap uses it to withdraw the channels it registered when a later
// registration fails.
type Remover interface {
	Remove(channel string)
}
