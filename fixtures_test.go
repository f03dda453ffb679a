package ipcwire

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type usersService struct {
	users map[int]user
}

func newUsersService() *usersService {
	return &usersService{users: map[int]user{
		1: {ID: 1, Name: "ada"},
		2: {ID: 2, Name: "grace"},
	}}
}

var errUserNotFound = errors.New("user not found")

func (s *usersService) Find(id int) (user, error) {
	u, ok := s.users[id]
	if !ok {
		return user{}, fmt.Errorf("%w: %d", errUserNotFound, id)
	}
	return u, nil
}

type getUserRequest struct {
	ID int `json:"id" validate:"required"`
}

type usersController struct {
	users *usersService
}

func (c *usersController) Get(req getUserRequest) (user, error) {
	return c.users.Find(req.ID)
}

func (c *usersController) GetAsync(req getUserRequest) (Future, error) {
	return Async(func() (any, error) { return c.users.Find(req.ID) }), nil
}

func (c *usersController) Panic() (any, error) {
	panic("handler exploded")
}

func (c *usersController) Untracked() (any, error) { return nil, nil }

// usersFixture wires the users controller into a fresh metadata store.
type usersFixture struct {
	meta       *Metadata
	service    *Class
	controller *Class

	get       *Method
	getAsync  *Method
	panics    *Method
	untracked *Method
}

func newUsersFixture() *usersFixture {
	f := &usersFixture{meta: NewMetadata()}

	f.service = NewClass("UsersService", Ctor0(newUsersService))
	f.controller = NewClass("UsersController",
		Ctor1(func(s *usersService) *usersController { return &usersController{users: s} }),
		f.service,
	)
	f.get = NewMethod("Get", Bind1((*usersController).Get))
	f.getAsync = NewMethod("GetAsync", Bind1((*usersController).GetAsync))
	f.panics = NewMethod("Panic", Bind0((*usersController).Panic))
	f.untracked = NewMethod("Untracked", Bind0((*usersController).Untracked))

	f.meta.Injectable(f.service)
	f.meta.Controller(f.controller, "users", f.get, f.getAsync, f.panics, f.untracked)
	f.meta.OnInvoke(f.get, "get")
	f.meta.OnInvoke(f.getAsync, "get-async")
	f.meta.OnSend(f.panics, "panic")
	f.meta.Params(f.get, PayloadAs[getUserRequest]())
	f.meta.Params(f.getAsync, PayloadAs[getUserRequest]())
	return f
}

func (f *usersFixture) config() Config {
	return Config{
		Providers:   []Provider{Provide(f.service)},
		Controllers: []*Class{f.controller},
		Metadata:    f.meta,
	}
}

// guardClass registers an injectable guard class returning verdict.
func guardClass(meta *Metadata, name string, calls *atomic.Int32, verdict func(ec *ExecutionContext) (any, error)) *Class {
	cls := NewClass(name, Ctor0(func() Guard {
		return GuardFunc(func(ec *ExecutionContext) (any, error) {
			if calls != nil {
				calls.Add(1)
			}
			return verdict(ec)
		})
	}))
	meta.Injectable(cls)
	return cls
}

// filterClass registers an exception filter class for kinds.
func filterClass(meta *Metadata, name string, catch func(err error, ec *ExecutionContext) (any, error), kinds ...ErrorKind) *Class {
	cls := NewClass(name, Ctor0(func() ExceptionFilter { return ExceptionFilterFunc(catch) }))
	meta.Injectable(cls)
	meta.Catch(cls, kinds...)
	return cls
}

// recordingTransport remembers the channels registered on it. err fails
// every registration; failOn fails only that channel.
type recordingTransport struct {
	invoke  map[string]HandlerFunc
	send    map[string]HandlerFunc
	err     error
	failOn  string
	removed []string
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{invoke: map[string]HandlerFunc{}, send: map[string]HandlerFunc{}}
}

func (t *recordingTransport) refuse(channel string) error {
	if t.failOn != "" && channel == t.failOn {
		return fmt.Errorf("channel %s refused", channel)
	}
	return t.err
}

func (t *recordingTransport) Handle(channel string, h HandlerFunc) error {
	if err := t.refuse(channel); err != nil {
		return err
	}
	t.invoke[channel] = h
	return nil
}

func (t *recordingTransport) On(channel string, h HandlerFunc) error {
	if err := t.refuse(channel); err != nil {
		return err
	}
	t.send[channel] = h
	return nil
}

func (t *recordingTransport) Remove(channel string) {
	t.removed = append(t.removed, channel)
	delete(t.invoke, channel)
	delete(t.send, channel)
}

// appendOnlyTransport cannot withdraw channels.
type appendOnlyTransport struct {
	inner *recordingTransport
}

func (t appendOnlyTransport) Handle(channel string, h HandlerFunc) error {
	return t.inner.Handle(channel, h)
}

func (t appendOnlyTransport) On(channel string, h HandlerFunc) error {
	return t.inner.On(channel, h)
}

type typeError struct{ msg string }

func (e *typeError) Error() string { return e.msg }

type rangeError struct{ msg string }

func (e *rangeError) Error() string { return e.msg }

func testLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}
