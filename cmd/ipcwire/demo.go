package main

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/bjaus/ipcwire"
	"github.com/bjaus/ipcwire/ipc"
)

var errUserNotFound = errors.New("user not found")

const rolesKey = "roles"

type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type GetUser struct {
	ID int `json:"id" validate:"required,gt=0"`
}

type CreateUser struct {
	Name string `json:"name" validate:"required,min=2"`
}

// UsersService is an in-memory user store.
type UsersService struct {
	mu     sync.RWMutex
	users  map[int]User
	nextID int
}

func NewUsersService() *UsersService {
	return &UsersService{
		users:  map[int]User{1: {ID: 1, Name: "ada"}},
		nextID: 2,
	}
}

func (s *UsersService) Find(id int) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: %d", errUserNotFound, id)
	}
	return u, nil
}

func (s *UsersService) List() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *UsersService) Create(name string) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := User{ID: s.nextID, Name: name}
	s.users[u.ID] = u
	s.nextID++
	return u
}

func (s *UsersService) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("%w: %d", errUserNotFound, id)
	}
	delete(s.users, id)
	return nil
}

// UsersController serves the users:* channels.
type UsersController struct {
	users  *UsersService
	logger *zap.Logger
}

func (c *UsersController) Get(req GetUser) (User, error) {
	return c.users.Find(req.ID)
}

func (c *UsersController) List() (ipcwire.Future, error) {
	return ipcwire.Async(func() (any, error) { return c.users.List(), nil }), nil
}

func (c *UsersController) Create(req CreateUser) (User, error) {
	return c.users.Create(req.Name), nil
}

func (c *UsersController) Delete(req GetUser) (map[string]bool, error) {
	if err := c.users.Delete(req.ID); err != nil {
		return nil, err
	}
	return map[string]bool{"deleted": true}, nil
}

func (c *UsersController) Audit(entry any, ec *ipcwire.ExecutionContext) (any, error) {
	c.logger.Info("audit", zap.String("channel", ec.Path()), zap.Any("entry", entry))
	return nil, nil
}

// roleGuard allows a dispatch when the sender holds one of the roles set on
// the method or its controller.
func roleGuard(r *ipcwire.Reflector) ipcwire.Guard {
	return ipcwire.GuardFunc(func(ec *ipcwire.ExecutionContext) (any, error) {
		roles, ok := ipcwire.ReflectValue[[]string](r, rolesKey, ec.Class(), ec.Method())
		if !ok {
			return true, nil
		}
		sender := senderOf(ec.Event())
		for _, role := range roles {
			if role == sender {
				return true, nil
			}
		}
		return false, nil
	})
}

func notFoundFilter() ipcwire.ExceptionFilter {
	return ipcwire.ExceptionFilterFunc(func(err error, ec *ipcwire.ExecutionContext) (any, error) {
		return map[string]any{
			"success": false,
			"status":  404,
			"channel": ec.Path(),
			"message": err.Error(),
		}, nil
	})
}

// demo is the wired demo application.
type demo struct {
	app     *ipcwire.Application
	filters []*ipcwire.Class
}

func newDemo(logger *zap.Logger, opts ...ipcwire.Option) *demo {
	meta := ipcwire.NewMetadata()

	usersService := ipcwire.NewClass("UsersService", ipcwire.Ctor0(NewUsersService))
	loggerClass := ipcwire.NewClass("Logger", ipcwire.Ctor0(func() *zap.Logger { return logger.Named("users") }))
	guard := ipcwire.NewClass("RoleGuard", ipcwire.Ctor1(roleGuard), ipcwire.ReflectorClass)
	filter := ipcwire.NewClass("NotFoundFilter", ipcwire.Ctor0(notFoundFilter))
	controller := ipcwire.NewClass("UsersController",
		ipcwire.Ctor2(func(s *UsersService, l *zap.Logger) *UsersController {
			return &UsersController{users: s, logger: l}
		}),
		usersService, loggerClass,
	)

	get := ipcwire.NewMethod("Get", ipcwire.Bind1((*UsersController).Get))
	list := ipcwire.NewMethod("List", ipcwire.Bind0((*UsersController).List))
	create := ipcwire.NewMethod("Create", ipcwire.Bind1((*UsersController).Create))
	del := ipcwire.NewMethod("Delete", ipcwire.Bind1((*UsersController).Delete))
	audit := ipcwire.NewMethod("Audit", ipcwire.Bind2((*UsersController).Audit))

	meta.Injectable(usersService)
	meta.Injectable(loggerClass)
	meta.Injectable(guard)
	meta.Injectable(filter)
	meta.Catch(filter, ipcwire.KindIs(errUserNotFound))

	meta.Controller(controller, "users", get, list, create, del, audit)
	meta.UseGuards(controller, guard)
	meta.OnInvoke(get, "get")
	meta.OnInvoke(list, "list")
	meta.OnInvoke(create, "create")
	meta.OnInvoke(del, "delete")
	meta.OnSend(audit, "audit")
	meta.Params(get, ipcwire.PayloadAs[GetUser]())
	meta.Params(create, ipcwire.PayloadAs[CreateUser]())
	meta.Params(del, ipcwire.PayloadAs[GetUser]())
	meta.Params(audit, ipcwire.Payload(), ipcwire.Ctx())
	meta.Set(rolesKey, []string{"admin"}, del)

	app := ipcwire.New(ipcwire.Config{
		Providers: []ipcwire.Provider{
			ipcwire.Provide(usersService),
			ipcwire.Provide(loggerClass),
			ipcwire.Provide(guard),
		},
		Controllers: []*ipcwire.Class{controller},
		Metadata:    meta,
	}, append([]ipcwire.Option{ipcwire.WithLogger(logger)}, opts...)...)

	return &demo{app: app, filters: []*ipcwire.Class{filter}}
}

func (d *demo) start(t ipcwire.Transport) error {
	if err := d.app.UseGlobalFilters(d.filters...); err != nil {
		return err
	}
	return d.app.Bootstrap(t)
}

func senderOf(event any) string {
	if ev, ok := event.(ipc.Event); ok {
		return ev.Sender
	}
	return ""
}
