package ipcwire

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bjaus/ipcwire/config"
	"github.com/bjaus/ipcwire/logging"
)

// Config lists what an application is built from.
type Config struct {
	// Providers are registered with the container before bootstrap.
	Providers []Provider

	// Controllers are built at bootstrap. They are not providers.
	Controllers []*Class

	// Metadata holds the registrations for all classes and methods above.
	// Nil means Default.
	Metadata *Metadata
}

// Option configures an Application.
type Option func(*Application)

// Application routes messages from a transport to controller methods.
//
// Usage:
//  1. Describe classes and methods in a Metadata store
//  2. Create the application with New
//  3. Register exception filters with UseGlobalFilters
//  4. Call Bootstrap with a transport
//
// After Bootstrap every message is run through guards, parameter roles, the
// handler and, on error, the exception filters. A dispatch never fails: the
// caller always receives either the handler's value, a filter's value or a
// Failure.
type Application struct {
	cfg            Config
	meta           *Metadata
	container      *Container
	logger         *zap.Logger
	validator      Validator
	maxUnwrapDepth int
	hooks          hooks
	optionErrs     []error

	filterMu sync.RWMutex
	filters  []filterEntry

	mu           sync.RWMutex
	routes       map[string]*route
	bootstrapped bool
}

// route is a bootstrapped handler.
type route struct {
	path       string
	mode       Mode
	controller *Class
	method     *Method
	instance   any
	guards     []boundGuard
	params     []Param
}

// RouteInfo describes a bootstrapped route.
type RouteInfo struct {
	Path       string
	Mode       Mode
	Controller string
	Method     string
}

// New creates an application and loads cfg.Providers into its container.
//
// The logger defaults to one built from the environment (APP_LOGGER=true
// keeps error logs only). Use WithLogger to override.
//
// Example:
//
//	app := ipcwire.New(ipcwire.Config{
//	    Providers:   []ipcwire.Provider{ipcwire.Provide(UsersService)},
//	    Controllers: []*ipcwire.Class{UsersController},
//	    Metadata:    meta,
//	},
//	    ipcwire.WithLogger(logger),
//	    ipcwire.WithOnFailure(func(ctx context.Context, path string, err error, d time.Duration) {
//	        errorsTotal.Inc()
//	    }),
//	)
func New(cfg Config, opts ...Option) *Application {
	meta := cfg.Metadata
	if meta == nil {
		meta = Default
	}

	a := &Application{
		cfg:            cfg,
		meta:           meta,
		container:      NewContainer(meta),
		maxUnwrapDepth: DefaultMaxUnwrapDepth,
		routes:         make(map[string]*route),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.Default()
	}
	if a.validator == nil {
		a.validator = NewStructValidator("")
	}
	for _, err := range a.optionErrs {
		a.logger.Warn("configuration not fully applied", zap.Error(err))
	}

	for _, p := range cfg.Providers {
		a.container.AddProvider(p)
		a.logger.Debug("provider loaded",
			zap.String("provider", p.Provided.Name()),
			zap.String("class", p.implementation().Name()),
		)
	}
	return a
}

// WithLogger sets the framework logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Application) {
		a.logger = l
	}
}

// WithValidator sets the validator used by PayloadAs.
func WithValidator(v Validator) Option {
	return func(a *Application) {
		a.validator = v
	}
}

// WithMaxUnwrapDepth bounds how many nested futures and streams are unwrapped
// from guard verdicts, parameter values, handler results and filter results.
func WithMaxUnwrapDepth(n int) Option {
	return func(a *Application) {
		if n > 0 {
			a.maxUnwrapDepth = n
		}
	}
}

// WithConfig applies a loaded configuration: logger, unwrap depth and
// validation tag. Options given after it take precedence. An invalid
// configuration is applied as far as it can be and reported as a warning
// once the logger is settled.
func WithConfig(cfg *config.Config) Option {
	return func(a *Application) {
		if cfg == nil {
			return
		}
		if err := cfg.Validate(); err != nil {
			a.optionErrs = append(a.optionErrs, err)
		}
		logger, err := logging.New(cfg.Log)
		if err != nil {
			a.optionErrs = append(a.optionErrs, fmt.Errorf("build logger: %w", err))
		} else {
			a.logger = logger
		}
		if cfg.Dispatch.MaxUnwrapDepth > 0 {
			a.maxUnwrapDepth = cfg.Dispatch.MaxUnwrapDepth
		}
		a.validator = NewStructValidator(cfg.Validation.TagName)
	}
}

// Container returns the application's dependency container.
func (a *Application) Container() *Container { return a.container }

// Metadata returns the metadata store the application reads.
func (a *Application) Metadata() *Metadata { return a.meta }

// Logger returns the framework logger.
func (a *Application) Logger() *zap.Logger { return a.logger }

// Bootstrap builds every controller, resolves its guards and registers one
// handler per routed method on t. A nil transport leaves the routes
// reachable through Dispatch only.
//
// Bootstrap fails on a dependency cycle, a controller without Controller
// metadata, a dependency that cannot be built, two routes sharing a path or a
// transport that refuses a channel. Routes are registered on t only after
// every route is built. When t refuses a channel, the channels already
// registered are withdrawn if t implements Remover and stay registered
// otherwise.
func (a *Application) Bootstrap(t Transport) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bootstrapped {
		return ErrAlreadyBootstrapped
	}
	if err := a.container.Validate(); err != nil {
		return err
	}

	routes := make(map[string]*route)
	var order []*route
	for _, cls := range a.cfg.Controllers {
		built, err := a.buildRoutes(cls)
		if err != nil {
			return err
		}
		for _, r := range built {
			if _, dup := routes[r.path]; dup {
				return &DuplicateRouteError{Path: r.path}
			}
			routes[r.path] = r
			order = append(order, r)
		}
	}

	if t != nil {
		for i, r := range order {
			if err := a.register(t, r); err != nil {
				a.withdraw(t, order[:i])
				return err
			}
		}
	}

	for _, r := range order {
		a.logger.Debug("route initialized",
			zap.String("channel", r.path),
			zap.String("mode", string(r.mode)),
			zap.String("controller", r.controller.Name()),
			zap.String("method", r.method.Name()),
		)
	}

	a.routes = routes
	a.bootstrapped = true
	return nil
}

func (a *Application) buildRoutes(cls *Class) ([]*route, error) {
	cm, ok := a.meta.controllerOf(cls)
	if !ok {
		return nil, &ControllerNotValidError{Controller: cls.Name()}
	}

	instance, err := a.container.instantiate(cls)
	if err != nil {
		return nil, err
	}

	var routes []*route
	for _, m := range cm.methods {
		handler, ok := a.meta.HandlerOf(m)
		if !ok {
			continue
		}
		if m == nil || m.invoke == nil {
			return nil, &TypeMismatchError{Expected: "ipcwire.Invoke", Got: "<nil>"}
		}
		guards, err := a.resolveGuards(cls, m)
		if err != nil {
			return nil, err
		}
		routes = append(routes, &route{
			path:       buildPath(cm.prefix, handler.Path),
			mode:       handler.Mode,
			controller: cls,
			method:     m,
			instance:   instance,
			guards:     guards,
			params:     a.meta.ParamsOf(m),
		})
	}
	return routes, nil
}

func (a *Application) register(t Transport, r *route) error {
	h := HandlerFunc(func(ctx context.Context, event, payload any) any {
		return a.handle(ctx, r, event, payload)
	})
	if r.mode == ModeSend {
		return t.On(r.path, h)
	}
	return t.Handle(r.path, h)
}

func (a *Application) withdraw(t Transport, registered []*route) {
	rm, ok := t.(Remover)
	if !ok {
		if len(registered) > 0 {
			a.logger.Warn("transport cannot remove channels; partial registration kept",
				zap.Int("routes", len(registered)),
			)
		}
		return
	}
	for _, r := range registered {
		rm.Remove(r.path)
	}
}

// Dispatch runs the pipeline for the route at path as if a message had
// arrived on it. The only error is RouteNotFoundError; every failure inside
// the pipeline is converted into the returned value.
func (a *Application) Dispatch(ctx context.Context, path string, event, payload any) (any, error) {
	a.mu.RLock()
	r, ok := a.routes[path]
	a.mu.RUnlock()
	if !ok {
		return nil, &RouteNotFoundError{Path: path}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return a.handle(ctx, r, event, payload), nil
}

// Routes lists the bootstrapped routes sorted by path.
func (a *Application) Routes() []RouteInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]RouteInfo, 0, len(a.routes))
	for _, r := range a.routes {
		out = append(out, RouteInfo{
			Path:       r.path,
			Mode:       r.mode,
			Controller: r.controller.Name(),
			Method:     r.method.Name(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// handle is the dispatch pipeline:
//  1. OnReceive hooks
//  2. Guards in order; the first non-true verdict answers a Failure carrying
//     ForbiddenAccessError without consulting filters
//  3. Parameter roles, resolved concurrently
//  4. The handler, with its result unwrapped
//
// An error at any step goes to the exception filters.
func (a *Application) handle(ctx context.Context, r *route, event, payload any) any {
	start := time.Now()
	ctx = a.callOnReceive(ctx, r.path, r.mode)
	ec := NewExecutionContext(ctx, r.controller, r.method, r.path, payload, event)

	denied, err := a.checkGuards(ctx, ec, r.guards)
	if err != nil {
		return a.fail(ctx, ec, err, start)
	}
	if denied != "" {
		a.logger.Debug("access denied", zap.String("channel", r.path), zap.String("guard", denied))
		a.callOnDenied(ctx, r.path, denied, time.Since(start))
		return NewFailure(&ForbiddenAccessError{Path: r.path, Guard: denied})
	}

	args, err := a.resolveParams(ctx, ec, r.params)
	if err != nil {
		return a.fail(ctx, ec, err, start)
	}

	res, err := a.invoke(ctx, r, args)
	if err != nil {
		return a.fail(ctx, ec, err, start)
	}

	a.callOnSuccess(ctx, r.path, time.Since(start))
	return res
}

func (a *Application) fail(ctx context.Context, ec *ExecutionContext, err error, start time.Time) any {
	res := a.useFilter(ctx, err, ec)
	a.callOnFailure(ctx, ec.Path(), err, time.Since(start))
	return res
}
