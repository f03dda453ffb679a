// Package ipcwire routes inter-process messages to controller methods through
// a declarative pipeline of dependency injection, guards, parameter binding
// with validation, and centralized error translation.
//
// # Quick Start
//
// Describe services, controllers and handler methods in a Metadata store:
//
//	meta := ipcwire.NewMetadata()
//
//	UsersService := ipcwire.NewClass("UsersService", ipcwire.Ctor0(NewUsersService))
//	UsersController := ipcwire.NewClass("UsersController",
//	    ipcwire.Ctor1(func(s *UsersService) *UsersController { return &UsersController{users: s} }),
//	    UsersService,
//	)
//	GetUser := ipcwire.NewMethod("Get", ipcwire.Bind1((*UsersController).Get))
//
//	meta.Injectable(UsersService)
//	meta.Controller(UsersController, "users", GetUser)
//	meta.OnInvoke(GetUser, "get")
//	meta.Params(GetUser, ipcwire.PayloadAs[GetUserRequest]())
//
// Build the application and attach it to a transport:
//
//	app := ipcwire.New(ipcwire.Config{
//	    Providers:   []ipcwire.Provider{ipcwire.Provide(UsersService)},
//	    Controllers: []*ipcwire.Class{UsersController},
//	    Metadata:    meta,
//	})
//	if err := app.Bootstrap(ipc.New()); err != nil {
//	    log.Fatal(err)
//	}
//
// The channel "users:get" now answers with the result of UsersController.Get.
//
// # Classes and the Container
//
// A *Class is both the token used to ask for an instance and the recipe for
// building one: a Factory plus the ordered list of classes it depends on.
// The Container resolves a class by resolving its dependencies first, then
// calling the factory. Classes marked Singleton are built once per
// container; Transient classes are built on every resolution.
//
// Controllers are not providers. They are built once at bootstrap from their
// dependencies and never cached in the container.
//
// ReflectorClass is always resolvable. Guards depend on it to read metadata
// attached with Metadata.Set.
//
// # Dispatch Pipeline
//
// Every message that reaches a route runs through:
//
//  1. Guards, in order. Only a verdict of true lets the dispatch continue.
//     The first other verdict ends it with a Failure carrying a
//     ForbiddenAccessError. Exception filters are not consulted.
//  2. Parameter roles, resolved concurrently and passed by position.
//  3. The handler. Its result is unwrapped until it is a plain value.
//
// An error from any step goes to the first registered exception filter whose
// ErrorKind matches it. When none matches, the caller receives a Failure with
// the error. A dispatch never returns an error to the transport.
//
// # Async Values
//
// Guards, parameter roles, handlers and exception filters may return a
// Future, a Stream or a receive channel instead of a plain value. The
// pipeline awaits futures and takes the first value of streams and channels,
// repeating until a plain value remains or WithMaxUnwrapDepth is reached.
//
// # Payload Inspection
//
// Field and MatchGuard read the payload through an Inspector. The JSON
// inspector uses gjson paths ("user.id", "items.0.sku", "tags.#"):
//
//	meta.Params(Search, ipcwire.Field("query.text"), ipcwire.Field("query.limit"))
//
//	ipcwire.MatchGuard(ipcwire.And(
//	    ipcwire.HasFields("kind"),
//	    ipcwire.FieldIn("kind", "order", "refund"),
//	))
//
// # Hooks
//
// Hooks observe dispatches without changing them:
//
//	app := ipcwire.New(cfg,
//	    ipcwire.WithOnReceive(func(ctx context.Context, path string, mode ipcwire.Mode) context.Context {
//	        return ctx
//	    }),
//	    ipcwire.WithOnFailure(func(ctx context.Context, path string, err error, d time.Duration) {
//	        logger.Warn("dispatch failed", zap.String("channel", path), zap.Error(err))
//	    }),
//	)
//
// The metrics and tracing packages provide ready-made hook sets.
package ipcwire
