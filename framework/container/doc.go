// Package container provides a dependency-injection runtime for Go.
//
// # Overview
//
// Callers register producers of values under tokens, then ask the container
// to build object graphs. Constructor parameters, struct fields and method
// parameters are filled automatically from the registry, following injection
// points declared ahead of time.
//
// A token is either a non-empty string or a *Class. A Class wraps a
// constructor function; the container calls it with resolved arguments.
//
// # Container Lifecycle
//
//  1. Declare classes and their injection points (usually in init())
//  2. Create: c := container.New()
//  3. Register: c.Register(entries...) or registry.Register(&MyProvider{})
//  4. Resolve / Invoke
//  5. Reset when the registry and singleton cache should be discarded
//
// # Declarations
//
//	var UserServiceClass = container.MustClass(NewUserService)
//
//	func init() {
//	    // constructor parameter 1 ← "db"; parameter 0 is left zero
//	    container.InjectParam(UserServiceClass, 1, "db")
//	    // exported field Logger ← "logger"
//	    container.InjectProperty(UserServiceClass, "Logger", "logger")
//	    // parameter 2 of (*UserService).Handle ← "clock"
//	    container.InjectMethodParam(UserServiceClass, "Handle", 2, "clock")
//	}
//
// # Registration
//
//	err := c.Register(
//	    // Pre-built value
//	    container.Entry{Token: "dsn", UseValue: "postgres://localhost/app"},
//
//	    // Factory, built once and cached
//	    container.Entry{Token: "db", Scope: container.Singleton, UseFactory: openDB},
//
//	    // Class, new instance per resolution
//	    container.Entry{Token: "users", UseClass: UserServiceClass},
//
//	    // Bare class: token and class are the same
//	    UserServiceClass,
//	)
//
// Exactly one of UseClass, UseFactory and UseValue must be set. Registering a
// token twice fails with ErrTokenAlreadyRegistered unless Overwrite or
// IgnoreIfExists is set on the entry.
//
// # Resolving
//
//	// Untyped
//	raw, err := c.Resolve("users")
//
//	// Generic
//	users, err := container.Resolve[*UserService](c, UserServiceClass)
//
//	// Method call with explicit leading arguments
//	out, err := c.Invoke(users, "Handle", w, r)
//
// Cyclic graphs fail with ErrCyclicDependency. Every failure is an
// *InjectionError; test its kind with errors.Is against the Err* sentinels.
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) error {
//	    return app.Register(container.Entry{Token: "mailer", UseFactory: newMailer})
//	}
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&AppServiceProvider{})
//	registry.Boot()
//
// # Deferred Providers
//
//	type HeavyProvider struct{ container.BaseProvider }
//
//	func (p *HeavyProvider) IsDeferred() bool         { return true }
//	func (p *HeavyProvider) Provides() []container.Token { return []container.Token{"heavy"} }
package container
