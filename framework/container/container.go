package container

import (
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/km-arc/go-inject/framework/config"
)

// ── Registration input ────────────────────────────────────────────────────────

// Entry is one registration passed to Register. Exactly one of UseClass,
// UseFactory and UseValue must be set.
//
//	c.Register(
//	    container.Entry{Token: "dsn", UseValue: "postgres://..."},
//	    container.Entry{Token: "db", UseFactory: openDB, Scope: container.Singleton},
//	    UserServiceClass, // shorthand for {Token: UserServiceClass, UseClass: UserServiceClass}
//	)
type Entry struct {
	Token Token
	Scope Scope

	// UseClass must be a *Class.
	UseClass any
	// UseFactory must be a function taking no arguments and returning T or
	// (T, error).
	UseFactory any
	// UseValue is returned verbatim. nil counts as absent.
	UseValue any

	Overwrite      bool
	IgnoreIfExists bool
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container resolves object graphs from registered dependencies and the
// injection points written by Declarations.
//
// It owns one Registry and one singleton cache. Both live until Reset.
// A Container is safe for concurrent use; concurrent first resolutions of a
// singleton share a single computation.
type Container struct {
	registry *Registry
	decl     *Declarations

	// token → resolved singleton instance
	mu         sync.RWMutex
	singletons map[Token]any
	generation uint64 // bumped by Reset
	flight     singleflight.Group

	defaultScope   Scope
	allowOverwrite bool
}

// Option configures a Container.
type Option func(*Container)

// WithDeclarations reads injection points from d instead of DefaultDeclarations.
func WithDeclarations(d *Declarations) Option {
	return func(c *Container) { c.decl = d }
}

// WithRegistry uses r as the token registry.
func WithRegistry(r *Registry) Option {
	return func(c *Container) { c.registry = r }
}

// WithDefaultScope sets the scope of entries registered without one.
func WithDefaultScope(s Scope) Option {
	return func(c *Container) { c.defaultScope = s }
}

// WithOverwrite makes every registration behave as if Entry.Overwrite were set.
func WithOverwrite(allow bool) Option {
	return func(c *Container) { c.allowOverwrite = allow }
}

// FromConfig translates the container section of the application config.
func FromConfig(cfg config.ContainerConfig) ([]Option, error) {
	scope, err := ParseScope(cfg.DefaultScope)
	if err != nil {
		return nil, err
	}
	return []Option{WithDefaultScope(scope), WithOverwrite(cfg.AllowOverwrite)}, nil
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		singletons:   make(map[Token]any),
		defaultScope: Request,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	if c.decl == nil {
		c.decl = DefaultDeclarations
	}
	return c
}

// Declarations returns the declarations this container reads.
func (c *Container) Declarations() *Declarations { return c.decl }

// ── Registration ──────────────────────────────────────────────────────────────

// Register validates and stores each entry in order. An entry is an Entry,
// a *Entry, or a bare *Class. The first failing entry aborts the call;
// entries registered before it stay registered.
func (c *Container) Register(entries ...any) error {
	for _, raw := range entries {
		entry := c.normalize(raw)

		dep, err := c.validate(entry)
		if err != nil {
			return err
		}

		written, err := c.registry.Register(dep, RegisterOptions{
			Overwrite:      entry.Overwrite || c.allowOverwrite,
			IgnoreIfExists: entry.IgnoreIfExists,
		})
		if err != nil {
			return err
		}
		if written {
			// Drop any cached singleton so it is rebuilt from the new record.
			c.dropSingleton(dep.Token)
		}
	}
	return nil
}

// Override registers entries replacing any existing record for their tokens.
func (c *Container) Override(entries ...any) error {
	for _, raw := range entries {
		entry := c.normalize(raw)
		entry.Overwrite = true
		if err := c.Register(entry); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) normalize(raw any) Entry {
	switch v := raw.(type) {
	case Entry:
		return v
	case *Entry:
		if v != nil {
			return *v
		}
		return Entry{}
	case *Class:
		if v != nil {
			if opts, ok := c.decl.InjectableOf(v); ok {
				return Entry{Token: opts.Token, Scope: opts.Scope, UseClass: v}
			}
		}
		return Entry{Token: v, UseClass: v}
	}
	return Entry{Token: raw, UseClass: raw}
}

func (c *Container) validate(e Entry) (Dependency, error) {
	if !IsValidToken(e.Token) {
		return Dependency{}, newError(CodeInvalidToken, nil,
			fmt.Sprintf("token must be a non-empty string or a class, got %s", TokenName(e.Token)))
	}

	var present int
	for _, v := range []any{e.UseClass, e.UseFactory, e.UseValue} {
		if v != nil {
			present++
		}
	}
	switch {
	case present == 0:
		return Dependency{}, newError(CodeCreationMethodMissing, e.Token,
			`you must provide a creation method for the dependency: "UseClass", "UseFactory" or "UseValue"`)
	case present > 1:
		return Dependency{}, newError(CodeCreationMultipleMethod, e.Token,
			`specify only one of the creation methods: "UseClass", "UseFactory" or "UseValue"`)
	}

	dep := Dependency{Token: e.Token, Scope: e.Scope, UseValue: e.UseValue}
	if dep.Scope == "" {
		dep.Scope = c.defaultScope
	}
	if dep.Scope != Request && dep.Scope != Singleton {
		return Dependency{}, newError(CodeInvalidScope, e.Token, fmt.Sprintf("unknown scope %q", dep.Scope))
	}

	if e.UseClass != nil {
		class, ok := e.UseClass.(*Class)
		if !ok || class == nil {
			return Dependency{}, newError(CodeCreationMethodUseClassInvalid, e.Token,
				fmt.Sprintf("UseClass must be a *container.Class, but a %T was received", e.UseClass))
		}
		dep.UseClass = class
	}
	if e.UseFactory != nil {
		f, err := adaptFactory(e.UseFactory)
		if err != nil {
			return Dependency{}, newError(CodeCreationMethodUseFactoryInvalid, e.Token, err.Error())
		}
		dep.UseFactory = f
	}
	return dep, nil
}

// adaptFactory accepts Factory, func() any, or any func() T / func() (T, error).
func adaptFactory(f any) (Factory, error) {
	switch fn := f.(type) {
	case Factory:
		if fn != nil {
			return fn, nil
		}
	case func() (any, error):
		if fn != nil {
			return fn, nil
		}
	case func() any:
		if fn != nil {
			return func() (any, error) { return fn(), nil }, nil
		}
	}

	v := reflect.ValueOf(f)
	t := v.Type()
	if t.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("UseFactory must be a function, but a %T was received", f)
	}
	if t.NumIn() != 0 {
		return nil, fmt.Errorf("UseFactory must take no arguments, %s takes %d", t, t.NumIn())
	}
	switch {
	case t.NumOut() == 1 && t.Out(0) != errorType:
		return func() (any, error) { return v.Call(nil)[0].Interface(), nil }, nil
	case t.NumOut() == 2 && t.Out(1) == errorType:
		return func() (any, error) {
			out := v.Call(nil)
			if err, _ := out[1].Interface().(error); err != nil {
				return nil, err
			}
			return out[0].Interface(), nil
		}, nil
	}
	return nil, fmt.Errorf("UseFactory %s must return T or (T, error)", t)
}

// ── Introspection ─────────────────────────────────────────────────────────────

// Has reports whether token is registered.
func (c *Container) Has(token Token) bool { return c.registry.Has(token) }

// Dependency returns a copy of the registration record for token.
func (c *Container) Dependency(token Token) (*Dependency, bool) { return c.registry.Get(token) }

// Tokens lists registered tokens in registration order.
func (c *Container) Tokens() []Token { return c.registry.Tokens() }

// Resolved reports whether a singleton value is cached for token.
func (c *Container) Resolved(token Token) bool {
	if !hashable(token) {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.singletons[token]
	return ok
}

// Forget removes the registration and any cached singleton for token.
func (c *Container) Forget(token Token) {
	c.registry.Remove(token)
	c.dropSingleton(token)
}

// Reset clears the registry and the singleton cache.
func (c *Container) Reset() {
	c.registry.Clear()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.singletons = make(map[Token]any)
	c.generation++
}

func (c *Container) cached(token Token) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.singletons[token]
	return v, ok
}

func (c *Container) currentGeneration() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// cache stores a singleton computed during generation gen. A value computed
// before the last Reset is dropped.
func (c *Container) cache(token Token, v any, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == gen {
		c.singletons[token] = v
	}
}

func (c *Container) dropSingleton(token Token) {
	if !hashable(token) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.singletons, token)
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve is a generic helper that calls (*Container).Resolve and
// type-asserts the result.
//
//	db, err := container.Resolve[*sql.DB](c, "db")
func Resolve[T any](c *Container, token Token) (T, error) {
	var zero T
	v, err := c.Resolve(token)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, newError(CodeInvalidInjectionTarget, token,
			fmt.Sprintf("Resolve[%T]: %q resolved to %T", zero, TokenName(token), v))
	}
	return typed, nil
}

// MustResolve is Resolve that panics on error.
func MustResolve[T any](c *Container, token Token) T {
	v, err := Resolve[T](c, token)
	if err != nil {
		panic(err)
	}
	return v
}
