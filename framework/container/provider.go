package container

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related registrations.
//
// Every provider must implement at minimum Register().
// Boot() is called after ALL providers have been registered, making it safe
// to resolve other tokens inside Boot().
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) error {
//	    return app.Register(container.Entry{
//	        Token:      "mailer",
//	        Scope:      container.Singleton,
//	        UseFactory: func() (*mail.SMTP, error) { return mail.Dial(...) },
//	    })
//	}
type ServiceProvider interface {
	// Register adds entries to the container.
	// Do NOT resolve other tokens here; use Boot() for that.
	Register(app *Container) error

	// Boot is called after all providers are registered.
	Boot(app *Container) error

	// Provides returns the tokens this provider registers.
	// Used for deferred (lazy) provider loading.
	Provides() []Token

	// IsDeferred returns true if this provider should be loaded lazily,
	// only when one of its Provides() tokens is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct that provides no-op implementations
// of Boot(), Provides(), and IsDeferred().
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []Token       { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// deferred tracks one lazily loaded provider; all its tokens share the entry.
type deferred struct {
	provider ServiceProvider
	once     sync.Once
	err      error
}

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred (lazy) providers.
type ProviderRegistry struct {
	app    *Container
	logger *zap.Logger

	mu         sync.Mutex
	eager      []ServiceProvider
	deferred   map[Token]*deferred
	booted     bool
	registered map[ServiceProvider]bool
}

// ProviderOption configures a ProviderRegistry.
type ProviderOption func(*ProviderRegistry)

// WithProviderLogger logs provider registration and boot.
func WithProviderLogger(logger *zap.Logger) ProviderOption {
	return func(r *ProviderRegistry) { r.logger = logger }
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container, opts ...ProviderOption) *ProviderRegistry {
	r := &ProviderRegistry{
		app:        app,
		logger:     zap.NewNop(),
		deferred:   make(map[Token]*deferred),
		registered: make(map[ServiceProvider]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a provider and calls its Register() method (unless deferred).
// Registering the same provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true
	booted := r.booted
	r.mu.Unlock()

	name := fmt.Sprintf("%T", provider)
	if provider.IsDeferred() {
		r.logger.Debug("deferring provider", zap.String("provider", name), zap.Int("tokens", len(provider.Provides())))
		return r.interceptDeferred(provider)
	}

	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	r.logger.Debug("provider registered", zap.String("provider", name))

	r.mu.Lock()
	r.eager = append(r.eager, provider)
	r.mu.Unlock()

	// If already booted, boot this provider immediately
	if booted {
		return r.boot(provider)
	}
	return nil
}

// interceptDeferred registers a placeholder factory for each deferred token.
// The first resolution of any of them triggers the real registration.
func (r *ProviderRegistry) interceptDeferred(provider ServiceProvider) error {
	d := &deferred{provider: provider}
	for _, tok := range provider.Provides() {
		if err := r.app.Register(r.placeholder(d, tok)); err != nil {
			return fmt.Errorf("defer %T: %w", provider, err)
		}
		r.mu.Lock()
		r.deferred[tok] = d
		r.mu.Unlock()
	}
	return nil
}

// placeholder stands in for tok until d is loaded. Request scope keeps it out
// of the singleton cache and its flight group, which load re-enters.
func (r *ProviderRegistry) placeholder(d *deferred, tok Token) Entry {
	return Entry{
		Token:      tok,
		Scope:      Request,
		UseFactory: Factory(func() (any, error) { return r.load(d, tok) }),
	}
}

func (r *ProviderRegistry) load(d *deferred, token Token) (any, error) {
	d.once.Do(func() {
		r.mu.Lock()
		for _, t := range d.provider.Provides() {
			delete(r.deferred, t)
			r.app.Forget(t)
		}
		booted := r.booted
		r.mu.Unlock()

		name := fmt.Sprintf("%T", d.provider)
		if err := d.provider.Register(r.app); err != nil {
			d.err = fmt.Errorf("register %s: %w", name, err)
			// Put the placeholders back so every later resolution reports d.err.
			for _, t := range d.provider.Provides() {
				e := r.placeholder(d, t)
				e.Overwrite = true
				if rerr := r.app.Register(e); rerr != nil {
					r.logger.Error("restore deferred placeholder", zap.String("token", TokenName(t)), zap.Error(rerr))
				}
			}
			r.logger.Error("deferred provider failed", zap.String("provider", name), zap.Error(err))
			return
		}
		r.logger.Debug("deferred provider loaded", zap.String("provider", name), zap.String("token", TokenName(token)))
		if booted {
			d.err = r.boot(d.provider)
		}
	})
	if d.err != nil {
		return nil, d.err
	}
	return r.app.Resolve(token)
}

// Boot calls Boot() on all eager providers. Later calls are no-ops.
func (r *ProviderRegistry) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	providers := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range providers {
		if err := r.boot(provider); err != nil {
			return err
		}
	}
	r.logger.Info("providers booted", zap.Int("providers", len(providers)))
	return nil
}

func (r *ProviderRegistry) boot(provider ServiceProvider) error {
	if err := provider.Boot(r.app); err != nil {
		return fmt.Errorf("boot %T: %w", provider, err)
	}
	return nil
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}

// Deferred lists the tokens still waiting on a deferred provider.
func (r *ProviderRegistry) Deferred() []Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Token, 0, len(r.deferred))
	for t := range r.deferred {
		out = append(out, t)
	}
	return out
}
