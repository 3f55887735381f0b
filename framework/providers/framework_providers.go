package providers

import (
	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/logging"
	"github.com/km-arc/go-inject/framework/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider registers the application configuration.
//
// Registered tokens:
//   - "config"         → *config.Config (singleton)
//   - "configuration"  → alias of "config"
//
// Config is used as-is when set; otherwise EnvFiles are loaded.
type ConfigServiceProvider struct {
	container.BaseProvider
	Config   *config.Config
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *container.Container) error {
	cfg := p.Config
	if cfg == nil {
		cfg = config.Load(p.EnvFiles...)
	}
	return app.Register(
		container.Entry{Token: "config", Scope: container.Singleton, UseValue: cfg},
		container.Entry{Token: "configuration", Scope: container.Request, UseFactory: func() (any, error) {
			return app.Resolve("config")
		}},
	)
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider registers the structured logger.
//
// Registered tokens:
//   - "logger"  → *zap.Logger (singleton)
//
// Logger is used as-is when set; otherwise it is built from the "log"
// section of "config".
type LoggingServiceProvider struct {
	container.BaseProvider
	Logger *zap.Logger
}

func (p *LoggingServiceProvider) Register(app *container.Container) error {
	return app.Register(container.Entry{
		Token: "logger",
		Scope: container.Singleton,
		UseFactory: func() (*zap.Logger, error) {
			if p.Logger != nil {
				return p.Logger, nil
			}
			cfg, err := container.Resolve[*config.Config](app, "config")
			if err != nil {
				return nil, err
			}
			return logging.New(cfg.Log)
		},
	})
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router.
//
// Registered tokens:
//   - "router"  → *routing.Router (singleton)
//
// The router resolves controllers from the same container and logs through
// "logger" when it is registered.
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(app *container.Container) error {
	return app.Register(container.Entry{
		Token: "router",
		Scope: container.Singleton,
		UseFactory: func() (*routing.Router, error) {
			logger := logging.Nop()
			if app.Has("logger") {
				l, err := container.Resolve[*zap.Logger](app, "logger")
				if err != nil {
					return nil, err
				}
				logger = l
			}
			return routing.New(app, logger), nil
		},
	})
}
