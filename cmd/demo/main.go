// Command demo serves a greeting controller whose dependencies are injected
// by the container.
//
//	APP_PORT=8000 go run ./cmd/demo
//	curl localhost:8000/hello/gopher
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/app"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/routing"
)

// GreetingService builds greetings. Prefix is injected from "greeting.prefix".
type GreetingService struct {
	Prefix string
}

func NewGreetingService() *GreetingService { return &GreetingService{} }

func (s *GreetingService) Greet(name string) string {
	return fmt.Sprintf("%s, %s!", s.Prefix, name)
}

// GreetingController receives the service through its constructor and the
// logger through its Show action.
type GreetingController struct {
	app.Controller
	greetings *GreetingService
}

func NewGreetingController(greetings *GreetingService) *GreetingController {
	return &GreetingController{greetings: greetings}
}

func (c *GreetingController) Show(w http.ResponseWriter, r *http.Request, logger *zap.Logger) map[string]any {
	name := routing.Param(r, "name")
	logger.Debug("greeting", zap.String("name", name))
	return map[string]any{"message": c.greetings.Greet(name)}
}

func (c *GreetingController) Index(w http.ResponseWriter, r *http.Request) {
	_ = c.Response(w).Success(map[string]any{"message": "Welcome to go-inject!"})
}

var (
	GreetingServiceClass    = container.MustClass(NewGreetingService)
	GreetingControllerClass = container.MustClass(NewGreetingController)
)

func init() {
	container.Injectable(GreetingServiceClass, container.InjectableOptions{Token: "greetings", Scope: container.Singleton})
	container.InjectProperty(GreetingServiceClass, "Prefix", "greeting.prefix")

	container.InjectParam(GreetingControllerClass, 0, "greetings")
	container.InjectMethodParam(GreetingControllerClass, "Show", 2, "logger")
}

// setup registers the demo's dependencies and routes.
func setup(application *app.Application) error {
	err := application.Bind(
		container.Entry{Token: "greeting.prefix", UseValue: "Hello"},
		GreetingServiceClass,
	)
	if err != nil {
		return err
	}

	router, err := application.Router()
	if err != nil {
		return err
	}
	router.Action(http.MethodGet, "/", GreetingControllerClass, "Index")
	router.Action(http.MethodGet, "/hello/{name}", GreetingControllerClass, "Show")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := application.Logger()
	defer func() { _ = logger.Sync() }()

	if err := setup(application); err != nil {
		logger.Fatal("setup failed", zap.Error(err))
	}
	if err := application.Run(ctx); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
