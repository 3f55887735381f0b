package routing

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/container"
	gohttp "github.com/km-arc/go-inject/framework/http"
)

// Invoker resolves controllers and calls their actions.
// *container.Container satisfies it.
type Invoker interface {
	Resolve(token container.Token) (any, error)
	Invoke(instance any, method string, args ...any) (any, error)
}

// Router wraps chi.Router with helpers for container-resolved controllers.
type Router struct {
	mux    chi.Router
	app    Invoker
	logger *zap.Logger
}

// New creates a Router with RequestID, RealIP, request logging and Recoverer.
// A nil logger disables request logging.
func New(app Invoker, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	return &Router{mux: r, app: app, logger: logger}
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

func (r *Router) Get(pattern string, h http.HandlerFunc)    { r.mux.Get(pattern, h) }
func (r *Router) Post(pattern string, h http.HandlerFunc)   { r.mux.Post(pattern, h) }
func (r *Router) Put(pattern string, h http.HandlerFunc)    { r.mux.Put(pattern, h) }
func (r *Router) Patch(pattern string, h http.HandlerFunc)  { r.mux.Patch(pattern, h) }
func (r *Router) Delete(pattern string, h http.HandlerFunc) { r.mux.Delete(pattern, h) }

// Any registers a handler for all common HTTP methods.
func (r *Router) Any(pattern string, h http.HandlerFunc) {
	for _, m := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"} {
		r.mux.Method(m, pattern, h)
	}
}

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group sharing the parent's prefix.
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(r.sub(mx))
	})
}

// Prefix creates a sub-router mounted under pattern.
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	r.mux.Route(pattern, func(mx chi.Router) {
		fn(r.sub(mx))
	})
}

func (r *Router) sub(mx chi.Router) *Router {
	return &Router{mux: mx, app: r.app, logger: r.logger}
}

// ── Middleware ───────────────────────────────────────────────────────────────

// Middleware adds one or more middleware to the router.
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// ── Controller actions ───────────────────────────────────────────────────────

// Action routes method+pattern to a controller method. On every request the
// controller is resolved from the container and the method is invoked with
// (w, r) as its first two arguments; parameters with declared tokens are
// injected.
//
//	container.InjectMethodParam(UserControllerClass, "Show", 2, "users")
//	router.Action(http.MethodGet, "/users/{id}", UserControllerClass, "Show")
//
// A non-nil result is written as 200 JSON, an error as 500 JSON. Methods that
// write the response themselves should return nothing.
func (r *Router) Action(method, pattern string, controller container.Token, action string) {
	r.mux.Method(method, pattern, r.action(controller, action))
}

func (r *Router) action(controller container.Token, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		res := gohttp.NewResponse(w)

		ctrl, err := r.app.Resolve(controller)
		if err != nil {
			r.fail(res, req, action, err)
			return
		}
		out, err := r.app.Invoke(ctrl, action, w, req)
		if err != nil {
			r.fail(res, req, action, err)
			return
		}
		if out != nil {
			_ = res.JSON(http.StatusOK, out)
		}
	}
}

func (r *Router) fail(res *gohttp.Response, req *http.Request, action string, err error) {
	r.logger.Error("controller action failed",
		zap.String("action", action),
		zap.String("request_id", middleware.GetReqID(req.Context())),
		zap.Error(err),
	)
	_ = res.Fail(err)
}

// Resource registers RESTful routes for a controller token.
//
//	GET    /photos           → Index
//	POST   /photos           → Store
//	GET    /photos/{id}      → Show
//	PUT    /photos/{id}      → Update
//	PATCH  /photos/{id}      → Update
//	DELETE /photos/{id}      → Destroy
//
// When controller is a *container.Class, actions its type lacks are skipped.
func (r *Router) Resource(pattern string, controller container.Token) {
	routes := []struct{ method, path, action string }{
		{http.MethodGet, pattern, "Index"},
		{http.MethodPost, pattern, "Store"},
		{http.MethodGet, pattern + "/{id}", "Show"},
		{http.MethodPut, pattern + "/{id}", "Update"},
		{http.MethodPatch, pattern + "/{id}", "Update"},
		{http.MethodDelete, pattern + "/{id}", "Destroy"},
	}
	class, _ := controller.(*container.Class)
	for _, rt := range routes {
		if class != nil {
			if _, ok := class.Type().MethodByName(rt.action); !ok {
				continue
			}
		}
		r.Action(rt.method, rt.path, controller, rt.action)
	}
}

// ── Params ───────────────────────────────────────────────────────────────────

// Param extracts a URL param.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler so Router can be passed to http.Server.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler returns the underlying http.Handler.
func (r *Router) Handler() http.Handler {
	return r.mux
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				logger.Info("request",
					zap.String("method", req.Method),
					zap.String("path", req.URL.Path),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(req.Context())),
				)
			}()
			next.ServeHTTP(ww, req)
		})
	}
}
