package routing_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func do(t *testing.T, router *routing.Router, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func newRouter(t *testing.T) (*routing.Router, *container.Container, *container.Declarations) {
	t.Helper()
	d := container.NewDeclarations()
	c := container.New(container.WithDeclarations(d))
	return routing.New(c, zap.NewNop()), c, d
}

// ── HTTP verbs ────────────────────────────────────────────────────────────────

func TestRouter_Verbs(t *testing.T) {
	r, _, _ := newRouter(t)
	r.Get("/hello", okHandler)
	r.Post("/users", okHandler)
	r.Put("/users/{id}", okHandler)
	r.Patch("/users/{id}", okHandler)
	r.Delete("/users/{id}", okHandler)

	tests := []struct{ method, path string }{
		{http.MethodGet, "/hello"},
		{http.MethodPost, "/users"},
		{http.MethodPut, "/users/1"},
		{http.MethodPatch, "/users/1"},
		{http.MethodDelete, "/users/1"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, http.StatusOK, do(t, r, tt.method, tt.path).Code)
		})
	}
}

func TestRouter_Any(t *testing.T) {
	r, _, _ := newRouter(t)
	r.Any("/ping", okHandler)

	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		assert.Equal(t, http.StatusOK, do(t, r, method, "/ping").Code, method)
	}
}

func TestRouter_NotFound(t *testing.T) {
	r, _, _ := newRouter(t)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/not-registered").Code)
}

// ── Route params ─────────────────────────────────────────────────────────────

func TestRouter_Param(t *testing.T) {
	r, _, _ := newRouter(t)
	r.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(routing.Param(req, "id")))
	})

	rr := do(t, r, http.MethodGet, "/users/42")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "42", rr.Body.String())
}

// ── Prefix / Group ───────────────────────────────────────────────────────────

func TestRouter_Prefix(t *testing.T) {
	r, _, _ := newRouter(t)
	r.Prefix("/api/v1", func(api *routing.Router) {
		api.Get("/users", okHandler)
	})

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/v1/users").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/users").Code)
}

func TestRouter_Group_Middleware(t *testing.T) {
	called := false
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			next.ServeHTTP(w, r)
		})
	}

	r, _, _ := newRouter(t)
	r.Group(func(g *routing.Router) {
		g.Middleware(mw)
		g.Get("/protected", okHandler)
	})
	r.Get("/public", okHandler)

	do(t, r, http.MethodGet, "/public")
	assert.False(t, called, "group middleware must not leak to the parent")

	do(t, r, http.MethodGet, "/protected")
	assert.True(t, called)
}

// ── Controller actions ───────────────────────────────────────────────────────

type photoRepo struct{ title string }

type photoController struct{}

func (c *photoController) Index(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
func (c *photoController) Store(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) }
func (c *photoController) Destroy(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (c *photoController) Show(w http.ResponseWriter, r *http.Request, repo *photoRepo) (map[string]any, error) {
	return map[string]any{"id": routing.Param(r, "id"), "title": repo.title}, nil
}

func (c *photoController) Fail(w http.ResponseWriter, r *http.Request) error {
	return errors.New("upload failed")
}

func photoClass(t *testing.T, c *container.Container, d *container.Declarations) *container.Class {
	t.Helper()
	class := container.MustClass(func() *photoController { return &photoController{} })
	d.InjectMethodParam(class, "Show", 2, "photos")
	require.NoError(t, c.Register(container.Entry{Token: "photos", UseValue: &photoRepo{title: "sunset"}}))
	return class
}

func TestRouter_Action_InjectsMethodParams(t *testing.T) {
	r, c, d := newRouter(t)
	r.Action(http.MethodGet, "/photos/{id}", photoClass(t, c, d), "Show")

	rr := do(t, r, http.MethodGet, "/photos/7")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{"id": "7", "title": "sunset"}, body)
}

func TestRouter_Action_RegisteredControllerToken(t *testing.T) {
	r, c, d := newRouter(t)
	class := photoClass(t, c, d)
	require.NoError(t, c.Register(container.Entry{Token: "photo.controller", UseClass: class, Scope: container.Singleton}))
	r.Action(http.MethodGet, "/photos/{id}", "photo.controller", "Show")

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/photos/1").Code)
	assert.True(t, c.Resolved("photo.controller"))
}

func TestRouter_Action_Errors(t *testing.T) {
	r, c, d := newRouter(t)
	class := photoClass(t, c, d)
	r.Action(http.MethodPost, "/fail", class, "Fail")
	r.Action(http.MethodGet, "/missing", "missing.controller", "Index")
	r.Action(http.MethodGet, "/unknown", class, "Unknown")

	tests := []struct {
		method, path string
		message      string
		code         any
	}{
		{http.MethodPost, "/fail", "upload failed", nil},
		{http.MethodGet, "/missing", "", "TOKEN_NOT_REGISTERED"},
		{http.MethodGet, "/unknown", "", "INVALID_INJECTION_TARGET"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := do(t, r, tt.method, tt.path)
			require.Equal(t, http.StatusInternalServerError, rr.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

// ── Resource routes ───────────────────────────────────────────────────────────

func TestRouter_Resource(t *testing.T) {
	r, c, d := newRouter(t)
	r.Resource("/photos", photoClass(t, c, d))

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/photos", 200},
		{"POST", "/photos", 201},
		{"GET", "/photos/1", 200},
		{"DELETE", "/photos/1", 204},
		{"PUT", "/photos/1", 405},
		{"PATCH", "/photos/1", 405},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, do(t, r, tt.method, tt.path).Code)
		})
	}
}

// ── Logging ──────────────────────────────────────────────────────────────────

func TestRouter_RequestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	d := container.NewDeclarations()
	c := container.New(container.WithDeclarations(d))
	r := routing.New(c, zap.New(core))
	r.Get("/hello", okHandler)
	r.Action(http.MethodGet, "/broken", "nope", "Index")

	do(t, r, http.MethodGet, "/hello")
	do(t, r, http.MethodGet, "/broken")

	requests := logs.FilterMessage("request").All()
	require.Len(t, requests, 2)
	assert.Equal(t, "/hello", requests[0].ContextMap()["path"])
	assert.EqualValues(t, http.StatusOK, requests[0].ContextMap()["status"])
	assert.NotEmpty(t, requests[0].ContextMap()["request_id"])

	failures := logs.FilterMessage("controller action failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, "Index", failures[0].ContextMap()["action"])
}

// ── Handler() returns http.Handler ───────────────────────────────────────────

func TestRouter_HandlerInterface(t *testing.T) {
	r := routing.New(container.New(), nil)
	r.Get("/ping", okHandler)
	var _ http.Handler = r.Handler()
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/ping").Code)
}
