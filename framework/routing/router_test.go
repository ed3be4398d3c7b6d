package routing_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/km-arc/go-bootstrap/framework/container"
	"github.com/km-arc/go-bootstrap/framework/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func newRouter() (*routing.Router, *container.Container) {
	app := container.New()
	return routing.New(app), app
}

func do(t *testing.T, router *routing.Router, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// ── HTTP verbs ────────────────────────────────────────────────────────────────

func TestRouter_Verbs(t *testing.T) {
	r, _ := newRouter()
	r.Get("/hello", okHandler)
	r.Post("/users", okHandler)
	r.Put("/users/{id}", okHandler)
	r.Patch("/users/{id}", okHandler)
	r.Delete("/users/{id}", okHandler)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/hello"},
		{http.MethodPost, "/users"},
		{http.MethodPut, "/users/1"},
		{http.MethodPatch, "/users/1"},
		{http.MethodDelete, "/users/1"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if rr := do(t, r, tt.method, tt.path); rr.Code != http.StatusOK {
				t.Errorf("got %d want 200", rr.Code)
			}
		})
	}
}

func TestRouter_Any(t *testing.T) {
	r, _ := newRouter()
	r.Any("/ping", okHandler)

	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		rr := do(t, r, method, "/ping")
		if rr.Code != http.StatusOK {
			t.Errorf("ANY %s /ping: got %d want 200", method, rr.Code)
		}
	}
}

// ── 404 for unregistered routes ──────────────────────────────────────────────

func TestRouter_NotFound(t *testing.T) {
	r, _ := newRouter()
	rr := do(t, r, http.MethodGet, "/not-registered")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

// ── Route params ─────────────────────────────────────────────────────────────

func TestRouter_Param(t *testing.T) {
	r, _ := newRouter()
	r.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := routing.Param(req, "id")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(id))
	})

	rr := do(t, r, http.MethodGet, "/users/42")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rr.Code)
	}
	if rr.Body.String() != "42" {
		t.Errorf("got body %q want %q", rr.Body.String(), "42")
	}
}

// ── Prefix / Group ───────────────────────────────────────────────────────────

func TestRouter_Prefix(t *testing.T) {
	r, _ := newRouter()
	r.Prefix("/api/v1", func(api *routing.Router) {
		api.Get("/users", okHandler)
	})

	rr := do(t, r, http.MethodGet, "/api/v1/users")
	if rr.Code != http.StatusOK {
		t.Errorf("GET /api/v1/users: got %d want 200", rr.Code)
	}

	// Root must 404
	rr2 := do(t, r, http.MethodGet, "/users")
	if rr2.Code != http.StatusNotFound {
		t.Errorf("GET /users: expected 404, got %d", rr2.Code)
	}
}

func TestRouter_Group_Middleware(t *testing.T) {
	called := false
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			next.ServeHTTP(w, r)
		})
	}

	r, _ := newRouter()
	r.Group(func(g *routing.Router) {
		g.Middleware(mw)
		g.Get("/protected", okHandler)
	})

	do(t, r, http.MethodGet, "/protected")
	if !called {
		t.Error("expected middleware to be called")
	}
}

// ── Per-request container ────────────────────────────────────────────────────

func TestContainerMiddleware_ChildPerRequest(t *testing.T) {
	r, app := newRouter()
	app.Instance("greeting", "hello")

	var seen []*container.Container
	r.Get("/whoami", func(w http.ResponseWriter, req *http.Request) {
		c := routing.Container(req)
		seen = append(seen, c)

		greeting, err := routing.Make[string](req, "greeting")
		if err != nil {
			t.Error(err)
		}
		id := container.MustResolve[string](c, "request.id")
		bound := container.MustResolve[*http.Request](c, "request")
		if bound.URL.Path != "/whoami" {
			t.Errorf("request: got %s", bound.URL.Path)
		}
		_, _ = w.Write([]byte(greeting + " " + id))
	})

	first := do(t, r, http.MethodGet, "/whoami")
	second := do(t, r, http.MethodGet, "/whoami")

	if len(seen) != 2 || seen[0] == seen[1] || seen[0] == app {
		t.Fatal("every request should get its own child container")
	}
	id := first.Header().Get(routing.RequestIDHeader)
	if id == "" || id == second.Header().Get(routing.RequestIDHeader) {
		t.Errorf("request ids should be unique, got %q", id)
	}
	if first.Body.String() != "hello "+id {
		t.Errorf("body: got %q", first.Body.String())
	}
	if seen[0].Bound("request.id") {
		t.Error("the child container should be torn down after the request")
	}
	if app.Bound("request") {
		t.Error("request bindings must not leak into the root")
	}
}

func TestContainerMiddleware_KeepsIncomingRequestID(t *testing.T) {
	r, _ := newRouter()
	r.Get("/id", func(w http.ResponseWriter, req *http.Request) {
		id, _ := routing.Make[string](req, "request.id")
		_, _ = w.Write([]byte(id))
	})

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(routing.RequestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Body.String() != "abc-123" {
		t.Errorf("got %q want abc-123", rr.Body.String())
	}
}

func TestMake_WithoutContainer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if routing.Container(req) != nil {
		t.Error("expected no container outside the middleware")
	}
	if _, err := routing.Make[string](req, "anything"); err == nil {
		t.Error("expected an error outside the middleware")
	}
}

// ── Container-resolved handlers ──────────────────────────────────────────────

type stubController struct{}

func (s *stubController) Index(w http.ResponseWriter, r *http.Request)   { w.WriteHeader(200) }
func (s *stubController) Store(w http.ResponseWriter, r *http.Request)   { w.WriteHeader(201) }
func (s *stubController) Show(w http.ResponseWriter, r *http.Request)    { w.WriteHeader(200) }
func (s *stubController) Update(w http.ResponseWriter, r *http.Request)  { w.WriteHeader(200) }
func (s *stubController) Destroy(w http.ResponseWriter, r *http.Request) { w.WriteHeader(204) }

func TestRouter_Resource(t *testing.T) {
	r, app := newRouter()
	built := 0
	app.Bind("PhotoController", func(*container.Container) (any, error) {
		built++
		return &stubController{}, nil
	})
	r.Resource("/photos", "PhotoController")

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/photos", 200},
		{"POST", "/photos", 201},
		{"GET", "/photos/1", 200},
		{"PUT", "/photos/1", 200},
		{"PATCH", "/photos/1", 200},
		{"DELETE", "/photos/1", 204},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := do(t, r, tt.method, tt.path)
			if rr.Code != tt.want {
				t.Errorf("got %d want %d", rr.Code, tt.want)
			}
		})
	}
	if built != len(tests) {
		t.Errorf("controller built %d times, want one per request", built)
	}
}

func TestRouter_Handle(t *testing.T) {
	r, app := newRouter()
	app.Instance("Health", http.HandlerFunc(okHandler))
	app.Bind("Broken", func(*container.Container) (any, error) { return nil, errors.New("db down") })
	r.Handle(http.MethodGet, "/health", "Health")
	r.Handle(http.MethodGet, "/broken", "Broken")

	if rr := do(t, r, http.MethodGet, "/health"); rr.Code != http.StatusOK {
		t.Errorf("GET /health: got %d", rr.Code)
	}
	rr := do(t, r, http.MethodGet, "/broken")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("GET /broken: got %d want 500", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "db down") {
		t.Errorf("body should carry the resolution error, got %q", rr.Body.String())
	}
}

// ── Introspection ────────────────────────────────────────────────────────────

func TestRouter_Introspect(t *testing.T) {
	r, app := newRouter()
	app.Instance("greeting", "hello")
	r.Introspect("/_container")

	rr := do(t, r, http.MethodGet, "/_container/bindings")
	if rr.Code != http.StatusOK {
		t.Fatalf("bindings: got %d", rr.Code)
	}
	var body struct {
		Data []string `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.Join(body.Data, ","), "request.id") {
		t.Errorf("bindings should list the request container's abstracts, got %v", body.Data)
	}

	rr = do(t, r, http.MethodGet, "/_container/plan/greeting")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "greeting") {
		t.Errorf("plan: got %d %s", rr.Code, rr.Body.String())
	}

	if rr = do(t, r, http.MethodGet, "/_container/plan/missing"); rr.Code != http.StatusNotFound {
		t.Errorf("plan of an unbound abstract: got %d want 404", rr.Code)
	}
}

// ── Handler() returns http.Handler ───────────────────────────────────────────

func TestRouter_HandlerInterface(t *testing.T) {
	r, _ := newRouter()
	r.Get("/ping", okHandler)
	var _ http.Handler = r.Handler()
}
