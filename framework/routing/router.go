package routing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/go-bootstrap/framework/container"
)

// Router wraps chi.Router with Laravel-style helpers. Every request runs
// inside its own child container (see ContainerMiddleware).
type Router struct {
	mux chi.Router
	app *container.Container
}

// New creates a Router with sane defaults (Logger, Recoverer, RealIP) and
// a per-request child of app.
func New(app *container.Container) *Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(ContainerMiddleware(app))
	return &Router{mux: r, app: app}
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

// Group creates an inline group. Laravel: Route::group([], fn)
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(&Router{mux: mx, app: r.app})
	})
}

// Prefix creates a sub-router with a URL prefix. Laravel: Route::prefix('/api')
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	r.mux.Route(pattern, func(mx chi.Router) {
		fn(&Router{mux: mx, app: r.app})
	})
}

// ── Middleware ───────────────────────────────────────────────────────────────

// Middleware adds one or more middleware to the router.
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// ── Container-resolved handlers ──────────────────────────────────────────────

// Handle serves pattern with the http.Handler bound as abstract, resolved
// from the request's container on every request.
//
//	// Laravel: Route::get('/invoices', InvoiceController::class)
//	app.Bind("InvoiceController", newInvoiceController)
//	router.Handle(http.MethodGet, "/invoices", "InvoiceController")
func (r *Router) Handle(method, pattern, abstract string) {
	r.mux.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h, err := Make[http.Handler](req, abstract)
		if err != nil {
			NewResponse(w).ServerError(err.Error())
			return
		}
		h.ServeHTTP(w, req)
	}))
}

// ResourceController handles the standard RESTful routes.
//
//	GET    /photos           → c.Index
//	POST   /photos           → c.Store
//	GET    /photos/{id}      → c.Show
//	PUT    /photos/{id}      → c.Update
//	DELETE /photos/{id}      → c.Destroy
type ResourceController interface {
	Index(w http.ResponseWriter, r *http.Request)
	Store(w http.ResponseWriter, r *http.Request)
	Show(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Destroy(w http.ResponseWriter, r *http.Request)
}

// Resource registers the RESTful routes of the ResourceController bound as
// abstract. The controller is resolved per request.
//
//	// Laravel: Route::resource('photos', PhotoController::class)
func (r *Router) Resource(pattern, abstract string) {
	action := func(pick func(c ResourceController) http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			c, err := Make[ResourceController](req, abstract)
			if err != nil {
				NewResponse(w).ServerError(err.Error())
				return
			}
			pick(c)(w, req)
		}
	}
	r.mux.Get(pattern, action(func(c ResourceController) http.HandlerFunc { return c.Index }))
	r.mux.Post(pattern, action(func(c ResourceController) http.HandlerFunc { return c.Store }))
	r.mux.Get(pattern+"/{id}", action(func(c ResourceController) http.HandlerFunc { return c.Show }))
	r.mux.Put(pattern+"/{id}", action(func(c ResourceController) http.HandlerFunc { return c.Update }))
	r.mux.Patch(pattern+"/{id}", action(func(c ResourceController) http.HandlerFunc { return c.Update }))
	r.mux.Delete(pattern+"/{id}", action(func(c ResourceController) http.HandlerFunc { return c.Destroy }))
}

// ── Params ───────────────────────────────────────────────────────────────────

// Param extracts a URL param, like $request->route('id')
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler so Router can be passed to http.ListenAndServe.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler returns the underlying http.Handler (for testing etc.).
func (r *Router) Handler() http.Handler {
	return r.mux
}
