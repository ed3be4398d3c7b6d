package routing

import (
	"errors"
	"net/http"

	"github.com/km-arc/go-bootstrap/framework/ioc"
)

// Introspect mounts read-only container diagnostics under prefix:
//
//	GET {prefix}/bindings     → every bound abstract
//	GET {prefix}/plan/{id}    → the dependency tree of one abstract
//
// Mount it only in debug builds.
func (r *Router) Introspect(prefix string) {
	r.Prefix(prefix, func(d *Router) {
		d.Get("/bindings", func(w http.ResponseWriter, req *http.Request) {
			NewResponse(w).Success(Container(req).Bindings())
		})
		d.Get("/plan/{id}", func(w http.ResponseWriter, req *http.Request) {
			res := NewResponse(w)
			id := Param(req, "id")
			plan, err := Container(req).IOC().Plan(id)
			switch {
			case errors.Is(err, ioc.ErrNotRegistered):
				res.NotFound(err.Error())
			case err != nil:
				res.ServerError(err.Error())
			default:
				res.Success(map[string]any{"id": id, "tree": plan.Tree()})
			}
		})
	})
}
