package routing

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/km-arc/go-bootstrap/framework/container"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-Id"

type containerKey struct{}

// ContainerMiddleware gives every request a child container of app holding
// "request" (*http.Request) and "request.id". Singletons created in the
// child are torn down when the request finishes.
func ContainerMiddleware(app *container.Container) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			child := app.Child()

			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			child.Instance("request.id", id)

			r = r.WithContext(context.WithValue(r.Context(), containerKey{}, child))
			child.Instance("request", r)

			defer func() {
				if err := child.IOC().UnbindAllAsync(context.WithoutCancel(r.Context())); err != nil {
					app.IOC().Logger().Warn("request container teardown",
						zap.String("request_id", id), zap.Error(err))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Container returns the request's container, or nil outside
// ContainerMiddleware.
func Container(r *http.Request) *container.Container {
	c, _ := r.Context().Value(containerKey{}).(*container.Container)
	return c
}

// Make resolves abstract from the request's container.
//
//	repo, err := routing.Make[*UserRepository](r, "UserRepository")
func Make[T any](r *http.Request, abstract string) (T, error) {
	c := Container(r)
	if c == nil {
		var zero T
		return zero, fmt.Errorf("routing: no container on request %s %s", r.Method, r.URL.Path)
	}
	return container.Resolve[T](c, abstract)
}
