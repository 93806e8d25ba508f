package internal

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
)

// Router is the interface handlers use to declare routes.
type Router interface {
	GET(path string, h HandlerFunc, mw ...Middleware)
	POST(path string, h HandlerFunc, mw ...Middleware)
	PUT(path string, h HandlerFunc, mw ...Middleware)
	PATCH(path string, h HandlerFunc, mw ...Middleware)
	DELETE(path string, h HandlerFunc, mw ...Middleware)

	// Group creates an inline route group sharing middleware.
	Group(fn func(r Router))
	// Route creates a route group under a pattern prefix.
	Route(pattern string, fn func(r Router))
	// Use appends middleware to the group's stack.
	Use(mw ...Middleware)
	// Mount attaches an http.Handler at the given pattern.
	Mount(pattern string, h http.Handler)
}

// routerAdapter wraps chi.Router to implement the Router interface.
type routerAdapter struct {
	router chi.Router
	app    *App
}

func (r *routerAdapter) GET(path string, h HandlerFunc, mw ...Middleware) {
	r.router.Get(path, r.wrap(h, mw...))
}

func (r *routerAdapter) POST(path string, h HandlerFunc, mw ...Middleware) {
	r.router.Post(path, r.wrap(h, mw...))
}

func (r *routerAdapter) PUT(path string, h HandlerFunc, mw ...Middleware) {
	r.router.Put(path, r.wrap(h, mw...))
}

func (r *routerAdapter) PATCH(path string, h HandlerFunc, mw ...Middleware) {
	r.router.Patch(path, r.wrap(h, mw...))
}

func (r *routerAdapter) DELETE(path string, h HandlerFunc, mw ...Middleware) {
	r.router.Delete(path, r.wrap(h, mw...))
}

func (r *routerAdapter) Group(fn func(Router)) {
	r.router.Group(func(cr chi.Router) {
		fn(&routerAdapter{router: cr, app: r.app})
	})
}

func (r *routerAdapter) Route(pattern string, fn func(Router)) {
	r.router.Route(pattern, func(cr chi.Router) {
		fn(&routerAdapter{router: cr, app: r.app})
	})
}

func (r *routerAdapter) Use(mw ...Middleware) {
	for _, m := range mw {
		r.router.Use(r.app.adaptMiddleware(m))
	}
}

func (r *routerAdapter) Mount(pattern string, h http.Handler) {
	r.router.Mount(pattern, h)
}

func (r *routerAdapter) wrap(h HandlerFunc, mw ...Middleware) http.HandlerFunc {
	// The first middleware listed runs outermost.
	mw = slices.Clone(mw)
	slices.Reverse(mw)
	for _, m := range mw {
		h = m(h)
	}
	return r.app.wrapHandler(h)
}

// adaptMiddleware converts a Middleware to chi middleware.
// The response writer and the pipeline state travel with the request, so the
// Context built downstream sees the same response and state.
func (a *App) adaptMiddleware(mw Middleware) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nextFunc := func(c Context) error {
				next.ServeHTTP(c.Response(), c.Request())
				return nil
			}
			wrapped := mw(nextFunc)
			c := newContext(w, r, a)
			if err := wrapped(c); err != nil {
				a.handleError(c, err)
			}
		})
	}
}
