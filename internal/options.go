package internal

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/storefront/pkg/cookie"
	"github.com/dmitrymomot/storefront/pkg/health"
	"github.com/dmitrymomot/storefront/pkg/job"
)

// Option configures the application.
type Option func(*App)

// WithLogger sets the application logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithCookieManager sets the cookie manager used for flash messages.
func WithCookieManager(m *cookie.Manager) Option {
	return func(a *App) {
		a.cookies = m
	}
}

// WithSessionManager enables Context session helpers.
// The session stage must be part of the pipeline for sessions to load.
func WithSessionManager(sm *SessionManager) Option {
	return func(a *App) {
		a.sessions = sm
	}
}

// WithJobs enables Context.Enqueue.
// If the enqueuer also has Start and Stop methods, Run manages its lifecycle.
func WithJobs(e job.Enqueuer) Option {
	return func(a *App) {
		a.jobs = e
	}
}

// WithPipeline runs p in front of every route handler, the not-found handler included.
func WithPipeline(p *Pipeline) Option {
	return func(a *App) {
		a.pipeline = p
	}
}

// WithMetrics exposes m on /metrics.
func WithMetrics(m *Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}

// WithRouterMiddleware adds net/http middleware in front of everything, health and static routes included.
//
// Example:
//
//	storefront.WithRouterMiddleware(middleware.Compress(5))
func WithRouterMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(a *App) {
		a.routerMiddlewares = append(a.routerMiddlewares, mw...)
	}
}

// WithMiddleware adds global middleware. Middleware is applied in the order provided.
func WithMiddleware(mw ...Middleware) Option {
	return func(a *App) {
		a.middlewares = append(a.middlewares, mw...)
	}
}

// WithHandlers registers handlers that declare routes.
func WithHandlers(h ...Handler) Option {
	return func(a *App) {
		a.handlers = append(a.handlers, h...)
	}
}

// WithStaticFiles mounts fsys/subDir at pattern. Directory listings are disabled.
func WithStaticFiles(pattern string, fsys fs.FS, subDir string) Option {
	return func(a *App) {
		subFS, err := fs.Sub(fsys, subDir)
		if err != nil {
			panic(err)
		}
		fileServer := http.StripPrefix(strings.TrimSuffix(pattern, "/"), http.FileServerFS(subFS))

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/") {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Cache-Control", "public, max-age=3600")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			fileServer.ServeHTTP(w, r)
		})

		a.staticRoutes = append(a.staticRoutes, staticRoute{handler, pattern})
	}
}

// WithMount serves h under pattern outside the pipeline, like static files.
func WithMount(pattern string, h http.Handler) Option {
	return func(a *App) {
		a.staticRoutes = append(a.staticRoutes, staticRoute{http.StripPrefix(strings.TrimSuffix(pattern, "/"), h), pattern})
	}
}

// WithErrorHandler sets the handler for errors returned by handlers and stages.
func WithErrorHandler(h ErrorHandler) Option {
	return func(a *App) {
		a.errorHandler = h
	}
}

// WithNotFoundHandler sets a custom 404 handler.
func WithNotFoundHandler(h HandlerFunc) Option {
	return func(a *App) {
		a.notFoundHandler = h
	}
}

// WithMethodNotAllowedHandler sets a custom 405 handler.
func WithMethodNotAllowedHandler(h HandlerFunc) Option {
	return func(a *App) {
		a.methodNotAllowedHandler = h
	}
}

// WithReadinessCheck adds a named check to /health/ready. Checks run in parallel.
func WithReadinessCheck(name string, fn health.CheckFunc) Option {
	return func(a *App) {
		if a.health == nil {
			a.health = make(health.Checks)
		}
		a.health[name] = fn
	}
}
