package internal

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/storefront/pkg/cookie"
	"github.com/dmitrymomot/storefront/pkg/health"
	"github.com/dmitrymomot/storefront/pkg/job"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

// Default server timeouts.
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
)

// Default infrastructure paths.
const (
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"
	defaultMetricsPath   = "/metrics"
)

// App owns the router, the request pipeline and the server lifecycle.
// It is immutable after New.
type App struct {
	router                  chi.Router
	errorHandler            ErrorHandler
	notFoundHandler         HandlerFunc
	methodNotAllowedHandler HandlerFunc
	logger                  *slog.Logger
	cookies                 *cookie.Manager
	sessions                *SessionManager
	jobs                    job.Enqueuer
	pipeline                *Pipeline
	metrics                 *Metrics
	health                  health.Checks
	routerMiddlewares       []func(http.Handler) http.Handler
	middlewares             []Middleware
	handlers                []Handler
	staticRoutes            []staticRoute
}

type staticRoute struct {
	handler http.Handler
	pattern string
}

// lifecycle is implemented by job runners that must be started with the server.
type lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// New creates an App with the given options.
func New(opts ...Option) *App {
	a := &App{
		router: chi.NewRouter(),
		logger: logger.NewNope(),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.setupRoutes()
	return a
}

// Router returns the underlying chi router.
func (a *App) Router() chi.Router {
	return a.router
}

// ServeHTTP makes App an http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Run starts the HTTP server and blocks until shutdown.
// A job runner passed to WithJobs is started before serving and stopped after the server drains.
func (a *App) Run(opts ...RunOption) error {
	cfg := buildRunConfig(opts...)

	startupHooks := cfg.startupHooks
	shutdownHooks := cfg.shutdownHooks
	if lc, ok := a.jobs.(lifecycle); ok {
		startupHooks = append([]func(context.Context) error{lc.Start}, startupHooks...)
		shutdownHooks = append([]func(context.Context) error{lc.Stop}, shutdownHooks...)
	}

	log := cfg.logger
	if log == nil {
		log = a.logger
	}

	return runServer(runtimeConfig{
		handler:         a.router,
		address:         cfg.address,
		logger:          log,
		shutdownTimeout: cfg.shutdownTimeout,
		startupHooks:    startupHooks,
		shutdownHooks:   shutdownHooks,
		baseCtx:         cfg.baseCtx,
	})
}

func (a *App) setupRoutes() {
	for _, mw := range a.routerMiddlewares {
		a.router.Use(mw)
	}
	for _, mw := range a.middlewares {
		a.router.Use(a.adaptMiddleware(mw))
	}

	notFound := a.notFoundHandler
	if notFound == nil {
		notFound = func(c Context) error { return ErrNotFound("Page Not Found") }
	}
	methodNotAllowed := a.methodNotAllowedHandler
	if methodNotAllowed == nil {
		methodNotAllowed = func(c Context) error {
			return NewHTTPError(http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
		}
	}
	if a.pipeline != nil {
		notFound = a.pipeline.Middleware()(notFound)
		methodNotAllowed = a.pipeline.Middleware()(methodNotAllowed)
	}
	a.router.NotFound(a.wrapHandler(notFound))
	a.router.MethodNotAllowed(a.wrapHandler(methodNotAllowed))

	for _, sr := range a.staticRoutes {
		a.router.Mount(sr.pattern, sr.handler)
	}

	a.router.Get(defaultLivenessPath, health.LivenessHandler())
	a.router.Get(defaultReadinessPath, health.ReadinessHandler(a.health, health.WithLogger(a.logger)))
	if a.metrics != nil {
		a.router.Method(http.MethodGet, defaultMetricsPath, a.metrics.Handler())
	}

	a.router.Group(func(cr chi.Router) {
		if a.pipeline != nil {
			cr.Use(a.adaptMiddleware(a.pipeline.Middleware()))
		}
		r := &routerAdapter{router: cr, app: a}
		for _, h := range a.handlers {
			h.Routes(r)
		}
	})
}

// wrapHandler converts a HandlerFunc to http.HandlerFunc using the app's error handler.
func (a *App) wrapHandler(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := newContext(w, r, a)
		if err := h(c); err != nil {
			a.handleError(c, err)
		}
	}
}

// handleError renders err unless a response is already on the wire.
func (a *App) handleError(c Context, err error) {
	if c.Written() {
		a.logger.ErrorContext(c.Context(), "error after response was written", slog.Any("error", err))
		return
	}
	if a.errorHandler != nil {
		if herr := a.errorHandler(c, err); herr != nil {
			a.logger.ErrorContext(c.Context(), "error handler failed", slog.Any("error", herr))
		}
		return
	}
	defaultErrorHandler(c, err)
}

// defaultErrorHandler writes the status text only. Causes never reach the client.
func defaultErrorHandler(c Context, err error) {
	status := StatusOf(err)
	if _, logged := FailedStage(err); !logged {
		attrs := []any{slog.Int("status", status), slog.String("class", string(ClassOf(err))), slog.Any("error", err)}
		if status >= http.StatusInternalServerError {
			c.LogError("request failed", attrs...)
		} else {
			c.LogWarn("request rejected", attrs...)
		}
	}

	msg := http.StatusText(status)
	if he := AsHTTPError(err); he != nil && status < http.StatusInternalServerError && he.Message != "" {
		msg = he.Message
	}
	c.ResponseWriter().Header().Set("X-Content-Type-Options", "nosniff")
	_ = c.String(status, msg)
}
