package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/storefront/internal"
	"github.com/dmitrymomot/storefront/internal/assets"
	"github.com/dmitrymomot/storefront/internal/catalog"
	"github.com/dmitrymomot/storefront/internal/config"
	"github.com/dmitrymomot/storefront/internal/handlers"
	"github.com/dmitrymomot/storefront/middlewares"
	"github.com/dmitrymomot/storefront/pkg/cache"
	"github.com/dmitrymomot/storefront/pkg/cookie"
	"github.com/dmitrymomot/storefront/pkg/health"
	"github.com/dmitrymomot/storefront/pkg/identity"
	"github.com/dmitrymomot/storefront/pkg/job"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/password"
	"github.com/dmitrymomot/storefront/pkg/session"
	"github.com/dmitrymomot/storefront/pkg/storage"
)

// Type aliases - public API
type (
	// App is the storefront HTTP application.
	App = internal.App

	// Context is what handlers and middleware receive.
	Context = internal.Context

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// Stage is one step of the request pipeline.
	Stage = internal.Stage

	// Upload describes the image stored for a request.
	Upload = internal.Upload
)

// ErrMissingDependency is returned by New when a required store is nil.
var ErrMissingDependency = errors.New("storefront: missing dependency")

// Deps are the backing stores of the application.
type Deps struct {
	Accounts identity.Accounts
	Products catalog.Repository
	Sessions session.Store
	Files    storage.Storage

	// Optional.
	Redis  redis.UniversalClient // catalog cache; in-memory when nil
	Jobs   job.Enqueuer          // signup still works without it
	Hasher *password.Hasher
	Logger *slog.Logger
	Checks health.Checks // readiness checks
	// Uploads serves stored files from this process, for the memory backend.
	Uploads http.Handler
}

func (d Deps) validate() error {
	var errs []error
	if d.Accounts == nil {
		errs = append(errs, errors.New("accounts store is required"))
	}
	if d.Products == nil {
		errs = append(errs, errors.New("products repository is required"))
	}
	if d.Sessions == nil {
		errs = append(errs, errors.New("session store is required"))
	}
	if d.Files == nil {
		errs = append(errs, errors.New("file storage is required"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrMissingDependency}, errs...)...)
	}
	return nil
}

// NewLogger builds the application logger with request, session and user attributes.
func NewLogger(cfg logger.Config, w io.Writer) (*slog.Logger, func()) {
	return logger.New(cfg, w,
		middlewares.RequestIDExtractor(),
		internal.SessionIDExtractor(),
		internal.UserIDExtractor(),
	)
}

// New builds the application.
func New(cfg config.Config, deps Deps) (*App, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNope()
	}
	hasher := deps.Hasher
	if hasher == nil {
		h, err := password.New(password.DefaultParams)
		if err != nil {
			return nil, err
		}
		hasher = h
	}

	cookies, err := cookie.New(cfg.Session.Secret, cookie.WithSecure(cfg.Session.Secure))
	if err != nil {
		return nil, fmt.Errorf("storefront: cookies: %w", err)
	}

	sessions := internal.NewSessionManager(deps.Sessions, cookies,
		internal.WithSessionCookieName(cfg.Session.CookieName),
		internal.WithSessionMaxAge(cfg.Session.MaxAge),
		internal.WithSessionTouchInterval(cfg.Session.TouchInterval),
		internal.WithSessionStoreTimeout(cfg.Session.StoreTimeout),
		internal.WithSessionLogger(log),
	)

	metrics := internal.NewMetrics()
	pipeline := internal.NewPipeline(Stages(cfg, sessions, deps), internal.WithPipelineMetrics(metrics))

	var pages cache.Cache[catalog.Page]
	if deps.Redis != nil {
		pages = cache.NewRedis[catalog.Page](deps.Redis, "storefront:catalog", cfg.Catalog.CacheTTL)
	} else {
		pages = cache.NewMemory[catalog.Page](cfg.Catalog.CacheTTL)
	}
	products := catalog.NewCachedRepository(deps.Products, pages, cfg.Catalog.CacheTTL, cfg.Catalog.PageSize)

	opts := []internal.Option{
		internal.WithLogger(log),
		internal.WithCookieManager(cookies),
		internal.WithSessionManager(sessions),
		internal.WithPipeline(pipeline),
		internal.WithMetrics(metrics),
		internal.WithRouterMiddleware(middleware.Compress(5)),
		internal.WithMiddleware(
			middlewares.RequestID(),
			middlewares.Recover(),
			middlewares.Timeout(cfg.HTTP.RequestTimeout),
		),
		internal.WithStaticFiles("/static/", assets.FS(), "."),
		internal.WithErrorHandler(handlers.ErrorHandler),
		internal.WithNotFoundHandler(handlers.NotFound),
		internal.WithHandlers(
			handlers.NewShop(products, cfg.Catalog.PageSize),
			handlers.NewAuth(deps.Accounts, hasher),
			handlers.NewAdmin(products),
		),
	}
	if deps.Jobs != nil {
		opts = append(opts, internal.WithJobs(deps.Jobs))
	}
	if deps.Uploads != nil {
		opts = append(opts, internal.WithMount("/uploads/", deps.Uploads))
	}
	for name, check := range deps.Checks {
		opts = append(opts, internal.WithReadinessCheck(name, check))
	}

	return internal.New(opts...), nil
}

// Stages returns the request pipeline in order.
func Stages(cfg config.Config, sessions *internal.SessionManager, deps Deps) []Stage {
	imgSources := []string{deps.Files.URL("")}

	return []Stage{
		internal.SecurityHeaders(internal.SecurityHeadersConfig{ImgSources: imgSources, HSTS: cfg.HTTP.HSTS}),
		internal.DecodeBody(internal.DecodeBodyConfig{
			MaxBodySize:     cfg.HTTP.MaxBodySize,
			MultipartMemory: cfg.HTTP.MultipartMemory,
		}),
		internal.UploadGate(),
		internal.SessionStage(sessions),
		internal.CSRFGuard(),
		internal.IdentityResolver(deps.Accounts, cfg.HTTP.IdentityTimeout),
		internal.UploadStore(internal.UploadStoreConfig{
			Storage: deps.Files,
			Prefix:  cfg.Upload.Prefix,
			Timeout: cfg.Upload.Timeout,
		}),
	}
}

// Run options.

// Address sets the listen address.
func Address(addr string) RunOption { return internal.Address(addr) }

// ShutdownTimeout bounds graceful shutdown.
func ShutdownTimeout(d time.Duration) RunOption { return internal.ShutdownTimeout(d) }

// StartupHook runs before the server accepts connections.
func StartupHook(fn func(context.Context) error) RunOption { return internal.StartupHook(fn) }

// ShutdownHook runs after the server drained.
func ShutdownHook(fn func(context.Context) error) RunOption { return internal.ShutdownHook(fn) }

// Logger sets the runtime logger.
func Logger(l *slog.Logger) RunOption { return internal.Logger(l) }
