// Package config loads the storefront configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrymomot/storefront/pkg/db"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/mailer"
	"github.com/dmitrymomot/storefront/pkg/mailer/resend"
	"github.com/dmitrymomot/storefront/pkg/redis"
	"github.com/dmitrymomot/storefront/pkg/storage"
)

// Backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendS3       = "s3"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the whole application configuration.
type Config struct {
	Log     logger.Config
	Resend  resend.Config
	Mailer  mailer.Config
	Storage storage.Config
	DB      db.Config
	Redis   redis.Config
	HTTP    HTTPConfig
	Session SessionConfig
	Upload  UploadConfig
	Catalog CatalogConfig
	Jobs    JobsConfig

	// Backend selects where identities, products and jobs live.
	Backend string `env:"STORE_BACKEND" envDefault:"postgres"`
}

// HTTPConfig configures the server and the body limits of the pipeline.
type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":3000"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	IdentityTimeout time.Duration `env:"IDENTITY_TIMEOUT" envDefault:"3s"`
	MaxBodySize     int64         `env:"HTTP_MAX_BODY_SIZE" envDefault:"10485760"`
	MultipartMemory int64         `env:"HTTP_MULTIPART_MEMORY" envDefault:"8388608"`
	HSTS            bool          `env:"HTTP_HSTS" envDefault:"false"`
}

// SessionConfig configures the session cookie and its store.
type SessionConfig struct {
	// Secret signs cookies. At least 32 bytes.
	Secret        string        `env:"SESSION_SECRET"`
	Backend       string        `env:"SESSION_BACKEND" envDefault:"redis"`
	CookieName    string        `env:"SESSION_COOKIE_NAME" envDefault:"storefront.sid"`
	MaxAge        time.Duration `env:"SESSION_MAX_AGE" envDefault:"336h"`
	TouchInterval time.Duration `env:"SESSION_TOUCH_INTERVAL" envDefault:"1m"`
	StoreTimeout  time.Duration `env:"SESSION_STORE_TIMEOUT" envDefault:"3s"`
	Secure        bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

// UploadConfig configures where accepted images go.
type UploadConfig struct {
	Backend string        `env:"STORAGE_BACKEND" envDefault:"s3"`
	Prefix  string        `env:"UPLOAD_PREFIX" envDefault:"products"`
	BaseURL string        `env:"UPLOAD_MEMORY_BASE_URL" envDefault:"http://localhost:3000/uploads"`
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"30s"`
}

// CatalogConfig configures the product listing.
type CatalogConfig struct {
	CacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"30s"`
	PageSize int           `env:"CATALOG_PAGE_SIZE" envDefault:"12"`
}

// JobsConfig configures background jobs.
type JobsConfig struct {
	PurgeSchedule string `env:"SESSION_PURGE_SCHEDULE" envDefault:"*/15 * * * *"`
	MaxWorkers    int    `env:"JOBS_MAX_WORKERS" envDefault:"10"`
}

// Load parses the process environment and validates the result.
func Load() (Config, error) {
	return load(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return load(env.Options{Environment: vars})
}

// LoadDatabase parses the process environment for maintenance commands that
// only talk to Postgres. The session secret and backends are not checked.
func LoadDatabase() (Config, error) {
	return loadDatabase(env.Options{})
}

// LoadDatabaseFrom is LoadDatabase over the given variables.
func LoadDatabaseFrom(vars map[string]string) (Config, error) {
	return loadDatabase(env.Options{Environment: vars})
}

func loadDatabase(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if cfg.DB.URL == "" {
		return Config{}, fmt.Errorf("%w: DATABASE_URL is not set", ErrInvalid)
	}
	return cfg, nil
}

func load(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints the env tags cannot express.
func (c Config) Validate() error {
	var errs []error

	if len(c.Session.Secret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
	}
	if !slices.Contains([]string{BackendMemory, BackendPostgres}, c.Backend) {
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q is not memory or postgres", c.Backend))
	}
	if !slices.Contains([]string{BackendMemory, BackendPostgres, BackendRedis}, c.Session.Backend) {
		errs = append(errs, fmt.Errorf("SESSION_BACKEND %q is not memory, postgres or redis", c.Session.Backend))
	}
	if !slices.Contains([]string{BackendMemory, BackendS3}, c.Upload.Backend) {
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND %q is not memory or s3", c.Upload.Backend))
	}
	if c.NeedsPostgres() && c.DB.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalid}, errs...)...)
	}
	return nil
}

// NeedsPostgres reports whether any component is backed by Postgres.
func (c Config) NeedsPostgres() bool {
	return c.Backend == BackendPostgres || c.Session.Backend == BackendPostgres
}

// NeedsRedis reports whether any component is backed by Redis.
func (c Config) NeedsRedis() bool {
	return c.Session.Backend == BackendRedis
}
