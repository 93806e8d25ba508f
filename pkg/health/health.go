// Package health serves liveness and readiness probes backed by named dependency checks.
package health

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout = 5 * time.Second

	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// Checks is a map of named health check functions.
type Checks map[string]CheckFunc

// Response is the readiness report.
type Response struct {
	Checks map[string]Check `json:"checks,omitempty"`
	Status string           `json:"status"`
}

// Check is the outcome of a single probe.
type Check struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

type config struct {
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures health check behavior.
type Option func(*config)

// WithTimeout bounds all checks of one probe run.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for failed checks.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		timeout: defaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Run executes every check concurrently under one deadline.
func Run(ctx context.Context, checks Checks, opts ...Option) *Response {
	return runChecks(ctx, checks, newConfig(opts...))
}

func runChecks(ctx context.Context, checks Checks, cfg *config) *Response {
	if len(checks) == 0 {
		return &Response{Status: StatusHealthy}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make(map[string]Check, len(checks))
		status  = StatusHealthy
	)

	for name, check := range checks {
		g.Go(func() error {
			start := time.Now()
			err := check(ctx)
			res := Check{Status: StatusHealthy, Duration: time.Since(start).Round(time.Microsecond).String()}
			if err != nil {
				res.Status = StatusUnhealthy
				res.Error = err.Error()
				cfg.logger.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.String("error", err.Error()),
				)
			}

			mu.Lock()
			results[name] = res
			if err != nil {
				status = StatusUnhealthy
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return &Response{Status: status, Checks: results}
}
