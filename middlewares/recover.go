// Package middlewares holds the app-wide middleware that runs before the request pipeline.
package middlewares

import (
	"log/slog"
	"runtime"

	"github.com/dmitrymomot/storefront/internal"
)

// DefaultStackSize is the default maximum stack trace size in bytes.
const DefaultStackSize = 4096

type recoverConfig struct {
	stackSize    int
	captureStack bool
}

// RecoverOption configures Recover.
type RecoverOption func(*recoverConfig)

// WithStackSize sets the maximum captured stack size.
func WithStackSize(size int) RecoverOption {
	return func(cfg *recoverConfig) {
		if size > 0 {
			cfg.stackSize = size
		}
	}
}

// WithoutStack disables stack capture.
func WithoutStack() RecoverOption {
	return func(cfg *recoverConfig) {
		cfg.captureStack = false
	}
}

// Recover turns a panic into a PanicError for the app's error handler.
func Recover(opts ...RecoverOption) internal.Middleware {
	cfg := &recoverConfig{stackSize: DefaultStackSize, captureStack: true}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				pe := &PanicError{Value: r}
				attrs := []any{slog.Any("panic", r), slog.String("class", string(internal.ClassInfrastructure))}
				if cfg.captureStack {
					buf := make([]byte, cfg.stackSize)
					pe.Stack = buf[:runtime.Stack(buf, false)]
					attrs = append(attrs, slog.String("stack", string(pe.Stack)))
				}
				c.LogError("panic recovered", attrs...)
				err = pe
			}()

			return next(c)
		}
	}
}
