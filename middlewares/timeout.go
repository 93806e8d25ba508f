package middlewares

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/storefront/internal"
)

// DefaultTimeout is the default request deadline.
const DefaultTimeout = 30 * time.Second

// Timeout puts a deadline on the request context. Store calls made under it give up
// when it passes. The handler runs on the request goroutine, so a handler that
// ignores the context is not interrupted.
func Timeout(d time.Duration) internal.Middleware {
	if d <= 0 {
		d = DefaultTimeout
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			ctx, cancel := context.WithTimeout(c.Context(), d)
			defer cancel()
			c.SetContext(ctx)

			err := next(c)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Written() {
				c.LogWarn("request timeout", "timeout", d.String())
				return errors.Join(&TimeoutError{Duration: d}, err)
			}
			return err
		}
	}
}
