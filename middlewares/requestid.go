package middlewares

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storefront/internal"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

type requestIDKey struct{}

// RequestIDHeader is read from the request and echoed on the response.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

// RequestID assigns an ID to each request. An upstream ID is kept when it looks sane.
func RequestID() internal.Middleware {
	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			reqID := c.Header(RequestIDHeader)
			if !validRequestID(reqID) {
				reqID = uuid.NewString()
			}

			c.Set(requestIDKey{}, reqID)
			c.SetHeader(RequestIDHeader, reqID)
			return next(c)
		}
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}

// GetRequestID returns the request ID, or an empty string outside RequestID.
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// RequestIDExtractor adds request_id to log records.
func RequestIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v := GetRequestID(ctx); v != "" {
			return slog.String("request_id", v), true
		}
		return slog.Attr{}, false
	}
}
