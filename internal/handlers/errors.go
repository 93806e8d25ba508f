package handlers

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/storefront/internal"
	"github.com/dmitrymomot/storefront/internal/views"
)

// ErrorHandler renders the error page. Errors a pipeline stage already logged
// are not logged again. Server errors show only the status text.
func ErrorHandler(c internal.Context, err error) error {
	status := internal.StatusOf(err)

	if _, logged := internal.FailedStage(err); !logged {
		attrs := []any{
			slog.Int("status", status),
			slog.String("class", string(internal.ClassOf(err))),
			slog.String("path", c.Request().URL.Path),
			slog.Any("error", err),
		}
		switch {
		case status >= http.StatusInternalServerError:
			c.LogError("request failed", attrs...)
		case status == http.StatusNotFound:
			c.LogDebug("not found", attrs...)
		default:
			c.LogWarn("request rejected", attrs...)
		}
	}

	msg := http.StatusText(status)
	if he := internal.AsHTTPError(err); he != nil && status < http.StatusInternalServerError && he.Message != "" {
		msg = he.Message
	}

	c.SetHeader("Cache-Control", "no-store")
	return c.Render(status, views.Error(page(c), status, msg))
}

// NotFound is the 404 handler.
func NotFound(c internal.Context) error {
	return internal.ErrNotFound("Page Not Found")
}

// ServerError serves the generic error page at /500.
func ServerError(c internal.Context) error {
	return c.Render(http.StatusInternalServerError,
		views.Error(page(c), http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)))
}
