// Package logger builds slog loggers that enrich records with request-scoped
// attributes and optionally forward warnings and errors to Sentry.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// Config controls log output.
type Config struct {
	Sentry SentryConfig
	Format string     `env:"LOG_FORMAT" envDefault:"json"` // json or text
	Level  slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// SentryConfig holds Sentry integration configuration.
type SentryConfig struct {
	DSN         string        `env:"SENTRY_DSN"`
	Environment string        `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	FlushWait   time.Duration `env:"SENTRY_FLUSH_WAIT" envDefault:"2s"`
	// Errors become Sentry issues; records at or above MinLevel are attached as logs.
	MinLevel slog.Level `env:"SENTRY_MIN_LEVEL" envDefault:"warn"`
}

// ContextExtractor extracts a slog attribute from context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// New creates a logger writing to w. When a Sentry DSN is configured, records are
// also sent to Sentry and the returned flush function drains pending events.
// Without a DSN the flush function is a no-op.
func New(cfg Config, w io.Writer, extractors ...ContextExtractor) (*slog.Logger, func()) {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var base slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	if cfg.Sentry.DSN == "" {
		return slog.New(NewLogHandlerDecorator(base, extractors...)), func() {}
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		EnableLogs:  true,
	})
	if err != nil {
		l := slog.New(NewLogHandlerDecorator(base, extractors...))
		l.Error("failed to initialize sentry", slog.String("error", err.Error()))
		return l, func() {}
	}

	logLevels := []slog.Level{slog.LevelWarn, slog.LevelError}
	if cfg.Sentry.MinLevel >= slog.LevelError {
		logLevels = []slog.Level{slog.LevelError}
	}
	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   logLevels,
	}.NewSentryHandler(context.Background())

	wait := cfg.Sentry.FlushWait
	if wait <= 0 {
		wait = 2 * time.Second
	}

	l := slog.New(NewLogHandlerDecorator(newMultiHandler(base, sentryHandler), extractors...))
	return l, func() { sentry.Flush(wait) }
}

// NewNope creates a logger that discards all output.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
