package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrymomot/storefront/pkg/logger"
)

type runtimeConfig struct {
	handler         http.Handler
	baseCtx         context.Context
	logger          *slog.Logger
	address         string
	startupHooks    []func(context.Context) error
	shutdownHooks   []func(context.Context) error
	shutdownTimeout time.Duration
}

// runServer starts the HTTP server and blocks until the base context is cancelled
// or a termination signal arrives.
func runServer(cfg runtimeConfig) error {
	if cfg.address == "" {
		cfg.address = ":8080"
	}
	if cfg.shutdownTimeout == 0 {
		cfg.shutdownTimeout = defaultShutdownTimeout
	}
	log := cfg.logger
	if log == nil {
		log = logger.NewNope()
	}
	baseCtx := cfg.baseCtx
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	ctx, cancel := signal.NotifyContext(baseCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for _, hook := range cfg.startupHooks {
		if err := hook(ctx); err != nil {
			return fmt.Errorf("startup hook: %w", err)
		}
	}

	server := &http.Server{
		Addr:              cfg.address,
		Handler:           cfg.handler,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return errors.Join(err, shutdown(cfg, log, server, false))
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Join(err, shutdown(cfg, log, server, false))
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	return shutdown(cfg, log, server, true)
}

func shutdown(cfg runtimeConfig, log *slog.Logger, server *http.Server, serving bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
	defer cancel()

	var errs []error
	if serving {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	for _, hook := range cfg.shutdownHooks {
		if err := hook(ctx); err != nil {
			errs = append(errs, err)
			log.Error("shutdown hook failed", slog.Any("error", err))
		}
	}

	if len(errs) > 0 {
		log.Error("shutdown completed with errors")
		return errors.Join(errs...)
	}
	log.Info("shutdown completed")
	return nil
}
