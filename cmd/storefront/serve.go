package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/storefront"
	"github.com/dmitrymomot/storefront/internal/catalog"
	"github.com/dmitrymomot/storefront/internal/config"
	"github.com/dmitrymomot/storefront/internal/tasks"
	"github.com/dmitrymomot/storefront/pkg/db"
	"github.com/dmitrymomot/storefront/pkg/health"
	"github.com/dmitrymomot/storefront/pkg/identity"
	"github.com/dmitrymomot/storefront/pkg/job"
	"github.com/dmitrymomot/storefront/pkg/mailer"
	"github.com/dmitrymomot/storefront/pkg/mailer/resend"
	"github.com/dmitrymomot/storefront/pkg/redis"
	"github.com/dmitrymomot/storefront/pkg/session"
	"github.com/dmitrymomot/storefront/pkg/storage"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides HTTP_ADDR)")

	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	log, flush := storefront.NewLogger(cfg.Log, os.Stdout)
	defer flush()

	var (
		deps   storefront.Deps
		pool   *pgxpool.Pool
		client goredis.UniversalClient
		hooks  []storefront.RunOption
	)
	deps.Logger = log
	deps.Checks = make(health.Checks)

	if cfg.NeedsPostgres() {
		p, err := db.Connect(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		pool = p
		deps.Checks["postgres"] = db.Healthcheck(pool)
		hooks = append(hooks, storefront.ShutdownHook(db.Shutdown(pool)))
	}
	if cfg.NeedsRedis() {
		c, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		client = c
		deps.Redis = client
		deps.Checks["redis"] = redis.Healthcheck(client)
		hooks = append(hooks, storefront.ShutdownHook(redis.Shutdown(client)))
	}

	var purger session.Purger
	switch cfg.Session.Backend {
	case config.BackendRedis:
		deps.Sessions = session.NewRedisStore(client)
	case config.BackendPostgres:
		store := session.NewPostgresStore(pool)
		deps.Sessions, purger = store, store
	default:
		log.Warn("sessions are kept in memory and lost on restart")
		store := session.NewMemoryStore()
		deps.Sessions, purger = store, store
	}

	switch cfg.Backend {
	case config.BackendPostgres:
		deps.Accounts = identity.NewPostgresStore(pool)
		deps.Products = catalog.NewPostgresRepository(pool)
	default:
		deps.Accounts = identity.NewMemoryStore()
		deps.Products = catalog.NewMemoryRepository()
	}

	switch cfg.Upload.Backend {
	case config.BackendS3:
		s3, err := storage.New(cfg.Storage)
		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		deps.Files = s3
		deps.Checks["s3"] = storage.Healthcheck(s3)
	default:
		files := storage.NewMemoryStorage(cfg.Upload.BaseURL)
		deps.Files = files
		deps.Uploads = files
	}

	if pool != nil && cfg.Backend == config.BackendPostgres {
		mgr, err := newJobManager(cfg, pool, purger, log)
		if err != nil {
			return err
		}
		deps.Jobs = mgr
		deps.Checks["jobs"] = mgr.Healthcheck
	} else if purger != nil {
		// Without a job runner the server sweeps expired sessions itself.
		hooks = append(hooks, storefront.StartupHook(sweepSessions(purger, cfg.Jobs.PurgeSchedule, log)))
	}

	app, err := storefront.New(cfg, deps)
	if err != nil {
		return err
	}

	opts := append([]storefront.RunOption{
		storefront.Address(cfg.HTTP.Addr),
		storefront.Logger(log),
		storefront.ShutdownTimeout(cfg.HTTP.ShutdownTimeout),
	}, hooks...)
	return app.Run(opts...)
}

func newJobManager(cfg config.Config, pool *pgxpool.Pool, purger session.Purger, log *slog.Logger) (*job.Manager, error) {
	var sender mailer.Sender = mailer.LogSender{Logger: log}
	if cfg.Resend.APIKey != "" {
		sender = resend.New(cfg.Resend)
	}
	mail := mailer.New(sender, mailer.NewRenderer(tasks.Templates()), cfg.Mailer)

	opts := append(tasks.Options(mail, purger, cfg.Jobs.PurgeSchedule, log),
		job.WithLogger(log),
		job.WithMaxWorkers(cfg.Jobs.MaxWorkers),
	)
	mgr, err := job.NewManager(pool, opts...)
	if err != nil {
		return nil, fmt.Errorf("jobs: %w", err)
	}
	return mgr, nil
}

// sweepSessions runs the purge task on schedule until the server context ends.
func sweepSessions(purger session.Purger, schedule string, log *slog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		sched, err := job.ParseSchedule(schedule)
		if err != nil {
			return err
		}
		task := tasks.NewPurgeSessions(purger, schedule, log)

		go func() {
			for {
				timer := time.NewTimer(time.Until(sched.Next(time.Now())))
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
					if err := task.Handle(ctx); err != nil {
						log.ErrorContext(ctx, "session sweep failed", slog.Any("error", err))
					}
				}
			}
		}()
		return nil
	}
}
