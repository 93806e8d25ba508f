package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/robfig/cron/v3"
)

const defaultMaxWorkers = 20

// Manager enqueues and works tasks.
type Manager struct {
	pool     *pgxpool.Pool
	client   *river.Client[pgx.Tx]
	registry *registry
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewManager builds the River client. Enqueue works before Start.
func NewManager(pool *pgxpool.Pool, opts ...Option) (*Manager, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	cfg := &config{
		registry:   &registry{runners: make(map[string]runner)},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxWorkers: defaultMaxWorkers,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	periodic, err := periodicJobs(cfg)
	if err != nil {
		return nil, err
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &taskWorker{registry: cfg.registry, logger: cfg.logger})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:       map[string]river.QueueConfig{river.QueueDefault: {MaxWorkers: cfg.maxWorkers}},
		Workers:      workers,
		PeriodicJobs: periodic,
		Logger:       cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("job: create client: %w", err)
	}

	return &Manager{
		pool:     pool,
		client:   client,
		registry: cfg.registry,
		logger:   cfg.logger,
	}, nil
}

func periodicJobs(cfg *config) ([]*river.PeriodicJob, error) {
	jobs := make([]*river.PeriodicJob, 0, len(cfg.periodic))
	for _, p := range cfg.periodic {
		schedule, err := ParseSchedule(p.schedule)
		if err != nil {
			return nil, fmt.Errorf("job: task %s: %w", p.name, err)
		}
		cfg.registry.add(p.name, periodicRunner(p.handle))

		name := p.name
		jobs = append(jobs, river.NewPeriodicJob(schedule,
			func() (river.JobArgs, *river.InsertOpts) { return &taskArgs{Task: name}, nil },
			nil,
		))
	}
	return jobs, nil
}

// Enqueue queues a registered task.
func (m *Manager) Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) error {
	if _, ok := m.registry.lookup(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	args, insert, err := buildArgs(name, payload, opts)
	if err != nil {
		return err
	}
	if _, err := m.client.Insert(ctx, args, insert); err != nil {
		return fmt.Errorf("job: enqueue %s: %w", name, err)
	}
	return nil
}

// Start begins working jobs.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	if err := m.client.Start(ctx); err != nil {
		return fmt.Errorf("job: start: %w", err)
	}
	m.started = true
	m.logger.InfoContext(ctx, "job manager started", slog.Int("tasks", m.registry.len()))
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}
	if err := m.client.Stop(ctx); err != nil {
		return fmt.Errorf("job: stop: %w", err)
	}
	m.started = false
	m.logger.InfoContext(ctx, "job manager stopped")
	return nil
}

// Healthcheck reports whether the manager runs and its database answers.
func (m *Manager) Healthcheck(ctx context.Context) error {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()

	if !started {
		return errors.Join(ErrUnhealthy, ErrNotStarted)
	}
	if err := m.pool.Ping(ctx); err != nil {
		return errors.Join(ErrUnhealthy, err)
	}
	return nil
}

// Migrate applies River's own schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), &rivermigrate.Config{Logger: logger})
	if err != nil {
		return fmt.Errorf("job: migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("job: migrate: %w", err)
	}
	logger.InfoContext(ctx, "river migrations applied", slog.Int("count", len(res.Versions)))
	return nil
}

type cronSchedule struct {
	schedule cron.Schedule
}

func (s cronSchedule) Next(t time.Time) time.Time { return s.schedule.Next(t) }

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a five-field cron expression or a descriptor such as "@every 15m".
func ParseSchedule(expr string) (river.PeriodicSchedule, error) {
	s, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return cronSchedule{schedule: s}, nil
}
