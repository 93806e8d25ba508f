// Package job runs background tasks on River backed by Postgres.
//
// Tasks are registered by name with a typed payload; every task shares a single
// River job kind so the queue schema stays independent of task types:
//
//	mgr, err := job.NewManager(pool,
//		job.WithTask(tasks.NewSendWelcomeEmail(mailer)),
//		job.WithPeriodicTask(tasks.NewPurgeSessions(store)),
//	)
//	err = mgr.Enqueue(ctx, "send_welcome_email", tasks.WelcomePayload{Email: email})
package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/riverqueue/river"
)

var (
	ErrUnknownTask    = errors.New("job: unknown task")
	ErrInvalidPayload = errors.New("job: invalid payload")
	ErrAlreadyStarted = errors.New("job: already started")
	ErrNotStarted     = errors.New("job: not started")
	ErrPoolRequired   = errors.New("job: pool is required")
	ErrUnhealthy      = errors.New("job: unhealthy")
)

// Enqueuer dispatches named tasks. Handlers depend on this rather than on Manager.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) error
}

type runner interface {
	run(ctx context.Context, payload json.RawMessage) error
}

type typedRunner[P any] struct {
	handle func(context.Context, P) error
}

func (r typedRunner[P]) run(ctx context.Context, raw json.RawMessage) error {
	var payload P
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return errors.Join(ErrInvalidPayload, err)
		}
	}
	return r.handle(ctx, payload)
}

type periodicRunner func(context.Context) error

func (r periodicRunner) run(ctx context.Context, _ json.RawMessage) error { return r(ctx) }

type registry struct {
	runners map[string]runner
	mu      sync.RWMutex
}

func (r *registry) add(name string, rn runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[name] = rn
}

func (r *registry) lookup(name string) (runner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rn, ok := r.runners[name]
	return rn, ok
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runners)
}

// taskArgs is the single River job kind every task travels as.
type taskArgs struct {
	Task      string          `json:"task"`
	UniqueKey string          `json:"unique_key,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (taskArgs) Kind() string { return "storefront:task" }

type taskWorker struct {
	river.WorkerDefaults[taskArgs]
	registry *registry
	logger   *slog.Logger
}

func (w *taskWorker) Work(ctx context.Context, j *river.Job[taskArgs]) error {
	rn, ok := w.registry.lookup(j.Args.Task)
	if !ok {
		// Cancel instead of retrying: no deploy of this binary can run it.
		return river.JobCancel(fmt.Errorf("%w: %s", ErrUnknownTask, j.Args.Task))
	}

	log := w.logger.With(
		slog.String("task", j.Args.Task),
		slog.Int64("job_id", j.ID),
		slog.Int("attempt", j.Attempt),
	)

	if err := rn.run(ctx, j.Args.Payload); err != nil {
		if errors.Is(err, ErrInvalidPayload) {
			log.ErrorContext(ctx, "task payload rejected", slog.Any("error", err))
			return river.JobCancel(err)
		}
		log.ErrorContext(ctx, "task failed", slog.Any("error", err))
		return err
	}

	log.DebugContext(ctx, "task completed")
	return nil
}

func buildArgs(name string, payload any, opts []EnqueueOption) (*taskArgs, *river.InsertOpts, error) {
	args := &taskArgs{Task: name}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("job: marshal payload: %w", err)
		}
		args.Payload = raw
	}

	var cfg enqueueConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	insert := &river.InsertOpts{
		Queue:       cfg.queue,
		MaxAttempts: cfg.maxAttempts,
	}
	if !cfg.scheduledAt.IsZero() {
		insert.ScheduledAt = cfg.scheduledAt
	}
	if cfg.uniqueFor > 0 {
		insert.UniqueOpts = river.UniqueOpts{ByArgs: true, ByPeriod: cfg.uniqueFor}
		args.UniqueKey = cfg.uniqueKey
	}
	return args, insert, nil
}
