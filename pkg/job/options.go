package job

import (
	"context"
	"log/slog"
	"time"
)

type config struct {
	registry   *registry
	logger     *slog.Logger
	periodic   []periodicTask
	maxWorkers int
}

type periodicTask struct {
	handle   func(context.Context) error
	name     string
	schedule string
}

// Option configures the Manager.
type Option func(*config)

// WithTask registers a task whose payload type is inferred from Handle.
func WithTask[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}](task T) Option {
	return func(c *config) {
		c.registry.add(task.Name(), typedRunner[P]{handle: task.Handle})
	}
}

// WithPeriodicTask registers a task run on a five-field cron schedule.
func WithPeriodicTask[T interface {
	Name() string
	Schedule() string
	Handle(context.Context) error
}](task T) Option {
	return func(c *config) {
		c.periodic = append(c.periodic, periodicTask{
			name:     task.Name(),
			schedule: task.Schedule(),
			handle:   task.Handle,
		})
	}
}

// WithLogger sets the logger for job processing.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxWorkers caps concurrent jobs on the default queue.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

type enqueueConfig struct {
	scheduledAt time.Time
	queue       string
	uniqueKey   string
	maxAttempts int
	uniqueFor   time.Duration
}

// EnqueueOption configures a single enqueue call.
type EnqueueOption func(*enqueueConfig)

// InQueue routes the job to a named queue.
func InQueue(name string) EnqueueOption {
	return func(c *enqueueConfig) { c.queue = name }
}

// ScheduledIn delays the job by d.
func ScheduledIn(d time.Duration) EnqueueOption {
	return func(c *enqueueConfig) { c.scheduledAt = time.Now().Add(d) }
}

// MaxAttempts limits retries.
func MaxAttempts(n int) EnqueueOption {
	return func(c *enqueueConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// UniqueFor skips the insert when a job with the same task and key was queued within d.
func UniqueFor(key string, d time.Duration) EnqueueOption {
	return func(c *enqueueConfig) {
		c.uniqueKey = key
		c.uniqueFor = d
	}
}
