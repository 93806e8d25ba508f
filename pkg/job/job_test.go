package job

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

type greetPayload struct {
	Email string `json:"email"`
}

type greetTask struct {
	got []string
	err error
}

func (t *greetTask) Name() string { return "greet" }

func (t *greetTask) Handle(_ context.Context, p greetPayload) error {
	t.got = append(t.got, p.Email)
	return t.err
}

type purgeTask struct{ runs int }

func (t *purgeTask) Name() string                 { return "purge" }
func (t *purgeTask) Schedule() string             { return "*/15 * * * *" }
func (t *purgeTask) Handle(context.Context) error { t.runs++; return nil }

func newTestConfig(opts ...Option) *config {
	cfg := &config{registry: &registry{runners: make(map[string]runner)}}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func TestWithTask(t *testing.T) {
	t.Parallel()

	task := &greetTask{}
	cfg := newTestConfig(WithTask(task))

	rn, ok := cfg.registry.lookup("greet")
	require.True(t, ok)

	require.NoError(t, rn.run(context.Background(), json.RawMessage(`{"email":"a@example.com"}`)))
	require.Equal(t, []string{"a@example.com"}, task.got)

	err := rn.run(context.Background(), json.RawMessage(`{"email":`))
	require.ErrorIs(t, err, ErrInvalidPayload)

	task.err = errors.New("smtp down")
	require.EqualError(t, rn.run(context.Background(), nil), "smtp down")
}

func TestPeriodicJobs(t *testing.T) {
	t.Parallel()

	task := &purgeTask{}
	cfg := newTestConfig(WithPeriodicTask(task))

	jobs, err := periodicJobs(cfg)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	rn, ok := cfg.registry.lookup("purge")
	require.True(t, ok)
	require.NoError(t, rn.run(context.Background(), nil))
	require.Equal(t, 1, task.runs)
}

func TestParseSchedule(t *testing.T) {
	t.Parallel()

	s, err := ParseSchedule("*/15 * * * *")
	require.NoError(t, err)
	from := time.Date(2026, 1, 1, 10, 7, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 1, 1, 10, 15, 0, 0, time.UTC), s.Next(from))

	s, err = ParseSchedule("@every 1h")
	require.NoError(t, err)
	require.Equal(t, from.Add(time.Hour), s.Next(from))

	_, err = ParseSchedule("every quarter hour")
	require.Error(t, err)
}

func TestBuildArgs(t *testing.T) {
	t.Parallel()

	args, insert, err := buildArgs("greet", greetPayload{Email: "a@example.com"}, []EnqueueOption{
		InQueue("email"),
		MaxAttempts(5),
		UniqueFor("user-1", time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, "greet", args.Task)
	require.JSONEq(t, `{"email":"a@example.com"}`, string(args.Payload))
	require.Equal(t, "user-1", args.UniqueKey)
	require.Equal(t, "email", insert.Queue)
	require.Equal(t, 5, insert.MaxAttempts)
	require.Equal(t, time.Hour, insert.UniqueOpts.ByPeriod)

	_, _, err = buildArgs("greet", make(chan int), nil)
	require.Error(t, err)

	args, insert, err = buildArgs("purge", nil, []EnqueueOption{ScheduledIn(time.Minute)})
	require.NoError(t, err)
	require.Nil(t, args.Payload)
	require.WithinDuration(t, time.Now().Add(time.Minute), insert.ScheduledAt, time.Second)
}

func TestNewManager_RequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewManager(nil)
	require.ErrorIs(t, err, ErrPoolRequired)
}

func TestManager_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool, newTestLogger()))

	mgr, err := NewManager(pool, WithTask(&greetTask{}))
	require.NoError(t, err)

	require.ErrorIs(t, mgr.Enqueue(ctx, "missing", nil), ErrUnknownTask)
	require.NoError(t, mgr.Enqueue(ctx, "greet", greetPayload{Email: "a@example.com"}))

	require.ErrorIs(t, mgr.Healthcheck(ctx), ErrNotStarted)
	require.NoError(t, mgr.Start(ctx))
	require.ErrorIs(t, mgr.Start(ctx), ErrAlreadyStarted)
	require.NoError(t, mgr.Healthcheck(ctx))
	require.NoError(t, mgr.Stop(ctx))
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
