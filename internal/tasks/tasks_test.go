package tasks_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/internal/tasks"
	"github.com/dmitrymomot/storefront/pkg/mailer"
	"github.com/dmitrymomot/storefront/pkg/session"
)

type recordingSender struct {
	sent []*mailer.Email
	err  error
}

func (s *recordingSender) Send(_ context.Context, e *mailer.Email) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, e)
	return nil
}

func newMailer(s mailer.Sender) *mailer.Mailer {
	return mailer.New(s, mailer.NewRenderer(tasks.Templates()), mailer.Config{
		FallbackSubject: "Notification",
		Layout:          "base.html",
	})
}

func TestSendWelcomeEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("renders the embedded template", func(t *testing.T) {
		t.Parallel()
		s := &recordingSender{}
		task := tasks.NewSendWelcomeEmail(newMailer(s))
		require.Equal(t, "send_welcome_email", task.Name())

		require.NoError(t, task.Handle(ctx, tasks.WelcomePayload{Email: "ada@example.com", Name: "Ada"}))
		require.Len(t, s.sent, 1)
		require.Equal(t, []string{"ada@example.com"}, s.sent[0].To)
		require.Equal(t, "Welcome to the shop, Ada", s.sent[0].Subject)
		require.Contains(t, s.sent[0].HTML, "<strong>ada@example.com</strong>")
		require.Equal(t, "welcome", s.sent[0].Tags["category"])
	})

	t.Run("missing name falls back", func(t *testing.T) {
		t.Parallel()
		s := &recordingSender{}
		require.NoError(t, tasks.NewSendWelcomeEmail(newMailer(s)).Handle(ctx, tasks.WelcomePayload{Email: "b@example.com"}))
		require.Equal(t, "Welcome to the shop, there", s.sent[0].Subject)
	})

	t.Run("empty payload is dropped", func(t *testing.T) {
		t.Parallel()
		s := &recordingSender{}
		require.NoError(t, tasks.NewSendWelcomeEmail(newMailer(s)).Handle(ctx, tasks.WelcomePayload{}))
		require.Empty(t, s.sent)
	})

	t.Run("provider failure is returned for retry", func(t *testing.T) {
		t.Parallel()
		s := &recordingSender{err: errors.New("rate limited")}
		err := tasks.NewSendWelcomeEmail(newMailer(s)).Handle(ctx, tasks.WelcomePayload{Email: "c@example.com"})
		require.ErrorIs(t, err, mailer.ErrSendFailed)
	})
}

type failingPurger struct{}

func (failingPurger) DeleteExpired(context.Context) (int64, error) {
	return 0, session.ErrUnavailable
}

func TestPurgeSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := session.NewMemoryStore()
	live := session.New("live", "tok-live", "secret", time.Now().Add(time.Hour))
	dead := session.New("dead", "tok-dead", "secret", time.Now().Add(-time.Minute))
	require.NoError(t, store.Save(ctx, live))
	require.NoError(t, store.Save(ctx, dead))

	task := tasks.NewPurgeSessions(store, "", slog.New(slog.DiscardHandler))
	require.Equal(t, "purge_sessions", task.Name())
	require.Equal(t, "*/15 * * * *", task.Schedule())

	require.NoError(t, task.Handle(ctx))
	require.Equal(t, 1, store.Len())

	err := tasks.NewPurgeSessions(failingPurger{}, "@hourly", nil).Handle(ctx)
	require.ErrorIs(t, err, session.ErrUnavailable)
}

func TestOptions(t *testing.T) {
	t.Parallel()

	m := newMailer(&recordingSender{})
	require.Len(t, tasks.Options(m, nil, "", nil), 1)
	require.Len(t, tasks.Options(m, session.NewMemoryStore(), "", nil), 2)
}
