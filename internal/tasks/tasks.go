// Package tasks holds the background jobs of the storefront.
package tasks

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/dmitrymomot/storefront/pkg/job"
	"github.com/dmitrymomot/storefront/pkg/mailer"
	"github.com/dmitrymomot/storefront/pkg/session"
)

//go:embed templates
var templates embed.FS

// Templates returns the email templates rooted at the templates directory.
func Templates() fs.FS {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Task names.
const (
	SendWelcomeEmailName = "send_welcome_email"
	PurgeSessionsName    = "purge_sessions"
)

// WelcomePayload is enqueued by signup.
type WelcomePayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// EmailSender is the part of mailer.Mailer the tasks use.
type EmailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// SendWelcomeEmail greets a new account.
type SendWelcomeEmail struct {
	mail EmailSender
}

// NewSendWelcomeEmail creates the task.
func NewSendWelcomeEmail(mail EmailSender) *SendWelcomeEmail {
	return &SendWelcomeEmail{mail: mail}
}

func (t *SendWelcomeEmail) Name() string { return SendWelcomeEmailName }

// Handle sends the email. A payload without a recipient is dropped.
func (t *SendWelcomeEmail) Handle(ctx context.Context, p WelcomePayload) error {
	if p.Email == "" {
		return nil
	}
	name := p.Name
	if name == "" {
		name = "there"
	}
	return t.mail.Send(ctx, mailer.Message{
		To:       p.Email,
		Template: "welcome.md",
		Data:     map[string]string{"Name": name, "Email": p.Email},
		Tags:     map[string]string{"category": "welcome"},
	})
}

// PurgeSessions deletes expired session records on a schedule.
type PurgeSessions struct {
	store    session.Purger
	logger   *slog.Logger
	schedule string
}

// NewPurgeSessions creates the task. An empty schedule means every 15 minutes.
func NewPurgeSessions(store session.Purger, schedule string, logger *slog.Logger) *PurgeSessions {
	if schedule == "" {
		schedule = "*/15 * * * *"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PurgeSessions{store: store, schedule: schedule, logger: logger}
}

func (t *PurgeSessions) Name() string     { return PurgeSessionsName }
func (t *PurgeSessions) Schedule() string { return t.schedule }

func (t *PurgeSessions) Handle(ctx context.Context) error {
	n, err := t.store.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	if n > 0 {
		t.logger.InfoContext(ctx, "expired sessions purged", slog.Int64("count", n))
	}
	return nil
}

// Options registers the tasks with a job.Manager. purger may be nil when the
// session backend expires records on its own.
func Options(mail EmailSender, purger session.Purger, schedule string, logger *slog.Logger) []job.Option {
	opts := []job.Option{job.WithTask(NewSendWelcomeEmail(mail))}
	if purger != nil {
		opts = append(opts, job.WithPeriodicTask(NewPurgeSessions(purger, schedule, logger)))
	}
	return opts
}
