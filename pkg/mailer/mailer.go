// Package mailer renders markdown email templates and hands them to a delivery provider.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/template"
)

var (
	ErrNoRecipient        = errors.New("mailer: no recipient")
	ErrTemplateNotFound   = errors.New("mailer: template not found")
	ErrLayoutNotFound     = errors.New("mailer: layout not found")
	ErrInvalidFrontmatter = errors.New("mailer: invalid frontmatter")
	ErrRenderFailed       = errors.New("mailer: render failed")
	ErrSendFailed         = errors.New("mailer: send failed")
)

// Config holds mailer defaults.
type Config struct {
	FallbackSubject string `env:"MAILER_FALLBACK_SUBJECT" envDefault:"Notification"`
	Layout          string `env:"MAILER_LAYOUT" envDefault:"base.html"`
}

// Email is a fully rendered message.
type Email struct {
	Tags    map[string]string
	Subject string
	HTML    string
	Text    string
	To      []string
}

// Sender delivers rendered emails.
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// Message selects a template and the data it renders with.
type Message struct {
	Data     any
	Tags     map[string]string
	To       string
	Template string
	Subject  string
}

// Mailer renders templates and sends them.
type Mailer struct {
	sender   Sender
	renderer *Renderer
	cfg      Config
}

// New creates a Mailer.
func New(sender Sender, renderer *Renderer, cfg Config) *Mailer {
	return &Mailer{sender: sender, renderer: renderer, cfg: cfg}
}

// Send renders msg and delivers it.
// The subject comes from msg, then the template frontmatter, then the fallback.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	out, err := m.renderer.Render(m.cfg.Layout, msg.Template, msg.Data)
	if err != nil {
		return err
	}

	subject := msg.Subject
	if subject == "" {
		subject = out.Subject
	}
	if subject == "" {
		subject = m.cfg.FallbackSubject
	}
	subject, err = expand(subject, msg.Data)
	if err != nil {
		return fmt.Errorf("%w: subject: %v", ErrRenderFailed, err)
	}

	email := &Email{
		To:      []string{msg.To},
		Subject: subject,
		HTML:    out.HTML,
		Text:    out.Text,
		Tags:    msg.Tags,
	}
	if err := m.sender.Send(ctx, email); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}

func expand(s string, data any) (string, error) {
	t, err := template.New("subject").Option("missingkey=error").Parse(s)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LogSender writes emails to a logger instead of delivering them.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, email *Email) error {
	s.Logger.InfoContext(ctx, "email not delivered: no provider configured",
		slog.Any("to", email.To),
		slog.String("subject", email.Subject),
	)
	return nil
}
