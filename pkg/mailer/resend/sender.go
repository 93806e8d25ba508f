// Package resend delivers mailer emails through the Resend API.
package resend

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"

	"github.com/dmitrymomot/storefront/pkg/mailer"
)

// Config holds Resend credentials and the sender identity.
type Config struct {
	APIKey    string `env:"RESEND_API_KEY"`
	FromEmail string `env:"RESEND_FROM_EMAIL" envDefault:"shop@example.com"`
	FromName  string `env:"RESEND_FROM_NAME" envDefault:"Storefront"`
}

// Sender implements mailer.Sender.
type Sender struct {
	client *resend.Client
	from   string
}

// New creates a Sender.
func New(cfg Config) *Sender {
	return &Sender{client: resend.NewClient(cfg.APIKey), from: from(cfg)}
}

func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if _, err := s.client.Emails.SendWithContext(ctx, request(s.from, email)); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

func from(cfg Config) string {
	if cfg.FromName == "" {
		return cfg.FromEmail
	}
	return fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
}

func request(from string, email *mailer.Email) *resend.SendEmailRequest {
	req := &resend.SendEmailRequest{
		From:    from,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}
	for name, value := range email.Tags {
		req.Tags = append(req.Tags, resend.Tag{Name: name, Value: value})
	}
	return req
}
