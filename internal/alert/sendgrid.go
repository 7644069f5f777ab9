package alert

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/nagrik-gov/portal/internal/shared/config"
)

// SendGridSender delivers alert emails through the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// NewSendGridSender creates a SendGrid-backed sender. It returns nil when no
// API key is configured so the dispatcher degrades to log-only.
func NewSendGridSender(cfg config.AlertConfig) *SendGridSender {
	if cfg.SendGridAPIKey == "" {
		return nil
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

// Send delivers one email.
func (s *SendGridSender) Send(ctx context.Context, email Email) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", email.To)
	message := mail.NewSingleEmail(from, email.Subject, to, email.Body, email.Body)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
