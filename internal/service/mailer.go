package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends a plain e-mail.
type Mailer interface {
	Send(ctx context.Context, to, toName, subject, plainText, htmlContent string) error
}

// SendGridMailer delivers admin alerts through the SendGrid v3 API.
type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// NewSendGridMailer returns nil when no API key is configured.
func NewSendGridMailer(apiKey, fromEmail, fromName string) *SendGridMailer {
	if apiKey == "" {
		return nil
	}
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, to, toName, subject, plainText, htmlContent string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail(toName, to), plainText, htmlContent)
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
