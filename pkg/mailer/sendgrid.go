package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	mail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/pkg/config"
)

// Message is a single transactional email.
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Body    string
}

// Mailer sends transactional email. Lifecycle handlers treat delivery as
// best-effort: a send failure never fails the triggering operation.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendgridMailer delivers mail through the SendGrid API.
type SendgridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
	logger *zap.Logger
}

// NewSendgrid constructs a SendGrid-backed mailer.
func NewSendgrid(cfg config.MailConfig, logger *zap.Logger) *SendgridMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendgridMailer{
		client: sendgrid.NewSendClient(cfg.SendgridKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
		logger: logger,
	}
}

// Send delivers a single message.
func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	message := mail.NewSingleEmail(m.from, msg.Subject, to, msg.Body, msg.Body)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d", resp.StatusCode)
	}

	m.logger.Debug("email sent", zap.String("to", msg.ToEmail), zap.String("subject", msg.Subject))
	return nil
}

// NopMailer discards messages. Used when MAIL_ENABLED is off.
type NopMailer struct{}

// Send implements Mailer.
func (NopMailer) Send(context.Context, Message) error { return nil }
