package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/warden/pkg/logger"
	"github.com/resend/resend-go/v2"
)

// ResendMailer delivers email through the Resend API.
type ResendMailer struct {
	send   func(req *resend.SendEmailRequest) (string, error)
	from   string
	logger *slog.Logger
}

func NewResendMailer(apiKey, from string, log *slog.Logger) *ResendMailer {
	client := resend.NewClient(apiKey)
	return &ResendMailer{
		send: func(req *resend.SendEmailRequest) (string, error) {
			sent, err := client.Emails.Send(req)
			if err != nil {
				return "", err
			}
			return sent.Id, nil
		},
		from:   from,
		logger: log,
	}
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	// The client takes no context; stop early if the caller already gave up.
	if err := ctx.Err(); err != nil {
		return err
	}

	id, err := m.send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		m.logger.Error("failed to send email via resend",
			slog.String("email", logger.SanitizedEmail(msg.To)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("email sent",
		slog.String("email", logger.SanitizedEmail(msg.To)),
		slog.String("subject", msg.Subject),
		slog.String("message_id", id))
	return nil
}
