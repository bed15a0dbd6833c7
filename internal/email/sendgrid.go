package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/landertag/mailflow/internal/config"
)

const ProviderSendGrid = "sendgrid"

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	client      *sendgrid.Client
	senderEmail string
	senderName  string
}

func NewSendGridSender(cfg config.SendGridConfig) *SendGridSender {
	s := &SendGridSender{
		senderEmail: cfg.SenderEmail,
		senderName:  cfg.SenderName,
	}
	if cfg.APIKey != "" {
		s.client = sendgrid.NewSendClient(cfg.APIKey)
	}
	return s
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) (*Result, error) {
	if s.client == nil {
		slog.WarnContext(ctx, "SENDGRID_API_KEY not configured, email not sent", "to", msg.To)
		return nil, ErrNotConfigured
	}

	from := sgmail.NewEmail(s.senderName, s.senderEmail)
	to := sgmail.NewEmail("", msg.To)
	m := sgmail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: sendgrid status %d: %s", ErrSendFailed, resp.StatusCode, resp.Body)
	}

	messageID := ""
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		messageID = ids[0]
	}
	slog.InfoContext(ctx, "Email sent via SendGrid", "to", msg.To, "subject", msg.Subject, "status_code", resp.StatusCode)

	return &Result{
		Provider:   ProviderSendGrid,
		MessageID:  messageID,
		StatusCode: resp.StatusCode,
	}, nil
}
