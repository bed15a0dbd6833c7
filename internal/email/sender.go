package email

import (
	"context"
	"errors"
)

var (
	ErrNotConfigured = errors.New("email provider not configured")
	ErrSendFailed    = errors.New("email send failed")
)

// Message is the provider-agnostic payload for one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Result reports a successful send. Provider and MessageID end up in the
// email log for operator correlation.
type Result struct {
	Provider   string
	MessageID  string
	StatusCode int
}

// Sender sends a single email. Implementations must be safe for concurrent
// use.
type Sender interface {
	Send(ctx context.Context, msg Message) (*Result, error)
}
