package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const ProviderDev = "dev"

// DevSender writes emails to disk instead of sending them, for local
// development without a SendGrid key.
type DevSender struct {
	dir string
}

func NewDevSender(dir string) *DevSender {
	return &DevSender{dir: dir}
}

type devMetadata struct {
	Timestamp string `json:"timestamp"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
}

func (d *DevSender) Send(ctx context.Context, msg Message) (*Result, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	now := time.Now()
	base := fmt.Sprintf("%s_%s", now.Format("2006_01_02_150405.000"), safeFilename(msg.Subject))

	if err := os.WriteFile(filepath.Join(d.dir, base+".html"), []byte(msg.HTML), 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	meta, err := json.MarshalIndent(devMetadata{
		Timestamp: now.Format(time.RFC3339),
		To:        msg.To,
		Subject:   msg.Subject,
		Text:      msg.Text,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".json"), meta, 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	return &Result{Provider: ProviderDev, MessageID: base, StatusCode: 200}, nil
}

func safeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 80 {
		out = out[:80]
	}
	if out == "" {
		out = "email"
	}
	return out
}
