// Package email renders and delivers transactional clinic emails.
// Rendering happens at enqueue time in the notification module; delivery
// is a single generic send so the outbox payload stays self-contained.
package email

import (
	"context"

	"vetclinic_backend/platform/config"
)

// Sender delivers an already-rendered email.
type Sender interface {
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender is used when email is disabled. Sends succeed silently.
type NoopSender struct{}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

var _ Sender = NoopSender{}

// NewSender builds the configured Sender. With email disabled (or no SMTP
// host set) it falls back to the NoopSender.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
