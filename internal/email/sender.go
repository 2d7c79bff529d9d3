package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNotConfigured indicates outbound mail credentials are missing.
// This is a configuration problem, not a runtime fault, and callers
// report it distinctly from delivery failures.
var ErrNotConfigured = errors.New("email: smtp credentials not configured")

// Sender delivers composed messages through the configured SMTP relay.
// It is stateless and safe to share across concurrent sessions.
type Sender struct {
	cfg    Config
	logger *slog.Logger
}

// NewSender creates a Sender. The config may be unconfigured; Send
// reports ErrNotConfigured in that case.
func NewSender(cfg Config, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{cfg: cfg, logger: logger}
}

// Configured reports whether outbound mail can be attempted.
func (s *Sender) Configured() bool { return s.cfg.SMTP.Configured() }

// Send composes and delivers one message. Recipients are To plus Cc.
func (s *Sender) Send(ctx context.Context, opts ComposeOptions) error {
	if !s.cfg.SMTP.Configured() {
		return ErrNotConfigured
	}

	if opts.From == "" {
		opts.From = s.cfg.From
	}

	msg, err := ComposeMessage(opts)
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}

	recipients := append(append([]string{}, opts.To...), opts.Cc...)
	if err := SendMail(ctx, s.cfg.SMTP, opts.From, recipients, msg); err != nil {
		return err
	}

	s.logger.Info("email sent", "to", opts.To, "subject", opts.Subject)
	return nil
}
