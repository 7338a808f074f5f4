// Package mail provides the outbound.MailClient implementation used by
// the notification dispatcher and weekly report emitter. AETIM does not
// implement SMTP transport itself; this logs the rendered message at
// info level so an operator can wire a real relay (sidecar, managed
// email API) in front of it without touching the application layer.
package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/aetim/core/internal/infrastructure/config"
)

// LoggingClient implements outbound.MailClient by recording the message
// that would have been sent.
type LoggingClient struct {
	cfg    config.EmailConfig
	logger *zap.Logger
}

// NewLoggingClient creates a mail client bound to cfg for the From
// address it logs alongside each message.
func NewLoggingClient(cfg config.EmailConfig, logger *zap.Logger) *LoggingClient {
	return &LoggingClient{cfg: cfg, logger: logger.Named("mail")}
}

// Send logs the message instead of delivering it over SMTP.
func (c *LoggingClient) Send(ctx context.Context, recipients []string, subject, body string) error {
	c.logger.Info("notification message",
		zap.String("from", c.cfg.FromAddress),
		zap.Strings("to", recipients),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}
