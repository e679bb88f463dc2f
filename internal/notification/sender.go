package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/spendwise/internal/config"
	"github.com/BradenHooton/spendwise/pkg/logger"
)

// Message is one outgoing email with both HTML and plain-text bodies.
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers a message. Implementations report failure by returning
// false and never panic into the caller's control flow.
type Sender interface {
	Send(ctx context.Context, msg Message) bool
}

// LogSender records that a message would have been sent. Bodies carry reset
// codes and are never logged at any level.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) bool {
	s.logger.InfoContext(ctx, "email captured by log sender",
		slog.String("to", logger.SanitizedEmail(msg.To)),
		slog.String("subject", msg.Subject),
		slog.Int("text_bytes", len(msg.TextBody)),
	)
	return true
}

// NewSender builds the sender selected by EMAIL_PROVIDER.
func NewSender(ctx context.Context, cfg config.EmailConfig, logger *slog.Logger) (Sender, error) {
	switch cfg.Provider {
	case "ses":
		return NewSESSender(ctx, cfg.AWSRegion, cfg.FromAddress, cfg.FromName, logger)
	case "smtp":
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.FromAddress,
			FromName: cfg.FromName,
		}, logger), nil
	case "log":
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
