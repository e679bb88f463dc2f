package notification

import (
	"context"
	"log/slog"
	"time"

	mail "github.com/xhit/go-simple-mail/v2"

	"github.com/BradenHooton/spendwise/pkg/logger"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPSender sends emails through an SMTP relay with STARTTLS.
type SMTPSender struct {
	server *mail.SMTPServer
	from   string
	logger *slog.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) *SMTPSender {
	server := mail.NewSMTPClient()
	server.Host = cfg.Host
	server.Port = cfg.Port
	server.Username = cfg.Username
	server.Password = cfg.Password
	server.Encryption = mail.EncryptionSTARTTLS
	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	return &SMTPSender{
		server: server,
		from:   formatAddress(cfg.FromName, cfg.From),
		logger: logger,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) bool {
	client, err := s.server.Connect()
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to connect to SMTP server", slog.Any("error", err))
		return false
	}
	defer client.Close()

	email := mail.NewMSG()
	email.SetFrom(s.from).
		AddTo(formatAddress(msg.ToName, msg.To)).
		SetSubject(msg.Subject)
	email.SetBody(mail.TextPlain, msg.TextBody)
	email.AddAlternative(mail.TextHTML, msg.HTMLBody)

	if email.Error != nil {
		s.logger.ErrorContext(ctx, "failed to build email", slog.Any("error", email.Error))
		return false
	}

	if err := email.Send(client); err != nil {
		s.logger.ErrorContext(ctx, "failed to send email via SMTP",
			slog.String("to", logger.SanitizedEmail(msg.To)),
			slog.Any("error", err))
		return false
	}

	s.logger.InfoContext(ctx, "email sent via SMTP", slog.String("to", logger.SanitizedEmail(msg.To)))
	return true
}
