package services

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/BradenHooton/spendwise/internal/models"
	"github.com/BradenHooton/spendwise/internal/notification"
	"github.com/BradenHooton/spendwise/internal/notification/templates"
	pkglogger "github.com/BradenHooton/spendwise/pkg/logger"
)

// Notifier sends the account emails. Each method reports whether the
// message was handed to the provider.
type Notifier interface {
	SendWelcome(ctx context.Context, user *models.User) bool
	SendResetCode(ctx context.Context, issued *models.IssuedReset) bool
	SendPasswordChangeCode(ctx context.Context, issued *models.IssuedReset) bool
	SendPasswordChanged(ctx context.Context, user *models.User, ipAddress string) bool
}

// EmailService renders the account email templates and hands them to a
// notification.Sender.
type EmailService struct {
	sender       notification.Sender
	engine       *templates.Engine
	baseURL      string
	supportEmail string
	logger       *slog.Logger
	now          func() time.Time
}

func NewEmailService(sender notification.Sender, engine *templates.Engine, baseURL, supportEmail string, logger *slog.Logger) *EmailService {
	return &EmailService{
		sender:       sender,
		engine:       engine,
		baseURL:      strings.TrimRight(baseURL, "/"),
		supportEmail: supportEmail,
		logger:       logger,
		now:          time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *EmailService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *EmailService) SendWelcome(ctx context.Context, user *models.User) bool {
	rendered, err := templates.Render(s.engine, templates.Welcome, templates.WelcomeData{
		FirstName:    user.FirstName,
		Username:     user.Username,
		LoginURL:     s.baseURL + "/auth/login",
		SupportEmail: s.supportEmail,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to render welcome email", slog.Any("error", err))
		return false
	}
	return s.deliver(ctx, user.Email, user.DisplayName(), rendered)
}

func (s *EmailService) SendResetCode(ctx context.Context, issued *models.IssuedReset) bool {
	return s.sendCode(ctx, templates.PasswordResetCode, issued, s.baseURL+"/auth/reset-password")
}

func (s *EmailService) SendPasswordChangeCode(ctx context.Context, issued *models.IssuedReset) bool {
	return s.sendCode(ctx, templates.PasswordChangeCode, issued, s.baseURL+"/dashboard/profile")
}

func (s *EmailService) sendCode(ctx context.Context, h templates.Handle[templates.CodeData], issued *models.IssuedReset, actionURL string) bool {
	minutes := int(math.Ceil(issued.ExpiresAt.Sub(s.now()).Minutes()))
	if minutes < 1 {
		minutes = 1
	}

	rendered, err := templates.Render(s.engine, h, templates.CodeData{
		FirstName:     issued.FirstName,
		Code:          issued.Code,
		ExpiryMinutes: minutes,
		ActionURL:     actionURL,
		SupportEmail:  s.supportEmail,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to render code email",
			slog.String("template", h.ID()),
			slog.Any("error", err),
		)
		return false
	}
	return s.deliver(ctx, issued.Email, issued.FirstName, rendered)
}

func (s *EmailService) SendPasswordChanged(ctx context.Context, user *models.User, ipAddress string) bool {
	rendered, err := templates.Render(s.engine, templates.PasswordChanged, templates.PasswordChangedData{
		FirstName:    user.FirstName,
		ChangedAt:    s.now().UTC().Format("2 Jan 2006 15:04 MST"),
		IPAddress:    ipAddress,
		SupportEmail: s.supportEmail,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to render password changed email", slog.Any("error", err))
		return false
	}
	return s.deliver(ctx, user.Email, user.DisplayName(), rendered)
}

func (s *EmailService) deliver(ctx context.Context, to, toName string, rendered templates.Rendered) bool {
	ok := s.sender.Send(ctx, notification.Message{
		To:       to,
		ToName:   toName,
		Subject:  rendered.Subject,
		HTMLBody: rendered.EmailHTML,
		TextBody: rendered.EmailText,
	})
	if !ok {
		s.logger.WarnContext(ctx, "email delivery failed",
			slog.String("to", pkglogger.SanitizedEmail(to)),
			slog.String("subject", rendered.Subject),
		)
	}
	return ok
}
