package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventLogin           = "login"
	EventLogout          = "logout"
	EventLockout         = "account_lockout"
	EventRegister        = "register"
	EventPasswordReset   = "password_reset"
	EventPasswordChange  = "password_change"
	EventRememberRestore = "remember_me_restore"
)

// PasswordMethod tells the anonymous reset flow from the signed-in change flow.
type PasswordMethod string

const (
	PasswordReset  PasswordMethod = "reset"
	PasswordChange PasswordMethod = "change"
)

func (m PasswordMethod) eventType() string {
	if m == PasswordReset {
		return EventPasswordReset
	}
	return EventPasswordChange
}

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	Email         string // masked before logging
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes security events as structured "audit" records
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		now:    time.Now,
	}
}

// LogAuthAttempt logs sign-in, registration and remember-me restores.
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, event AuditEvent) {
	attrs := make([]slog.Attr, 0, 4+len(event.Metadata))
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}
	al.emit(ctx, "auth", event.EventType, event.UserID, event.IPAddress, &event.Success, attrs)
}

// LogPasswordChange logs the outcome of a reset or change. userID is empty
// when a reset code matched nobody.
func (al *AuditLogger) LogPasswordChange(ctx context.Context, userID, ipAddress string, method PasswordMethod, success bool) {
	al.emit(ctx, "password", method.eventType(), userID, ipAddress, &success,
		[]slog.Attr{slog.String("method", string(method))})
}

// LogAccountAction logs account state changes that have no failure mode,
// such as a lockout being applied.
func (al *AuditLogger) LogAccountAction(ctx context.Context, eventType, userID, ipAddress string, metadata map[string]string) {
	attrs := make([]slog.Attr, 0, len(metadata))
	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}
	al.emit(ctx, "account", eventType, userID, ipAddress, nil, attrs)
}

func (al *AuditLogger) emit(ctx context.Context, auditType, eventType, userID, ipAddress string, success *bool, extra []slog.Attr) {
	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", eventType),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}
	if success != nil {
		attrs = append(attrs, slog.Bool("success", *success))
	}
	if userID != "" {
		attrs = append(attrs, slog.String("user_id", userID))
	}
	if ipAddress != "" {
		attrs = append(attrs, slog.String("ip_address", ipAddress))
	}
	attrs = append(attrs, extra...)

	level := slog.LevelInfo
	if success != nil && !*success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}
