package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "a****@*******.com"},
		{"a@example.co.uk", "a@*******.**.uk"},
		{"not-an-email", "[invalid-email]"},
		{"@example.com", "[invalid-email]"},
		{"alice@", "[invalid-email]"},
		{"élodie@example.fr", "é*****@*******.fr"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizedEmail(tt.in))
		})
	}
}

func TestRedactQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"page=2&sort=date", "page=2&sort=date"},
		{"email=alice%40example.com", "email=[REDACTED]"},
		{"page=2&code=123456", "page=2&code=[REDACTED]"},
		{"csrf_token=abc&csrf_token=def", "csrf_token=[REDACTED]&csrf_token=[REDACTED]"},
		{"New_Password=x", "New_Password=[REDACTED]"},
		{"reset%5Fcode=1", "reset%5Fcode=[REDACTED]"},
		{"remember", "remember=[REDACTED]"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactQuery(tt.in))
		})
	}
}

func TestAuditLogger_LogAuthAttempt_MasksEmail(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	audit.LogAuthAttempt(context.Background(), AuditEvent{
		EventType:     EventLogin,
		Email:         "alice@example.com",
		IPAddress:     "203.0.113.10",
		Success:       false,
		FailureReason: "invalid_credentials",
	})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "audit", record["msg"])
	assert.Equal(t, "a****@*******.com", record["email"])
	assert.Equal(t, "invalid_credentials", record["failure_reason"])
	assert.NotContains(t, buf.String(), "alice@example.com")
}

func TestAuditLogger_LogPasswordChange(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	audit.LogPasswordChange(context.Background(), "user-1", "203.0.113.10", PasswordReset, true)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, EventPasswordReset, record["event_type"])
	assert.Equal(t, "reset", record["method"])
	assert.Equal(t, "user-1", record["user_id"])
}

func TestAuditLogger_FailedPasswordChangeIsWarning(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	audit.LogPasswordChange(context.Background(), "", "203.0.113.10", PasswordChange, false)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, EventPasswordChange, record["event_type"])
	assert.NotContains(t, record, "user_id")
}

func TestAuditLogger_LogAccountAction(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	audit.LogAccountAction(context.Background(), EventLockout, "user-1", "", map[string]string{"minutes": "30"})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "account", record["audit_type"])
	assert.Equal(t, "30", record["minutes"])
	assert.NotContains(t, record, "success")
	assert.NotContains(t, record, "ip_address")
}
