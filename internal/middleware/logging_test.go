package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logRequest(t *testing.T, target string, status int) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := SecureLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestSecureLogger_RedactsSensitiveQuery(t *testing.T) {
	entry := logRequest(t, "/auth/reset-password?email=alice%40example.com&step=2&code=123456", http.StatusOK)

	assert.Equal(t, "/auth/reset-password?email=[REDACTED]&step=2&code=[REDACTED]", entry["path"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestSecureLogger_KeepsPlainQuery(t *testing.T) {
	entry := logRequest(t, "/dashboard?page=2", http.StatusOK)

	assert.Equal(t, "/dashboard?page=2", entry["path"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
}

func TestSecureLogger_LevelByStatus(t *testing.T) {
	assert.Equal(t, "WARN", logRequest(t, "/admin", http.StatusForbidden)["level"])
	assert.Equal(t, "ERROR", logRequest(t, "/health", http.StatusServiceUnavailable)["level"])
}
