package middleware

import (
	"log/slog"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/spendwise/pkg/http"
	pkglogger "github.com/BradenHooton/spendwise/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// SecureLogger logs one line per request. Values of query parameters that
// look like codes, tokens or passwords are redacted and form bodies are never
// read.
func SecureLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(wrapped, r)

			path := r.URL.Path
			if r.URL.RawQuery != "" {
				path += "?" + pkglogger.RedactQuery(r.URL.RawQuery)
			}

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}

			logger.LogAttrs(r.Context(), levelForStatus(status), "http_request",
				slog.String("method", r.Method),
				slog.String("path", path),
				slog.Int("status", status),
				slog.Int("bytes", wrapped.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("client_ip", pkghttp.ClientIP(r.Context())),
			)
		})
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
