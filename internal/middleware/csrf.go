package middleware

import (
	"log/slog"
	"net/http"

	"github.com/BradenHooton/spendwise/internal/auth"
)

// InvalidCSRFMessage is flashed when a form is rejected for a bad token.
const InvalidCSRFMessage = "Invalid security token. Please try again."

// CSRFProtection validates the session's CSRF token on state-changing
// requests before any handler runs. The token is read from the
// X-CSRF-Token header or the csrf_token form field. A rejected request is
// redirected back to the page it was posted to with an error flash.
// Must be mounted after the session middleware.
func CSRFProtection(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only protect state-changing methods
			if !isStateChangingMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			sess := auth.SessionFromContext(r.Context())
			if sess == nil {
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}

			// The idle-expiry notice already explains why the form was lost
			if sess.Expired() {
				http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
				return
			}

			token := r.Header.Get(auth.CSRFHeaderName)
			if token == "" {
				token = r.PostFormValue(auth.CSRFFieldName)
			}

			if !auth.VerifyCSRFToken(sess, token) {
				logger.WarnContext(r.Context(), "CSRF token validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("user_id", sess.UserID),
					slog.Bool("token_present", token != ""),
				)
				sess.AddFlash(auth.FlashError, InvalidCSRFMessage)
				http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isStateChangingMethod checks if the HTTP method modifies state
func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}
