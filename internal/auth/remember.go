package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/spendwise/internal/models"
	pkghttp "github.com/BradenHooton/spendwise/pkg/http"
)

// RememberRestorer validates a remember-me cookie value and rotates it.
// It returns the user to sign in and the replacement cookie value.
type RememberRestorer interface {
	Restore(ctx context.Context, cookieValue, ipAddress string) (*models.User, string, error)
}

// SessionUserFrom builds the session identity snapshot for a user.
func SessionUserFrom(u *models.User) SessionUser {
	return SessionUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		FirstName:   u.FirstName,
		DisplayName: u.DisplayName(),
	}
}

// RememberMiddleware signs in an anonymous request that carries a valid
// remember-me cookie. It must be mounted after Manager.Middleware and
// pkghttp.ClientIPMiddleware. Requests to LogoutPath are never restored.
func (m *Manager) RememberMiddleware(restorer RememberRestorer, cookie RememberCookie) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			if sess == nil || sess.IsAuthenticated() || r.URL.Path == LogoutPath {
				next.ServeHTTP(w, r)
				return
			}

			value := cookie.Get(r)
			if value == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, rotated, err := restorer.Restore(r.Context(), value, pkghttp.ClientIP(r.Context()))
			if err != nil {
				m.logger.InfoContext(r.Context(), "remember-me cookie rejected", slog.String("reason", err.Error()))
				cookie.Clear(w)
				next.ServeHTTP(w, r)
				return
			}

			if sess.Expired() {
				sess.PopFlashes()
			}
			m.Establish(sess, SessionUserFrom(user))
			cookie.Set(w, rotated)

			next.ServeHTTP(w, r)
		})
	}
}
