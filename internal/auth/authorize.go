package auth

import (
	"net/http"
	"slices"

	"github.com/BradenHooton/spendwise/internal/models"
)

const (
	LoginPath     = "/auth/login"
	LogoutPath    = "/auth/logout"
	DashboardPath = "/dashboard"
	AdminPath     = "/admin"

	loginRequiredMessage = "Please log in to access this page."
	accessDeniedMessage  = "You do not have permission to access that page."
)

// Authorization is the outcome of a role check. When Allowed is false the
// caller should redirect to RedirectTo and show Message.
type Authorization struct {
	Allowed    bool
	RedirectTo string
	Message    string
	FlashKind  string
}

// Authorize checks the session against the accepted roles. No roles means
// any authenticated user.
func Authorize(s *Session, roles ...string) Authorization {
	if !s.IsAuthenticated() {
		return Authorization{RedirectTo: LoginPath, Message: loginRequiredMessage, FlashKind: FlashWarning}
	}

	if len(roles) > 0 && !slices.Contains(roles, s.Role) {
		return Authorization{RedirectTo: HomePathFor(s.Role), Message: accessDeniedMessage, FlashKind: FlashError}
	}

	return Authorization{Allowed: true}
}

// HomePathFor is the landing page after login.
func HomePathFor(role string) string {
	if role == models.RoleAdmin {
		return AdminPath
	}
	return DashboardPath
}

// RequireRole enforces Authorize before the wrapped handler runs. It must be
// mounted after Manager.Middleware.
func RequireRole(roles ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			if sess == nil {
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}

			result := Authorize(sess, roles...)
			if !result.Allowed {
				// An expiry notice already explains the redirect
				if !sess.HasFlashes() {
					sess.AddFlash(result.FlashKind, result.Message)
				}
				http.Redirect(w, r, result.RedirectTo, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireGuest sends authenticated users to their landing page.
func RequireGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		if sess.IsAuthenticated() {
			http.Redirect(w, r, HomePathFor(sess.Role), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
