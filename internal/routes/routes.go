package routes

import (
	"log/slog"
	"net/http"

	"github.com/BradenHooton/spendwise/internal/auth"
	"github.com/BradenHooton/spendwise/internal/handlers"
	"github.com/BradenHooton/spendwise/internal/middleware"
	"github.com/BradenHooton/spendwise/internal/models"
	"github.com/go-chi/chi/v5"
)

// Handlers groups the page handlers mounted by RegisterRoutes
type Handlers struct {
	Auth      *handlers.AuthHandler
	Profile   *handlers.ProfileHandler
	Dashboard *handlers.DashboardHandler
	Health    *handlers.HealthHandler
}

// Sessions wires the session layer in front of every page
type Sessions struct {
	Manager  *auth.Manager
	Restorer auth.RememberRestorer
	Remember auth.RememberCookie
}

// Limits configures throttling of the auth form posts
type Limits struct {
	Auth  middleware.RateLimitConfig
	Reset middleware.RateLimitConfig
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, sessions Sessions, limits Limits, logger *slog.Logger) {
	// Health stays outside the session layer so probes never create sessions
	router.Get("/health", h.Health.Health)

	router.Group(func(r chi.Router) {
		r.Use(sessions.Manager.Middleware)
		if sessions.Restorer != nil {
			r.Use(sessions.Manager.RememberMiddleware(sessions.Restorer, sessions.Remember))
		}
		r.Use(middleware.CSRFProtection(logger))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			sess := auth.SessionFromContext(r.Context())
			if sess.IsAuthenticated() {
				http.Redirect(w, r, auth.HomePathFor(sess.Role), http.StatusSeeOther)
				return
			}
			http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
		})

		// One budget shared by every auth form post
		authLimit := middleware.RateLimitByIP(limits.Auth)
		resetLimit := middleware.RateLimitByIP(limits.Reset)

		// Guest pages
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireGuest)

			r.Get("/auth/login", h.Auth.LoginPage)
			r.With(authLimit).Post("/auth/login", h.Auth.Login)
			r.Get("/auth/register", h.Auth.RegisterPage)
			r.With(authLimit).Post("/auth/register", h.Auth.Register)
			r.Get("/auth/forgot-password", h.Auth.ForgotPasswordPage)
			r.With(authLimit, resetLimit).Post("/auth/forgot-password", h.Auth.ForgotPassword)
			r.Get("/auth/reset-password", h.Auth.ResetPasswordPage)
			r.With(authLimit).Post("/auth/reset-password", h.Auth.ResetPassword)
		})

		r.Get(auth.LogoutPath, h.Auth.Logout)
		r.Post(auth.LogoutPath, h.Auth.Logout)

		// Any authenticated user
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole())

			r.Get("/dashboard", h.Dashboard.Dashboard)
			r.Get("/dashboard/profile", h.Profile.Show)
			r.Post("/dashboard/profile", h.Profile.Update)
		})

		r.With(auth.RequireRole(models.RoleAdmin, models.RoleMember)).Get("/admin", h.Dashboard.Admin)
	})
}
