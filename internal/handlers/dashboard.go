package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/spendwise/internal/auth"
	"github.com/BradenHooton/spendwise/internal/models"
)

// ActivityServiceInterface lists a user's recent activity
type ActivityServiceInterface interface {
	Recent(ctx context.Context, userID string, limit int) ([]*models.ActivityLogEntry, error)
}

const dashboardActivityLimit = 10

type dashboardView struct {
	Activity []*models.ActivityLogEntry
}

// DashboardHandler renders the role landing pages
type DashboardHandler struct {
	activity ActivityServiceInterface
	pages    *Renderer
	logger   *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(activity ActivityServiceInterface, pages *Renderer, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		activity: activity,
		pages:    pages,
		logger:   logger,
	}
}

// Dashboard renders GET /dashboard with the user's latest activity
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	page := Page{Title: "Dashboard"}

	entries, err := h.activity.Recent(r.Context(), sess.UserID, dashboardActivityLimit)
	if err != nil {
		h.logger.WarnContext(r.Context(), "dashboard rendered without activity", slog.String("user_id", sess.UserID))
		page.Errors = []string{technicalDifficultiesMessage}
	}
	page.Data = dashboardView{Activity: entries}

	h.pages.Render(w, r, http.StatusOK, "dashboard", page)
}

// Admin renders GET /admin
func (h *DashboardHandler) Admin(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "admin", Page{Title: "Admin Panel"})
}
