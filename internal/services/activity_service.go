package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/spendwise/internal/models"
)

// ActivityRepository defines the interface for activity log persistence
type ActivityRepository interface {
	Create(ctx context.Context, entry *models.ActivityLogEntry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.ActivityLogEntry, error)
}

// ActivityService appends to the user-visible activity log. Writes are
// best-effort: a failed insert is logged and never fails the caller.
type ActivityService struct {
	repo   ActivityRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewActivityService(repo ActivityRepository, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Record writes one entry. An empty userID records an anonymous action.
func (s *ActivityService) Record(ctx context.Context, userID, action, description, ipAddress string) {
	if s == nil {
		return
	}

	entry := &models.ActivityLogEntry{
		Action:      action,
		Description: description,
		IPAddress:   ipAddress,
		CreatedAt:   s.now(),
	}
	if userID != "" {
		entry.UserID = &userID
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record activity",
			slog.String("action", action),
			slog.Any("error", err),
		)
	}
}

const maxRecentActivity = 50

// Recent returns the newest entries for a user, newest first.
func (s *ActivityService) Recent(ctx context.Context, userID string, limit int) ([]*models.ActivityLogEntry, error) {
	if limit <= 0 || limit > maxRecentActivity {
		limit = maxRecentActivity
	}

	entries, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list activity", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return entries, nil
}
