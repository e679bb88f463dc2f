package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BradenHooton/spendwise/internal/models"
)

type UpdateProfileInput struct {
	UserID    string
	FirstName string
	LastName  string
	Phone     string
	IPAddress string
}

// UserService handles user business logic
type UserService struct {
	repo     UserRepository
	activity *ActivityService
	logger   *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, activity *ActivityService, logger *slog.Logger) *UserService {
	return &UserService{
		repo:     repo,
		activity: activity,
		logger:   logger,
	}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.InfoContext(ctx, "user not found", slog.String("user_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return user, nil
}

// UpdateProfile changes the editable name and phone fields. Username and
// email are fixed after registration.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.repo.UpdateProfile(ctx, in.UserID,
		strings.TrimSpace(in.FirstName),
		strings.TrimSpace(in.LastName),
		optionalString(in.Phone),
	)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "failed to update profile", slog.String("user_id", in.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "profile updated", slog.String("user_id", user.ID))
	s.activity.Record(ctx, user.ID, models.ActionProfileUpdate, "Updated profile information", in.IPAddress)
	return user, nil
}
