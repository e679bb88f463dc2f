package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/spendwise/internal/models"
	pkgauth "github.com/BradenHooton/spendwise/pkg/auth"
	pkglogger "github.com/BradenHooton/spendwise/pkg/logger"
)

const (
	// DefaultRememberMeTTL is the lifetime of a remember-me token.
	DefaultRememberMeTTL = 30 * 24 * time.Hour

	selectorBytes  = 18 // 24 base64url characters
	validatorBytes = 32
)

// RememberTokenRepository defines the interface for remember-me token persistence
type RememberTokenRepository interface {
	Create(ctx context.Context, token *models.RememberToken) error
	GetBySelector(ctx context.Context, selector string) (*models.RememberToken, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
}

// RememberMeService implements persistent login with split tokens. The
// cookie carries "selector:validator"; only a SHA-256 of the validator is
// stored, so a leaked table cannot be replayed.
type RememberMeService struct {
	tokens      RememberTokenRepository
	users       UserRepository
	activity    *ActivityService
	ttl         time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

func NewRememberMeService(
	tokens RememberTokenRepository,
	users UserRepository,
	activity *ActivityService,
	ttl time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *RememberMeService {
	if ttl <= 0 {
		ttl = DefaultRememberMeTTL
	}
	return &RememberMeService{
		tokens:      tokens,
		users:       users,
		activity:    activity,
		ttl:         ttl,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *RememberMeService) SetClock(now func() time.Time) {
	s.now = now
}

// Issue stores a new token for the user and returns the cookie value.
func (s *RememberMeService) Issue(ctx context.Context, userID string) (string, error) {
	selector, err := pkgauth.GenerateURLToken(selectorBytes)
	if err != nil {
		return "", err
	}
	validator, err := pkgauth.GenerateURLToken(validatorBytes)
	if err != nil {
		return "", err
	}

	token := &models.RememberToken{
		UserID:        userID,
		Selector:      selector,
		ValidatorHash: pkgauth.HashToken(validator),
		ExpiresAt:     s.now().Add(s.ttl),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to store remember token: %w", err)
	}

	return selector + ":" + validator, nil
}

// Restore validates a cookie value, rotates the token and returns the user
// to sign in along with the replacement cookie value.
func (s *RememberMeService) Restore(ctx context.Context, cookieValue, ipAddress string) (*models.User, string, error) {
	selector, validator, ok := strings.Cut(cookieValue, ":")
	if !ok || selector == "" || validator == "" {
		return nil, "", fmt.Errorf("%w: malformed remember token", models.ErrUnauthorized)
	}

	stored, err := s.tokens.GetBySelector(ctx, selector)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: unknown remember token", models.ErrUnauthorized)
		}
		return nil, "", fmt.Errorf("failed to load remember token: %w", err)
	}

	if stored.IsExpiredAt(s.now()) {
		s.deleteToken(ctx, stored.ID)
		return nil, "", fmt.Errorf("%w: expired remember token", models.ErrUnauthorized)
	}

	if subtle.ConstantTimeCompare([]byte(pkgauth.HashToken(validator)), []byte(stored.ValidatorHash)) != 1 {
		// A known selector with the wrong validator means the cookie was copied
		// and one side already rotated it. Drop every token for the user.
		s.logger.WarnContext(ctx, "remember token validator mismatch, revoking all tokens",
			slog.String("user_id", stored.UserID))
		if err := s.tokens.DeleteByUser(ctx, stored.UserID); err != nil {
			s.logger.ErrorContext(ctx, "failed to revoke remember tokens", slog.Any("error", err))
		}
		return nil, "", fmt.Errorf("%w: remember token mismatch", models.ErrUnauthorized)
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		s.deleteToken(ctx, stored.ID)
		return nil, "", fmt.Errorf("failed to load remembered user: %w", err)
	}
	if user.Status != models.StatusActive || user.IsLockedAt(s.now()) {
		s.deleteToken(ctx, stored.ID)
		return nil, "", fmt.Errorf("%w: account not available", models.ErrForbidden)
	}

	s.deleteToken(ctx, stored.ID)
	rotated, err := s.Issue(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	if err := s.users.RecordSuccessfulLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.ErrorContext(ctx, "failed to record remembered login", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	s.activity.Record(ctx, user.ID, models.ActionLogin, "User signed in with remember me", ipAddress)
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventRememberRestore,
		UserID:    user.ID,
		IPAddress: ipAddress,
		Success:   true,
	})

	return user, rotated, nil
}

// Revoke deletes the token named by a cookie value. Unknown values are ignored.
func (s *RememberMeService) Revoke(ctx context.Context, cookieValue string) {
	selector, _, ok := strings.Cut(cookieValue, ":")
	if !ok || selector == "" {
		return
	}

	stored, err := s.tokens.GetBySelector(ctx, selector)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.ErrorContext(ctx, "failed to load remember token for revocation", slog.Any("error", err))
		}
		return
	}
	s.deleteToken(ctx, stored.ID)
}

// RevokeAll deletes every remember-me token for the user.
func (s *RememberMeService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.tokens.DeleteByUser(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke remember tokens", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

func (s *RememberMeService) deleteToken(ctx context.Context, id string) {
	if err := s.tokens.Delete(ctx, id); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to delete remember token", slog.Any("error", err))
	}
}
