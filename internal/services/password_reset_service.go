package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/spendwise/internal/auth"
	"github.com/BradenHooton/spendwise/internal/models"
	pkgauth "github.com/BradenHooton/spendwise/pkg/auth"
	pkglogger "github.com/BradenHooton/spendwise/pkg/logger"
)

const (
	// ResetCodeDigits is the length of the emailed verification code.
	ResetCodeDigits = 6
	// DefaultResetCodeTTL is how long an issued code stays valid.
	DefaultResetCodeTTL = 15 * time.Minute

	resetTokenBytes = 32
)

// PasswordResetRepository defines the interface for reset request persistence
type PasswordResetRepository interface {
	CreateReplacingOutstanding(ctx context.Context, req *models.PasswordResetRequest) (*models.PasswordResetRequest, error)
	FindValid(ctx context.Context, email, code string, now time.Time) (*models.PasswordResetRequest, error)
	ConsumeAndSetPassword(ctx context.Context, requestID, userID, passwordHash string, now time.Time) error
	InvalidateOutstanding(ctx context.Context, userID string) (int64, error)
}

type ResetPasswordInput struct {
	Email           string
	Code            string
	NewPassword     string
	ConfirmPassword string
	IPAddress       string
}

type ChangePasswordInput struct {
	UserID          string
	Code            string
	NewPassword     string
	ConfirmPassword string
	IPAddress       string
}

// PasswordResetService issues and verifies the one-time codes used by both
// the forgot-password flow and the signed-in change-password flow.
type PasswordResetService struct {
	resets      PasswordResetRepository
	users       UserRepository
	hasher      PasswordHasher
	notifier    Notifier
	activity    *ActivityService
	timing      *auth.TimingDelay
	ttl         time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

func NewPasswordResetService(
	resets PasswordResetRepository,
	users UserRepository,
	hasher PasswordHasher,
	notifier Notifier,
	activity *ActivityService,
	timing *auth.TimingDelay,
	ttl time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *PasswordResetService {
	if ttl <= 0 {
		ttl = DefaultResetCodeTTL
	}
	return &PasswordResetService{
		resets:      resets,
		users:       users,
		hasher:      hasher,
		notifier:    notifier,
		activity:    activity,
		timing:      timing,
		ttl:         ttl,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *PasswordResetService) SetClock(now func() time.Time) {
	s.now = now
}

// Issue creates a fresh code for the active account with this email and
// invalidates any earlier unused ones. It returns nil, nil when there is no
// such account so callers cannot tell the difference by error.
func (s *PasswordResetService) Issue(ctx context.Context, email string) (*models.IssuedReset, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		s.logger.ErrorContext(ctx, "failed to look up user for reset", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if user.Status != models.StatusActive {
		return nil, nil
	}

	return s.issueFor(ctx, user)
}

func (s *PasswordResetService) issueFor(ctx context.Context, user *models.User) (*models.IssuedReset, error) {
	code, err := pkgauth.GenerateNumericCode(ResetCodeDigits)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to generate reset code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	token, err := pkgauth.GenerateURLToken(resetTokenBytes)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to generate reset token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	req, err := s.resets.CreateReplacingOutstanding(ctx, &models.PasswordResetRequest{
		UserID:    user.ID,
		Email:     user.Email,
		Code:      code,
		TokenHash: pkgauth.HashToken(token),
		ExpiresAt: s.now().Add(s.ttl),
		CreatedAt: s.now(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to store reset request", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &models.IssuedReset{
		RequestID: req.ID,
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		Code:      code,
		Token:     token,
		ExpiresAt: req.ExpiresAt,
	}, nil
}

// RequestPasswordReset runs the forgot-password step. Unknown and known
// emails both return nil after a padded delay. ErrDeliveryFailed means a
// code was issued but the email could not be sent; the code stays valid.
func (s *PasswordResetService) RequestPasswordReset(ctx context.Context, email, ipAddress string) error {
	start := time.Now()
	defer s.timing.WaitFrom(ctx, start, false)

	issued, err := s.Issue(ctx, email)
	if err != nil {
		return err
	}
	if issued == nil {
		s.logger.InfoContext(ctx, "password reset requested for unknown or inactive account")
		return nil
	}

	if !s.notifier.SendResetCode(ctx, issued) {
		s.logger.WarnContext(ctx, "reset code issued but not delivered", slog.String("user_id", issued.UserID))
		return models.ErrDeliveryFailed
	}

	s.activity.Record(ctx, issued.UserID, models.ActionPasswordResetRequested,
		"Password reset requested for: "+issued.Email, ipAddress)
	return nil
}

// Verify returns the newest unused, unexpired request matching the pair.
func (s *PasswordResetService) Verify(ctx context.Context, email, code string) (*models.PasswordResetRequest, error) {
	email = models.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || !IsResetCode(code) {
		return nil, models.ErrInvalidResetCode
	}

	req, err := s.resets.FindValid(ctx, email, code, s.now())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidResetCode
		}
		s.logger.ErrorContext(ctx, "failed to verify reset code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return req, nil
}

// ResetPassword completes the forgot-password flow.
func (s *PasswordResetService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := validateNewPassword(in.NewPassword, in.ConfirmPassword); err != nil {
		return err
	}

	req, err := s.Verify(ctx, in.Email, in.Code)
	if err != nil {
		s.auditLogger.LogPasswordChange(ctx, "", in.IPAddress, pkglogger.PasswordReset, false)
		return err
	}

	if err := s.consume(ctx, req, in.NewPassword); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password reset completed", slog.String("user_id", req.UserID))
	s.activity.Record(ctx, req.UserID, models.ActionPasswordReset, "Password reset via verification code", in.IPAddress)
	s.auditLogger.LogPasswordChange(ctx, req.UserID, in.IPAddress, pkglogger.PasswordReset, true)
	s.notifyChanged(ctx, req.UserID, in.IPAddress)
	return nil
}

// RequestPasswordChange re-confirms the signed-in user's current password
// and emails them a code.
func (s *PasswordResetService) RequestPasswordChange(ctx context.Context, userID, currentPassword, ipAddress string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to get user for password change", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.hasher.Compare(user.PasswordHash, currentPassword); err != nil {
		s.logger.InfoContext(ctx, "password change rejected: wrong current password", slog.String("user_id", userID))
		s.auditLogger.LogPasswordChange(ctx, userID, ipAddress, pkglogger.PasswordChange, false)
		return models.ErrInvalidCurrentPassword
	}

	issued, err := s.issueFor(ctx, user)
	if err != nil {
		return err
	}

	if !s.notifier.SendPasswordChangeCode(ctx, issued) {
		return models.ErrDeliveryFailed
	}

	s.activity.Record(ctx, userID, models.ActionPasswordChangeRequested, "Password change verification code sent", ipAddress)
	return nil
}

// ChangePassword completes the signed-in flow with the emailed code.
func (s *PasswordResetService) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	if err := validateNewPassword(in.NewPassword, in.ConfirmPassword); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to get user for password change", slog.String("user_id", in.UserID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	req, err := s.Verify(ctx, user.Email, in.Code)
	if err != nil {
		s.auditLogger.LogPasswordChange(ctx, user.ID, in.IPAddress, pkglogger.PasswordChange, false)
		return err
	}
	if req.UserID != user.ID {
		return models.ErrInvalidResetCode
	}

	if err := s.consume(ctx, req, in.NewPassword); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", user.ID))
	s.activity.Record(ctx, user.ID, models.ActionPasswordChange, "Changed account password", in.IPAddress)
	s.auditLogger.LogPasswordChange(ctx, user.ID, in.IPAddress, pkglogger.PasswordChange, true)
	s.notifyChanged(ctx, user.ID, in.IPAddress)
	return nil
}

// CancelPasswordChange voids any outstanding code for the user.
func (s *PasswordResetService) CancelPasswordChange(ctx context.Context, userID string) error {
	n, err := s.resets.InvalidateOutstanding(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to cancel password change", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	s.logger.InfoContext(ctx, "password change cancelled", slog.String("user_id", userID), slog.Int64("invalidated", n))
	return nil
}

// consume hashes the new password and applies it together with marking the
// request used. A request consumed or expired in the meantime is reported
// as an invalid code.
func (s *PasswordResetService) consume(ctx context.Context, req *models.PasswordResetRequest, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.resets.ConsumeAndSetPassword(ctx, req.ID, req.UserID, hash, s.now()); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidResetCode
		}
		s.logger.ErrorContext(ctx, "failed to consume reset request", slog.String("user_id", req.UserID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

func (s *PasswordResetService) notifyChanged(ctx context.Context, userID, ipAddress string) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping password changed email", slog.String("user_id", userID), slog.Any("error", err))
		return
	}
	s.notifier.SendPasswordChanged(ctx, user, ipAddress)
}

// IsResetCode reports whether s has the shape of a verification code.
func IsResetCode(s string) bool {
	if len(s) != ResetCodeDigits {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
