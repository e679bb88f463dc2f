package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/spendwise/internal/auth"
	"github.com/BradenHooton/spendwise/internal/models"
	pkgauth "github.com/BradenHooton/spendwise/pkg/auth"
	pkglogger "github.com/BradenHooton/spendwise/pkg/logger"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateProfile(ctx context.Context, id, firstName, lastName string, phone *string) (*models.User, error)
	RecordFailedLogin(ctx context.Context, id string, now time.Time, maxAttempts int, lockout time.Duration) (int, *time.Time, error)
	RecordSuccessfulLogin(ctx context.Context, id string, now time.Time) error
}

// PasswordHasher is satisfied by *pkgauth.Hasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
}

// RememberTokenIssuer issues and revokes persistent login tokens.
type RememberTokenIssuer interface {
	Issue(ctx context.Context, userID string) (string, error)
	Revoke(ctx context.Context, cookieValue string)
}

// LoginPolicy configures the failed-login governor.
type LoginPolicy struct {
	MaxAttempts     int
	LockoutDuration time.Duration
}

// DefaultLoginPolicy locks an account for 30 minutes after 5 consecutive failures.
var DefaultLoginPolicy = LoginPolicy{MaxAttempts: 5, LockoutDuration: 30 * time.Minute}

type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
	IPAddress  string
}

type LoginResult struct {
	User *models.User
	// RememberToken is the cookie value to set, empty unless remember-me was requested.
	RememberToken string
}

type RegisterInput struct {
	FirstName       string
	LastName        string
	Username        string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
	IPAddress       string
}

type RegisterResult struct {
	User        *models.User
	WelcomeSent bool
}

// AuthService handles registration, login and logout
type AuthService struct {
	users       UserRepository
	hasher      PasswordHasher
	remember    RememberTokenIssuer
	notifier    Notifier
	activity    *ActivityService
	timing      *auth.TimingDelay
	policy      LoginPolicy
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	users UserRepository,
	hasher PasswordHasher,
	remember RememberTokenIssuer,
	notifier Notifier,
	activity *ActivityService,
	timing *auth.TimingDelay,
	policy LoginPolicy,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultLoginPolicy.MaxAttempts
	}
	if policy.LockoutDuration <= 0 {
		policy.LockoutDuration = DefaultLoginPolicy.LockoutDuration
	}
	return &AuthService{
		users:       users,
		hasher:      hasher,
		remember:    remember,
		notifier:    notifier,
		activity:    activity,
		timing:      timing,
		policy:      policy,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// Login authenticates a user. Failures return ErrInvalidCredentials,
// ErrAccountSuspended, ErrAccountInactive, a *models.LockoutError or
// ErrInternalServer.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (result *LoginResult, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			s.timing.WaitFrom(ctx, start, false)
		}
	}()

	email := models.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, models.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Burn a bcrypt comparison so unknown emails cost the same as wrong passwords
			_ = s.hasher.Compare(s.dummyPasswordHash(), in.Password)

			s.logger.InfoContext(ctx, "login failed: unknown email")
			s.activity.Record(ctx, "", models.ActionFailedLogin, "Login attempt with unknown email: "+email, in.IPAddress)
			s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
				EventType:     pkglogger.EventLogin,
				Email:         email,
				IPAddress:     in.IPAddress,
				FailureReason: "unknown_email",
			})
			return nil, models.ErrInvalidCredentials
		}
		s.logger.ErrorContext(ctx, "failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := accountStatusError(user); err != nil {
		s.logger.InfoContext(ctx, "login blocked due to account status",
			slog.String("user_id", user.ID),
			slog.String("status", user.Status),
		)
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLogin,
			UserID:        user.ID,
			IPAddress:     in.IPAddress,
			FailureReason: "account_" + user.Status,
		})
		return nil, err
	}

	now := s.now()

	// A locked account is refused before the password is looked at
	if user.IsLockedAt(now) {
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLogin,
			UserID:        user.ID,
			IPAddress:     in.IPAddress,
			FailureReason: "account_locked",
		})
		return nil, models.NewLockoutError(*user.LockedUntil, now)
	}

	if err := s.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		return nil, s.recordFailure(ctx, user, now, in.IPAddress)
	}

	if err := s.users.RecordSuccessfulLogin(ctx, user.ID, now); err != nil {
		s.logger.ErrorContext(ctx, "failed to record successful login", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	user.LoginAttempts = 0
	user.LockedUntil = nil
	user.LastLogin = &now

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	s.activity.Record(ctx, user.ID, models.ActionLogin, "User logged in successfully", in.IPAddress)
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogin,
		UserID:    user.ID,
		IPAddress: in.IPAddress,
		Success:   true,
	})

	result = &LoginResult{User: user}
	if in.RememberMe && s.remember != nil {
		token, err := s.remember.Issue(ctx, user.ID)
		if err != nil {
			// The login itself stands; the user just won't be remembered
			s.logger.WarnContext(ctx, "failed to issue remember-me token", slog.String("user_id", user.ID), slog.Any("error", err))
		} else {
			result.RememberToken = token
		}
	}
	return result, nil
}

// recordFailure bumps the attempt counter and reports a lockout when this
// failure is the one that tripped it.
func (s *AuthService) recordFailure(ctx context.Context, user *models.User, now time.Time, ipAddress string) error {
	attempts, lockedUntil, err := s.users.RecordFailedLogin(ctx, user.ID, now, s.policy.MaxAttempts, s.policy.LockoutDuration)
	if errors.Is(err, models.ErrAccountLocked) && lockedUntil != nil {
		// A concurrent request tripped the lock between our read and this write.
		return models.NewLockoutError(*lockedUntil, now)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record failed login", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "login failed: invalid credentials",
		slog.String("user_id", user.ID),
		slog.Int("attempts", attempts),
	)
	s.activity.Record(ctx, user.ID, models.ActionFailedLogin, "Failed login attempt", ipAddress)
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     pkglogger.EventLogin,
		UserID:        user.ID,
		IPAddress:     ipAddress,
		FailureReason: "invalid_credentials",
	})

	if lockedUntil != nil && lockedUntil.After(now) {
		s.logger.WarnContext(ctx, "account locked after repeated failures",
			slog.String("user_id", user.ID),
			slog.Time("locked_until", *lockedUntil),
		)
		s.activity.Record(ctx, user.ID, models.ActionAccountLocked, "Account locked after too many failed login attempts", ipAddress)
		s.auditLogger.LogAccountAction(ctx, pkglogger.EventLockout, user.ID, ipAddress, nil)
		lockErr := models.NewLockoutError(*lockedUntil, now)
		lockErr.JustLocked = true
		return lockErr
	}

	return models.ErrInvalidCredentials
}

func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("spendwise-timing-equalizer")
		if err != nil {
			s.logger.Error("failed to prepare dummy password hash", slog.Any("error", err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// Register creates an active account with the "user" role. The welcome email
// is best-effort and reported through RegisterResult.WelcomeSent.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email := models.NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)

	if err := validateNewPassword(in.Password, in.ConfirmPassword); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to check existing user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if exists {
		s.logger.InfoContext(ctx, "registration rejected: username or email taken")
		return nil, models.ErrConflict
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        optionalString(in.Phone),
		Role:         models.RoleUser,
		Status:       models.StatusActive,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", created.ID))
	s.activity.Record(ctx, created.ID, models.ActionRegistration, "New user registered: "+created.Username, in.IPAddress)
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventRegister,
		UserID:    created.ID,
		IPAddress: in.IPAddress,
		Success:   true,
	})

	return &RegisterResult{
		User:        created,
		WelcomeSent: s.notifier.SendWelcome(ctx, created),
	}, nil
}

// Logout records the sign-out and revokes the remember-me token, if any.
// Clearing the session itself is the caller's job.
func (s *AuthService) Logout(ctx context.Context, userID, rememberToken, ipAddress string) {
	if rememberToken != "" && s.remember != nil {
		s.remember.Revoke(ctx, rememberToken)
	}
	if userID == "" {
		return
	}

	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", userID))
	s.activity.Record(ctx, userID, models.ActionLogout, "User logged out", ipAddress)
	s.auditLogger.LogAccountAction(ctx, pkglogger.EventLogout, userID, ipAddress, nil)
}

func accountStatusError(user *models.User) error {
	switch user.Status {
	case models.StatusActive:
		return nil
	case models.StatusSuspended:
		return models.ErrAccountSuspended
	default:
		return models.ErrAccountInactive
	}
}

// validateNewPassword checks strength and confirmation together so the form
// can show every problem at once.
func validateNewPassword(password, confirm string) error {
	var messages []string
	if err := pkgauth.ValidatePassword(password); err != nil {
		messages = append(messages, pkgauth.PasswordRequirements)
	}
	if password != confirm {
		messages = append(messages, "Passwords do not match.")
	}
	if len(messages) > 0 {
		return models.NewValidationError(messages...)
	}
	return nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
