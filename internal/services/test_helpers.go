package services

import (
	"context"
	"time"

	"github.com/BradenHooton/spendwise/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc                 func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc              func(ctx context.Context, email string) (*models.User, error)
	ExistsByUsernameOrEmailFunc func(ctx context.Context, username, email string) (bool, error)
	CreateFunc                  func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateProfileFunc           func(ctx context.Context, id, firstName, lastName string, phone *string) (*models.User, error)
	RecordFailedLoginFunc       func(ctx context.Context, id string, now time.Time, maxAttempts int, lockout time.Duration) (int, *time.Time, error)
	RecordSuccessfulLoginFunc   func(ctx context.Context, id string, now time.Time) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	if m.ExistsByUsernameOrEmailFunc != nil {
		return m.ExistsByUsernameOrEmailFunc(ctx, username, email)
	}
	return false, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id, firstName, lastName string, phone *string) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, firstName, lastName, phone)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) RecordFailedLogin(ctx context.Context, id string, now time.Time, maxAttempts int, lockout time.Duration) (int, *time.Time, error) {
	if m.RecordFailedLoginFunc != nil {
		return m.RecordFailedLoginFunc(ctx, id, now, maxAttempts, lockout)
	}
	return 1, nil, nil
}

func (m *MockUserRepository) RecordSuccessfulLogin(ctx context.Context, id string, now time.Time) error {
	if m.RecordSuccessfulLoginFunc != nil {
		return m.RecordSuccessfulLoginFunc(ctx, id, now)
	}
	return nil
}

// MockActivityRepository implements ActivityRepository for testing
type MockActivityRepository struct {
	CreateFunc     func(ctx context.Context, entry *models.ActivityLogEntry) error
	ListByUserFunc func(ctx context.Context, userID string, limit int) ([]*models.ActivityLogEntry, error)
}

func (m *MockActivityRepository) Create(ctx context.Context, entry *models.ActivityLogEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	return nil
}

func (m *MockActivityRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.ActivityLogEntry, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit)
	}
	return []*models.ActivityLogEntry{}, nil
}

// MockNotifier implements Notifier for testing. Methods report success
// unless Fail is set.
type MockNotifier struct {
	Fail bool

	Welcome        []*models.User
	ResetCodes     []*models.IssuedReset
	ChangeCodes    []*models.IssuedReset
	ChangedNotices []*models.User
}

func (m *MockNotifier) SendWelcome(ctx context.Context, user *models.User) bool {
	m.Welcome = append(m.Welcome, user)
	return !m.Fail
}

func (m *MockNotifier) SendResetCode(ctx context.Context, issued *models.IssuedReset) bool {
	m.ResetCodes = append(m.ResetCodes, issued)
	return !m.Fail
}

func (m *MockNotifier) SendPasswordChangeCode(ctx context.Context, issued *models.IssuedReset) bool {
	m.ChangeCodes = append(m.ChangeCodes, issued)
	return !m.Fail
}

func (m *MockNotifier) SendPasswordChanged(ctx context.Context, user *models.User, ipAddress string) bool {
	m.ChangedNotices = append(m.ChangedNotices, user)
	return !m.Fail
}

// NewTestUser builds an active user with the "user" role
func NewTestUser(id, username, email string) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Username:  username,
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		Status:    models.StatusActive,
		Role:      models.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestUserWithPassword creates a user with a password hash
func NewTestUserWithPassword(id, username, email, passwordHash string) *models.User {
	user := NewTestUser(id, username, email)
	user.PasswordHash = passwordHash
	return user
}
