package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/BradenHooton/spendwise/internal/auth"
	"github.com/BradenHooton/spendwise/internal/models"
	"github.com/BradenHooton/spendwise/internal/services"
)

// NewFormRequest creates a URL-encoded form request for testing
func NewFormRequest(t *testing.T, method, target string, values url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// WithSession attaches a session to the request context, as the session middleware would
func WithSession(req *http.Request, sess *auth.Session) *http.Request {
	return req.WithContext(auth.WithSession(req.Context(), sess))
}

// NewAuthenticatedSession returns a session signed in as the given user
func NewAuthenticatedSession(userID, firstName, role string) *auth.Session {
	return &auth.Session{
		UserID:      userID,
		Username:    strings.ToLower(firstName),
		Email:       strings.ToLower(firstName) + "@example.com",
		Role:        role,
		FirstName:   firstName,
		DisplayName: firstName + " Liddell",
	}
}

// NewTestRenderer parses the embedded pages or fails the test
func NewTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	pages, err := NewRenderer(DiscardLogger())
	if err != nil {
		t.Fatalf("failed to parse pages: %v", err)
	}
	return pages
}

// NewTestSessionManager returns a manager backed by an in-memory store
func NewTestSessionManager() *auth.Manager {
	return auth.NewManager(
		auth.NewMemoryStore(),
		auth.NewCookieSigner("test-session-secret-at-least-32-characters"),
		auth.ManagerConfig{},
		DiscardLogger(),
	)
}

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// FlashMessages returns the text of the session's pending flashes
func FlashMessages(sess *auth.Session) []string {
	messages := make([]string, 0, len(sess.Flashes))
	for _, f := range sess.Flashes {
		messages = append(messages, f.Message)
	}
	return messages
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc    func(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	RegisterFunc func(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
	LogoutFunc   func(ctx context.Context, userID, rememberToken, ipAddress string)
}

func (m *MockAuthService) Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, in)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, in)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Logout(ctx context.Context, userID, rememberToken, ipAddress string) {
	if m.LogoutFunc != nil {
		m.LogoutFunc(ctx, userID, rememberToken, ipAddress)
	}
}

// MockPasswordResetService implements both password flows for testing
type MockPasswordResetService struct {
	RequestPasswordResetFunc  func(ctx context.Context, email, ipAddress string) error
	ResetPasswordFunc         func(ctx context.Context, in services.ResetPasswordInput) error
	RequestPasswordChangeFunc func(ctx context.Context, userID, currentPassword, ipAddress string) error
	ChangePasswordFunc        func(ctx context.Context, in services.ChangePasswordInput) error
	CancelPasswordChangeFunc  func(ctx context.Context, userID string) error
}

func (m *MockPasswordResetService) RequestPasswordReset(ctx context.Context, email, ipAddress string) error {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email, ipAddress)
	}
	return nil
}

func (m *MockPasswordResetService) ResetPassword(ctx context.Context, in services.ResetPasswordInput) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, in)
	}
	return models.ErrInvalidResetCode
}

func (m *MockPasswordResetService) RequestPasswordChange(ctx context.Context, userID, currentPassword, ipAddress string) error {
	if m.RequestPasswordChangeFunc != nil {
		return m.RequestPasswordChangeFunc(ctx, userID, currentPassword, ipAddress)
	}
	return nil
}

func (m *MockPasswordResetService) ChangePassword(ctx context.Context, in services.ChangePasswordInput) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, in)
	}
	return models.ErrInvalidResetCode
}

func (m *MockPasswordResetService) CancelPasswordChange(ctx context.Context, userID string) error {
	if m.CancelPasswordChangeFunc != nil {
		return m.CancelPasswordChangeFunc(ctx, userID)
	}
	return nil
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	GetUserByIDFunc   func(ctx context.Context, id string) (*models.User, error)
	UpdateProfileFunc func(ctx context.Context, in services.UpdateProfileInput) (*models.User, error)
}

func (m *MockUserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetUserByIDFunc != nil {
		return m.GetUserByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) UpdateProfile(ctx context.Context, in services.UpdateProfileInput) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, in)
	}
	return nil, models.ErrInternalServer
}

// MockActivityService implements ActivityServiceInterface for testing
type MockActivityService struct {
	RecentFunc func(ctx context.Context, userID string, limit int) ([]*models.ActivityLogEntry, error)
}

func (m *MockActivityService) Recent(ctx context.Context, userID string, limit int) ([]*models.ActivityLogEntry, error) {
	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, userID, limit)
	}
	return nil, nil
}
