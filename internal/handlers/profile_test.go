package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/BradenHooton/spendwise/internal/auth"
	"github.com/BradenHooton/spendwise/internal/handlers"
	"github.com/BradenHooton/spendwise/internal/models"
	"github.com/BradenHooton/spendwise/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfileUser() *models.User {
	phone := "0412 345 678"
	return &models.User{
		ID:        "user-1",
		Username:  "alice",
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Liddell",
		Phone:     &phone,
		Role:      models.RoleUser,
		Status:    models.StatusActive,
	}
}

func newProfileHandler(t *testing.T, users *handlers.MockUserService, resets *handlers.MockPasswordResetService) *handlers.ProfileHandler {
	t.Helper()
	if users == nil {
		users = &handlers.MockUserService{
			GetUserByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
				return testProfileUser(), nil
			},
		}
	}
	if resets == nil {
		resets = &handlers.MockPasswordResetService{}
	}
	return handlers.NewProfileHandler(users, resets, handlers.NewTestRenderer(t), handlers.DiscardLogger())
}

func profileRequest(t *testing.T, sess *auth.Session, values url.Values) *http.Request {
	t.Helper()
	return handlers.WithSession(handlers.NewFormRequest(t, http.MethodPost, "/dashboard/profile", values), sess)
}

func TestProfile_Show(t *testing.T) {
	handler := newProfileHandler(t, nil, nil)
	sess := handlers.NewAuthenticatedSession("user-1", "Alice", models.RoleUser)
	req := handlers.WithSession(httptest.NewRequest(http.MethodGet, "/dashboard/profile", nil), sess)

	w := httptest.NewRecorder()
	handler.Show(w, req)

	body := w.Body.String()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, `value="Liddell"`)
	assert.Contains(t, body, `value="0412 345 678"`)
	assert.Contains(t, body, `name="current_password"`)
	assert.NotContains(t, body, `value="verify_and_change_password"`)
}

func TestProfile_ShowStoreFailure(t *testing.T) {
	users := &handlers.MockUserService{
		GetUserByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return nil, models.ErrInternalServer
		},
	}
	handler := newProfileHandler(t, users, nil)
	sess := handlers.NewAuthenticatedSession("user-1", "Alice", models.RoleUser)
	req := handlers.WithSession(httptest.NewRequest(http.MethodGet, "/dashboard/profile", nil), sess)

	w := httptest.NewRecorder()
	handler.Show(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestProfile_UpdateProfile(t *testing.T) {
	var got services.UpdateProfileInput
	users := &handlers.MockUserService{
		UpdateProfileFunc: func(ctx context.Context, in services.UpdateProfileInput) (*models.User, error) {
			got = in
			return &models.User{ID: in.UserID, FirstName: in.FirstName, LastName: in.LastName}, nil
		},
	}
	handler := newProfileHandler(t, users, nil)
	sess := handlers.NewAuthenticatedSession("user-1", "Alice", models.RoleUser)

	w := httptest.NewRecorder()
	handler.Update(w, profileRequest(t, sess, url.Values{
		"action":     {"update_profile"},
		"first_name": {" Alicia "},
		"last_name":  {"Liddell"},
		"phone":      {""},
	}))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard/profile", w.Header().Get("Location"))
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "Alicia", got.FirstName)
	assert.Equal(t, "Alicia", sess.FirstName)
	assert.Equal(t, "Alicia Liddell", sess.DisplayName)
	assert.Equal(t, []string{"Profile updated successfully!"}, handlers.FlashMessages(sess))
}

func TestProfile_UpdateProfileValidation(t *testing.T) {
	users := &handlers.MockUserService{
		GetUserByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return testProfileUser(), nil
		},
		UpdateProfileFunc: func(ctx context.Context, in services.UpdateProfileInput) (*models.User, error) {
			t.Fatal("invalid profile must not be saved")
			return nil, nil
		},
	}
	handler := newProfileHandler(t, users, nil)
	sess := handlers.NewAuthenticatedSession("user-1", "Alice", models.RoleUser)

	w := httptest.NewRecorder()
	handler.Update(w, profileRequest(t, sess, url.Values{
		"action":     {"update_profile"},
		"first_name": {"A"},
		"last_name":  {"Liddell"},
		"phone":      {"call me"},
	}))

	body := w.Body.String()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, "First name must be at least 2 characters.")
	assert.Contains(t, body, "Please enter a valid phone number.")
	assert.Contains(t, body, `value="call me"`)
	assert.Equal(t, "Alice", sess.FirstName)
}

func TestProfile_RequestPasswordChange(t *testing.T) {
	var gotPassword string
	resets := &handlers.MockPasswordResetService{
		RequestPasswordChangeFunc: func(ctx context.Context, userID, currentPassword, ipAddress string) error {
			gotPassword = currentPassword
			return nil
		},
	}
	handler := newProfileHandler(t, nil, resets)
	sess := handlers.NewAuthenticatedSession("user-1", "Alice", models.RoleUser)

	w := httptest.NewRecorder()
	handler.Update(w, profileRequest(t, sess, url.Values{
		"action":           {"request_password_change"},
		"current_password": {"StrongP@ss1"},
	}))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "StrongP@ss1", gotPassword)
	assert.NotEmpty(t, sess.Get(auth.KeyPasswordChangePending))
}

func TestProfile_RequestPasswordChangeErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"wrong current password", models.ErrInvalidCurrentPassword, "Current password is incorrect."},
		{"delivery failed", models.ErrDeliveryFailed, "Failed to send verification email. Please try again later."},
		{"store down", models.ErrInternalServer, "We are experiencing technical difficulties. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resets := &handlers.MockPasswordResetService{
				RequestPasswordChangeFunc: func(ctx context.Context, userID, currentPassword, ipAddress string) error {
					return tt.err
				},
			}
			handler := newProfileHandler(t, nil, resets)
			sess := handlers.NewAuthenticatedSession("user-1", "Alice", models.RoleUser)

			w := httptest.NewRecorder()
			handler.Update(w, profileRequest(t, sess, url.Values{
				"action":           {"request_password_change"},
				"current_password": {"Wrong#Pass1"},
			}))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
			assert.Empty(t, sess.Get(auth.KeyPasswordChangePending))
		})
	}
}

func changeForm(code string) url.Values {
	return url.Values{
		"action":           {"verify_and_change_password"},
		"code":             {code},
		"new_password":     {"NewStr0ng!Pass"},
		"confirm_password": {"NewStr0ng!Pass"},
	}
}

func TestProfile_VerifyRequiresPendingChange(t *testing.T) {
	resets := &handlers.MockPasswordResetService{
		ChangePasswordFunc: func(ctx context.Context, in services.ChangePasswordInput) error {
			t.Fatal("no code was requested")
			return nil
		},
	}
	handler := newProfileHandler(t, nil, resets)
	sess := handlers.NewAuthenticatedSession("user-1", "Alice", models.RoleUser)

	w := httptest.NewRecorder()
	handler.Update(w, profileRequest(t, sess, changeForm("123456")))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, []string{"Please request a verification code first."}, handlers.FlashMessages(sess))
}

func TestProfile_VerifyWrongCode(t *testing.T) {
	resets := &handlers.MockPasswordResetService{
		ChangePasswordFunc: func(ctx context.Context, in services.ChangePasswordInput) error {
			return models.ErrInvalidResetCode
		},
	}
	handler := newProfileHandler(t, nil, resets)
	sess := handlers.NewAuthenticatedSession("user-1", "Alice", models.RoleUser)
	sess.Set(auth.KeyPasswordChangePending, "1")

	w := httptest.NewRecorder()
	handler.Update(w, profileRequest(t, sess, changeForm("654321")))

	body := w.Body.String()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, "Invalid or expired verification code. Please request a new one.")
	assert.NotContains(t, body, "654321")
	assert.Contains(t, body, `value="verify_and_change_password"`, "the code form stays open for another try")
	assert.NotEmpty(t, sess.Get(auth.KeyPasswordChangePending))
}

func TestProfile_VerifyAndChangePassword(t *testing.T) {
	var got services.ChangePasswordInput
	resets := &handlers.MockPasswordResetService{
		ChangePasswordFunc: func(ctx context.Context, in services.ChangePasswordInput) error {
			got = in
			return nil
		},
	}
	handler := newProfileHandler(t, nil, resets)
	sess := handlers.NewAuthenticatedSession("user-1", "Alice", models.RoleUser)
	sess.Set(auth.KeyPasswordChangePending, "1")

	w := httptest.NewRecorder()
	handler.Update(w, profileRequest(t, sess, changeForm("123456")))

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "123456", got.Code)
	assert.Empty(t, sess.Get(auth.KeyPasswordChangePending))
	assert.Equal(t, "user-1", sess.UserID, "the signed-in identity is kept")
	assert.Equal(t, []string{"Your password has been changed successfully!"}, handlers.FlashMessages(sess))
}

func TestProfile_CancelPasswordChange(t *testing.T) {
	cancelled := ""
	resets := &handlers.MockPasswordResetService{
		CancelPasswordChangeFunc: func(ctx context.Context, userID string) error {
			cancelled = userID
			return nil
		},
	}
	handler := newProfileHandler(t, nil, resets)
	sess := handlers.NewAuthenticatedSession("user-1", "Alice", models.RoleUser)
	sess.Set(auth.KeyPasswordChangePending, "1")

	w := httptest.NewRecorder()
	handler.Update(w, profileRequest(t, sess, url.Values{"action": {"cancel_password_change"}}))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "user-1", cancelled)
	assert.Empty(t, sess.Get(auth.KeyPasswordChangePending))
	assert.Equal(t, []string{"Password change cancelled."}, handlers.FlashMessages(sess))
}

func TestProfile_UnknownAction(t *testing.T) {
	handler := newProfileHandler(t, nil, nil)
	sess := handlers.NewAuthenticatedSession("user-1", "Alice", models.RoleUser)

	w := httptest.NewRecorder()
	handler.Update(w, profileRequest(t, sess, url.Values{"action": {"delete_account"}}))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	require.Len(t, sess.Flashes, 1)
	assert.Equal(t, auth.FlashError, sess.Flashes[0].Kind)
}
