package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/spendwise/internal/auth"
	"github.com/BradenHooton/spendwise/internal/models"
	"github.com/BradenHooton/spendwise/internal/services"
	pkghttp "github.com/BradenHooton/spendwise/pkg/http"
)

// UserServiceInterface defines the profile operations
type UserServiceInterface interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, in services.UpdateProfileInput) (*models.User, error)
}

// PasswordChangeServiceInterface defines the signed-in change-password flow
type PasswordChangeServiceInterface interface {
	RequestPasswordChange(ctx context.Context, userID, currentPassword, ipAddress string) error
	ChangePassword(ctx context.Context, in services.ChangePasswordInput) error
	CancelPasswordChange(ctx context.Context, userID string) error
}

// Profile form actions
const (
	actionUpdateProfile           = "update_profile"
	actionRequestPasswordChange   = "request_password_change"
	actionVerifyAndChangePassword = "verify_and_change_password"
	actionCancelPasswordChange    = "cancel_password_change"
)

const (
	msgProfileUpdated          = "Profile updated successfully!"
	msgCurrentPasswordWrong    = "Current password is incorrect."
	msgChangeCodeSent          = "A verification code has been sent to your email. Enter it below to change your password."
	msgChangeDeliveryFailed    = "Failed to send verification email. Please try again later."
	msgPasswordChanged         = "Your password has been changed successfully!"
	msgPasswordChangeCancelled = "Password change cancelled."
	msgNoPendingChange         = "Please request a verification code first."
	msgUnknownAction           = "Unknown action. Please try again."

	pageProfile = "profile"
	profilePath = "/dashboard/profile"
)

// profileView is the Data of the profile page
type profileView struct {
	User          *models.User
	ChangePending bool
}

// ProfileHandler handles GET and POST /dashboard/profile
type ProfileHandler struct {
	users  UserServiceInterface
	resets PasswordChangeServiceInterface
	pages  *Renderer
	logger *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(users UserServiceInterface, resets PasswordChangeServiceInterface, pages *Renderer, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		users:  users,
		resets: resets,
		pages:  pages,
		logger: logger,
	}
}

// Show renders the profile page for the signed-in user
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	user, ok := h.currentUser(w, r, sess)
	if !ok {
		return
	}
	h.render(w, r, sess, user, profileFormValues(user), nil)
}

// Update dispatches on the submitted action
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	switch r.PostFormValue(fieldAction) {
	case actionUpdateProfile:
		h.updateProfile(w, r)
	case actionRequestPasswordChange:
		h.requestPasswordChange(w, r)
	case actionVerifyAndChangePassword:
		h.verifyAndChangePassword(w, r)
	case actionCancelPasswordChange:
		h.cancelPasswordChange(w, r)
	default:
		redirectWithFlash(w, r, profilePath, auth.FlashError, msgUnknownAction)
	}
}

func (h *ProfileHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	form := parseProfileForm(r)
	values := map[string]string{
		fieldFirstName: form.FirstName,
		fieldLastName:  form.LastName,
		fieldPhone:     form.Phone,
	}

	if errs := ValidateForm(form); errs != nil {
		h.renderWithErrors(w, r, sess, values, errs)
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), services.UpdateProfileInput{
		UserID:    sess.UserID,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Phone:     form.Phone,
		IPAddress: pkghttp.ClientIP(r.Context()),
	})
	if err != nil {
		h.renderWithErrors(w, r, sess, values, []string{technicalDifficultiesMessage})
		return
	}

	sess.SetDisplayName(updated.FirstName, updated.DisplayName())
	redirectWithFlash(w, r, profilePath, auth.FlashSuccess, msgProfileUpdated)
}

func (h *ProfileHandler) requestPasswordChange(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	form := PasswordChangeRequestForm{CurrentPassword: r.PostFormValue(fieldCurrentPassword)}

	if errs := ValidateForm(form); errs != nil {
		h.renderWithErrors(w, r, sess, nil, errs)
		return
	}

	err := h.resets.RequestPasswordChange(r.Context(), sess.UserID, form.CurrentPassword, pkghttp.ClientIP(r.Context()))
	if err != nil {
		message := technicalDifficultiesMessage
		switch {
		case errors.Is(err, models.ErrInvalidCurrentPassword):
			message = msgCurrentPasswordWrong
		case errors.Is(err, models.ErrDeliveryFailed):
			message = msgChangeDeliveryFailed
		}
		h.renderWithErrors(w, r, sess, nil, []string{message})
		return
	}

	sess.Set(auth.KeyPasswordChangePending, "1")
	redirectWithFlash(w, r, profilePath, auth.FlashSuccess, msgChangeCodeSent)
}

func (h *ProfileHandler) verifyAndChangePassword(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess.Get(auth.KeyPasswordChangePending) == "" {
		redirectWithFlash(w, r, profilePath, auth.FlashError, msgNoPendingChange)
		return
	}

	form := parsePasswordChangeForm(r)
	if errs := ValidateForm(form); errs != nil {
		h.renderWithErrors(w, r, sess, nil, errs)
		return
	}

	err := h.resets.ChangePassword(r.Context(), services.ChangePasswordInput{
		UserID:          sess.UserID,
		Code:            form.Code,
		NewPassword:     form.NewPassword,
		ConfirmPassword: form.ConfirmPassword,
		IPAddress:       pkghttp.ClientIP(r.Context()),
	})
	if err != nil {
		h.renderWithErrors(w, r, sess, nil, passwordUpdateErrors(err))
		return
	}

	sess.Delete(auth.KeyPasswordChangePending)
	redirectWithFlash(w, r, profilePath, auth.FlashSuccess, msgPasswordChanged)
}

func (h *ProfileHandler) cancelPasswordChange(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if err := h.resets.CancelPasswordChange(r.Context(), sess.UserID); err != nil {
		redirectWithFlash(w, r, profilePath, auth.FlashError, technicalDifficultiesMessage)
		return
	}

	sess.Delete(auth.KeyPasswordChangePending)
	redirectWithFlash(w, r, profilePath, auth.FlashInfo, msgPasswordChangeCancelled)
}

// renderWithErrors re-renders the page. Nil values fall back to the stored profile.
func (h *ProfileHandler) renderWithErrors(w http.ResponseWriter, r *http.Request, sess *auth.Session, values map[string]string, errs []string) {
	user, ok := h.currentUser(w, r, sess)
	if !ok {
		return
	}
	if values == nil {
		values = profileFormValues(user)
	}
	h.render(w, r, sess, user, values, errs)
}

func (h *ProfileHandler) render(w http.ResponseWriter, r *http.Request, sess *auth.Session, user *models.User, values map[string]string, errs []string) {
	h.pages.Render(w, r, http.StatusOK, pageProfile, Page{
		Title:  "My Profile",
		Errors: errs,
		Form:   values,
		Data: profileView{
			User:          user,
			ChangePending: sess.Get(auth.KeyPasswordChangePending) != "",
		},
	})
}

// currentUser loads the signed-in user. On failure it has already written a
// redirect and reports false.
func (h *ProfileHandler) currentUser(w http.ResponseWriter, r *http.Request, sess *auth.Session) (*models.User, bool) {
	user, err := h.users.GetUserByID(r.Context(), sess.UserID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load profile",
			slog.String("user_id", sess.UserID),
			slog.Any("error", err),
		)
		redirectWithFlash(w, r, auth.DashboardPath, auth.FlashError, technicalDifficultiesMessage)
		return nil, false
	}
	return user, true
}

func profileFormValues(user *models.User) map[string]string {
	values := map[string]string{
		fieldFirstName: user.FirstName,
		fieldLastName:  user.LastName,
	}
	if user.Phone != nil {
		values[fieldPhone] = *user.Phone
	}
	return values
}
