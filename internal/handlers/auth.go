package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/BradenHooton/spendwise/internal/auth"
	"github.com/BradenHooton/spendwise/internal/models"
	"github.com/BradenHooton/spendwise/internal/services"
	pkghttp "github.com/BradenHooton/spendwise/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
	Logout(ctx context.Context, userID, rememberToken, ipAddress string)
}

// PasswordResetServiceInterface defines the anonymous forgot-password flow
type PasswordResetServiceInterface interface {
	RequestPasswordReset(ctx context.Context, email, ipAddress string) error
	ResetPassword(ctx context.Context, in services.ResetPasswordInput) error
}

// SessionManager moves a session between anonymous and authenticated
type SessionManager interface {
	Establish(sess *auth.Session, user auth.SessionUser)
	Destroy(sess *auth.Session)
}

// User-facing messages for the auth pages
const (
	msgInvalidCredentials   = "Invalid email or password."
	msgAccountSuspended     = "Your account has been suspended. Please contact support."
	msgAccountInactive      = "Your account is not active. Please contact support."
	msgRegistrationConflict = "Username or email already exists. Please choose a different one."
	msgRegistrationFailed   = "An error occurred during registration. Please try again."
	msgRegisteredWithEmail  = "Account created successfully! A confirmation email has been sent. Please log in to continue."
	msgRegistered           = "Account created successfully! Please log in to continue."
	msgLoggedOut            = "You have been successfully logged out."
	msgResetRequested       = "If an account with that email exists, a verification code has been sent."
	msgResetDeliveryFailed  = "Failed to send reset email. Please try again later."
	msgInvalidResetCode     = "Invalid or expired verification code. Please request a new one."
	msgPasswordReset        = "Your password has been reset successfully! Please log in with your new password."
)

const (
	pageLogin          = "login"
	pageRegister       = "register"
	pageForgotPassword = "forgot_password"
	pageResetPassword  = "reset_password"

	resetPasswordPath = "/auth/reset-password"
)

// AuthHandler handles the login, registration, logout and forgot-password pages
type AuthHandler struct {
	service  AuthServiceInterface
	resets   PasswordResetServiceInterface
	sessions SessionManager
	remember auth.RememberCookie
	pages    *Renderer
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	service AuthServiceInterface,
	resets PasswordResetServiceInterface,
	sessions SessionManager,
	remember auth.RememberCookie,
	pages *Renderer,
) *AuthHandler {
	return &AuthHandler{
		service:  service,
		resets:   resets,
		sessions: sessions,
		remember: remember,
		pages:    pages,
	}
}

// LoginPage renders GET /auth/login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, pageLogin, Page{Title: "Login"})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	form := parseLoginForm(r)

	page := Page{Title: "Login", Form: map[string]string{fieldEmail: form.Email}}
	if form.RememberMe {
		page.Form[fieldRememberMe] = "1"
	}

	if errs := ValidateForm(form); errs != nil {
		page.Errors = errs
		h.pages.Render(w, r, http.StatusOK, pageLogin, page)
		return
	}

	result, err := h.service.Login(r.Context(), services.LoginInput{
		Email:      form.Email,
		Password:   form.Password,
		RememberMe: form.RememberMe,
		IPAddress:  pkghttp.ClientIP(r.Context()),
	})
	if err != nil {
		page.Errors = []string{loginErrorMessage(err)}
		h.pages.Render(w, r, http.StatusOK, pageLogin, page)
		return
	}

	h.sessions.Establish(sess, auth.SessionUserFrom(result.User))
	if result.RememberToken != "" {
		h.remember.Set(w, result.RememberToken)
	}

	redirectWithFlash(w, r, auth.HomePathFor(result.User.Role), auth.FlashSuccess,
		fmt.Sprintf("Welcome back, %s!", result.User.FirstName))
}

// loginErrorMessage maps a Login failure to the text shown on the form.
func loginErrorMessage(err error) string {
	var lockErr *models.LockoutError
	switch {
	case errors.As(err, &lockErr):
		if lockErr.JustLocked {
			return fmt.Sprintf("Account locked due to too many failed attempts. Please try again in %d minutes.", lockErr.RemainingMinutes())
		}
		return fmt.Sprintf("Account temporarily locked. Please try again in %d minutes.", lockErr.RemainingMinutes())
	case errors.Is(err, models.ErrInvalidCredentials):
		return msgInvalidCredentials
	case errors.Is(err, models.ErrAccountSuspended):
		return msgAccountSuspended
	case errors.Is(err, models.ErrAccountInactive):
		return msgAccountInactive
	default:
		return technicalDifficultiesMessage
	}
}

// RegisterPage renders GET /auth/register
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, pageRegister, Page{Title: "Create Account"})
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	form := parseRegisterForm(r)
	page := Page{
		Title: "Create Account",
		Form: map[string]string{
			fieldFirstName: form.FirstName,
			fieldLastName:  form.LastName,
			fieldUsername:  form.Username,
			fieldEmail:     form.Email,
			fieldPhone:     form.Phone,
		},
	}

	if errs := ValidateForm(form); errs != nil {
		page.Errors = errs
		h.pages.Render(w, r, http.StatusOK, pageRegister, page)
		return
	}

	result, err := h.service.Register(r.Context(), services.RegisterInput{
		FirstName:       form.FirstName,
		LastName:        form.LastName,
		Username:        form.Username,
		Email:           form.Email,
		Phone:           form.Phone,
		Password:        form.Password,
		ConfirmPassword: form.ConfirmPassword,
		IPAddress:       pkghttp.ClientIP(r.Context()),
	})
	if err != nil {
		var ve *models.ValidationError
		switch {
		case errors.As(err, &ve):
			page.Errors = ve.Messages
		case errors.Is(err, models.ErrConflict):
			page.Errors = []string{msgRegistrationConflict}
		default:
			page.Errors = []string{msgRegistrationFailed}
		}
		h.pages.Render(w, r, http.StatusOK, pageRegister, page)
		return
	}

	message := msgRegistered
	if result.WelcomeSent {
		message = msgRegisteredWithEmail
	}
	redirectWithFlash(w, r, auth.LoginPath, auth.FlashSuccess, message)
}

// Logout handles GET and POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	userID := ""
	if sess != nil {
		userID = sess.UserID
	}

	h.service.Logout(r.Context(), userID, h.remember.Get(r), pkghttp.ClientIP(r.Context()))
	h.remember.Clear(w)
	if sess != nil {
		h.sessions.Destroy(sess)
	}

	redirectWithFlash(w, r, auth.LoginPath, auth.FlashSuccess, msgLoggedOut)
}

// ForgotPasswordPage renders GET /auth/forgot-password
func (h *AuthHandler) ForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, pageForgotPassword, Page{Title: "Forgot Password"})
}

// ForgotPassword handles POST /auth/forgot-password. Known and unknown
// addresses get the same redirect and message.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	form := parseForgotPasswordForm(r)
	page := Page{Title: "Forgot Password", Form: map[string]string{fieldEmail: form.Email}}

	if errs := ValidateForm(form); errs != nil {
		page.Errors = errs
		h.pages.Render(w, r, http.StatusOK, pageForgotPassword, page)
		return
	}

	if err := h.resets.RequestPasswordReset(r.Context(), form.Email, pkghttp.ClientIP(r.Context())); err != nil {
		if errors.Is(err, models.ErrDeliveryFailed) {
			page.Errors = []string{msgResetDeliveryFailed}
		} else {
			page.Errors = []string{technicalDifficultiesMessage}
		}
		h.pages.Render(w, r, http.StatusOK, pageForgotPassword, page)
		return
	}

	sess.Set(auth.KeyResetEmail, form.Email)
	redirectWithFlash(w, r, resetPasswordPath, auth.FlashSuccess, msgResetRequested)
}

// ResetPasswordPage renders GET /auth/reset-password, prefilled with the
// address from the forgot-password step.
func (h *AuthHandler) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	page := Page{Title: "Reset Password", Form: map[string]string{fieldEmail: sess.Get(auth.KeyResetEmail)}}
	h.pages.Render(w, r, http.StatusOK, pageResetPassword, page)
}

// ResetPassword handles POST /auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	form := parseResetPasswordForm(r)
	page := Page{Title: "Reset Password", Form: map[string]string{fieldEmail: form.Email}}

	if errs := ValidateForm(form); errs != nil {
		page.Errors = errs
		h.pages.Render(w, r, http.StatusOK, pageResetPassword, page)
		return
	}

	err := h.resets.ResetPassword(r.Context(), services.ResetPasswordInput{
		Email:           form.Email,
		Code:            form.Code,
		NewPassword:     form.NewPassword,
		ConfirmPassword: form.ConfirmPassword,
		IPAddress:       pkghttp.ClientIP(r.Context()),
	})
	if err != nil {
		page.Errors = passwordUpdateErrors(err)
		h.pages.Render(w, r, http.StatusOK, pageResetPassword, page)
		return
	}

	sess.Delete(auth.KeyResetEmail)
	redirectWithFlash(w, r, auth.LoginPath, auth.FlashSuccess, msgPasswordReset)
}

// passwordUpdateErrors maps reset and change failures. The stored code is
// never part of the message.
func passwordUpdateErrors(err error) []string {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Messages
	case errors.Is(err, models.ErrInvalidResetCode):
		return []string{msgInvalidResetCode}
	default:
		return []string{technicalDifficultiesMessage}
	}
}
