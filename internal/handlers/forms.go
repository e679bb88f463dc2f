package handlers

import (
	"net/http"
	"strings"

	"github.com/BradenHooton/spendwise/internal/models"
)

// Form field names shared by the handlers and the page templates
const (
	fieldEmail           = "email"
	fieldPassword        = "password"
	fieldRememberMe      = "remember_me"
	fieldFirstName       = "first_name"
	fieldLastName        = "last_name"
	fieldUsername        = "username"
	fieldPhone           = "phone"
	fieldConfirmPassword = "confirm_password"
	fieldCode            = "code"
	fieldNewPassword     = "new_password"
	fieldCurrentPassword = "current_password"
	fieldAction          = "action"
)

// LoginForm is the body of POST /auth/login
type LoginForm struct {
	Email      string `label:"Email address" validate:"required,email"`
	Password   string `label:"Password" validate:"required"`
	RememberMe bool
}

// RegisterForm is the body of POST /auth/register
type RegisterForm struct {
	FirstName       string `label:"First name" validate:"required,min=2,max=50"`
	LastName        string `label:"Last name" validate:"required,min=2,max=50"`
	Username        string `label:"Username" validate:"required,min=3,max=50,username"`
	Email           string `label:"Email address" validate:"required,email,max=100"`
	Phone           string `label:"Phone number" validate:"omitempty,phone"`
	Password        string `label:"Password" validate:"required"`
	ConfirmPassword string `label:"Password confirmation"`
}

// ForgotPasswordForm is the body of POST /auth/forgot-password
type ForgotPasswordForm struct {
	Email string `label:"Email address" validate:"required,email"`
}

// ResetPasswordForm is the body of POST /auth/reset-password
type ResetPasswordForm struct {
	Email           string `label:"Email address" validate:"required,email"`
	Code            string `label:"Verification code" validate:"required,resetcode"`
	NewPassword     string `label:"New password" validate:"required"`
	ConfirmPassword string `label:"Password confirmation"`
}

// ProfileForm is the update_profile action of POST /dashboard/profile
type ProfileForm struct {
	FirstName string `label:"First name" validate:"required,min=2,max=50"`
	LastName  string `label:"Last name" validate:"required,min=2,max=50"`
	Phone     string `label:"Phone number" validate:"omitempty,phone"`
}

// PasswordChangeRequestForm is the request_password_change action
type PasswordChangeRequestForm struct {
	CurrentPassword string `label:"Current password" validate:"required"`
}

// PasswordChangeForm is the verify_and_change_password action
type PasswordChangeForm struct {
	Code            string `label:"Verification code" validate:"required,resetcode"`
	NewPassword     string `label:"New password" validate:"required"`
	ConfirmPassword string `label:"Password confirmation"`
}

// Passwords are passed through untrimmed; every other field is trimmed.

func parseLoginForm(r *http.Request) LoginForm {
	return LoginForm{
		Email:      models.NormalizeEmail(r.PostFormValue(fieldEmail)),
		Password:   r.PostFormValue(fieldPassword),
		RememberMe: r.PostFormValue(fieldRememberMe) != "",
	}
}

func parseRegisterForm(r *http.Request) RegisterForm {
	return RegisterForm{
		FirstName:       trimmed(r, fieldFirstName),
		LastName:        trimmed(r, fieldLastName),
		Username:        trimmed(r, fieldUsername),
		Email:           models.NormalizeEmail(r.PostFormValue(fieldEmail)),
		Phone:           trimmed(r, fieldPhone),
		Password:        r.PostFormValue(fieldPassword),
		ConfirmPassword: r.PostFormValue(fieldConfirmPassword),
	}
}

func parseForgotPasswordForm(r *http.Request) ForgotPasswordForm {
	return ForgotPasswordForm{Email: models.NormalizeEmail(r.PostFormValue(fieldEmail))}
}

func parseResetPasswordForm(r *http.Request) ResetPasswordForm {
	return ResetPasswordForm{
		Email:           models.NormalizeEmail(r.PostFormValue(fieldEmail)),
		Code:            trimmed(r, fieldCode),
		NewPassword:     r.PostFormValue(fieldNewPassword),
		ConfirmPassword: r.PostFormValue(fieldConfirmPassword),
	}
}

func parseProfileForm(r *http.Request) ProfileForm {
	return ProfileForm{
		FirstName: trimmed(r, fieldFirstName),
		LastName:  trimmed(r, fieldLastName),
		Phone:     trimmed(r, fieldPhone),
	}
}

func parsePasswordChangeForm(r *http.Request) PasswordChangeForm {
	return PasswordChangeForm{
		Code:            trimmed(r, fieldCode),
		NewPassword:     r.PostFormValue(fieldNewPassword),
		ConfirmPassword: r.PostFormValue(fieldConfirmPassword),
	}
}

func trimmed(r *http.Request, field string) string {
	return strings.TrimSpace(r.PostFormValue(field))
}
