package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"0412 345 678", true},
		{"+61 (2) 9876-5432", true},
		{"12345678", true},
		{"1234567", false},
		{"0412 345 67x", false},
		{"phone", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidPhone(tt.phone))
		})
	}
}

func TestValidateForm_ReportsEveryFieldInOrder(t *testing.T) {
	errs := ValidateForm(RegisterForm{
		FirstName: "",
		LastName:  "L",
		Username:  "bad name",
		Email:     "alice@",
		Phone:     "12",
		Password:  "x",
	})

	assert.Equal(t, []string{
		"First name is required.",
		"Last name must be at least 2 characters.",
		"Username can only contain letters, numbers, and underscores.",
		"Please enter a valid email address.",
		"Please enter a valid phone number.",
	}, errs)
}

func TestValidateForm_Valid(t *testing.T) {
	assert.Nil(t, ValidateForm(LoginForm{Email: "alice@example.com", Password: "x"}))
	assert.Nil(t, ValidateForm(ProfileForm{FirstName: "Alice", LastName: "Liddell"}), "phone is optional")
	assert.Nil(t, ValidateForm(PasswordChangeForm{Code: "000123", NewPassword: "x"}))
}

func TestValidateForm_ResetCode(t *testing.T) {
	for _, code := range []string{"12345", "1234567", "12a456", " 12345"} {
		errs := ValidateForm(PasswordChangeForm{Code: code, NewPassword: "x"})
		assert.Equal(t, []string{"Please enter a valid 6-digit code."}, errs, "code %q", code)
	}
	assert.Equal(t, []string{"Verification code is required."}, ValidateForm(PasswordChangeForm{NewPassword: "x"}))
}
