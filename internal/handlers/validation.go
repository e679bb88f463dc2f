package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/BradenHooton/spendwise/internal/services"
	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	phonePattern    = regexp.MustCompile(`^[\d\s\-\+\(\)]+$`)
)

// minPhoneDigits is the shortest number accepted once punctuation is ignored
const minPhoneDigits = 8

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Field errors report the form label rather than the Go field name
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if label := field.Tag.Get("label"); label != "" {
			return label
		}
		return field.Name
	})

	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return IsValidPhone(fl.Field().String())
	})
	mustRegister(v, "resetcode", func(fl validator.FieldLevel) bool {
		return services.IsResetCode(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", tag, err))
	}
}

// IsValidPhone accepts digits with common separators and at least eight digits.
func IsValidPhone(phone string) bool {
	if !phonePattern.MatchString(phone) {
		return false
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= minPhoneDigits
}

// ValidateForm validates a form struct and returns one message per failing
// field, in field order. A nil result means the form is valid.
func ValidateForm(form any) []string {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{"The submitted form could not be processed."}
	}

	messages := make([]string, 0, len(ve))
	for _, fieldError := range ve {
		messages = append(messages, formatValidationError(fieldError))
	}
	return messages
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email":
		return "Please enter a valid email address."
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "username":
		return "Username can only contain letters, numbers, and underscores."
	case "phone":
		return "Please enter a valid phone number."
	case "resetcode":
		return "Please enter a valid 6-digit code."
	default:
		return fmt.Sprintf("%s is invalid.", strings.TrimSuffix(label, "."))
	}
}
