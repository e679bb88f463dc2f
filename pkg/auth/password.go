package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 12
	MinPasswordLen    = 8
	MaxPasswordLen    = 72 // bcrypt ignores input past 72 bytes
)

// PasswordRequirements is the user-facing description of ValidatePassword.
const PasswordRequirements = "Password must be at least 8 characters and contain an uppercase letter, a lowercase letter, a number and a special character."

var errEmptyPassword = errors.New("password cannot be empty")

// WeakPasswordError lists the rules a candidate password failed. Its Error
// text is deliberately generic; callers show PasswordRequirements instead.
type WeakPasswordError struct {
	Unmet []string
}

func (e *WeakPasswordError) Error() string {
	return "password does not meet strength requirements"
}

type passwordRule struct {
	name string
	ok   func(string) bool
}

// Character classes are ASCII: a non-Latin letter counts as special.
var passwordRules = []passwordRule{
	{"min_length", func(p string) bool { return len(p) >= MinPasswordLen }},
	{"max_length", func(p string) bool { return len(p) <= MaxPasswordLen }},
	{"uppercase", func(p string) bool { return strings.IndexFunc(p, isUpperASCII) >= 0 }},
	{"lowercase", func(p string) bool { return strings.IndexFunc(p, isLowerASCII) >= 0 }},
	{"digit", func(p string) bool { return strings.IndexFunc(p, isDigitASCII) >= 0 }},
	{"special", func(p string) bool { return strings.IndexFunc(p, isSpecial) >= 0 }},
	{"not_common", func(p string) bool { return !breachedPasswords[strings.ToLower(p)] }},
}

// Passwords that satisfy every class rule but top public breach lists anyway.
var breachedPasswords = map[string]bool{
	"password1!":   true,
	"password123!": true,
	"p@ssw0rd":     true,
	"p@ssw0rd1":    true,
	"p@ssword1":    true,
	"qwerty123!":   true,
	"welcome1!":    true,
	"welcome123!":  true,
	"letmein1!":    true,
	"admin123!":    true,
	"changeme1!":   true,
	"iloveyou1!":   true,
	"abc123!@#":    true,
	"summer2024!":  true,
	"winter2024!":  true,
}

func isUpperASCII(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLowerASCII(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigitASCII(r rune) bool { return r >= '0' && r <= '9' }
func isSpecial(r rune) bool { return !isUpperASCII(r) && !isLowerASCII(r) && !isDigitASCII(r) }

// ValidatePassword returns a *WeakPasswordError naming every failed rule.
func ValidatePassword(password string) error {
	var unmet []string
	for _, rule := range passwordRules {
		if !rule.ok(password) {
			unmet = append(unmet, rule.name)
		}
	}
	if len(unmet) > 0 {
		return &WeakPasswordError{Unmet: unmet}
	}
	return nil
}

// Hasher hashes and verifies passwords with bcrypt at a fixed cost.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare returns nil only when password matches hashedPassword.
func (h *Hasher) Compare(hashedPassword, password string) error {
	return ComparePassword(hashedPassword, password)
}

func HashPassword(password string) (string, error) {
	return NewHasher(DefaultBcryptCost).Hash(password)
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
