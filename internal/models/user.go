package models

import (
	"strings"
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleUser   = "user"
)

const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

type User struct {
	ID            string
	Username      string
	Email         string // stored lower-cased
	PasswordHash  string
	FirstName     string
	LastName      string
	Phone         *string
	Role          string     // "admin", "member", "user"
	Status        string     // "active", "inactive", "suspended"
	LoginAttempts int        // consecutive failed logins
	LockedUntil   *time.Time // temporary lock expiration
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DisplayName is the "First Last" snapshot kept in the session.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsLockedAt reports whether the account is locked at the given instant.
func (u *User) IsLockedAt(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
