package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrAccountSuspended   = errors.New("account is suspended")
	ErrAccountLocked      = errors.New("account is temporarily locked")

	// Password reset / change errors
	ErrInvalidResetCode       = errors.New("invalid or expired verification code")
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")
	ErrNoPendingChange        = errors.New("no password change in progress")
	ErrDeliveryFailed         = errors.New("notification delivery failed")
)

// LockoutError reports an account that is locked until a point in time.
// It matches ErrAccountLocked with errors.Is.
type LockoutError struct {
	Until     time.Time
	Remaining time.Duration

	// JustLocked is set when this attempt is the one that tripped the lock.
	JustLocked bool
}

func NewLockoutError(until, now time.Time) *LockoutError {
	return &LockoutError{Until: until, Remaining: until.Sub(now)}
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account locked for %d more minute(s)", e.RemainingMinutes())
}

func (e *LockoutError) Unwrap() error {
	return ErrAccountLocked
}

// RemainingMinutes rounds up, so a lock with 10 seconds left reports 1.
func (e *LockoutError) RemainingMinutes() int {
	if e.Remaining <= 0 {
		return 0
	}
	return int(math.Ceil(e.Remaining.Minutes()))
}

// ValidationError carries one or more user-facing field messages.
type ValidationError struct {
	Messages []string
}

func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrBadRequest
}
