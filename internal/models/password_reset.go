package models

import "time"

// PasswordResetRequest is one issued verification code. Only the SHA-256
// of the opaque token is persisted.
type PasswordResetRequest struct {
	ID        string
	UserID    string
	Email     string
	Code      string
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// IsValidAt reports whether the request can still be consumed.
func (r *PasswordResetRequest) IsValidAt(now time.Time) bool {
	return !r.Used && r.ExpiresAt.After(now)
}

// IssuedReset is what the issuer hands back to the caller for delivery.
// Token is the raw value and never leaves the process except by email.
type IssuedReset struct {
	RequestID string
	UserID    string
	Email     string
	FirstName string
	Code      string
	Token     string
	ExpiresAt time.Time
}
