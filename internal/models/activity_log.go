package models

import "time"

// Action codes written to activity_log
const (
	ActionLogin                   = "LOGIN"
	ActionLogout                  = "LOGOUT"
	ActionFailedLogin             = "FAILED_LOGIN"
	ActionAccountLocked           = "ACCOUNT_LOCKED"
	ActionRegistration            = "REGISTRATION"
	ActionPasswordResetRequested  = "PASSWORD_RESET_REQUESTED"
	ActionPasswordReset           = "PASSWORD_RESET"
	ActionPasswordChangeRequested = "PASSWORD_CHANGE_REQUESTED"
	ActionPasswordChange          = "PASSWORD_CHANGE"
	ActionProfileUpdate           = "PROFILE_UPDATE"
)

// ActivityLogEntry is append-only. UserID is nil for anonymous events such
// as a failed login against an unknown email.
type ActivityLogEntry struct {
	ID          string    `db:"id"`
	UserID      *string   `db:"user_id"`
	Action      string    `db:"action"`
	Description string    `db:"description"`
	IPAddress   string    `db:"ip_address"`
	CreatedAt   time.Time `db:"created_at"`
}
