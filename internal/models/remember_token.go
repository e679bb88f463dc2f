package models

import "time"

// RememberToken backs the persistent login cookie. The cookie carries
// "selector:validator"; only the validator hash is stored.
type RememberToken struct {
	ID            string
	UserID        string
	Selector      string
	ValidatorHash string
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

func (t *RememberToken) IsExpiredAt(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
