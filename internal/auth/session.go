package auth

import (
	"context"
	"time"
)

// Flash kinds rendered by the page layout
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// Session keys for values carried between requests
const (
	KeyResetEmail            = "reset_email"
	KeyPasswordChangePending = "password_change_pending"
)

type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session is the server-side state behind the session cookie. A session
// with an empty UserID is anonymous.
type Session struct {
	ID            string            `json:"-"`
	UserID        string            `json:"user_id,omitempty"`
	Username      string            `json:"username,omitempty"`
	Email         string            `json:"email,omitempty"`
	Role          string            `json:"role,omitempty"`
	DisplayName   string            `json:"display_name,omitempty"`
	FirstName     string            `json:"first_name,omitempty"`
	LoginTime     time.Time         `json:"login_time,omitempty"`
	LastActivity  time.Time         `json:"last_activity,omitempty"`
	RegeneratedAt time.Time         `json:"regenerated_at,omitempty"`
	CSRFToken     string            `json:"csrf_token,omitempty"`
	Flashes       []Flash           `json:"flashes,omitempty"`
	Values        map[string]string `json:"values,omitempty"`

	previousID string
	dirty      bool
	expired    bool
}

// SessionUser is the identity snapshot written on login.
type SessionUser struct {
	ID          string
	Username    string
	Email       string
	Role        string
	FirstName   string
	DisplayName string
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != ""
}

// Expired reports whether this request found the previous session idle-expired.
func (s *Session) Expired() bool {
	return s.expired
}

func (s *Session) AddFlash(kind, message string) {
	s.Flashes = append(s.Flashes, Flash{Kind: kind, Message: message})
	s.dirty = true
}

func (s *Session) HasFlashes() bool {
	return len(s.Flashes) > 0
}

// PopFlashes returns pending flashes and removes them from the session.
func (s *Session) PopFlashes() []Flash {
	if len(s.Flashes) == 0 {
		return nil
	}
	flashes := s.Flashes
	s.Flashes = nil
	s.dirty = true
	return flashes
}

func (s *Session) Get(key string) string {
	return s.Values[key]
}

func (s *Session) Set(key, value string) {
	if s.Values == nil {
		s.Values = make(map[string]string)
	}
	s.Values[key] = value
	s.dirty = true
}

func (s *Session) Delete(key string) {
	if _, ok := s.Values[key]; ok {
		delete(s.Values, key)
		s.dirty = true
	}
}

// SetDisplayName refreshes the identity snapshot after a profile edit.
func (s *Session) SetDisplayName(firstName, displayName string) {
	s.FirstName = firstName
	s.DisplayName = displayName
	s.dirty = true
}

// renew drops the current identifier; a fresh one is assigned on commit and
// the old one is deleted from the store.
func (s *Session) renew() {
	if s.ID != "" && s.previousID == "" {
		s.previousID = s.ID
	}
	s.ID = ""
	s.dirty = true
}

// reset clears all state, leaving an anonymous session with a new identifier.
func (s *Session) reset() {
	s.renew()
	s.UserID = ""
	s.Username = ""
	s.Email = ""
	s.Role = ""
	s.DisplayName = ""
	s.FirstName = ""
	s.LoginTime = time.Time{}
	s.LastActivity = time.Time{}
	s.RegeneratedAt = time.Time{}
	s.CSRFToken = ""
	s.Flashes = nil
	s.Values = nil
}

func (s *Session) isEmpty() bool {
	return s.UserID == "" && s.CSRFToken == "" && len(s.Flashes) == 0 && len(s.Values) == 0
}

type sessionContextKey struct{}

// WithSession returns a context carrying the session.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext returns the request's session, or nil outside the session middleware.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey{}).(*Session)
	return s
}
