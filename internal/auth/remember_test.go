package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/spendwise/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRestorer struct {
	user    *models.User
	rotated string
	err     error
	calls   int
}

func (s *stubRestorer) Restore(ctx context.Context, cookieValue, ipAddress string) (*models.User, string, error) {
	s.calls++
	return s.user, s.rotated, s.err
}

var testRememberCookie = RememberCookie{Name: "remember_token", TTL: 30 * 24 * time.Hour}

func (h *sessionHarness) doRemember(restorer RememberRestorer, cookies ...*http.Cookie) (*httptest.ResponseRecorder, *Session) {
	return h.doRememberAt(DashboardPath, restorer, cookies...)
}

func (h *sessionHarness) doRememberAt(target string, restorer RememberRestorer, cookies ...*http.Cookie) (*httptest.ResponseRecorder, *Session) {
	var seen *Session
	handler := h.manager.Middleware(h.manager.RememberMiddleware(restorer, testRememberCookie)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = SessionFromContext(r.Context())
		}),
	))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestRememberMiddleware_RestoresAnonymousSession(t *testing.T) {
	h := newSessionHarness(t)
	restorer := &stubRestorer{
		user:    &models.User{ID: "user-1", Username: "alice", FirstName: "Alice", LastName: "Smith", Role: models.RoleUser},
		rotated: "new-selector:new-validator",
	}

	rec, sess := h.doRemember(restorer, &http.Cookie{Name: "remember_token", Value: "old-selector:old-validator"})

	require.True(t, sess.IsAuthenticated())
	assert.Equal(t, "Alice Smith", sess.DisplayName)
	assert.NotNil(t, findCookie(rec, testCookieName))

	remember := findCookie(rec, "remember_token")
	require.NotNil(t, remember)
	assert.Equal(t, "new-selector:new-validator", remember.Value)
}

func TestRememberMiddleware_ClearsRejectedCookie(t *testing.T) {
	h := newSessionHarness(t)
	restorer := &stubRestorer{err: errors.New("validator mismatch")}

	rec, sess := h.doRemember(restorer, &http.Cookie{Name: "remember_token", Value: "bad"})

	assert.False(t, sess.IsAuthenticated())
	remember := findCookie(rec, "remember_token")
	require.NotNil(t, remember)
	assert.Equal(t, "", remember.Value)
}

func TestRememberMiddleware_SkipsAuthenticatedSession(t *testing.T) {
	h := newSessionHarness(t)
	cookie := h.login(t)
	restorer := &stubRestorer{}

	_, sess := h.doRemember(restorer, cookie, &http.Cookie{Name: "remember_token", Value: "whatever"})

	assert.True(t, sess.IsAuthenticated())
	assert.Equal(t, 0, restorer.calls)
}

func TestRememberMiddleware_ReplacesExpiryNotice(t *testing.T) {
	h := newSessionHarness(t)
	cookie := h.login(t)
	restorer := &stubRestorer{
		user:    &models.User{ID: "user-1", Username: "alice", Role: models.RoleUser},
		rotated: "s:v",
	}

	h.advance(90 * time.Minute)
	_, sess := h.doRemember(restorer, cookie, &http.Cookie{Name: "remember_token", Value: "s:v0"})

	assert.True(t, sess.IsAuthenticated())
	assert.Empty(t, sess.Flashes)
}

func TestRememberMiddleware_SkipsLogout(t *testing.T) {
	h := newSessionHarness(t)
	restorer := &stubRestorer{
		user:    &models.User{ID: "user-1", Username: "alice", Role: models.RoleUser},
		rotated: "new-selector:new-validator",
	}

	rec, sess := h.doRememberAt(LogoutPath, restorer, &http.Cookie{Name: "remember_token", Value: "old-selector:old-validator"})

	assert.Equal(t, 0, restorer.calls)
	assert.False(t, sess.IsAuthenticated())
	assert.Nil(t, findCookie(rec, "remember_token"))
}
