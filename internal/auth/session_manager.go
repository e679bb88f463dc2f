package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	pkgauth "github.com/BradenHooton/spendwise/pkg/auth"
)

// SessionExpiredMessage is flashed when an authenticated session idles out.
const SessionExpiredMessage = "Your session has expired. Please log in again."

type ManagerConfig struct {
	CookieName         string
	IdleTimeout        time.Duration
	RegenerateInterval time.Duration
	Cookie             CookieConfig
}

// Manager loads the session for each request, enforces idle expiry and
// periodic identifier rotation, and writes it back before the response
// headers go out.
type Manager struct {
	store  Store
	signer *CookieSigner
	config ManagerConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewManager(store Store, signer *CookieSigner, config ManagerConfig, logger *slog.Logger) *Manager {
	if config.CookieName == "" {
		config.CookieName = "spendwise_session"
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = time.Hour
	}
	if config.RegenerateInterval <= 0 {
		config.RegenerateInterval = 30 * time.Minute
	}
	return &Manager{
		store:  store,
		signer: signer,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// storeTTL outlives the idle timeout so an idle-expired session is still
// found and reported as expired rather than silently missing. The cookie
// carries the same lifetime so the browser still presents it.
func (m *Manager) storeTTL() time.Duration {
	return 2 * m.config.IdleTimeout
}

// Middleware attaches the request's session to the context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, hadCookie := m.load(r)
		m.touch(r.Context(), sess)

		sw := &sessionResponseWriter{
			ResponseWriter: w,
			commit: func() {
				m.commit(r.Context(), w, sess, hadCookie)
			},
		}

		next.ServeHTTP(sw, r.WithContext(WithSession(r.Context(), sess)))

		// Handlers that never wrote a response still need their session saved
		sw.commitOnce()
	})
}

func (m *Manager) load(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil || cookie.Value == "" {
		return &Session{}, false
	}

	id, err := m.signer.Verify(cookie.Value)
	if err != nil {
		m.logger.Warn("rejected session cookie", slog.String("reason", err.Error()))
		return &Session{}, true
	}

	sess, err := m.store.Load(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			m.logger.Error("failed to load session", slog.Any("error", err))
		}
		return &Session{}, true
	}
	return sess, true
}

// touch applies idle expiry and rotation to an authenticated session.
func (m *Manager) touch(ctx context.Context, sess *Session) {
	if !sess.IsAuthenticated() {
		return
	}
	now := m.now()

	if now.Sub(sess.LastActivity) > m.config.IdleTimeout {
		m.logger.InfoContext(ctx, "session expired",
			slog.String("user_id", sess.UserID),
			slog.Duration("idle", now.Sub(sess.LastActivity)),
		)
		sess.reset()
		sess.expired = true
		sess.AddFlash(FlashWarning, SessionExpiredMessage)
		return
	}

	if now.Sub(sess.RegeneratedAt) > m.config.RegenerateInterval {
		sess.renew()
		sess.RegeneratedAt = now
	}

	sess.LastActivity = now
	sess.dirty = true
}

// Establish moves the session to Authenticated. The identifier is rotated so
// that an identifier observed before login is useless afterwards.
func (m *Manager) Establish(sess *Session, user SessionUser) {
	now := m.now()

	sess.renew()
	sess.UserID = user.ID
	sess.Username = user.Username
	sess.Email = user.Email
	sess.Role = user.Role
	sess.FirstName = user.FirstName
	sess.DisplayName = user.DisplayName
	sess.LoginTime = now
	sess.LastActivity = now
	sess.RegeneratedAt = now
	sess.CSRFToken = ""
	sess.Values = nil
	sess.expired = false
}

// Destroy clears all session state. Flashes added afterwards survive into
// a new anonymous session.
func (m *Manager) Destroy(sess *Session) {
	sess.reset()
}

func (m *Manager) commit(ctx context.Context, w http.ResponseWriter, sess *Session, hadCookie bool) {
	if sess.previousID != "" {
		if err := m.store.Delete(ctx, sess.previousID); err != nil {
			m.logger.ErrorContext(ctx, "failed to delete rotated session", slog.Any("error", err))
		}
		sess.previousID = ""
	}

	if sess.isEmpty() {
		if hadCookie || sess.dirty {
			clearCookie(w, m.config.CookieName, m.config.Cookie)
		}
		return
	}

	if !sess.dirty {
		return
	}

	if sess.ID == "" {
		id, err := pkgauth.GenerateURLToken(32)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to generate session id", slog.Any("error", err))
			return
		}
		sess.ID = id
	}

	if err := m.store.Save(ctx, sess, m.storeTTL()); err != nil {
		m.logger.ErrorContext(ctx, "failed to save session", slog.Any("error", err))
		return
	}

	value, err := m.signer.Sign(sess.ID)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to sign session cookie", slog.Any("error", err))
		return
	}
	setCookie(w, m.config.CookieName, value, m.storeTTL(), m.config.Cookie)
	sess.dirty = false
}

// sessionResponseWriter commits the session immediately before the status
// line is written, since cookies cannot be added after that point.
type sessionResponseWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *sessionResponseWriter) commitOnce() {
	if w.committed {
		return
	}
	w.committed = true
	w.commit()
}

func (w *sessionResponseWriter) WriteHeader(statusCode int) {
	w.commitOnce()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *sessionResponseWriter) Write(data []byte) (int, error) {
	w.commitOnce()
	return w.ResponseWriter.Write(data)
}

func (w *sessionResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
