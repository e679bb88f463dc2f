//go:build integration

package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/spendwise/internal/auth"
	"github.com/BradenHooton/spendwise/internal/handlers"
	middlewareCustom "github.com/BradenHooton/spendwise/internal/middleware"
	"github.com/BradenHooton/spendwise/internal/notification"
	"github.com/BradenHooton/spendwise/internal/notification/templates"
	"github.com/BradenHooton/spendwise/internal/routes"
	"github.com/BradenHooton/spendwise/internal/services"
	pkgauth "github.com/BradenHooton/spendwise/pkg/auth"
	pkghttp "github.com/BradenHooton/spendwise/pkg/http"
	pkglogger "github.com/BradenHooton/spendwise/pkg/logger"
)

// CapturingSender records outgoing email for assertions
type CapturingSender struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (s *CapturingSender) Send(ctx context.Context, msg notification.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return true
}

// Last returns the most recent message sent to the address
func (s *CapturingSender) Last(to string) *notification.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].To == to {
			msg := s.sent[i]
			return &msg
		}
	}
	return nil
}

// NewTestApp wires the full application over the test database with an
// in-memory session store and a capturing email sender.
func NewTestApp(t *testing.T, db *TestDB) (http.Handler, *CapturingSender) {
	t.Helper()
	logger := DiscardLogger()
	repos := InitializeRepositories(db.DB)
	sender := &CapturingSender{}

	auditLogger := pkglogger.NewAuditLogger(logger)
	hasher := pkgauth.NewHasher(testBcryptCost)
	timing := auth.NewTimingDelay(auth.TimingConfig{})
	emailService := services.NewEmailService(sender, templates.NewEngine(), "http://localhost:8080", "support@example.com", logger)

	activity := services.NewActivityService(repos.Activity, logger)
	users := services.NewUserService(repos.Users, activity, logger)
	remember := services.NewRememberMeService(repos.Remember, repos.Users, activity, time.Hour, logger, auditLogger)
	authService := services.NewAuthService(repos.Users, hasher, remember, emailService, activity, timing,
		services.DefaultLoginPolicy, logger, auditLogger)
	resets := services.NewPasswordResetService(repos.Resets, repos.Users, hasher, emailService, activity, timing,
		15*time.Minute, logger, auditLogger)

	pages, err := handlers.NewRenderer(logger)
	require.NoError(t, err)

	manager := auth.NewManager(auth.NewMemoryStore(), auth.NewCookieSigner("integration-session-secret-32-characters"), auth.ManagerConfig{}, logger)
	rememberCookie := auth.RememberCookie{Name: "remember_token", TTL: time.Hour}

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(pkghttp.ClientIPMiddleware(&pkghttp.IPConfig{}))
	router.Use(middlewareCustom.SecureLogger(logger))

	routes.RegisterRoutes(router, routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService, resets, manager, rememberCookie, pages),
		Profile:   handlers.NewProfileHandler(users, resets, pages, logger),
		Dashboard: handlers.NewDashboardHandler(activity, pages, logger),
		Health:    handlers.NewHealthHandler(handlers.Dependency{Name: db.DB.Name(), Check: db.DB.HealthCheck}),
	}, routes.Sessions{Manager: manager, Restorer: remember, Remember: rememberCookie}, routes.Limits{
		Auth:  middlewareCustom.RateLimitConfig{Requests: 1000, Window: time.Minute},
		Reset: middlewareCustom.RateLimitConfig{Requests: 1000, Window: time.Hour},
	}, logger)

	return router, sender
}

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([0-9a-f]{64})"`)

// Browser replays cookies between requests against a handler
type Browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func NewBrowser(t *testing.T, handler http.Handler) *Browser {
	return &Browser{t: t, handler: handler, cookies: map[string]*http.Cookie{}}
}

func (b *Browser) Do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.handler.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

func (b *Browser) Get(target string) *httptest.ResponseRecorder {
	return b.Do(httptest.NewRequest(http.MethodGet, target, nil))
}

// Submit loads the page, copies its CSRF token into values and posts them back
func (b *Browser) Submit(target string, values url.Values) *httptest.ResponseRecorder {
	return b.SubmitFrom(target, target, values)
}

// SubmitFrom posts a form found on page to action
func (b *Browser) SubmitFrom(page, action string, values url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	w := b.Get(page)
	require.Equal(b.t, http.StatusOK, w.Code, "GET %s", page)
	m := csrfPattern.FindStringSubmatch(w.Body.String())
	require.Len(b.t, m, 2, "no csrf token on %s", page)
	values.Set("csrf_token", m[1])

	req := httptest.NewRequest(http.MethodPost, action, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.Do(req)
}

// Forget drops a cookie, as a browser does when it is restarted
func (b *Browser) Forget(name string) {
	delete(b.cookies, name)
}
