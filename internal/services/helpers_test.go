package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/spendwise/internal/models"
	"github.com/BradenHooton/spendwise/internal/notification"
	"github.com/BradenHooton/spendwise/internal/notification/templates"
	pkgauth "github.com/BradenHooton/spendwise/pkg/auth"
	pkglogger "github.com/BradenHooton/spendwise/pkg/logger"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingHasher wraps a low-cost bcrypt hasher and counts comparisons.
type countingHasher struct {
	inner    *pkgauth.Hasher
	mu       sync.Mutex
	compares int
}

func newCountingHasher() *countingHasher {
	return &countingHasher{inner: pkgauth.NewHasher(bcrypt.MinCost)}
}

func (h *countingHasher) Hash(password string) (string, error) {
	return h.inner.Hash(password)
}

func (h *countingHasher) Compare(hashedPassword, password string) error {
	h.mu.Lock()
	h.compares++
	h.mu.Unlock()
	return h.inner.Compare(hashedPassword, password)
}

func (h *countingHasher) Compares() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.compares
}

// captureSender records every message handed to it.
type captureSender struct {
	mu       sync.Mutex
	fail     bool
	messages []notification.Message
}

func (s *captureSender) Send(ctx context.Context, msg notification.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return !s.fail
}

func (s *captureSender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *captureSender) Last(t *testing.T) notification.Message {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.messages, "no email was sent")
	return s.messages[len(s.messages)-1]
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// LastCode pulls the 6-digit code out of the most recent email.
func (s *captureSender) LastCode(t *testing.T) string {
	t.Helper()
	code := codePattern.FindString(s.Last(t).TextBody)
	require.NotEmpty(t, code, "no code in email body")
	return code
}

// fakeDB is an in-memory stand-in for the four tables the services touch.
// Each repository view below mirrors the SQL semantics of its pgx twin.
type fakeDB struct {
	mu       sync.Mutex
	seq      int
	users    map[string]*models.User
	resets   []*models.PasswordResetRequest
	tokens   map[string]*models.RememberToken
	activity []*models.ActivityLogEntry
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:  make(map[string]*models.User),
		tokens: make(map[string]*models.RememberToken),
	}
}

func (db *fakeDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *fakeDB) user(id string) *models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (db *fakeDB) actions(userID string) []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []string
	for _, e := range db.activity {
		if (userID == "" && e.UserID == nil) || (e.UserID != nil && *e.UserID == userID) {
			out = append(out, e.Action)
		}
	}
	return out
}

func (db *fakeDB) tokenCount(userID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, t := range db.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

type fakeUserRepo struct{ db *fakeDB }

func (r fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u := r.db.user(id); u != nil {
		return u, nil
	}
	return nil, models.ErrNotFound
}

func (r fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r fakeUserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if strings.EqualFold(u.Username, username) || strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if strings.EqualFold(u.Username, user.Username) || strings.EqualFold(u.Email, user.Email) {
			return nil, models.ErrConflict
		}
	}
	cp := *user
	cp.ID = r.db.nextID("user")
	cp.Email = models.NormalizeEmail(cp.Email)
	r.db.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r fakeUserRepo) UpdateProfile(ctx context.Context, id, firstName, lastName string, phone *string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	u.FirstName, u.LastName, u.Phone = firstName, lastName, phone
	cp := *u
	return &cp, nil
}

func (r fakeUserRepo) RecordFailedLogin(ctx context.Context, id string, now time.Time, maxAttempts int, lockout time.Duration) (int, *time.Time, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return 0, nil, models.ErrNotFound
	}
	if u.LockedUntil != nil && u.LockedUntil.After(now) {
		return u.LoginAttempts, u.LockedUntil, models.ErrAccountLocked
	}
	if u.LockedUntil != nil {
		u.LoginAttempts = 1
		u.LockedUntil = nil
	} else {
		u.LoginAttempts++
	}
	if u.LoginAttempts >= maxAttempts {
		until := now.Add(lockout)
		u.LockedUntil = &until
	}
	return u.LoginAttempts, u.LockedUntil, nil
}

func (r fakeUserRepo) RecordSuccessfulLogin(ctx context.Context, id string, now time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.LoginAttempts = 0
	u.LockedUntil = nil
	u.LastLogin = &now
	return nil
}

type fakeResetRepo struct{ db *fakeDB }

func (r fakeResetRepo) CreateReplacingOutstanding(ctx context.Context, req *models.PasswordResetRequest) (*models.PasswordResetRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.resets {
		if existing.UserID == req.UserID {
			existing.Used = true
		}
	}
	cp := *req
	cp.ID = r.db.nextID("reset")
	cp.Email = models.NormalizeEmail(cp.Email)
	r.db.resets = append(r.db.resets, &cp)
	out := cp
	return &out, nil
}

func (r fakeResetRepo) FindValid(ctx context.Context, email, code string, now time.Time) (*models.PasswordResetRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := len(r.db.resets) - 1; i >= 0; i-- {
		req := r.db.resets[i]
		if strings.EqualFold(req.Email, email) && req.Code == code && req.IsValidAt(now) {
			cp := *req
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r fakeResetRepo) ConsumeAndSetPassword(ctx context.Context, requestID, userID, passwordHash string, now time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, req := range r.db.resets {
		if req.ID != requestID || req.UserID != userID {
			continue
		}
		if !req.IsValidAt(now) {
			return models.ErrNotFound
		}
		u, ok := r.db.users[userID]
		if !ok {
			return models.ErrNotFound
		}
		req.Used = true
		u.PasswordHash = passwordHash
		u.LoginAttempts = 0
		u.LockedUntil = nil
		for sel, t := range r.db.tokens {
			if t.UserID == userID {
				delete(r.db.tokens, sel)
			}
		}
		return nil
	}
	return models.ErrNotFound
}

func (r fakeResetRepo) InvalidateOutstanding(ctx context.Context, userID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, req := range r.db.resets {
		if req.UserID == userID && !req.Used {
			req.Used = true
			n++
		}
	}
	return n, nil
}

type fakeRememberRepo struct{ db *fakeDB }

func (r fakeRememberRepo) Create(ctx context.Context, token *models.RememberToken) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.tokens[token.Selector]; exists {
		return models.ErrConflict
	}
	token.ID = r.db.nextID("remember")
	cp := *token
	r.db.tokens[token.Selector] = &cp
	return nil
}

func (r fakeRememberRepo) GetBySelector(ctx context.Context, selector string) (*models.RememberToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tokens[selector]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r fakeRememberRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for sel, t := range r.db.tokens {
		if t.ID == id {
			delete(r.db.tokens, sel)
		}
	}
	return nil
}

func (r fakeRememberRepo) DeleteByUser(ctx context.Context, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for sel, t := range r.db.tokens {
		if t.UserID == userID {
			delete(r.db.tokens, sel)
		}
	}
	return nil
}

type fakeActivityRepo struct{ db *fakeDB }

func (r fakeActivityRepo) Create(ctx context.Context, entry *models.ActivityLogEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *entry
	cp.ID = r.db.nextID("activity")
	r.db.activity = append(r.db.activity, &cp)
	return nil
}

func (r fakeActivityRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*models.ActivityLogEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*models.ActivityLogEntry, 0)
	for i := len(r.db.activity) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.db.activity[i]
		if e.UserID != nil && *e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// testEnv wires every service over one fakeDB and one clock.
type testEnv struct {
	db       *fakeDB
	clock    *testClock
	hasher   *countingHasher
	sender   *captureSender
	activity *ActivityService
	remember *RememberMeService
	auth     *AuthService
	resets   *PasswordResetService
	users    *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := discardLogger()
	audit := pkglogger.NewAuditLogger(logger)
	db := newFakeDB()
	clock := newTestClock()
	hasher := newCountingHasher()
	sender := &captureSender{}

	userRepo := fakeUserRepo{db: db}

	email := NewEmailService(sender, templates.NewEngine(), "http://localhost:8080", "support@spendwise.local", logger)
	email.SetClock(clock.Now)

	activity := NewActivityService(fakeActivityRepo{db: db}, logger)
	activity.now = clock.Now

	remember := NewRememberMeService(fakeRememberRepo{db: db}, userRepo, activity, 0, logger, audit)
	remember.SetClock(clock.Now)

	authSvc := NewAuthService(userRepo, hasher, remember, email, activity, nil, DefaultLoginPolicy, logger, audit)
	authSvc.SetClock(clock.Now)

	resets := NewPasswordResetService(fakeResetRepo{db: db}, userRepo, hasher, email, activity, nil, 0, logger, audit)
	resets.SetClock(clock.Now)

	return &testEnv{
		db:       db,
		clock:    clock,
		hasher:   hasher,
		sender:   sender,
		activity: activity,
		remember: remember,
		auth:     authSvc,
		resets:   resets,
		users:    NewUserService(userRepo, activity, logger),
	}
}

// seedUser inserts an active user directly and returns its ID.
func (e *testEnv) seedUser(t *testing.T, username, email, password, role string) string {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)

	created, err := fakeUserRepo{db: e.db}.Create(context.Background(), &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.ToUpper(username[:1]) + username[1:],
		LastName:     "Tester",
		Role:         role,
		Status:       models.StatusActive,
	})
	require.NoError(t, err)
	return created.ID
}

func (e *testEnv) setStatus(id, status string) {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	e.db.users[id].Status = status
}

func (e *testEnv) login(email, password string) (*LoginResult, error) {
	return e.auth.Login(context.Background(), LoginInput{Email: email, Password: password, IPAddress: "203.0.113.7"})
}
