package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/spendwise/internal/database"
	"github.com/BradenHooton/spendwise/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const userColumns = `id, username, email, password_hash, first_name, last_name, phone, role, status,
	login_attempts, locked_until, last_login, created_at, updated_at`

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.Phone, &user.Role, &user.Status,
		&user.LoginAttempts, &user.LockedUntil, &user.LastLogin,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail matches case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

// ExistsByUsernameOrEmail reports whether either identifier is already taken.
func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($2)
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()
	user.Email = models.NormalizeEmail(user.Email)

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RoleUser
	}

	if user.Status == "" {
		user.Status = models.StatusActive
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, first_name, last_name, phone, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.Phone, user.Role, user.Status,
		user.CreatedAt, user.UpdatedAt,
	))
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, firstName, lastName string, phone *string) (*models.User, error) {
	query := `
		UPDATE users SET first_name = $1, last_name = $2, phone = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query, firstName, lastName, phone, id))
}

// RecordFailedLogin increments the failure counter in a single statement and
// locks the account once the counter reaches maxAttempts. A counter left over
// from a lock that has already expired starts again from one. An account that
// is still locked is left untouched and reported with models.ErrAccountLocked,
// so concurrent failures can never push locked_until further out.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, id string, now time.Time, maxAttempts int, lockout time.Duration) (int, *time.Time, error) {
	query := `
		UPDATE users SET
			login_attempts = CASE
				WHEN locked_until IS NOT NULL THEN 1
				ELSE login_attempts + 1
			END,
			locked_until = CASE
				WHEN (CASE
					WHEN locked_until IS NOT NULL THEN 1
					ELSE login_attempts + 1
				END) >= $3::int THEN $4::timestamptz
				ELSE NULL
			END,
			updated_at = $2::timestamptz
		WHERE id = $1 AND (locked_until IS NULL OR locked_until <= $2::timestamptz)
		RETURNING login_attempts, locked_until
	`

	var attempts int
	var lockedUntil *time.Time
	err := r.pool.QueryRow(ctx, query, id, now, maxAttempts, now.Add(lockout)).Scan(&attempts, &lockedUntil)
	if err == nil {
		return attempts, lockedUntil, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, database.MapPostgresError(err)
	}

	// Either the user is gone or another request locked the account first.
	err = r.pool.QueryRow(ctx, `SELECT login_attempts, locked_until FROM users WHERE id = $1`, id).
		Scan(&attempts, &lockedUntil)
	if err != nil {
		return 0, nil, database.MapPostgresError(err)
	}
	if lockedUntil != nil && lockedUntil.After(now) {
		return attempts, lockedUntil, models.ErrAccountLocked
	}
	return 0, nil, fmt.Errorf("failed login not recorded for user %s", id)
}

// RecordSuccessfulLogin resets the failure counter, clears any lock and stamps last_login.
func (r *UserRepository) RecordSuccessfulLogin(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE users SET login_attempts = 0, locked_until = NULL, last_login = $2, updated_at = $2
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, now)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
