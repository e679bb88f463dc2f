package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/spendwise/internal/database"
	"github.com/BradenHooton/spendwise/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PasswordResetRepository handles password_resets data access. It keeps the
// *database.DB rather than the bare pool because issuing and consuming a
// code are transactional.
type PasswordResetRepository struct {
	db *database.DB
}

func NewPasswordResetRepository(db *database.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

const passwordResetColumns = `id, user_id, email, code, token_hash, expires_at, used, created_at`

func scanPasswordResetRow(row rowScanner) (*models.PasswordResetRequest, error) {
	var req models.PasswordResetRequest

	err := row.Scan(
		&req.ID, &req.UserID, &req.Email, &req.Code, &req.TokenHash,
		&req.ExpiresAt, &req.Used, &req.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &req, nil
}

// CreateReplacingOutstanding marks every unused request for the user as used
// and inserts the new one, in one transaction.
func (r *PasswordResetRepository) CreateReplacingOutstanding(ctx context.Context, req *models.PasswordResetRequest) (*models.PasswordResetRequest, error) {
	req.ID = uuid.New().String()
	req.Email = models.NormalizeEmail(req.Email)
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}

	var created *models.PasswordResetRequest
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE password_resets SET used = TRUE WHERE user_id = $1 AND used = FALSE`,
			req.UserID,
		); err != nil {
			return fmt.Errorf("failed to invalidate outstanding resets: %w", err)
		}

		query := `
			INSERT INTO password_resets (id, user_id, email, code, token_hash, expires_at, used, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
			RETURNING ` + passwordResetColumns

		var err error
		created, err = scanPasswordResetRow(tx.QueryRow(ctx, query,
			req.ID, req.UserID, req.Email, req.Code, req.TokenHash, req.ExpiresAt, req.CreatedAt,
		))
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// FindValid returns the most recently issued unused, unexpired request
// matching the email (case-insensitive) and code exactly.
func (r *PasswordResetRepository) FindValid(ctx context.Context, email, code string, now time.Time) (*models.PasswordResetRequest, error) {
	query := `
		SELECT ` + passwordResetColumns + `
		FROM password_resets
		WHERE LOWER(email) = LOWER($1)
		  AND code = $2
		  AND used = FALSE
		  AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	return scanPasswordResetRow(r.db.Pool.QueryRow(ctx, query, email, code, now))
}

// ConsumeAndSetPassword marks the request used and stores the new password
// hash atomically. The used flag is re-checked in the UPDATE so that only one
// of two concurrent consumers wins; the loser gets ErrNotFound and nothing is
// written. Remember-me tokens for the user are revoked in the same transaction.
func (r *PasswordResetRepository) ConsumeAndSetPassword(ctx context.Context, requestID, userID, passwordHash string, now time.Time) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx,
			`UPDATE password_resets SET used = TRUE
			 WHERE id = $1 AND user_id = $2 AND used = FALSE AND expires_at > $3`,
			requestID, userID, now,
		)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		result, err = tx.Exec(ctx,
			`UPDATE users SET password_hash = $1, login_attempts = 0, locked_until = NULL, updated_at = $3
			 WHERE id = $2`,
			passwordHash, userID, now,
		)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM remember_tokens WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to revoke remember tokens: %w", err)
		}

		return nil
	})
}

// InvalidateOutstanding marks all unused requests for the user as used.
func (r *PasswordResetRepository) InvalidateOutstanding(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE password_resets SET used = TRUE WHERE user_id = $1 AND used = FALSE`,
		userID,
	)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpiredBefore removes requests that expired before the cutoff.
func (r *PasswordResetRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM password_resets WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired password resets: %w", err)
	}
	return result.RowsAffected(), nil
}
