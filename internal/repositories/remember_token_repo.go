package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/spendwise/internal/database"
	"github.com/BradenHooton/spendwise/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RememberTokenRepository struct {
	pool *pgxpool.Pool
}

func NewRememberTokenRepository(db *database.DB) *RememberTokenRepository {
	return &RememberTokenRepository{pool: db.Pool}
}

func (r *RememberTokenRepository) Create(ctx context.Context, token *models.RememberToken) error {
	token.ID = uuid.New().String()

	query := `
		INSERT INTO remember_tokens (id, user_id, selector, validator_hash, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		token.ID, token.UserID, token.Selector, token.ValidatorHash, token.ExpiresAt,
	).Scan(&token.CreatedAt)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

func (r *RememberTokenRepository) GetBySelector(ctx context.Context, selector string) (*models.RememberToken, error) {
	query := `
		SELECT id, user_id, selector, validator_hash, expires_at, created_at
		FROM remember_tokens WHERE selector = $1
	`

	var token models.RememberToken
	err := r.pool.QueryRow(ctx, query, selector).Scan(
		&token.ID, &token.UserID, &token.Selector, &token.ValidatorHash, &token.ExpiresAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &token, nil
}

// Delete removes a single token. Deleting a token that is already gone is not an error.
func (r *RememberTokenRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM remember_tokens WHERE id = $1`, id); err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

func (r *RememberTokenRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM remember_tokens WHERE user_id = $1`, userID); err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

func (r *RememberTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM remember_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired remember tokens: %w", err)
	}
	return result.RowsAffected(), nil
}
