package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/spendwise/internal/database"
	"github.com/BradenHooton/spendwise/internal/models"
	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActivityLogRepository appends to and reads from activity_log
type ActivityLogRepository struct {
	pool *pgxpool.Pool
	psql squirrel.StatementBuilderType
}

func NewActivityLogRepository(db *database.DB) *ActivityLogRepository {
	return &ActivityLogRepository{
		pool: db.Pool,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ActivityLogRepository) Create(ctx context.Context, entry *models.ActivityLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO activity_log (id, user_id, action, description, ip_address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		entry.ID, entry.UserID, entry.Action, entry.Description, entry.IPAddress,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create activity log entry: %w", database.MapPostgresError(err))
	}

	return nil
}

// ListByUser returns the user's most recent entries, newest first.
func (r *ActivityLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.ActivityLogEntry, error) {
	if limit <= 0 {
		return []*models.ActivityLogEntry{}, nil
	}

	query, args, err := r.psql.
		Select("id", "user_id", "action", "description", "ip_address", "created_at").
		From("activity_log").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build activity log query: %w", err)
	}

	entries := make([]*models.ActivityLogEntry, 0, limit)
	if err := pgxscan.Select(ctx, r.pool, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query activity log: %w", err)
	}

	return entries, nil
}
