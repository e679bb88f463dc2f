//go:build integration

package integration

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/spendwise/internal/database"
	"github.com/BradenHooton/spendwise/internal/models"
	"github.com/BradenHooton/spendwise/internal/repositories"
	pkgauth "github.com/BradenHooton/spendwise/pkg/auth"
)

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("spendwise"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	// Migrations go through lib/pq, the same driver cmd/migrate uses
	if err := runMigrations(ctx, connStr); err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         database.NewFromPool(pool, DiscardLogger()),
	}, nil
}

func runMigrations(ctx context.Context, connStr string) error {
	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	database.SetMigrationLogger(DiscardLogger())
	return database.RunMigrations(ctx, sqlDB, "up")
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"remember_tokens",
		"password_resets",
		"activity_log",
		"users",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// Repositories bundles the repository instances over one database
type Repositories struct {
	Users    *repositories.UserRepository
	Resets   *repositories.PasswordResetRepository
	Remember *repositories.RememberTokenRepository
	Activity *repositories.ActivityLogRepository
}

// InitializeRepositories creates all repository instances from database wrapper
func InitializeRepositories(db *database.DB) Repositories {
	return Repositories{
		Users:    repositories.NewUserRepository(db),
		Resets:   repositories.NewPasswordResetRepository(db),
		Remember: repositories.NewRememberTokenRepository(db),
		Activity: repositories.NewActivityLogRepository(db),
	}
}

// SeedUser inserts an active user with the given password
func SeedUser(ctx context.Context, users *repositories.UserRepository, username, email, password string) (*models.User, error) {
	hash, err := pkgauth.NewHasher(testBcryptCost).Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := users.Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
