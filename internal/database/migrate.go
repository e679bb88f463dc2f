package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const migrationsDir = "migrations"

// Migrate applies all pending migrations using the pool's connection config.
func (db *DB) Migrate(ctx context.Context) error {
	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	if err := RunMigrations(ctx, sqlDB, "up"); err != nil {
		return err
	}

	db.logger.Info("database migrations applied")
	return nil
}

// RunMigrations executes a goose command against the embedded migration set.
func RunMigrations(ctx context.Context, sqlDB *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(Migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, sqlDB, migrationsDir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// SetMigrationLogger routes goose output through slog.
func SetMigrationLogger(logger *slog.Logger) {
	goose.SetLogger(&gooseLogger{logger: logger})
}

type gooseLogger struct {
	logger *slog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}
