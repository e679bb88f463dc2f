package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BradenHooton/spendwise/internal/config"
	"github.com/BradenHooton/spendwise/internal/database"
	_ "github.com/lib/pq"
)

const usage = `Usage: migrate [command] [args]

Commands:
  up           apply all pending migrations (default)
  down         roll back the latest migration
  status       print the status of every migration
  version      print the current schema version
  redo         roll back and re-apply the latest migration
  reset        roll back every migration
  up-to VER    migrate up to VER
  down-to VER  roll back to VER
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	command := "up"
	args := flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Error("failed to reach database", slog.Any("error", err))
		os.Exit(1)
	}

	database.SetMigrationLogger(logger)
	if err := database.RunMigrations(ctx, sqlDB, command, args...); err != nil {
		logger.Error("migration failed", slog.String("command", command), slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("migration finished", slog.String("command", command))
}
