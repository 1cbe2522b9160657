package main

// Run database migrations:
//   go run ./cmd/migrate [up|status|down]

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"chess-coach-backend/internal/shared/config"
	"chess-coach-backend/internal/shared/storage/db"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	if err := run(context.Background(), command); err != nil {
		log.Printf("migrate %s: %v", command, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string) error {
	migrate, err := migrationFor(command)
	if err != nil {
		return err
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer sqlDB.Close()

	return migrate(ctx, sqlDB)
}

func migrationFor(command string) (func(context.Context, *sql.DB) error, error) {
	switch command {
	case "up":
		return db.RunMigrations, nil
	case "status":
		return db.MigrationStatus, nil
	case "down":
		return db.RollbackMigration, nil
	default:
		return nil, fmt.Errorf("unknown command %q (want up, status or down)", command)
	}
}
