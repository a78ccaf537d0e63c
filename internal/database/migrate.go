package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations exposes the embedded goose migrations
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		// The directory is embedded at build time; Sub only fails on a bad path
		panic(err)
	}
	return sub
}

// RunMigrations applies all pending migrations against db
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(Migrations())
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Migrate runs migrations over the pool through the pgx stdlib adapter
func (db *DB) Migrate(ctx context.Context) error {
	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	if err := RunMigrations(ctx, sqlDB); err != nil {
		return err
	}

	if db.logger != nil {
		db.logger.Info("database migrations applied")
	}
	return nil
}
