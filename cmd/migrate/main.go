package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BradenHooton/visaqr/internal/config"
	"github.com/BradenHooton/visaqr/internal/database"
	pkglogger "github.com/BradenHooton/visaqr/pkg/logger"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

const usage = `Usage: migrate [flags] <command>

Commands:
  up        apply all pending migrations
  down      roll back the most recent migration
  status    print the status of every migration
  version   print the current schema version
`

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "overall time limit")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger, flush := pkglogger.New(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"), "")
	defer flush()

	if err := run(flag.Arg(0), *timeout); err != nil {
		logger.Error("migration command failed",
			slog.String("command", flag.Arg(0)),
			slog.Any("error", err))
		flush()
		os.Exit(1)
	}
}

func run(command string, timeout time.Duration) error {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	goose.SetBaseFS(database.Migrations())
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	switch command {
	case "up":
		return goose.UpContext(ctx, db, ".")
	case "down":
		return goose.DownContext(ctx, db, ".")
	case "status":
		return goose.StatusContext(ctx, db, ".")
	case "version":
		return goose.VersionContext(ctx, db, ".")
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
