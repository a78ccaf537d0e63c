package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/visaqr/internal/database"
	"github.com/BradenHooton/visaqr/internal/models"
	"github.com/BradenHooton/visaqr/internal/repositories"
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
		postgres.WithDatabase("visaqr"),
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

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	// Enough connections for the concurrency tests to contend for real
	poolConfig.MaxConns = 32

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         database.NewFromPool(pool, logger),
	}, nil
}

// runMigrations applies the embedded goose migrations
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// Suppress goose logs
	goose.SetLogger(log.New(io.Discard, "", 0))

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	return database.RunMigrations(ctx, sqlDB)
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
		"qr_codes",
		"visa_form_drafts",
		"visa_forms",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// InitializeRepositories creates all repository instances from database wrapper
func InitializeRepositories(db *database.DB) (
	*repositories.QRCodeRepository,
	*repositories.VisaFormRepository,
	*repositories.VisaFormDraftRepository,
) {
	return repositories.NewQRCodeRepository(db),
		repositories.NewVisaFormRepository(db),
		repositories.NewVisaFormDraftRepository(db)
}

// SeedQRCode inserts a token row directly, bypassing the issue transaction.
// Used to set up states the API cannot produce on demand, like an expired active token.
func SeedQRCode(ctx context.Context, pool *pgxpool.Pool, token, subjectID, page string, status models.QRStatus, expiresAt time.Time) error {
	query := `
		INSERT INTO qr_codes (token, subject_id, page, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	if _, err := pool.Exec(ctx, query, token, subjectID, page, string(status), expiresAt); err != nil {
		return fmt.Errorf("failed to insert qr code: %w", err)
	}
	return nil
}

// CountQRCodes returns how many tokens of a pair are in the given status
func CountQRCodes(ctx context.Context, pool *pgxpool.Pool, subjectID, page string, status models.QRStatus) (int, error) {
	var n int
	err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM qr_codes WHERE subject_id = $1 AND page = $2 AND status = $3`,
		subjectID, page, string(status),
	).Scan(&n)
	return n, err
}
