package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/BradenHooton/visaqr/internal/database"
	"github.com/BradenHooton/visaqr/internal/models"
	"github.com/jackc/pgx/v5"
)

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const qrCodeColumns = `id, token, subject_id, page, status, expires_at, created_at, used_at`

// QRCodeRepository handles QR code token persistence.
// Every write that depends on the state of a (subject, page) pair runs inside a
// transaction holding that pair's advisory lock.
type QRCodeRepository struct {
	db *database.DB
}

// NewQRCodeRepository creates a new QRCodeRepository
func NewQRCodeRepository(db *database.DB) *QRCodeRepository {
	return &QRCodeRepository{db: db}
}

func scanQRCodeRow(row rowScanner) (*models.QRCode, error) {
	var code models.QRCode
	var status string
	var usedAt *time.Time

	err := row.Scan(
		&code.ID, &code.Token, &code.SubjectID, &code.Page, &status,
		&code.ExpiresAt, &code.CreatedAt, &usedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	code.Status = models.QRStatus(status)
	if !code.Status.IsKnown() {
		return nil, fmt.Errorf("qr code %s has unknown status %q", code.ID, status)
	}
	code.UsedAt = usedAt
	return &code, nil
}

// pairLockKey builds an unambiguous key for a (subject, page) pair.
// Length-prefixing keeps ("a:b", "c") and ("a", "b:c") apart.
func pairLockKey(subjectID, page string) string {
	return strconv.Itoa(len(subjectID)) + ":" + subjectID + ":" + page
}

// lockPair serializes writers of one (subject, page) pair until the transaction ends
func lockPair(ctx context.Context, tx pgx.Tx, subjectID, page string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, pairLockKey(subjectID, page))
	if err != nil {
		return fmt.Errorf("failed to lock qr code pair: %w", database.MapPostgresError(err))
	}
	return nil
}

// Issue stores code as the only active token of its pair.
// In one transaction it refuses pairs that already have a used token, flips any
// active token of the pair to invalidated and inserts code. It returns the stored
// row and the number of tokens it superseded.
func (r *QRCodeRepository) Issue(ctx context.Context, code *models.QRCode) (*models.QRCode, int64, error) {
	var created *models.QRCode
	var invalidated int64

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := lockPair(ctx, tx, code.SubjectID, code.Page); err != nil {
			return err
		}

		var used bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM qr_codes WHERE subject_id = $1 AND page = $2 AND status = $3)`,
			code.SubjectID, code.Page, models.QRStatusUsed,
		).Scan(&used)
		if err != nil {
			return fmt.Errorf("failed to check used qr codes: %w", database.MapPostgresError(err))
		}
		if used {
			return models.ErrQRCodeUsed
		}

		result, err := tx.Exec(ctx,
			`UPDATE qr_codes SET status = $3 WHERE subject_id = $1 AND page = $2 AND status = $4`,
			code.SubjectID, code.Page, models.QRStatusInvalidated, models.QRStatusActive,
		)
		if err != nil {
			return fmt.Errorf("failed to invalidate active qr codes: %w", database.MapPostgresError(err))
		}
		invalidated = result.RowsAffected()

		query := `
			INSERT INTO qr_codes (token, subject_id, page, status, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING ` + qrCodeColumns

		created, err = scanQRCodeRow(tx.QueryRow(ctx, query,
			code.Token, code.SubjectID, code.Page, models.QRStatusActive, code.ExpiresAt, code.CreatedAt,
		))
		if err != nil {
			return fmt.Errorf("failed to insert qr code: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return created, invalidated, nil
}

// Consume atomically marks the matching active, unexpired token as used.
// Any mismatch (token, page, subject, status or expiry) yields ErrQRCodeInvalid.
func (r *QRCodeRepository) Consume(ctx context.Context, token, page, subjectID string, now time.Time) (*models.QRCode, error) {
	var consumed *models.QRCode

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := lockPair(ctx, tx, subjectID, page); err != nil {
			return err
		}

		query := `
			UPDATE qr_codes
			SET status = $5, used_at = $6
			WHERE token = $1 AND page = $2 AND subject_id = $3
			  AND status = $4 AND expires_at > $6
			RETURNING ` + qrCodeColumns

		var err error
		consumed, err = scanQRCodeRow(tx.QueryRow(ctx, query,
			token, page, subjectID, models.QRStatusActive, models.QRStatusUsed, now,
		))
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrQRCodeInvalid
		}
		if err != nil {
			return fmt.Errorf("failed to consume qr code: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return consumed, nil
}

// HasUsed reports whether the pair already has a consumed token
func (r *QRCodeRepository) HasUsed(ctx context.Context, subjectID, page string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM qr_codes WHERE subject_id = $1 AND page = $2 AND status = $3)`

	var exists bool
	err := r.db.Pool.QueryRow(ctx, query, subjectID, page, models.QRStatusUsed).Scan(&exists)
	if err != nil {
		return false, database.MapPostgresError(err)
	}

	return exists, nil
}

// GetActive returns the pair's active token if it has not expired at now
func (r *QRCodeRepository) GetActive(ctx context.Context, subjectID, page string, now time.Time) (*models.QRCode, error) {
	query := `
		SELECT ` + qrCodeColumns + `
		FROM qr_codes
		WHERE subject_id = $1 AND page = $2 AND status = $3 AND expires_at > $4
		ORDER BY created_at DESC
		LIMIT 1
	`

	return scanQRCodeRow(r.db.Pool.QueryRow(ctx, query, subjectID, page, models.QRStatusActive, now))
}

// GetByTokenAndPage retrieves a token regardless of its status
func (r *QRCodeRepository) GetByTokenAndPage(ctx context.Context, token, page string) (*models.QRCode, error) {
	query := `SELECT ` + qrCodeColumns + ` FROM qr_codes WHERE token = $1 AND page = $2`

	return scanQRCodeRow(r.db.Pool.QueryRow(ctx, query, token, page))
}

// DeleteStale purges used and invalidated tokens and anything expired before now
func (r *QRCodeRepository) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM qr_codes WHERE status IN ($1, $2) OR expires_at < $3`

	result, err := r.db.Pool.Exec(ctx, query, models.QRStatusUsed, models.QRStatusInvalidated, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale qr codes: %w", database.MapPostgresError(err))
	}

	return result.RowsAffected(), nil
}
