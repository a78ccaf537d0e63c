package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BradenHooton/visaqr/internal/database"
	"github.com/BradenHooton/visaqr/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VisaFormDraftRepository handles temporary form drafts
type VisaFormDraftRepository struct {
	pool *pgxpool.Pool
}

// NewVisaFormDraftRepository creates a new VisaFormDraftRepository
func NewVisaFormDraftRepository(db *database.DB) *VisaFormDraftRepository {
	return &VisaFormDraftRepository{pool: db.Pool}
}

func scanDraftRow(row rowScanner) (*models.VisaFormDraft, error) {
	var draft models.VisaFormDraft
	var data []byte

	if err := row.Scan(&draft.ID, &data, &draft.ExpiresAt, &draft.CreatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}

	draft.FormData = json.RawMessage(data)
	return &draft, nil
}

// Create stores a draft that lives until expiresAt
func (r *VisaFormDraftRepository) Create(ctx context.Context, formData json.RawMessage, expiresAt time.Time) (*models.VisaFormDraft, error) {
	query := `
		INSERT INTO visa_form_drafts (form_data, expires_at)
		VALUES ($1, $2)
		RETURNING id, form_data, expires_at, created_at
	`

	draft, err := scanDraftRow(r.pool.QueryRow(ctx, query, []byte(formData), expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	return draft, nil
}

// GetByID returns a draft that has not yet expired
func (r *VisaFormDraftRepository) GetByID(ctx context.Context, id string) (*models.VisaFormDraft, error) {
	query := `
		SELECT id, form_data, expires_at, created_at
		FROM visa_form_drafts
		WHERE id = $1 AND expires_at > NOW()
	`

	return scanDraftRow(r.pool.QueryRow(ctx, query, id))
}

// CleanupExpired deletes drafts past their expiry
func (r *VisaFormDraftRepository) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM visa_form_drafts WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired drafts: %w", database.MapPostgresError(err))
	}

	return result.RowsAffected(), nil
}
