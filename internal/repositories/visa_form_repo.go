package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BradenHooton/visaqr/internal/database"
	"github.com/BradenHooton/visaqr/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const visaFormColumns = `id, personal_details, passport_details, contact_details, visa_details, created_at, updated_at`

// VisaFormRepository handles visa form data access.
// Each form section is stored as its own JSONB column.
type VisaFormRepository struct {
	pool *pgxpool.Pool
}

// NewVisaFormRepository creates a new VisaFormRepository
func NewVisaFormRepository(db *database.DB) *VisaFormRepository {
	return &VisaFormRepository{pool: db.Pool}
}

func scanVisaFormRow(row rowScanner) (*models.VisaForm, error) {
	var form models.VisaForm
	var personal, passport, contact, visa []byte

	err := row.Scan(&form.ID, &personal, &passport, &contact, &visa, &form.CreatedAt, &form.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	sections := []struct {
		raw  []byte
		dest interface{}
	}{
		{personal, &form.PersonalDetails},
		{passport, &form.PassportDetails},
		{contact, &form.ContactDetails},
		{visa, &form.VisaDetails},
	}
	for _, s := range sections {
		if err := json.Unmarshal(s.raw, s.dest); err != nil {
			return nil, fmt.Errorf("failed to decode visa form section: %w", err)
		}
	}

	return &form, nil
}

func scanVisaFormRows(rows pgx.Rows) ([]*models.VisaForm, error) {
	defer rows.Close()

	forms := make([]*models.VisaForm, 0)

	for rows.Next() {
		form, err := scanVisaFormRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visa form: %w", err)
		}
		forms = append(forms, form)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visa form rows: %w", err)
	}

	return forms, nil
}

// Create inserts a new visa form
func (r *VisaFormRepository) Create(ctx context.Context, form *models.VisaForm) (*models.VisaForm, error) {
	query := `
		INSERT INTO visa_forms (personal_details, passport_details, contact_details, visa_details)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + visaFormColumns

	created, err := scanVisaFormRow(r.pool.QueryRow(ctx, query,
		form.PersonalDetails, form.PassportDetails, form.ContactDetails, form.VisaDetails,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create visa form: %w", err)
	}

	return created, nil
}

// GetByID retrieves a visa form by ID
func (r *VisaFormRepository) GetByID(ctx context.Context, id string) (*models.VisaForm, error) {
	query := `SELECT ` + visaFormColumns + ` FROM visa_forms WHERE id = $1`

	return scanVisaFormRow(r.pool.QueryRow(ctx, query, id))
}

// List returns forms newest first
func (r *VisaFormRepository) List(ctx context.Context, limit, offset int) ([]*models.VisaForm, error) {
	query := `
		SELECT ` + visaFormColumns + `
		FROM visa_forms
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return scanVisaFormRows(rows)
}

// Update replaces all sections of a form.
// The stored passportCopy key survives; only the upload endpoint may change it.
func (r *VisaFormRepository) Update(ctx context.Context, id string, form *models.VisaForm) (*models.VisaForm, error) {
	query := `
		UPDATE visa_forms
		SET personal_details = $2,
		    passport_details = jsonb_strip_nulls(
		        $3::jsonb || jsonb_build_object('passportCopy', passport_details->'passportCopy')
		    ),
		    contact_details = $4, visa_details = $5,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + visaFormColumns

	return scanVisaFormRow(r.pool.QueryRow(ctx, query, id,
		form.PersonalDetails, form.PassportDetails, form.ContactDetails, form.VisaDetails,
	))
}

// UpdatePassportDetails replaces only the passport section
func (r *VisaFormRepository) UpdatePassportDetails(ctx context.Context, id string, details models.PassportDetails) (*models.VisaForm, error) {
	query := `
		UPDATE visa_forms
		SET passport_details = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + visaFormColumns

	return scanVisaFormRow(r.pool.QueryRow(ctx, query, id, details))
}

// Delete removes a visa form
func (r *VisaFormRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM visa_forms WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
