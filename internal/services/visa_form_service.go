package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/BradenHooton/visaqr/internal/models"
	"github.com/BradenHooton/visaqr/internal/storage"
)

// VisaFormRepository defines the interface for visa form data access
type VisaFormRepository interface {
	Create(ctx context.Context, form *models.VisaForm) (*models.VisaForm, error)
	GetByID(ctx context.Context, id string) (*models.VisaForm, error)
	List(ctx context.Context, limit, offset int) ([]*models.VisaForm, error)
	Update(ctx context.Context, id string, form *models.VisaForm) (*models.VisaForm, error)
	UpdatePassportDetails(ctx context.Context, id string, details models.PassportDetails) (*models.VisaForm, error)
	Delete(ctx context.Context, id string) error
}

// PassportUpload is a validated passport scan ready to be stored
type PassportUpload struct {
	Body        io.Reader
	ContentType string
	Extension   string
}

// VisaFormService handles visa form business logic
type VisaFormService struct {
	repo          VisaFormRepository
	storage       storage.Storage
	presignExpiry time.Duration
	logger        *slog.Logger
}

// NewVisaFormService creates a new VisaFormService. store may be nil when blob
// storage is not configured; passport uploads then fail with ErrUnavailable.
func NewVisaFormService(repo VisaFormRepository, store storage.Storage, presignExpiry time.Duration, logger *slog.Logger) *VisaFormService {
	return &VisaFormService{
		repo:          repo,
		storage:       store,
		presignExpiry: presignExpiry,
		logger:        logger,
	}
}

// Create stores a new visa form
func (s *VisaFormService) Create(ctx context.Context, form *models.VisaForm) (*models.VisaForm, error) {
	// The passport scan reference is only ever set by an upload
	form.PassportDetails.PassportCopy = ""

	created, err := s.repo.Create(ctx, form)
	if err != nil {
		s.logger.Error("failed to create visa form", slog.Any("error", err))
		return nil, storeError(err)
	}

	s.logger.Info("visa form created", slog.String("form_id", created.ID))
	return created, nil
}

// Get retrieves a visa form by ID
func (s *VisaFormService) Get(ctx context.Context, id string) (*models.VisaForm, error) {
	form, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get visa form", slog.String("form_id", id), slog.Any("error", err))
		return nil, storeError(err)
	}

	return form, nil
}

// List retrieves visa forms with pagination
func (s *VisaFormService) List(ctx context.Context, limit, offset int) ([]*models.VisaForm, error) {
	forms, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list visa forms", slog.Int("limit", limit), slog.Int("offset", offset), slog.Any("error", err))
		return nil, storeError(err)
	}

	return forms, nil
}

// Update replaces the sections of an existing form
func (s *VisaFormService) Update(ctx context.Context, id string, form *models.VisaForm) (*models.VisaForm, error) {
	updated, err := s.repo.Update(ctx, id, form)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update visa form", slog.String("form_id", id), slog.Any("error", err))
		return nil, storeError(err)
	}

	return updated, nil
}

// UpdatePassport replaces the passport section and, when upload is non-nil,
// stores the scan and points the form at it. The previous scan is removed
// once the form references the new one.
func (s *VisaFormService) UpdatePassport(ctx context.Context, id string, details models.PassportDetails, upload *PassportUpload) (*models.VisaForm, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previousKey := existing.PassportDetails.PassportCopy
	details.PassportCopy = previousKey

	var newKey string
	if upload != nil {
		if s.storage == nil {
			return nil, fmt.Errorf("%w: file storage is not configured", models.ErrUnavailable)
		}

		newKey = storage.PassportKey(id, upload.Extension)
		if err := s.storage.Save(ctx, newKey, upload.Body, upload.ContentType); err != nil {
			s.logger.Error("failed to store passport copy", slog.String("form_id", id), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		details.PassportCopy = newKey
	}

	updated, err := s.repo.UpdatePassportDetails(ctx, id, details)
	if err != nil {
		if newKey != "" {
			s.deleteBlob(ctx, newKey)
		}
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update passport details", slog.String("form_id", id), slog.Any("error", err))
		return nil, storeError(err)
	}

	if newKey != "" && previousKey != "" {
		s.deleteBlob(ctx, previousKey)
	}

	return updated, nil
}

// PassportURL returns a time-limited download link for the form's passport scan
func (s *VisaFormService) PassportURL(ctx context.Context, id string) (string, time.Duration, error) {
	form, err := s.Get(ctx, id)
	if err != nil {
		return "", 0, err
	}

	if form.PassportDetails.PassportCopy == "" {
		return "", 0, models.ErrNotFound
	}
	if s.storage == nil {
		return "", 0, fmt.Errorf("%w: file storage is not configured", models.ErrUnavailable)
	}

	url, err := s.storage.PresignedURL(ctx, form.PassportDetails.PassportCopy, s.presignExpiry)
	if err != nil {
		s.logger.Error("failed to presign passport copy", slog.String("form_id", id), slog.Any("error", err))
		return "", 0, models.ErrInternalServer
	}

	return url, s.presignExpiry, nil
}

// Delete removes a form and its stored passport scan
func (s *VisaFormService) Delete(ctx context.Context, id string) error {
	form, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete visa form", slog.String("form_id", id), slog.Any("error", err))
		return storeError(err)
	}

	if key := form.PassportDetails.PassportCopy; key != "" {
		s.deleteBlob(ctx, key)
	}

	s.logger.Info("visa form deleted", slog.String("form_id", id))
	return nil
}

// deleteBlob removes an orphaned object; failures only leave garbage behind
func (s *VisaFormService) deleteBlob(ctx context.Context, key string) {
	if s.storage == nil {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete stored passport copy", slog.String("key", key), slog.Any("error", err))
	}
}
