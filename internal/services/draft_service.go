package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/visaqr/internal/models"
)

// DraftRepository defines the interface for form draft data access
type DraftRepository interface {
	Create(ctx context.Context, formData json.RawMessage, expiresAt time.Time) (*models.VisaFormDraft, error)
	GetByID(ctx context.Context, id string) (*models.VisaFormDraft, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

// DraftService keeps partially filled forms for a limited time
type DraftService struct {
	repo   DraftRepository
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewDraftService creates a new DraftService
func NewDraftService(repo DraftRepository, ttl time.Duration, logger *slog.Logger) *DraftService {
	return &DraftService{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Create stores formData, which must be a JSON object, until the draft TTL elapses
func (s *DraftService) Create(ctx context.Context, formData json.RawMessage) (*models.VisaFormDraft, error) {
	trimmed := bytes.TrimSpace(formData)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: formData must be a JSON object", models.ErrBadRequest)
	}

	draft, err := s.repo.Create(ctx, json.RawMessage(trimmed), s.now().UTC().Add(s.ttl))
	if err != nil {
		s.logger.Error("failed to create draft", slog.Any("error", err))
		return nil, storeError(err)
	}

	return draft, nil
}

// Get returns an unexpired draft
func (s *DraftService) Get(ctx context.Context, id string) (*models.VisaFormDraft, error) {
	draft, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get draft", slog.String("draft_id", id), slog.Any("error", err))
		return nil, storeError(err)
	}

	return draft, nil
}

// CleanupExpired deletes drafts past their expiry
func (s *DraftService) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repo.CleanupExpired(ctx)
	if err != nil {
		s.logger.Error("failed to clean up drafts", slog.Any("error", err))
		return 0, storeError(err)
	}

	return deleted, nil
}
