package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/BradenHooton/visaqr/internal/models"
	pkghttp "github.com/BradenHooton/visaqr/pkg/http"
	"github.com/go-chi/chi/v5"
)

// DraftService defines the interface for form draft operations
type DraftService interface {
	Create(ctx context.Context, formData json.RawMessage) (*models.VisaFormDraft, error)
	Get(ctx context.Context, id string) (*models.VisaFormDraft, error)
}

// DraftHandler handles visa form draft HTTP requests
type DraftHandler struct {
	service DraftService
}

// NewDraftHandler creates a new DraftHandler
func NewDraftHandler(service DraftService) *DraftHandler {
	return &DraftHandler{service: service}
}

// CreateDraft saves a partially completed form
//
// @Summary Save a form draft
// @Accept json
// @Param request body CreateDraftRequest true "Draft"
// @Produce json
// @Success 201 {object} DraftResponse
// @Failure 400 {object} ErrorResponse
// @Router /visa/drafts [post]
func (h *DraftHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req CreateDraftRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	draft, err := h.service.Create(r.Context(), req.FormData)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, &DraftResponse{
		ID:        draft.ID,
		ExpiresAt: formatTimestamp(draft.ExpiresAt),
	})
}

// GetDraft returns a saved draft until it expires
//
// @Summary Get a form draft
// @Param id path string true "Draft ID"
// @Produce json
// @Success 200 {object} DraftResponse
// @Failure 404 {object} ErrorResponse
// @Router /visa/drafts/{id} [get]
func (h *DraftHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, &DraftResponse{
		ID:        draft.ID,
		FormData:  draft.FormData,
		ExpiresAt: formatTimestamp(draft.ExpiresAt),
	})
}
