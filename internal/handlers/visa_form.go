package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/BradenHooton/visaqr/internal/models"
	"github.com/BradenHooton/visaqr/internal/services"
	"github.com/BradenHooton/visaqr/internal/storage"
	pkghttp "github.com/BradenHooton/visaqr/pkg/http"
	"github.com/BradenHooton/visaqr/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// passportFileField is the multipart field carrying the passport scan
const passportFileField = "passportCopy"

// VisaFormService defines the interface for visa form business logic
type VisaFormService interface {
	Create(ctx context.Context, form *models.VisaForm) (*models.VisaForm, error)
	Get(ctx context.Context, id string) (*models.VisaForm, error)
	List(ctx context.Context, limit, offset int) ([]*models.VisaForm, error)
	Update(ctx context.Context, id string, form *models.VisaForm) (*models.VisaForm, error)
	UpdatePassport(ctx context.Context, id string, details models.PassportDetails, upload *services.PassportUpload) (*models.VisaForm, error)
	PassportURL(ctx context.Context, id string) (string, time.Duration, error)
	Delete(ctx context.Context, id string) error
}

// VisaFormHandler handles visa form HTTP requests
type VisaFormHandler struct {
	service       VisaFormService
	audit         *logger.AuditLogger
	ipConfig      *pkghttp.IPConfig
	maxUploadSize int64
}

// NewVisaFormHandler creates a new VisaFormHandler
func NewVisaFormHandler(service VisaFormService, audit *logger.AuditLogger, ipConfig *pkghttp.IPConfig, maxUploadSize int64) *VisaFormHandler {
	return &VisaFormHandler{
		service:       service,
		audit:         audit,
		ipConfig:      ipConfig,
		maxUploadSize: maxUploadSize,
	}
}

// decodeVisaForm reads and validates a VisaFormRequest body
func decodeVisaForm(w http.ResponseWriter, r *http.Request) (*VisaFormRequest, bool) {
	var req VisaFormRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return nil, false
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return nil, false
	}

	return &req, true
}

// CreateVisaForm creates a new visa form
//
// @Summary Create a visa form
// @Accept json
// @Param request body VisaFormRequest true "Visa form"
// @Produce json
// @Success 201 {object} VisaFormResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /visa [post]
func (h *VisaFormHandler) CreateVisaForm(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeVisaForm(w, r)
	if !ok {
		return
	}

	form, err := h.service.Create(r.Context(), req.toModel())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.audit.LogFormAction("visa_form_created", form.ID, pkghttp.ExtractClientIP(r, h.ipConfig), nil)
	pkghttp.WriteJSON(w, http.StatusCreated, visaFormModelToResponse(form))
}

// ListVisaForms retrieves visa forms with pagination
//
// @Summary List visa forms
// @Param limit query int false "Limit (default 10)" default(10)
// @Param offset query int false "Offset (default 0)" default(0)
// @Produce json
// @Success 200 {object} ListVisaFormsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /visa [get]
func (h *VisaFormHandler) ListVisaForms(w http.ResponseWriter, r *http.Request) {
	limit := 10
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if err := parseIntParam(l, &limit, 1, 100); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		if err := parseIntParam(o, &offset, 0, 10000); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid offset parameter")
			return
		}
	}

	forms, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := &ListVisaFormsResponse{
		Forms: make([]*VisaFormResponse, len(forms)),
		Total: len(forms),
	}
	for i, form := range forms {
		response.Forms[i] = visaFormModelToResponse(form)
	}

	pkghttp.WriteJSON(w, http.StatusOK, response)
}

// GetVisaForm retrieves a visa form by ID
//
// @Summary Get visa form by ID
// @Param id path string true "Visa form ID"
// @Produce json
// @Success 200 {object} VisaFormResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /visa/{id} [get]
func (h *VisaFormHandler) GetVisaForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, visaFormModelToResponse(form))
}

// UpdateVisaForm replaces the sections of a visa form
//
// @Summary Update a visa form
// @Param id path string true "Visa form ID"
// @Accept json
// @Param request body VisaFormRequest true "Visa form"
// @Produce json
// @Success 200 {object} VisaFormResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /visa/{id} [put]
func (h *VisaFormHandler) UpdateVisaForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, ok := decodeVisaForm(w, r)
	if !ok {
		return
	}

	form, err := h.service.Update(r.Context(), id, req.toModel())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.audit.LogFormAction("visa_form_updated", form.ID, pkghttp.ExtractClientIP(r, h.ipConfig), nil)
	pkghttp.WriteJSON(w, http.StatusOK, visaFormModelToResponse(form))
}

// UpdatePassport replaces the passport section and optionally uploads a scan.
// Accepts multipart/form-data (fields plus a passportCopy file) or JSON.
//
// @Summary Update passport details
// @Param id path string true "Visa form ID"
// @Accept mpfd
// @Param passportCopy formData file false "Passport scan (jpeg, png or pdf)"
// @Produce json
// @Success 200 {object} VisaFormResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /visa/{id}/passport [put]
func (h *VisaFormHandler) UpdatePassport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var details models.PassportDetails
	var upload *services.PassportUpload

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		// Allow room for the non-file fields on top of the file itself
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+(1<<20))
		if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				pkghttp.WriteRequestTooLarge(w, "Uploaded file is too large")
				return
			}
			pkghttp.WriteBadRequest(w, "Invalid multipart form")
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		details = models.PassportDetails{
			PassportNumber: r.FormValue("passportNumber"),
			DateOfIssue:    r.FormValue("dateOfIssue"),
			DateOfExpiry:   r.FormValue("dateOfExpiry"),
			PlaceOfIssue:   r.FormValue("placeOfIssue"),
		}

		file, header, err := r.FormFile(passportFileField)
		switch {
		case err == nil:
			defer func() { _ = file.Close() }()

			validated, err := storage.ValidateFile(header, storage.PassportConstraints.WithMaxSize(h.maxUploadSize))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			upload = &services.PassportUpload{
				Body:        file,
				ContentType: validated.ContentType,
				Extension:   validated.Extension,
			}
		case errors.Is(err, http.ErrMissingFile):
			// Details-only update
		default:
			pkghttp.WriteBadRequest(w, "Invalid passport file")
			return
		}
	} else if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(details); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	form, err := h.service.UpdatePassport(r.Context(), id, details, upload)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	metadata := map[string]string{"file_uploaded": "false"}
	if upload != nil {
		metadata["file_uploaded"] = "true"
	}
	h.audit.LogFormAction("passport_updated", form.ID, pkghttp.ExtractClientIP(r, h.ipConfig), metadata)

	pkghttp.WriteJSON(w, http.StatusOK, visaFormModelToResponse(form))
}

// GetPassportURL returns a temporary download link for the passport scan
//
// @Summary Get passport scan URL
// @Param id path string true "Visa form ID"
// @Produce json
// @Success 200 {object} PassportURLResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /visa/{id}/passport [get]
func (h *VisaFormHandler) GetPassportURL(w http.ResponseWriter, r *http.Request) {
	url, expiry, err := h.service.PassportURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, &PassportURLResponse{
		URL:       url,
		ExpiresIn: int64(expiry.Seconds()),
	})
}

// DeleteVisaForm removes a visa form
//
// @Summary Delete a visa form
// @Param id path string true "Visa form ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /visa/{id} [delete]
func (h *VisaFormHandler) DeleteVisaForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	h.audit.LogFormAction("visa_form_deleted", id, pkghttp.ExtractClientIP(r, h.ipConfig), nil)
	w.WriteHeader(http.StatusNoContent)
}
