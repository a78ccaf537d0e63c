package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/BradenHooton/visaqr/internal/models"
	"github.com/BradenHooton/visaqr/internal/services"
	pkghttp "github.com/BradenHooton/visaqr/pkg/http"
	"github.com/BradenHooton/visaqr/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// QRCodeService defines the interface for QR code lifecycle operations
type QRCodeService interface {
	Generate(ctx context.Context, subjectID, page string) (*services.GeneratedQRCode, error)
	DeliverLink(ctx context.Context, email string, code *services.GeneratedQRCode) bool
	CanGenerate(ctx context.Context, subjectID, page string) (bool, error)
	GetActive(ctx context.Context, subjectID, page string) (*models.QRCode, error)
	Validate(ctx context.Context, token, page, subjectID string) (*models.QRCode, error)
	Status(ctx context.Context, token, page string) (*models.QRCodeStatus, error)
	Cleanup(ctx context.Context) (int64, error)
}

// QRCodeHandler handles QR code HTTP requests
type QRCodeHandler struct {
	service  QRCodeService
	audit    *logger.AuditLogger
	ipConfig *pkghttp.IPConfig
}

// NewQRCodeHandler creates a new QRCodeHandler
func NewQRCodeHandler(service QRCodeService, audit *logger.AuditLogger, ipConfig *pkghttp.IPConfig) *QRCodeHandler {
	return &QRCodeHandler{
		service:  service,
		audit:    audit,
		ipConfig: ipConfig,
	}
}

// Generate issues a new single-use QR code for a subject's page
//
// @Summary Generate a QR code
// @Accept json
// @Param request body GenerateQRCodeRequest true "Generate request"
// @Produce json
// @Success 200 {object} GenerateQRCodeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /qr/generate [post]
func (h *QRCodeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateQRCodeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	code, err := h.service.Generate(r.Context(), req.SubjectID, req.Page)
	h.audit.LogQREvent(logger.AuditEvent{
		EventType:     logger.EventQRGenerated,
		SubjectID:     req.SubjectID,
		Page:          req.Page,
		IPAddress:     pkghttp.ExtractClientIP(r, h.ipConfig),
		Success:       err == nil,
		FailureReason: failureReason(err),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := generatedToResponse(code)
	if req.Email != "" {
		resp.EmailSent = h.service.DeliverLink(r.Context(), req.Email, code)
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// CanGenerate reports whether a QR code can still be issued for a page
//
// @Summary Check QR code availability
// @Param subjectId path string true "Subject ID"
// @Param page path string true "Page"
// @Produce json
// @Success 200 {object} CanGenerateResponse
// @Failure 500 {object} ErrorResponse
// @Router /qr/can-generate/{subjectId}/{page} [get]
func (h *QRCodeHandler) CanGenerate(w http.ResponseWriter, r *http.Request) {
	ok, err := h.service.CanGenerate(r.Context(), chi.URLParam(r, "subjectId"), chi.URLParam(r, "page"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, &CanGenerateResponse{CanGenerate: ok})
}

// GetActive returns the current active QR code of a page, if any
//
// @Summary Get active QR code
// @Param subjectId path string true "Subject ID"
// @Param page path string true "Page"
// @Produce json
// @Success 200 {object} ActiveQRCodeResponse
// @Failure 500 {object} ErrorResponse
// @Router /qr/active/{subjectId}/{page} [get]
func (h *QRCodeHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	code, err := h.service.GetActive(r.Context(), chi.URLParam(r, "subjectId"), chi.URLParam(r, "page"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := &ActiveQRCodeResponse{Exists: code != nil}
	if code != nil {
		resp.QRData = &ActiveQRData{
			Token:     code.Token,
			ExpiresAt: formatTimestamp(code.ExpiresAt),
		}
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Validate consumes a QR code. A token validates exactly once.
//
// @Summary Validate a QR code
// @Param token path string true "Token"
// @Param page query string true "Page"
// @Param subjectId query string true "Subject ID"
// @Produce json
// @Success 200 {object} ValidateQRCodeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /qr/validate/{token} [get]
func (h *QRCodeHandler) Validate(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	page := r.URL.Query().Get("page")
	subjectID := r.URL.Query().Get("subjectId")

	code, err := h.service.Validate(r.Context(), token, page, subjectID)
	h.audit.LogQREvent(logger.AuditEvent{
		EventType:     logger.EventQRValidated,
		SubjectID:     subjectID,
		Page:          page,
		Token:         token,
		IPAddress:     pkghttp.ExtractClientIP(r, h.ipConfig),
		Success:       err == nil,
		FailureReason: failureReason(err),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, &ValidateQRCodeResponse{
		Valid:     true,
		SubjectID: code.SubjectID,
		Page:      code.Page,
	})
}

// Status inspects a QR code without consuming it
//
// @Summary Get QR code status
// @Param token path string true "Token"
// @Param page query string true "Page"
// @Produce json
// @Success 200 {object} QRCodeStatusResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /qr/status/{token} [get]
func (h *QRCodeHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context(), chi.URLParam(r, "token"), r.URL.Query().Get("page"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, statusToResponse(status))
}

// Cleanup purges used, invalidated and expired QR codes
//
// @Summary Clean up QR codes
// @Produce json
// @Success 200 {object} CleanupResponse
// @Failure 500 {object} ErrorResponse
// @Router /qr/cleanup [post]
func (h *QRCodeHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.Cleanup(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.audit.LogQREvent(logger.AuditEvent{
		EventType: logger.EventQRCleanup,
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		Success:   true,
		Metadata:  map[string]string{"trigger": "api", "deleted": strconv.FormatInt(deleted, 10)},
	})

	pkghttp.WriteJSON(w, http.StatusOK, &CleanupResponse{DeletedCount: deleted})
}

// failureReason names the outcome of a failed QR operation for audit logs
func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, models.ErrBadRequest):
		return "invalid_input"
	case errors.Is(err, models.ErrQRCodeUsed):
		return "page_already_used"
	case errors.Is(err, models.ErrQRCodeInvalid):
		return "invalid_or_expired"
	default:
		return "internal_error"
	}
}
