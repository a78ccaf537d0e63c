package handlers

import (
	"time"

	"github.com/BradenHooton/visaqr/internal/models"
	"github.com/BradenHooton/visaqr/internal/services"
)

// GenerateQRCodeRequest represents the request body for generating a QR code
type GenerateQRCodeRequest struct {
	SubjectID string `json:"subjectId" validate:"required,max=128"`
	Page      string `json:"page" validate:"required,max=64"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// GenerateQRCodeResponse represents a freshly issued QR code
type GenerateQRCodeResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
	QRURL     string `json:"qrUrl"`
	QRImage   string `json:"qrImage,omitempty"`
	Page      string `json:"page"`
	SubjectID string `json:"subjectId"`
	EmailSent bool   `json:"emailSent,omitempty"`
}

// CanGenerateResponse reports whether a page can still be issued a QR code
type CanGenerateResponse struct {
	CanGenerate bool `json:"canGenerate"`
}

// ActiveQRData is the current active token of a page
type ActiveQRData struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// ActiveQRCodeResponse represents the active token lookup result
type ActiveQRCodeResponse struct {
	Exists bool          `json:"exists"`
	QRData *ActiveQRData `json:"qrData,omitempty"`
}

// ValidateQRCodeResponse represents a successful one-time validation
type ValidateQRCodeResponse struct {
	Valid     bool   `json:"valid"`
	SubjectID string `json:"subjectId"`
	Page      string `json:"page"`
}

// QRCodeStatusResponse represents a read-only token inspection
type QRCodeStatusResponse struct {
	Status    string `json:"status"`
	Valid     bool   `json:"valid"`
	ExpiresAt string `json:"expiresAt"`
	SubjectID string `json:"subjectId"`
}

// CleanupResponse reports how many QR codes a sweep removed
type CleanupResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func generatedToResponse(code *services.GeneratedQRCode) *GenerateQRCodeResponse {
	return &GenerateQRCodeResponse{
		Token:     code.Token,
		ExpiresAt: formatTimestamp(code.ExpiresAt),
		QRURL:     code.QRURL,
		QRImage:   code.QRImage,
		Page:      code.Page,
		SubjectID: code.SubjectID,
	}
}

func statusToResponse(status *models.QRCodeStatus) *QRCodeStatusResponse {
	return &QRCodeStatusResponse{
		Status:    string(status.Status),
		Valid:     status.Valid,
		ExpiresAt: formatTimestamp(status.ExpiresAt),
		SubjectID: status.SubjectID,
	}
}
