package handlers

import (
	"encoding/json"

	"github.com/BradenHooton/visaqr/internal/models"
)

// VisaFormRequest represents the body for creating or replacing a visa form
type VisaFormRequest struct {
	PersonalDetails models.PersonalDetails `json:"personalDetails"`
	PassportDetails models.PassportDetails `json:"passportDetails"`
	ContactDetails  models.ContactDetails  `json:"contactDetails"`
	VisaDetails     models.VisaDetails     `json:"visaDetails"`
}

func (req *VisaFormRequest) toModel() *models.VisaForm {
	return &models.VisaForm{
		PersonalDetails: req.PersonalDetails,
		PassportDetails: req.PassportDetails,
		ContactDetails:  req.ContactDetails,
		VisaDetails:     req.VisaDetails,
	}
}

// VisaFormResponse represents a visa form in the HTTP response
type VisaFormResponse struct {
	ID              string                 `json:"id"`
	PersonalDetails models.PersonalDetails `json:"personalDetails"`
	PassportDetails models.PassportDetails `json:"passportDetails"`
	ContactDetails  models.ContactDetails  `json:"contactDetails"`
	VisaDetails     models.VisaDetails     `json:"visaDetails"`
	CreatedAt       string                 `json:"createdAt"`
	UpdatedAt       string                 `json:"updatedAt"`
}

// ListVisaFormsResponse represents a page of visa forms
type ListVisaFormsResponse struct {
	Forms []*VisaFormResponse `json:"forms"`
	Total int                 `json:"total"`
}

// PassportURLResponse carries a temporary download link for a passport scan
type PassportURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expiresIn"`
}

func visaFormModelToResponse(form *models.VisaForm) *VisaFormResponse {
	return &VisaFormResponse{
		ID:              form.ID,
		PersonalDetails: form.PersonalDetails,
		PassportDetails: form.PassportDetails,
		ContactDetails:  form.ContactDetails,
		VisaDetails:     form.VisaDetails,
		CreatedAt:       formatTimestamp(form.CreatedAt),
		UpdatedAt:       formatTimestamp(form.UpdatedAt),
	}
}

// CreateDraftRequest represents the body for saving a form draft
type CreateDraftRequest struct {
	FormData json.RawMessage `json:"formData"`
}

// DraftResponse represents a stored draft
type DraftResponse struct {
	ID        string          `json:"id"`
	FormData  json.RawMessage `json:"formData,omitempty"`
	ExpiresAt string          `json:"expiresAt"`
}
