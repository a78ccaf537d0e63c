package models

import (
	"encoding/json"
	"time"
)

// Dates inside form sections are calendar dates in YYYY-MM-DD form
const DateLayout = "2006-01-02"

type PersonalDetails struct {
	FirstName     string `json:"firstName" validate:"omitempty,max=100"`
	LastName      string `json:"lastName" validate:"omitempty,max=100"`
	DateOfBirth   string `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Nationality   string `json:"nationality" validate:"omitempty,max=100"`
	MaritalStatus string `json:"maritalStatus" validate:"omitempty,oneof=single married divorced widowed separated"`
	Gender        string `json:"gender" validate:"omitempty,oneof=male female other"`
}

type PassportDetails struct {
	PassportNumber string `json:"passportNumber" validate:"omitempty,alphanum,max=20"`
	DateOfIssue    string `json:"dateOfIssue,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DateOfExpiry   string `json:"dateOfExpiry,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PlaceOfIssue   string `json:"placeOfIssue" validate:"omitempty,max=100"`
	// Blob storage key of the uploaded passport scan; set only by the upload endpoint
	PassportCopy string `json:"passportCopy,omitempty"`
}

type ContactDetails struct {
	PresentAddress    string `json:"presentAddress" validate:"omitempty,max=500"`
	PermanentAddress  string `json:"permanentAddress" validate:"omitempty,max=500"`
	Phone             string `json:"phone" validate:"omitempty,e164"`
	Email             string `json:"email" validate:"omitempty,email"`
	CurrentOccupation string `json:"currentOccupation" validate:"omitempty,max=100"`
	EmployerName      string `json:"employerName" validate:"omitempty,max=200"`
}

type VisaDetails struct {
	VisaType           string `json:"visaType" validate:"omitempty,max=50"`
	PurposeOfJourney   string `json:"purposeOfJourney" validate:"omitempty,max=500"`
	NumberOfEntries    string `json:"numberOfEntries" validate:"omitempty,oneof=single double multiple"`
	ExpectedEntryDate  string `json:"expectedEntryDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	NumberOfTravelDocs int    `json:"numberOfTravelDocs" validate:"gte=0,lte=20"`
}

// VisaForm is a multi-section visa application
type VisaForm struct {
	ID              string          `json:"id"`
	PersonalDetails PersonalDetails `json:"personalDetails"`
	PassportDetails PassportDetails `json:"passportDetails"`
	ContactDetails  ContactDetails  `json:"contactDetails"`
	VisaDetails     VisaDetails     `json:"visaDetails"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// VisaFormDraft is a partially filled form kept only until ExpiresAt
type VisaFormDraft struct {
	ID        string          `json:"id"`
	FormData  json.RawMessage `json:"formData"`
	ExpiresAt time.Time       `json:"expiresAt"`
	CreatedAt time.Time       `json:"createdAt"`
}

// IsExpired checks if the draft has expired
func (d *VisaFormDraft) IsExpired() bool {
	return time.Now().After(d.ExpiresAt)
}
