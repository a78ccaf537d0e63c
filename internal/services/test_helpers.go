package services

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/BradenHooton/visaqr/internal/models"
)

// MockQRCodeRepository implements QRCodeRepository for testing
type MockQRCodeRepository struct {
	IssueFunc             func(ctx context.Context, code *models.QRCode) (*models.QRCode, int64, error)
	ConsumeFunc           func(ctx context.Context, token, page, subjectID string, now time.Time) (*models.QRCode, error)
	HasUsedFunc           func(ctx context.Context, subjectID, page string) (bool, error)
	GetActiveFunc         func(ctx context.Context, subjectID, page string, now time.Time) (*models.QRCode, error)
	GetByTokenAndPageFunc func(ctx context.Context, token, page string) (*models.QRCode, error)
	DeleteStaleFunc       func(ctx context.Context, now time.Time) (int64, error)
}

func (m *MockQRCodeRepository) Issue(ctx context.Context, code *models.QRCode) (*models.QRCode, int64, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, code)
	}
	issued := *code
	issued.ID = "qr_" + code.Token
	return &issued, 0, nil
}

func (m *MockQRCodeRepository) Consume(ctx context.Context, token, page, subjectID string, now time.Time) (*models.QRCode, error) {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, token, page, subjectID, now)
	}
	return nil, models.ErrQRCodeInvalid
}

func (m *MockQRCodeRepository) HasUsed(ctx context.Context, subjectID, page string) (bool, error) {
	if m.HasUsedFunc != nil {
		return m.HasUsedFunc(ctx, subjectID, page)
	}
	return false, nil
}

func (m *MockQRCodeRepository) GetActive(ctx context.Context, subjectID, page string, now time.Time) (*models.QRCode, error) {
	if m.GetActiveFunc != nil {
		return m.GetActiveFunc(ctx, subjectID, page, now)
	}
	return nil, models.ErrNotFound
}

func (m *MockQRCodeRepository) GetByTokenAndPage(ctx context.Context, token, page string) (*models.QRCode, error) {
	if m.GetByTokenAndPageFunc != nil {
		return m.GetByTokenAndPageFunc(ctx, token, page)
	}
	return nil, models.ErrNotFound
}

func (m *MockQRCodeRepository) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	if m.DeleteStaleFunc != nil {
		return m.DeleteStaleFunc(ctx, now)
	}
	return 0, nil
}

// MockVisaFormRepository implements VisaFormRepository for testing
type MockVisaFormRepository struct {
	CreateFunc                func(ctx context.Context, form *models.VisaForm) (*models.VisaForm, error)
	GetByIDFunc               func(ctx context.Context, id string) (*models.VisaForm, error)
	ListFunc                  func(ctx context.Context, limit, offset int) ([]*models.VisaForm, error)
	UpdateFunc                func(ctx context.Context, id string, form *models.VisaForm) (*models.VisaForm, error)
	UpdatePassportDetailsFunc func(ctx context.Context, id string, details models.PassportDetails) (*models.VisaForm, error)
	DeleteFunc                func(ctx context.Context, id string) error
}

func (m *MockVisaFormRepository) Create(ctx context.Context, form *models.VisaForm) (*models.VisaForm, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, form)
	}
	return nil, models.ErrInternalServer
}

func (m *MockVisaFormRepository) GetByID(ctx context.Context, id string) (*models.VisaForm, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockVisaFormRepository) List(ctx context.Context, limit, offset int) ([]*models.VisaForm, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.VisaForm{}, nil
}

func (m *MockVisaFormRepository) Update(ctx context.Context, id string, form *models.VisaForm) (*models.VisaForm, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, form)
	}
	return nil, models.ErrInternalServer
}

func (m *MockVisaFormRepository) UpdatePassportDetails(ctx context.Context, id string, details models.PassportDetails) (*models.VisaForm, error) {
	if m.UpdatePassportDetailsFunc != nil {
		return m.UpdatePassportDetailsFunc(ctx, id, details)
	}
	return nil, models.ErrInternalServer
}

func (m *MockVisaFormRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockDraftRepository implements DraftRepository for testing
type MockDraftRepository struct {
	CreateFunc         func(ctx context.Context, formData json.RawMessage, expiresAt time.Time) (*models.VisaFormDraft, error)
	GetByIDFunc        func(ctx context.Context, id string) (*models.VisaFormDraft, error)
	CleanupExpiredFunc func(ctx context.Context) (int64, error)
}

func (m *MockDraftRepository) Create(ctx context.Context, formData json.RawMessage, expiresAt time.Time) (*models.VisaFormDraft, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, formData, expiresAt)
	}
	return &models.VisaFormDraft{ID: "draft_1", FormData: formData, ExpiresAt: expiresAt, CreatedAt: time.Now()}, nil
}

func (m *MockDraftRepository) GetByID(ctx context.Context, id string) (*models.VisaFormDraft, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockDraftRepository) CleanupExpired(ctx context.Context) (int64, error) {
	if m.CleanupExpiredFunc != nil {
		return m.CleanupExpiredFunc(ctx)
	}
	return 0, nil
}

// MockStorage implements storage.Storage for testing
type MockStorage struct {
	SaveFunc         func(ctx context.Context, key string, r io.Reader, contentType string) error
	DeleteFunc       func(ctx context.Context, key string) error
	PresignedURLFunc func(ctx context.Context, key string, expiry time.Duration) (string, error)

	Saved   []string
	Deleted []string
}

func (m *MockStorage) Save(ctx context.Context, key string, r io.Reader, contentType string) error {
	m.Saved = append(m.Saved, key)
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, key, r, contentType)
	}
	return nil
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	m.Deleted = append(m.Deleted, key)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	return nil
}

func (m *MockStorage) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if m.PresignedURLFunc != nil {
		return m.PresignedURLFunc(ctx, key, expiry)
	}
	return "https://storage.example.com/" + key + "?signed=1", nil
}

// MockQRMailer implements QRMailer for testing
type MockQRMailer struct {
	SendQRLinkFunc func(ctx context.Context, email, qrURL, page string, expiresAt time.Time) error
	Sent           []string
}

func (m *MockQRMailer) SendQRLink(ctx context.Context, email, qrURL, page string, expiresAt time.Time) error {
	m.Sent = append(m.Sent, email)
	if m.SendQRLinkFunc != nil {
		return m.SendQRLinkFunc(ctx, email, qrURL, page, expiresAt)
	}
	return nil
}

// Test data helpers

// NewTestQRCode creates an active token for (subjectID, page) expiring after ttl
func NewTestQRCode(token, subjectID, page string, ttl time.Duration) *models.QRCode {
	now := time.Now().UTC()
	return &models.QRCode{
		ID:        "qr_" + token,
		Token:     token,
		SubjectID: subjectID,
		Page:      page,
		Status:    models.QRStatusActive,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// NewTestVisaForm creates a visa form with minimal section data
func NewTestVisaForm(id string) *models.VisaForm {
	now := time.Now().UTC()
	return &models.VisaForm{
		ID: id,
		PersonalDetails: models.PersonalDetails{
			FirstName:   "Ada",
			LastName:    "Lovelace",
			Nationality: "British",
			Gender:      "female",
		},
		PassportDetails: models.PassportDetails{
			PassportNumber: "X1234567",
			PlaceOfIssue:   "London",
		},
		ContactDetails: models.ContactDetails{
			Email: "ada@example.com",
			Phone: "+447700900123",
		},
		VisaDetails: models.VisaDetails{
			VisaType:        "tourist",
			NumberOfEntries: "single",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
