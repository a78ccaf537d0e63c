package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/visaqr/internal/models"
	"github.com/BradenHooton/visaqr/internal/services"
	pkghttp "github.com/BradenHooton/visaqr/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithChiRouteContext attaches URL params the way the chi router would
func WithChiRouteContext(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockQRCodeService implements QRCodeService for testing
type MockQRCodeService struct {
	GenerateFunc    func(ctx context.Context, subjectID, page string) (*services.GeneratedQRCode, error)
	DeliverLinkFunc func(ctx context.Context, email string, code *services.GeneratedQRCode) bool
	CanGenerateFunc func(ctx context.Context, subjectID, page string) (bool, error)
	GetActiveFunc   func(ctx context.Context, subjectID, page string) (*models.QRCode, error)
	ValidateFunc    func(ctx context.Context, token, page, subjectID string) (*models.QRCode, error)
	StatusFunc      func(ctx context.Context, token, page string) (*models.QRCodeStatus, error)
	CleanupFunc     func(ctx context.Context) (int64, error)
}

func (m *MockQRCodeService) Generate(ctx context.Context, subjectID, page string) (*services.GeneratedQRCode, error) {
	if m.GenerateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.GenerateFunc(ctx, subjectID, page)
}

func (m *MockQRCodeService) DeliverLink(ctx context.Context, email string, code *services.GeneratedQRCode) bool {
	if m.DeliverLinkFunc == nil {
		return false
	}
	return m.DeliverLinkFunc(ctx, email, code)
}

func (m *MockQRCodeService) CanGenerate(ctx context.Context, subjectID, page string) (bool, error) {
	if m.CanGenerateFunc == nil {
		return true, nil
	}
	return m.CanGenerateFunc(ctx, subjectID, page)
}

func (m *MockQRCodeService) GetActive(ctx context.Context, subjectID, page string) (*models.QRCode, error) {
	if m.GetActiveFunc == nil {
		return nil, nil
	}
	return m.GetActiveFunc(ctx, subjectID, page)
}

func (m *MockQRCodeService) Validate(ctx context.Context, token, page, subjectID string) (*models.QRCode, error) {
	if m.ValidateFunc == nil {
		return nil, models.ErrQRCodeInvalid
	}
	return m.ValidateFunc(ctx, token, page, subjectID)
}

func (m *MockQRCodeService) Status(ctx context.Context, token, page string) (*models.QRCodeStatus, error) {
	if m.StatusFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.StatusFunc(ctx, token, page)
}

func (m *MockQRCodeService) Cleanup(ctx context.Context) (int64, error) {
	if m.CleanupFunc == nil {
		return 0, nil
	}
	return m.CleanupFunc(ctx)
}

// MockVisaFormService implements VisaFormService for testing
type MockVisaFormService struct {
	CreateFunc         func(ctx context.Context, form *models.VisaForm) (*models.VisaForm, error)
	GetFunc            func(ctx context.Context, id string) (*models.VisaForm, error)
	ListFunc           func(ctx context.Context, limit, offset int) ([]*models.VisaForm, error)
	UpdateFunc         func(ctx context.Context, id string, form *models.VisaForm) (*models.VisaForm, error)
	UpdatePassportFunc func(ctx context.Context, id string, details models.PassportDetails, upload *services.PassportUpload) (*models.VisaForm, error)
	PassportURLFunc    func(ctx context.Context, id string) (string, time.Duration, error)
	DeleteFunc         func(ctx context.Context, id string) error
}

func (m *MockVisaFormService) Create(ctx context.Context, form *models.VisaForm) (*models.VisaForm, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateFunc(ctx, form)
}

func (m *MockVisaFormService) Get(ctx context.Context, id string) (*models.VisaForm, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockVisaFormService) List(ctx context.Context, limit, offset int) ([]*models.VisaForm, error) {
	if m.ListFunc == nil {
		return []*models.VisaForm{}, nil
	}
	return m.ListFunc(ctx, limit, offset)
}

func (m *MockVisaFormService) Update(ctx context.Context, id string, form *models.VisaForm) (*models.VisaForm, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateFunc(ctx, id, form)
}

func (m *MockVisaFormService) UpdatePassport(ctx context.Context, id string, details models.PassportDetails, upload *services.PassportUpload) (*models.VisaForm, error) {
	if m.UpdatePassportFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdatePassportFunc(ctx, id, details, upload)
}

func (m *MockVisaFormService) PassportURL(ctx context.Context, id string) (string, time.Duration, error) {
	if m.PassportURLFunc == nil {
		return "", 0, models.ErrNotFound
	}
	return m.PassportURLFunc(ctx, id)
}

func (m *MockVisaFormService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, id)
}

// MockDraftService implements DraftService for testing
type MockDraftService struct {
	CreateFunc func(ctx context.Context, formData json.RawMessage) (*models.VisaFormDraft, error)
	GetFunc    func(ctx context.Context, id string) (*models.VisaFormDraft, error)
}

func (m *MockDraftService) Create(ctx context.Context, formData json.RawMessage) (*models.VisaFormDraft, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateFunc(ctx, formData)
}

func (m *MockDraftService) Get(ctx context.Context, id string) (*models.VisaFormDraft, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Err
}
