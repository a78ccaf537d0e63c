package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/visaqr/internal/handlers"
	"github.com/BradenHooton/visaqr/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCreateDraft(t *testing.T) {
	expiresAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mockService := &handlers.MockDraftService{
		CreateFunc: func(ctx context.Context, formData json.RawMessage) (*models.VisaFormDraft, error) {
			assert.JSONEq(t, `{"personalDetails":{"firstName":"Ada"}}`, string(formData))
			return &models.VisaFormDraft{ID: "draft-1", FormData: formData, ExpiresAt: expiresAt}, nil
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/visa/drafts", map[string]interface{}{
		"formData": map[string]interface{}{"personalDetails": map[string]string{"firstName": "Ada"}},
	})
	w := httptest.NewRecorder()
	handlers.NewDraftHandler(mockService).CreateDraft(w, req)

	var resp handlers.DraftResponse
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, "draft-1", resp.ID)
	assert.Equal(t, "2026-03-01T12:00:00Z", resp.ExpiresAt)
	assert.Empty(t, resp.FormData)
}

func TestCreateDraft_NotAnObject(t *testing.T) {
	mockService := &handlers.MockDraftService{
		CreateFunc: func(ctx context.Context, formData json.RawMessage) (*models.VisaFormDraft, error) {
			return nil, models.ErrBadRequest
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/visa/drafts", map[string]interface{}{"formData": []int{1, 2}})
	w := httptest.NewRecorder()
	handlers.NewDraftHandler(mockService).CreateDraft(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestGetDraft(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mockService := &handlers.MockDraftService{
			GetFunc: func(ctx context.Context, id string) (*models.VisaFormDraft, error) {
				return &models.VisaFormDraft{ID: id, FormData: json.RawMessage(`{"a":1}`), ExpiresAt: time.Now().Add(time.Hour)}, nil
			},
		}

		req := handlers.NewTestRequest(t, "GET", "/visa/drafts/draft-1", nil)
		req = handlers.WithChiRouteContext(req, map[string]string{"id": "draft-1"})
		w := httptest.NewRecorder()
		handlers.NewDraftHandler(mockService).GetDraft(w, req)

		var resp handlers.DraftResponse
		handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, "draft-1", resp.ID)
		assert.JSONEq(t, `{"a":1}`, string(resp.FormData))
	})

	t.Run("expired or missing", func(t *testing.T) {
		req := handlers.NewTestRequest(t, "GET", "/visa/drafts/gone", nil)
		req = handlers.WithChiRouteContext(req, map[string]string{"id": "gone"})
		w := httptest.NewRecorder()
		handlers.NewDraftHandler(&handlers.MockDraftService{}).GetDraft(w, req)

		handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
	})
}
