package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	route  string
	status int
}

// fakeRecorder captures HTTP metrics calls
type fakeRecorder struct {
	requests []recordedRequest
}

func (f *fakeRecorder) RecordQRCodeGenerated(result string, invalidated int64, d time.Duration) {
}

func (f *fakeRecorder) RecordQRCodeValidation(result string, d time.Duration) {
}

func (f *fakeRecorder) RecordQRCodesCleaned(deleted int64) {
}

func (f *fakeRecorder) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	f.requests = append(f.requests, recordedRequest{method: method, route: route, status: status})
}

func TestSecureLogger_UsesRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	recorder := &fakeRecorder{}

	r := chi.NewRouter()
	r.Use(SecureLogger(logger, recorder))
	r.Get("/qr/validate/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})

	token := "f00dfacef00dfacef00dfacef00dfacef00dfacef00dfacef00dfacef00dface"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/qr/validate/"+token+"?page=visa&subjectId=app-42", nil))

	assert.NotContains(t, buf.String(), token)
	assert.NotContains(t, buf.String(), "app-42")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "/qr/validate/{token}?[REDACTED]", entry["path"])
	assert.Equal(t, float64(http.StatusGone), entry["status"])

	require.Len(t, recorder.requests, 1)
	assert.Equal(t, recordedRequest{method: "GET", route: "/qr/validate/{token}", status: http.StatusGone}, recorder.requests[0])
}

func TestSecureLogger_UnmatchedRoute(t *testing.T) {
	var buf bytes.Buffer
	recorder := &fakeRecorder{}

	r := chi.NewRouter()
	r.Use(SecureLogger(slog.New(slog.NewJSONHandler(&buf, nil)), recorder))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/nope/secret-id", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotContains(t, buf.String(), "secret-id")
	require.Len(t, recorder.requests, 1)
	assert.Equal(t, unmatchedRoute, recorder.requests[0].route)
}

func TestSecureLogger_ServerErrorsLoggedAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer

	r := chi.NewRouter()
	r.Use(SecureLogger(slog.New(slog.NewJSONHandler(&buf, nil)), nil))
	r.Post("/qr/cleanup", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/qr/cleanup", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "/qr/cleanup", entry["path"])
}
