//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/visaqr/internal/handlers"
	"github.com/BradenHooton/visaqr/internal/models"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testDB, err = SetupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up test database: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = testDB.Teardown(ctx)
	os.Exit(code)
}

func generate(t *testing.T, ts *TestServer, subjectID, page, email string) *http.Response {
	t.Helper()
	body := map[string]string{"subjectId": subjectID, "page": page}
	if email != "" {
		body["email"] = email
	}
	resp, err := ts.Request("POST", "/qr/generate", body)
	require.NoError(t, err)
	return resp
}

func validate(t *testing.T, ts *TestServer, token, page, subjectID string) *http.Response {
	t.Helper()
	resp, err := ts.Request("GET", fmt.Sprintf("/qr/validate/%s?page=%s&subjectId=%s", token, page, subjectID), nil)
	require.NoError(t, err)
	return resp
}

func TestQRLifecycle_EndToEnd(t *testing.T) {
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	subject := TestSubject("lifecycle")

	// Fresh pair can generate
	resp, err := ts.Request("GET", "/qr/can-generate/"+subject+"/visa", nil)
	require.NoError(t, err)
	var can handlers.CanGenerateResponse
	require.NoError(t, ParseJSONResponse(resp, &can))
	assert.True(t, can.CanGenerate)

	// Generate with email delivery
	resp = generate(t, ts, subject, "visa", "applicant@example.com")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var gen handlers.GenerateQRCodeResponse
	require.NoError(t, ParseJSONResponse(resp, &gen))
	assert.Len(t, gen.Token, 64)
	assert.Equal(t, "https://visa.test.local/visa/"+subject+"?token="+gen.Token, gen.QRURL)
	assert.Contains(t, gen.QRImage, "data:image/png;base64,")
	assert.True(t, gen.EmailSent)

	last := ts.Mailer.GetLastLink()
	require.NotNil(t, last)
	assert.Equal(t, gen.Token, ExtractTokenFromURL(last.QRURL))

	// Active lookup returns it
	resp, err = ts.Request("GET", "/qr/active/"+subject+"/visa", nil)
	require.NoError(t, err)
	var active handlers.ActiveQRCodeResponse
	require.NoError(t, ParseJSONResponse(resp, &active))
	require.True(t, active.Exists)
	assert.Equal(t, gen.Token, active.QRData.Token)

	// Validate once
	resp = validate(t, ts, gen.Token, "visa", subject)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var valid handlers.ValidateQRCodeResponse
	require.NoError(t, ParseJSONResponse(resp, &valid))
	assert.True(t, valid.Valid)

	// Second validation is gone
	resp = validate(t, ts, gen.Token, "visa", subject)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	resp.Body.Close()

	// Status shows used
	resp, err = ts.Request("GET", "/qr/status/"+gen.Token+"?page=visa", nil)
	require.NoError(t, err)
	var status handlers.QRCodeStatusResponse
	require.NoError(t, ParseJSONResponse(resp, &status))
	assert.Equal(t, "used", status.Status)
	assert.False(t, status.Valid)

	// Page is permanently closed
	resp = generate(t, ts, subject, "visa", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp, err = ts.Request("GET", "/qr/can-generate/"+subject+"/visa", nil)
	require.NoError(t, err)
	require.NoError(t, ParseJSONResponse(resp, &can))
	assert.False(t, can.CanGenerate)

	// Other pages of the same subject are unaffected
	resp = generate(t, ts, subject, "passport", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestQRLifecycle_RegenerateSupersedes(t *testing.T) {
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	subject := TestSubject("supersede")

	var first, second handlers.GenerateQRCodeResponse
	require.NoError(t, ParseJSONResponse(generate(t, ts, subject, "visa", ""), &first))
	require.NoError(t, ParseJSONResponse(generate(t, ts, subject, "visa", ""), &second))
	require.NotEqual(t, first.Token, second.Token)

	resp := validate(t, ts, first.Token, "visa", subject)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	resp.Body.Close()

	resp = validate(t, ts, second.Token, "visa", subject)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestQRLifecycle_ExpiredTokenRejected(t *testing.T) {
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	ctx := context.Background()
	subject := TestSubject("expired")
	token := "e" + fmt.Sprintf("%063d", time.Now().UnixNano())

	require.NoError(t, SeedQRCode(ctx, testDB.Pool, token, subject, "visa", models.QRStatusActive, time.Now().Add(-time.Minute)))

	resp := validate(t, ts, token, "visa", subject)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	resp.Body.Close()

	resp, err := ts.Request("GET", "/qr/active/"+subject+"/visa", nil)
	require.NoError(t, err)
	var active handlers.ActiveQRCodeResponse
	require.NoError(t, ParseJSONResponse(resp, &active))
	assert.False(t, active.Exists)

	// Cleanup removes it
	resp, err = ts.Request("POST", "/qr/cleanup", nil)
	require.NoError(t, err)
	var cleaned handlers.CleanupResponse
	require.NoError(t, ParseJSONResponse(resp, &cleaned))
	assert.GreaterOrEqual(t, cleaned.DeletedCount, int64(1))

	resp, err = ts.Request("GET", "/qr/status/"+token+"?page=visa", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestQRLifecycle_ConcurrentValidateOverHTTP(t *testing.T) {
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	subject := TestSubject("race")
	var gen handlers.GenerateQRCodeResponse
	require.NoError(t, ParseJSONResponse(generate(t, ts, subject, "visa", ""), &gen))

	const workers = 20
	codes := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := ts.Request("GET", fmt.Sprintf("/qr/validate/%s?page=visa&subjectId=%s", gen.Token, subject), nil)
			if err != nil {
				return
			}
			codes[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	ok, gone := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusGone:
			gone++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, gone)
}

func TestVisaForms_CRUDAndDrafts(t *testing.T) {
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	resp, err := ts.Request("POST", "/visa", map[string]interface{}{
		"personalDetails": map[string]string{"firstName": "Ada", "lastName": "Lovelace"},
		"passportDetails": map[string]string{"passportNumber": "X1234567"},
		"contactDetails":  map[string]string{"email": "ada@example.com"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var form handlers.VisaFormResponse
	require.NoError(t, ParseJSONResponse(resp, &form))
	require.NotEmpty(t, form.ID)

	resp, err = ts.Request("PUT", "/visa/"+form.ID+"/passport", map[string]string{"passportNumber": "P7654321"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, ParseJSONResponse(resp, &form))
	assert.Equal(t, "P7654321", form.PassportDetails.PassportNumber)

	// No scan uploaded yet
	resp, err = ts.Request("GET", "/visa/"+form.ID+"/passport", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = ts.Request("POST", "/visa/drafts", map[string]interface{}{"formData": map[string]string{"step": "2"}})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var draft handlers.DraftResponse
	require.NoError(t, ParseJSONResponse(resp, &draft))

	resp, err = ts.Request("GET", "/visa/drafts/"+draft.ID, nil)
	require.NoError(t, err)
	require.NoError(t, ParseJSONResponse(resp, &draft))
	assert.JSONEq(t, `{"step":"2"}`, string(draft.FormData))

	resp, err = ts.Request("DELETE", "/visa/"+form.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err = ts.Request("GET", "/visa/"+form.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
