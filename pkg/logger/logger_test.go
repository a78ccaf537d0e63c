package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestTokenFingerprint(t *testing.T) {
	assert.Equal(t, "0123abcd...", TokenFingerprint("0123abcdef0123456789"))
	assert.Equal(t, "[REDACTED]", TokenFingerprint("short"))
	assert.Equal(t, "[REDACTED]", TokenFingerprint(""))
}

func TestSanitizedEmail(t *testing.T) {
	assert.Equal(t, "a****@*******.com", SanitizedEmail("alice@example.com"))
	assert.Equal(t, "b@**.org", SanitizedEmail("b@io.org"))
	assert.Equal(t, "[invalid-email]", SanitizedEmail("not-an-email"))
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("page=p2&subjectId=V1"))
	assert.True(t, SanitizeQueryString("token=abc"))
	assert.False(t, SanitizeQueryString("limit=10&offset=20"))
}

func TestAuditLogger_LogQREvent_FingerprintsToken(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.LogQREvent(AuditEvent{
		EventType:     EventQRValidated,
		SubjectID:     "V1",
		Page:          "p2",
		Token:         "deadbeefcafebabe0011",
		IPAddress:     "203.0.113.10",
		Success:       false,
		FailureReason: "invalid",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "qr_code", entry["audit_type"])
	assert.Equal(t, EventQRValidated, entry["event_type"])
	assert.Equal(t, "deadbeef...", entry["token"])
	assert.Equal(t, "V1", entry["subject_id"])
	assert.NotContains(t, buf.String(), "deadbeefcafebabe0011")
}

func TestAuditLogger_LogFormAction(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.LogFormAction("visa_form_deleted", "form-1", "", map[string]string{"reason": "test"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "form-1", entry["form_id"])
	assert.Equal(t, "test", entry["reason"])
	_, hasIP := entry["ip_address"]
	assert.False(t, hasIP)
}
