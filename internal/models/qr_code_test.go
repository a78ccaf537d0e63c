package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQRStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   QRStatus
		terminal bool
	}{
		{QRStatusActive, false},
		{QRStatusUsed, true},
		{QRStatusExpired, true},
		{QRStatusInvalidated, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.True(t, tt.status.IsKnown())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}

	assert.False(t, QRStatus("pending").IsKnown())
}

func TestQRCode_IsValidAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	active := &QRCode{Status: QRStatusActive, ExpiresAt: now.Add(time.Minute)}
	assert.True(t, active.IsValidAt(now))
	assert.False(t, active.IsExpiredAt(now))

	// Expiry boundary is exclusive: a token is dead at exactly ExpiresAt
	assert.False(t, active.IsValidAt(now.Add(time.Minute)))
	assert.True(t, active.IsExpiredAt(now.Add(time.Minute)))

	used := &QRCode{Status: QRStatusUsed, ExpiresAt: now.Add(time.Minute)}
	assert.False(t, used.IsValidAt(now))

	invalidated := &QRCode{Status: QRStatusInvalidated, ExpiresAt: now.Add(time.Minute)}
	assert.False(t, invalidated.IsValidAt(now))

	unknown := &QRCode{Status: QRStatus("pending"), ExpiresAt: now.Add(time.Minute)}
	assert.False(t, unknown.IsValidAt(now))
}
