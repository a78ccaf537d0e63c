package models

import (
	"time"
)

// QRStatus is the lifecycle state of a QR code token
type QRStatus string

// QR code status values, stored verbatim in qr_codes.status
const (
	QRStatusActive      QRStatus = "active"
	QRStatusUsed        QRStatus = "used"
	QRStatusExpired     QRStatus = "expired"
	QRStatusInvalidated QRStatus = "invalidated"
)

// IsKnown reports whether s is one of the defined statuses
func (s QRStatus) IsKnown() bool {
	switch s {
	case QRStatusActive, QRStatusUsed, QRStatusExpired, QRStatusInvalidated:
		return true
	}
	return false
}

// IsTerminal reports whether no transition can leave s.
// Used is terminal for the token itself; the page gate it creates is enforced on generation.
func (s QRStatus) IsTerminal() bool {
	return s == QRStatusUsed || s == QRStatusExpired || s == QRStatusInvalidated
}

// QRCode is a single-use token granting access to one page of one subject (visa application)
type QRCode struct {
	ID        string     `json:"id"`
	Token     string     `json:"token"`
	SubjectID string     `json:"subject_id"`
	Page      string     `json:"page"`
	Status    QRStatus   `json:"status"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// IsExpiredAt checks whether the token's lifetime has elapsed at the given instant.
// Expiry is evaluated lazily: the stored status may still read active.
func (q *QRCode) IsExpiredAt(now time.Time) bool {
	return !q.ExpiresAt.After(now)
}

// IsValidAt reports whether the token could still be consumed at the given instant
func (q *QRCode) IsValidAt(now time.Time) bool {
	return q.Status.IsKnown() && !q.Status.IsTerminal() && !q.IsExpiredAt(now)
}

// QRCodeStatus is the read-only view returned by status inspection
type QRCodeStatus struct {
	Status    QRStatus
	Valid     bool
	ExpiresAt time.Time
	SubjectID string
}
