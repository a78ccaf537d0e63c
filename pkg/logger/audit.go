package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types for the QR code lifecycle
const (
	EventQRGenerated = "qr_generated"
	EventQRValidated = "qr_validated"
	EventQRCleanup   = "qr_cleanup"
)

// AuditEvent represents a QR code lifecycle audit event
type AuditEvent struct {
	EventType     string
	SubjectID     string
	Page          string
	Token         string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogQREvent logs token generation and validation attempts.
// Tokens are reduced to a fingerprint before they reach the log.
func (al *AuditLogger) LogQREvent(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "qr_code"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.SubjectID != "" {
		attrs = append(attrs, slog.String("subject_id", event.SubjectID))
	}
	if event.Page != "" {
		attrs = append(attrs, slog.String("page", event.Page))
	}
	if event.Token != "" {
		attrs = append(attrs, slog.String("token", TokenFingerprint(event.Token)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	if event.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}

// LogFormAction logs visa form changes
func (al *AuditLogger) LogFormAction(eventType, formID, ipAddress string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "visa_form"),
		slog.String("event_type", eventType),
		slog.String("form_id", formID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if ipAddress != "" {
		attrs = append(attrs, slog.String("ip_address", ipAddress))
	}

	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}
