package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
	ErrUnavailable    = errors.New("service unavailable")

	// ErrTransient marks store failures that are safe for the caller to retry
	// (transaction aborts, serialization failures, lock and statement timeouts).
	ErrTransient = errors.New("transient store error")

	// QR code lifecycle errors
	ErrQRCodeUsed    = errors.New("qr code for this page has already been used")
	ErrQRCodeInvalid = errors.New("qr code not valid or already used")

	// Upload errors
	ErrInvalidFile = errors.New("invalid file")
)
