package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/BradenHooton/visaqr/internal/models"
	pkghttp "github.com/BradenHooton/visaqr/pkg/http"
)

// writeServiceError maps service sentinel errors to HTTP responses.
// Only input errors echo their text; everything else gets a generic message.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrBadRequest), errors.Is(err, models.ErrInvalidFile):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrQRCodeUsed):
		pkghttp.WriteForbidden(w, "QR code for this page has already been used")
	case errors.Is(err, models.ErrQRCodeInvalid):
		pkghttp.WriteGone(w, "QR code not valid or already used")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrUnavailable):
		pkghttp.WriteServiceUnavailable(w, "Service temporarily unavailable")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// parseIntParam parses value into dest when it lies within [min, max]
func parseIntParam(value string, dest *int, min, max int) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}

	if n < min || n > max {
		return errors.New("parameter out of range")
	}

	*dest = n
	return nil
}
