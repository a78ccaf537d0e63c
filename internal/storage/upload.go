package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/BradenHooton/visaqr/internal/models"
	"github.com/google/uuid"
)

// FileConstraints defines validation rules for file uploads
type FileConstraints struct {
	// Detected MIME type -> canonical extension
	AllowedMimeTypes  map[string]string
	AllowedExtensions map[string]bool
	MaxSize           int64
}

// PassportConstraints accepts JPEG, PNG and PDF scans up to 5 MB
var PassportConstraints = FileConstraints{
	AllowedMimeTypes: map[string]string{
		"image/jpeg":      ".jpg",
		"image/png":       ".png",
		"application/pdf": ".pdf",
	},
	AllowedExtensions: map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".pdf":  true,
	},
	MaxSize: 5 << 20,
}

// UploadedFile describes a validated upload
type UploadedFile struct {
	ContentType string
	Extension   string
	Size        int64
}

// WithMaxSize returns a copy of c with a different size limit
func (c FileConstraints) WithMaxSize(maxSize int64) FileConstraints {
	if maxSize > 0 {
		c.MaxSize = maxSize
	}
	return c
}

// ValidateFile checks size, sniffed content type and extension of an upload.
// Failures wrap models.ErrInvalidFile.
func ValidateFile(header *multipart.FileHeader, constraints FileConstraints) (*UploadedFile, error) {
	if header.Size > constraints.MaxSize {
		maxMB := constraints.MaxSize / (1 << 20)
		return nil, fmt.Errorf("%w: file too large, maximum size is %d MB", models.ErrInvalidFile, maxMB)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// http.DetectContentType looks at no more than 512 bytes
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	detectedType := http.DetectContentType(buffer[:n])
	canonicalExt, ok := constraints.AllowedMimeTypes[detectedType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported file type %s", models.ErrInvalidFile, detectedType)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !constraints.AllowedExtensions[ext] {
		return nil, fmt.Errorf("%w: unsupported file extension %q", models.ErrInvalidFile, ext)
	}

	return &UploadedFile{
		ContentType: detectedType,
		Extension:   canonicalExt,
		Size:        header.Size,
	}, nil
}

// PassportKey builds the object key for a form's passport scan
func PassportKey(formID, ext string) string {
	return "passports/" + formID + "/" + uuid.NewString() + ext
}
