package storage

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BradenHooton/visaqr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	pdfHeader = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
)

// newFileHeader builds a multipart.FileHeader the same way an HTTP handler receives it
func newFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("passportCopy", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("PUT", "/visa/1/passport", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(10<<20))

	_, header, err := req.FormFile("passportCopy")
	require.NoError(t, err)
	return header
}

func TestValidateFile_AcceptsPNG(t *testing.T) {
	header := newFileHeader(t, "scan.PNG", pngHeader)

	file, err := ValidateFile(header, PassportConstraints)

	require.NoError(t, err)
	assert.Equal(t, "image/png", file.ContentType)
	assert.Equal(t, ".png", file.Extension)
}

func TestValidateFile_AcceptsPDF(t *testing.T) {
	header := newFileHeader(t, "passport.pdf", pdfHeader)

	file, err := ValidateFile(header, PassportConstraints)

	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, ".pdf", file.Extension)
}

func TestValidateFile_RejectsSpoofedExtension(t *testing.T) {
	header := newFileHeader(t, "passport.jpg", []byte("plain text pretending to be an image"))

	_, err := ValidateFile(header, PassportConstraints)

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidFile))
}

func TestValidateFile_RejectsWrongExtension(t *testing.T) {
	header := newFileHeader(t, "passport.exe", pngHeader)

	_, err := ValidateFile(header, PassportConstraints)

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidFile))
}

func TestValidateFile_RejectsOversized(t *testing.T) {
	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 2048)...)
	header := newFileHeader(t, "scan.png", content)

	_, err := ValidateFile(header, PassportConstraints.WithMaxSize(1024))

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidFile))
	assert.Contains(t, err.Error(), "too large")
}

func TestPassportKey(t *testing.T) {
	key := PassportKey("form-1", ".pdf")

	assert.True(t, strings.HasPrefix(key, "passports/form-1/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))
	assert.NotEqual(t, key, PassportKey("form-1", ".pdf"))
}
