package qrimage

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const dataURLPrefix = "data:image/png;base64,"

// PNGDataURL renders content as a QR code and returns it as a PNG data URL
// suitable for an <img src>. size is the image width in pixels.
func PNGDataURL(content string, size int) (string, error) {
	if content == "" {
		return "", fmt.Errorf("qr content must not be empty")
	}

	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(size)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}

	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}
