package integration

import (
	"fmt"
	"net/url"
	"time"
)

// TestSubject generates a unique subject (application) ID so tests never share pairs
func TestSubject(suffix string) string {
	return fmt.Sprintf("app-%d-%s", time.Now().UnixNano(), suffix)
}

// ExtractTokenFromURL returns the token query parameter of a QR link
func ExtractTokenFromURL(qrURL string) string {
	u, err := url.Parse(qrURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("token")
}
