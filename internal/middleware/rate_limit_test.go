package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/visaqr/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitByIP_BlocksAfterLimit(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 3}, nil)(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/qr/generate", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
	}

	req := httptest.NewRequest("POST", "/qr/generate", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limit_exceeded", resp.Error)
}

func TestRateLimitByIP_SeparateClients(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1}, nil)(okHandler())

	for _, addr := range []string{"203.0.113.7:4000", "198.51.100.9:4000"} {
		req := httptest.NewRequest("GET", "/qr/validate/x", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, addr)
	}
}

func TestRateLimitByIP_ZeroFallsBackToDefault(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{}, nil)(okHandler())

	req := httptest.NewRequest("GET", "/qr/validate/x", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitByIP_ForwardedForFromUntrustedPeerSharesBucket(t *testing.T) {
	ipConfig := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 3}, ipConfig)(okHandler())

	passed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest("GET", "/qr/validate/x", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code == http.StatusOK {
			passed++
		}
	}

	assert.Equal(t, 3, passed, "rotating headers must not open new buckets")
}

func TestRateLimitByIP_TrustedProxyKeysOnForwardedClient(t *testing.T) {
	ipConfig := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1}, ipConfig)(okHandler())

	send := func(client string) int {
		req := httptest.NewRequest("POST", "/qr/generate", nil)
		req.RemoteAddr = "10.0.0.2:4000"
		req.Header.Set("X-Forwarded-For", client)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.7"))
	assert.Equal(t, http.StatusOK, send("198.51.100.9"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.7"))
	// A hop prepended by the client does not change the key
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.1, 203.0.113.7"))
}
