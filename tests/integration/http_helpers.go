package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/visaqr/internal/config"
	"github.com/BradenHooton/visaqr/internal/database"
	"github.com/BradenHooton/visaqr/internal/handlers"
	"github.com/BradenHooton/visaqr/internal/metrics"
	middlewareCustom "github.com/BradenHooton/visaqr/internal/middleware"
	"github.com/BradenHooton/visaqr/internal/routes"
	"github.com/BradenHooton/visaqr/internal/services"
	pkghttp "github.com/BradenHooton/visaqr/pkg/http"
	pkglogger "github.com/BradenHooton/visaqr/pkg/logger"
)

// SentLink represents a captured QR link email
type SentLink struct {
	To        string
	QRURL     string
	Page      string
	ExpiresAt time.Time
}

// MockMailer captures QR link emails for test assertions
type MockMailer struct {
	SentLinks []SentLink
	mu        sync.Mutex
}

// SendQRLink records the email
func (m *MockMailer) SendQRLink(ctx context.Context, email, qrURL, page string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentLinks = append(m.SentLinks, SentLink{To: email, QRURL: qrURL, Page: page, ExpiresAt: expiresAt})
	return nil
}

// GetLastLink returns the most recent link sent
func (m *MockMailer) GetLastLink() *SentLink {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SentLinks) == 0 {
		return nil
	}
	return &m.SentLinks[len(m.SentLinks)-1]
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server    *httptest.Server
	DB        *database.DB
	Mailer    *MockMailer
	Config    *config.Config
	QRService *services.QRCodeService
}

// NewTestServer initializes a complete HTTP server with real database and a captured mailer
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
			TrustedProxies: []string{},
			RequestTimeout: 30 * time.Second,
		},
		QR: config.QRConfig{
			FrontendURL:        "https://visa.test.local",
			TTL:                5 * time.Minute,
			CleanupInterval:    time.Hour,
			DraftTTL:           24 * time.Hour,
			ImageSize:          128,
			RateLimitPerMinute: 1000,
		},
		Storage: config.StorageConfig{
			PresignExpiry:      15 * time.Minute,
			MaxUploadSizeBytes: 5 << 20,
		},
	}

	qrRepo, visaFormRepo, draftRepo := InitializeRepositories(db)
	mailer := &MockMailer{}
	recorder := metrics.NewNoopMetrics()

	qrService := services.NewQRCodeService(qrRepo, services.QRCodeServiceConfig{
		FrontendURL: cfg.QR.FrontendURL,
		TTL:         cfg.QR.TTL,
		ImageSize:   cfg.QR.ImageSize,
	}, recorder, mailer, logger)
	visaFormService := services.NewVisaFormService(visaFormRepo, nil, cfg.Storage.PresignExpiry, logger)
	draftService := services.NewDraftService(draftRepo, cfg.QR.DraftTTL, logger)

	auditLogger := pkglogger.NewAuditLogger(logger)
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(middlewareCustom.SecureLogger(logger, recorder))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(cfg.Server.RequestTimeout))

	// Setup routes using production pattern
	routes.RegisterRoutes(r,
		handlers.NewQRCodeHandler(qrService, auditLogger, ipConfig),
		handlers.NewVisaFormHandler(visaFormService, auditLogger, ipConfig, cfg.Storage.MaxUploadSizeBytes),
		handlers.NewDraftHandler(draftService),
		handlers.NewHealthHandler(db),
		middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.QR.RateLimitPerMinute},
		ipConfig,
	)

	return &TestServer{
		Server:    httptest.NewServer(r),
		DB:        db,
		Mailer:    mailer,
		Config:    cfg,
		QRService: qrService,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return ts.Server.Client().Do(req)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// GetErrorCode extracts the machine-readable code from an error response
func GetErrorCode(resp *http.Response) (string, error) {
	var errResp pkghttp.ErrorResponse
	if err := ParseJSONResponse(resp, &errResp); err != nil {
		return "", err
	}
	return errResp.Error, nil
}
