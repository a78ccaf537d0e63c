package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/visaqr/internal/background"
	"github.com/BradenHooton/visaqr/internal/config"
	"github.com/BradenHooton/visaqr/internal/database"
	"github.com/BradenHooton/visaqr/internal/handlers"
	"github.com/BradenHooton/visaqr/internal/metrics"
	middlewareCustom "github.com/BradenHooton/visaqr/internal/middleware"
	"github.com/BradenHooton/visaqr/internal/repositories"
	"github.com/BradenHooton/visaqr/internal/routes"
	"github.com/BradenHooton/visaqr/internal/services"
	"github.com/BradenHooton/visaqr/internal/storage"
	pkghttp "github.com/BradenHooton/visaqr/pkg/http"
	pkglogger "github.com/BradenHooton/visaqr/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	os.Exit(run())
}

// run wires the service and blocks until shutdown, returning the exit code
func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		return 1
	}

	logger, flush := pkglogger.New(cfg.Server.Env, cfg.Server.LogLevel, cfg.Observability.SentryDSN)
	defer flush()

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.Duration("qr_ttl", cfg.QR.TTL),
		slog.Bool("storage_enabled", cfg.Storage.Enabled()),
		slog.Bool("email_enabled", cfg.Email.Enabled()),
		slog.Bool("metrics_enabled", cfg.Observability.MetricsEnabled),
	)

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		return 1
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		err := db.Migrate(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			return 1
		}
	}

	recorder := metrics.Init(cfg.Observability.MetricsEnabled)

	// Optional blob storage for passport scans
	var blobStore storage.Storage
	if cfg.Storage.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		s3Store, err := storage.New(ctx, cfg.Storage, logger)
		cancel()
		if err != nil {
			logger.Error("failed to initialize blob storage", slog.Any("error", err))
			return 1
		}
		blobStore = s3Store
	} else {
		logger.Warn("S3_BUCKET not set, passport uploads disabled")
	}

	// Optional QR link delivery by email
	var mailer services.QRMailer
	if cfg.Email.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		sesMailer, err := services.NewSESMailer(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		cancel()
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			return 1
		}
		mailer = sesMailer
	}

	// Initialize repositories
	qrRepo := repositories.NewQRCodeRepository(db)
	visaFormRepo := repositories.NewVisaFormRepository(db)
	draftRepo := repositories.NewVisaFormDraftRepository(db)

	// Initialize services
	qrService := services.NewQRCodeService(qrRepo, services.QRCodeServiceConfig{
		FrontendURL: cfg.QR.FrontendURL,
		TTL:         cfg.QR.TTL,
		ImageSize:   cfg.QR.ImageSize,
	}, recorder, mailer, logger)
	visaFormService := services.NewVisaFormService(visaFormRepo, blobStore, cfg.Storage.PresignExpiry, logger)
	draftService := services.NewDraftService(draftRepo, cfg.QR.DraftTTL, logger)

	// Initialize handlers
	auditLogger := pkglogger.NewAuditLogger(logger)
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	qrHandler := handlers.NewQRCodeHandler(qrService, auditLogger, ipConfig)
	visaFormHandler := handlers.NewVisaFormHandler(visaFormService, auditLogger, ipConfig, cfg.Storage.MaxUploadSizeBytes)
	draftHandler := handlers.NewDraftHandler(draftService)
	healthHandler := handlers.NewHealthHandler(db)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(map[string]background.Cleaner{
		"qr_codes": qrService,
		"drafts":   background.CleanerFunc(draftService.CleanupExpired),
	}, logger, cfg.QR.CleanupInterval)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger, recorder))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// Register routes
	routes.RegisterRoutes(router, qrHandler, visaFormHandler, draftHandler, healthHandler,
		middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.QR.RateLimitPerMinute}, ipConfig)

	if cfg.Observability.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler())
	}

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", slog.Any("error", err))
		exitCode = 1
	}

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		return 1
	}

	logger.Info("server stopped gracefully")
	return exitCode
}
