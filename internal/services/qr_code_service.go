package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BradenHooton/visaqr/internal/metrics"
	"github.com/BradenHooton/visaqr/internal/models"
	"github.com/BradenHooton/visaqr/internal/qrimage"
	"github.com/BradenHooton/visaqr/pkg/logger"
)

// qrTokenBytes is the amount of randomness behind every token (64 hex chars)
const qrTokenBytes = 32

// mailTimeout bounds QR link delivery so a slow mail provider cannot stall generation
const mailTimeout = 10 * time.Second

// QRCodeRepository defines the interface for QR code token persistence
type QRCodeRepository interface {
	Issue(ctx context.Context, code *models.QRCode) (*models.QRCode, int64, error)
	Consume(ctx context.Context, token, page, subjectID string, now time.Time) (*models.QRCode, error)
	HasUsed(ctx context.Context, subjectID, page string) (bool, error)
	GetActive(ctx context.Context, subjectID, page string, now time.Time) (*models.QRCode, error)
	GetByTokenAndPage(ctx context.Context, token, page string) (*models.QRCode, error)
	DeleteStale(ctx context.Context, now time.Time) (int64, error)
}

// QRCodeServiceConfig holds deployment-wide QR settings
type QRCodeServiceConfig struct {
	FrontendURL string
	TTL         time.Duration
	ImageSize   int
}

// GeneratedQRCode is the result of a successful generation
type GeneratedQRCode struct {
	Token     string
	ExpiresAt time.Time
	SubjectID string
	Page      string
	QRURL     string
	QRImage   string
}

// QRCodeService manages the single-use QR code token lifecycle
type QRCodeService struct {
	repo     QRCodeRepository
	cfg      QRCodeServiceConfig
	metrics  metrics.Recorder
	mailer   QRMailer
	logger   *slog.Logger
	now      func() time.Time
	newToken func() (string, error)
}

// NewQRCodeService creates a new QRCodeService. mailer may be nil when email
// delivery is not configured.
func NewQRCodeService(repo QRCodeRepository, cfg QRCodeServiceConfig, recorder metrics.Recorder, mailer QRMailer, logger *slog.Logger) *QRCodeService {
	if recorder == nil {
		recorder = metrics.NewNoopMetrics()
	}

	return &QRCodeService{
		repo:     repo,
		cfg:      cfg,
		metrics:  recorder,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
		newToken: generateQRToken,
	}
}

// generateQRToken returns a hex-encoded token from crypto/rand
func generateQRToken() (string, error) {
	b := make([]byte, qrTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// requireFields trims every value and fails with ErrBadRequest naming the first empty one
func requireFields(fields ...[2]string) ([]string, error) {
	values := make([]string, len(fields))
	for i, f := range fields {
		v := strings.TrimSpace(f[1])
		if v == "" {
			return nil, fmt.Errorf("%w: %s is required", models.ErrBadRequest, f[0])
		}
		values[i] = v
	}
	return values, nil
}

// BuildQRURL returns the front-end page URL that carries token
func (s *QRCodeService) BuildQRURL(subjectID, page, token string) string {
	return s.cfg.FrontendURL + "/" + url.PathEscape(page) + "/" + url.PathEscape(subjectID) +
		"?token=" + url.QueryEscape(token)
}

// Generate issues a new active token for (subjectID, page), superseding any
// active token of the pair. Pairs whose page was already consumed are refused
// with ErrQRCodeUsed.
func (s *QRCodeService) Generate(ctx context.Context, subjectID, page string) (*GeneratedQRCode, error) {
	start := time.Now()

	values, err := requireFields([2]string{"subjectId", subjectID}, [2]string{"page", page})
	if err != nil {
		return nil, err
	}
	subjectID, page = values[0], values[1]

	token, err := s.newToken()
	if err != nil {
		s.logger.Error("failed to generate qr token", slog.Any("error", err))
		s.metrics.RecordQRCodeGenerated(metrics.ResultError, 0, time.Since(start))
		return nil, models.ErrInternalServer
	}

	now := s.now().UTC()
	code := &models.QRCode{
		Token:     token,
		SubjectID: subjectID,
		Page:      page,
		Status:    models.QRStatusActive,
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
	}

	created, invalidated, err := s.repo.Issue(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrQRCodeUsed) {
			s.logger.Info("qr generation refused, page already used",
				slog.String("subject_id", subjectID),
				slog.String("page", page))
			s.metrics.RecordQRCodeGenerated(metrics.ResultUsed, 0, time.Since(start))
			return nil, models.ErrQRCodeUsed
		}

		s.logger.Error("failed to issue qr code",
			slog.String("operation", "generate"),
			slog.String("subject_id", subjectID),
			slog.String("page", page),
			slog.Any("error", err))
		s.metrics.RecordQRCodeGenerated(metrics.ResultError, 0, time.Since(start))
		return nil, storeError(err)
	}

	qrURL := s.BuildQRURL(created.SubjectID, created.Page, created.Token)
	qrImage, err := qrimage.PNGDataURL(qrURL, s.cfg.ImageSize)
	if err != nil {
		// The token is already issued; the URL alone is enough to use it
		s.logger.Warn("failed to render qr image", slog.Any("error", err))
	}

	s.metrics.RecordQRCodeGenerated(metrics.ResultSuccess, invalidated, time.Since(start))
	s.logger.Info("qr code generated",
		slog.String("subject_id", created.SubjectID),
		slog.String("page", created.Page),
		slog.String("token", logger.TokenFingerprint(created.Token)),
		slog.Int64("invalidated", invalidated))

	return &GeneratedQRCode{
		Token:     created.Token,
		ExpiresAt: created.ExpiresAt,
		SubjectID: created.SubjectID,
		Page:      created.Page,
		QRURL:     qrURL,
		QRImage:   qrImage,
	}, nil
}

// DeliverLink emails the generated link when a mailer is configured.
// Delivery failures are logged and never surface to the caller.
func (s *QRCodeService) DeliverLink(ctx context.Context, email string, code *GeneratedQRCode) bool {
	if s.mailer == nil || email == "" || code == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
	defer cancel()

	if err := s.mailer.SendQRLink(ctx, email, code.QRURL, code.Page, code.ExpiresAt); err != nil {
		s.logger.Warn("qr link delivery failed",
			slog.String("subject_id", code.SubjectID),
			slog.String("page", code.Page),
			slog.Any("error", err))
		return false
	}

	return true
}

// CanGenerate reports whether the pair's page has not been consumed yet.
// Advisory only: Generate re-checks inside its transaction.
func (s *QRCodeService) CanGenerate(ctx context.Context, subjectID, page string) (bool, error) {
	values, err := requireFields([2]string{"subjectId", subjectID}, [2]string{"page", page})
	if err != nil {
		return false, err
	}

	used, err := s.repo.HasUsed(ctx, values[0], values[1])
	if err != nil {
		s.logger.Error("failed to check qr availability",
			slog.String("operation", "can_generate"),
			slog.String("subject_id", values[0]),
			slog.String("page", values[1]),
			slog.Any("error", err))
		return false, storeError(err)
	}

	return !used, nil
}

// GetActive returns the pair's current unexpired active token, or nil when there is none
func (s *QRCodeService) GetActive(ctx context.Context, subjectID, page string) (*models.QRCode, error) {
	values, err := requireFields([2]string{"subjectId", subjectID}, [2]string{"page", page})
	if err != nil {
		return nil, err
	}

	code, err := s.repo.GetActive(ctx, values[0], values[1], s.now().UTC())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		s.logger.Error("failed to get active qr code",
			slog.String("operation", "get_active"),
			slog.String("subject_id", values[0]),
			slog.String("page", values[1]),
			slog.Any("error", err))
		return nil, storeError(err)
	}

	return code, nil
}

// Validate consumes token for (page, subjectID) exactly once.
// Every rejection (unknown, mismatched, used, invalidated or expired) is ErrQRCodeInvalid.
func (s *QRCodeService) Validate(ctx context.Context, token, page, subjectID string) (*models.QRCode, error) {
	start := time.Now()

	values, err := requireFields(
		[2]string{"token", token},
		[2]string{"page", page},
		[2]string{"subjectId", subjectID},
	)
	if err != nil {
		return nil, err
	}

	code, err := s.repo.Consume(ctx, values[0], values[1], values[2], s.now().UTC())
	if err != nil {
		if errors.Is(err, models.ErrQRCodeInvalid) {
			s.logger.Info("qr validation rejected",
				slog.String("subject_id", values[2]),
				slog.String("page", values[1]),
				slog.String("token", logger.TokenFingerprint(values[0])))
			s.metrics.RecordQRCodeValidation(metrics.ResultInvalid, time.Since(start))
			return nil, models.ErrQRCodeInvalid
		}

		s.logger.Error("failed to validate qr code",
			slog.String("operation", "validate"),
			slog.String("subject_id", values[2]),
			slog.String("page", values[1]),
			slog.Any("error", err))
		s.metrics.RecordQRCodeValidation(metrics.ResultError, time.Since(start))
		return nil, storeError(err)
	}

	s.metrics.RecordQRCodeValidation(metrics.ResultSuccess, time.Since(start))
	return code, nil
}

// Status inspects a token without changing it. Expiry is evaluated at read
// time, so a stored active token past its expiry reports Valid=false.
func (s *QRCodeService) Status(ctx context.Context, token, page string) (*models.QRCodeStatus, error) {
	values, err := requireFields([2]string{"token", token}, [2]string{"page", page})
	if err != nil {
		return nil, err
	}

	code, err := s.repo.GetByTokenAndPage(ctx, values[0], values[1])
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get qr code status",
			slog.String("operation", "status"),
			slog.String("page", values[1]),
			slog.Any("error", err))
		return nil, storeError(err)
	}

	return &models.QRCodeStatus{
		Status:    code.Status,
		Valid:     code.IsValidAt(s.now().UTC()),
		ExpiresAt: code.ExpiresAt,
		SubjectID: code.SubjectID,
	}, nil
}

// Cleanup deletes used and invalidated tokens and every token already past expiry
func (s *QRCodeService) Cleanup(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteStale(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error("failed to clean up qr codes",
			slog.String("operation", "cleanup"),
			slog.Any("error", err))
		return 0, storeError(err)
	}

	s.metrics.RecordQRCodesCleaned(deleted)
	if deleted > 0 {
		s.logger.Info("qr codes cleaned up", slog.Int64("deleted", deleted))
	}

	return deleted, nil
}

// storeError collapses repository failures into the errors handlers map to
// status codes. Transient failures stay distinguishable for callers that retry.
func storeError(err error) error {
	if errors.Is(err, models.ErrTransient) {
		return models.ErrTransient
	}
	return models.ErrInternalServer
}
