package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/BradenHooton/visaqr/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// QRMailer delivers a freshly generated QR link to an applicant
type QRMailer interface {
	SendQRLink(ctx context.Context, email, qrURL, page string, expiresAt time.Time) error
}

// sesAPI is the subset of the SES client used by SESMailer
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends emails using AWS SES
type SESMailer struct {
	client      sesAPI
	fromAddress string
	logger      *slog.Logger
}

// NewSESMailer creates a new AWS SES mailer
func NewSESMailer(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESMailer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESMailer(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

func newSESMailer(client sesAPI, fromAddress string, logger *slog.Logger) *SESMailer {
	return &SESMailer{
		client:      client,
		fromAddress: fromAddress,
		logger:      logger,
	}
}

// SendQRLink emails the page link encoded in a QR code
func (m *SESMailer) SendQRLink(ctx context.Context, email, qrURL, page string, expiresAt time.Time) error {
	expiry := expiresAt.UTC().Format("15:04 MST, 2 Jan 2006")

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .button { display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Continue your visa application</h1>
        <p>Use the link below to open the <strong>%s</strong> section of your application.</p>
        <p><a href="%s" class="button">Open application</a></p>
        <div class="warning">
            The link works once and expires at %s.
        </div>
        <p>This is an automated message. Please do not reply to this email.</p>
    </div>
</body>
</html>
`, html.EscapeString(page), html.EscapeString(qrURL), expiry)

	textBody := fmt.Sprintf(`Continue your visa application

Open the %s section of your application with this link:

%s

The link works once and expires at %s.

This is an automated message. Please do not reply to this email.
`, page, qrURL, expiry)

	input := &ses.SendEmailInput{
		Source: aws.String(m.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your visa application link"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		m.logger.Error("failed to send qr link via SES",
			slog.String("email", logger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("qr link email sent",
		slog.String("email", logger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
