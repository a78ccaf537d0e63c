package routes

import (
	"github.com/BradenHooton/visaqr/internal/handlers"
	"github.com/BradenHooton/visaqr/internal/middleware"
	pkghttp "github.com/BradenHooton/visaqr/pkg/http"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	qrHandler *handlers.QRCodeHandler,
	visaFormHandler *handlers.VisaFormHandler,
	draftHandler *handlers.DraftHandler,
	healthHandler *handlers.HealthHandler,
	rateLimitConfig middleware.RateLimitConfig,
	ipConfig *pkghttp.IPConfig,
) {
	router.Get("/ping", healthHandler.Ping)
	router.Get("/health", healthHandler.Health)

	// QR code lifecycle
	router.Route("/qr", func(r chi.Router) {
		// Token-minting and token-consuming endpoints are rate limited per client IP
		r.With(middleware.RateLimitByIP(rateLimitConfig, ipConfig)).Post("/generate", qrHandler.Generate)
		r.With(middleware.RateLimitByIP(rateLimitConfig, ipConfig)).Get("/validate/{token}", qrHandler.Validate)

		r.Get("/can-generate/{subjectId}/{page}", qrHandler.CanGenerate)
		r.Get("/active/{subjectId}/{page}", qrHandler.GetActive)
		r.Get("/status/{token}", qrHandler.Status)
		r.Post("/cleanup", qrHandler.Cleanup)
	})

	// Visa application forms
	router.Route("/visa", func(r chi.Router) {
		r.Post("/", visaFormHandler.CreateVisaForm)
		r.Get("/", visaFormHandler.ListVisaForms)

		r.Post("/drafts", draftHandler.CreateDraft)
		r.Get("/drafts/{id}", draftHandler.GetDraft)

		r.Get("/{id}", visaFormHandler.GetVisaForm)
		r.Put("/{id}", visaFormHandler.UpdateVisaForm)
		r.Delete("/{id}", visaFormHandler.DeleteVisaForm)
		r.Put("/{id}/passport", visaFormHandler.UpdatePassport)
		r.Get("/{id}/passport", visaFormHandler.GetPassportURL)
	})
}
