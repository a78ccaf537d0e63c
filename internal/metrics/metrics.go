package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels shared by QR code metrics
const (
	ResultSuccess = "success"
	ResultUsed    = "used"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// Recorder defines the interface for recording QR code lifecycle metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics.
type Recorder interface {
	RecordQRCodeGenerated(result string, invalidated int64, duration time.Duration)
	RecordQRCodeValidation(result string, duration time.Duration)
	RecordQRCodesCleaned(deleted int64)
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	QRCodesGeneratedTotal   *prometheus.CounterVec
	QRCodesInvalidatedTotal prometheus.Counter
	QRCodeValidationTotal   *prometheus.CounterVec
	QRCodesCleanedTotal     prometheus.Counter
	QRCodeOperationDuration *prometheus.HistogramVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns Prometheus-backed metrics when enabled and NoopMetrics otherwise.
// Prometheus collectors are registered once per process.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = newMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// newMetrics creates all collectors and registers them with reg
func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		QRCodesGeneratedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qr_codes_generated_total",
				Help: "Total number of QR code generation attempts",
			},
			[]string{"result"}, // success, used, error
		),
		QRCodesInvalidatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "qr_codes_invalidated_total",
				Help: "Total number of active QR codes superseded by regeneration",
			},
		),
		QRCodeValidationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qr_code_validation_total",
				Help: "Total number of QR code validations",
			},
			[]string{"result"}, // success, invalid, error
		),
		QRCodesCleanedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "qr_codes_cleaned_total",
				Help: "Total number of QR code records deleted by cleanup",
			},
		),
		QRCodeOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qr_code_operation_duration_seconds",
				Help:    "QR code operation latency",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

func (m *Metrics) RecordQRCodeGenerated(result string, invalidated int64, duration time.Duration) {
	m.QRCodesGeneratedTotal.WithLabelValues(result).Inc()
	if invalidated > 0 {
		m.QRCodesInvalidatedTotal.Add(float64(invalidated))
	}
	m.QRCodeOperationDuration.WithLabelValues("generate").Observe(duration.Seconds())
}

func (m *Metrics) RecordQRCodeValidation(result string, duration time.Duration) {
	m.QRCodeValidationTotal.WithLabelValues(result).Inc()
	m.QRCodeOperationDuration.WithLabelValues("validate").Observe(duration.Seconds())
}

func (m *Metrics) RecordQRCodesCleaned(deleted int64) {
	if deleted > 0 {
		m.QRCodesCleanedTotal.Add(float64(deleted))
	}
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
