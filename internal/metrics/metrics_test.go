package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInit_DisabledReturnsNoop(t *testing.T) {
	m := Init(false)
	_, ok := m.(*NoopMetrics)
	assert.True(t, ok, "disabled metrics should be a NoopMetrics")

	// Must not panic
	m.RecordQRCodeGenerated(ResultSuccess, 1, time.Millisecond)
	m.RecordQRCodeValidation(ResultInvalid, time.Millisecond)
	m.RecordQRCodesCleaned(3)
	m.RecordHTTPRequest("GET", "/qr/status/{token}", 404, time.Millisecond)
}

func TestMetrics_RecordQRCodeGenerated(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())

	m.RecordQRCodeGenerated(ResultSuccess, 2, 5*time.Millisecond)
	m.RecordQRCodeGenerated(ResultUsed, 0, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QRCodesGeneratedTotal.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QRCodesGeneratedTotal.WithLabelValues(ResultUsed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QRCodesInvalidatedTotal))
}

func TestMetrics_RecordValidationAndCleanup(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())

	m.RecordQRCodeValidation(ResultSuccess, time.Millisecond)
	m.RecordQRCodeValidation(ResultInvalid, time.Millisecond)
	m.RecordQRCodeValidation(ResultInvalid, time.Millisecond)
	m.RecordQRCodesCleaned(0)
	m.RecordQRCodesCleaned(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QRCodeValidationTotal.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QRCodeValidationTotal.WithLabelValues(ResultInvalid)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.QRCodesCleanedTotal))
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())

	m.RecordHTTPRequest("GET", "/qr/validate/{token}", 410, time.Millisecond)
	m.RecordHTTPRequest("GET", "/qr/validate/{token}", 200, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/qr/validate/{token}", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/qr/validate/{token}", "2xx")))
}
