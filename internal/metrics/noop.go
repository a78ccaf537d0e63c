package metrics

import "time"

// NoopMetrics discards everything; used when metrics are disabled
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordQRCodeGenerated(result string, invalidated int64, duration time.Duration) {}
func (n *NoopMetrics) RecordQRCodeValidation(result string, duration time.Duration)                   {}
func (n *NoopMetrics) RecordQRCodesCleaned(deleted int64)                                              {}
func (n *NoopMetrics) RecordHTTPRequest(method, route string, status int, duration time.Duration)     {}
