package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/pkg/types"
)

// Subsystems used by the two services.
const (
	SubsystemSnapshot = "snapshot"
	SubsystemPDF      = "pdf"
)

// MetricsCollector centralizes metrics recording. It satisfies the recorder
// interfaces of the inline, delivery and pdfservice packages.
type MetricsCollector struct {
	prometheus *PrometheusMetrics
	logger     *zap.Logger
}

// NewMetricsCollector creates a new MetricsCollector instance
func NewMetricsCollector(namespace, subsystem string, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: NewPrometheusMetrics(namespace, subsystem, logger),
		logger:     logger,
	}
}

// NewMetricsCollectorWithRegistry is used by tests.
func NewMetricsCollectorWithRegistry(namespace, subsystem string, registerer prometheus.Registerer, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: NewPrometheusMetricsWithRegistry(namespace, subsystem, registerer, logger),
		logger:     logger,
	}
}

// RecordSnapshot records one assembly attempt.
func (mc *MetricsCollector) RecordSnapshot(mode types.Mode, status string, duration time.Duration) {
	mc.prometheus.RecordSnapshot(string(mode), status)
	mc.prometheus.RecordSnapshotDuration(string(mode), duration.Seconds())
}

func (mc *MetricsCollector) UpdateSelectionSize(n int) {
	mc.prometheus.UpdateSelectionSize(float64(n))
}

func (mc *MetricsCollector) RecordEmbed(kind types.ResourceKind, outcome types.EmbedKind) {
	mc.prometheus.RecordResource(kind.String(), outcome.String())
}

func (mc *MetricsCollector) RecordDelivery(tier types.DeliveryTier, saved bool, duration time.Duration) {
	result := "saved"
	if !saved {
		result = "failed"
	}
	mc.prometheus.RecordDelivery(string(tier), result, duration.Seconds())
}

func (mc *MetricsCollector) RecordConversion(ok bool, duration time.Duration) {
	status := "success"
	if !ok {
		status = "error"
		mc.prometheus.RecordError("conversion")
	}
	mc.prometheus.RecordConversion(status, duration.Seconds())
}

// RecordPages records the page count of a produced PDF.
func (mc *MetricsCollector) RecordPages(pages int) {
	mc.prometheus.RecordPages(float64(pages))
}

func (mc *MetricsCollector) RecordCommand(action, status string) {
	mc.prometheus.RecordCommand(action, status)
}

// RecordHTTPRequest records an HTTP request
func (mc *MetricsCollector) RecordHTTPRequest(endpoint, status string) {
	mc.prometheus.RecordHTTPRequest(endpoint, status)
}

// RecordValidationError records a validation error
func (mc *MetricsCollector) RecordValidationError() {
	mc.prometheus.RecordError("validation")
}

// RecordInternalError records an internal error
func (mc *MetricsCollector) RecordInternalError() {
	mc.prometheus.RecordError("internal")
}

// ServeHTTP exposes the Prometheus handler for metricsserver.
func (mc *MetricsCollector) ServeHTTP(ctx *fasthttp.RequestCtx) {
	mc.prometheus.ServeHTTP(ctx)
}
