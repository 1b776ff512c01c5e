package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// PrometheusMetrics holds the collectors shared by the snapshot and PDF services.
type PrometheusMetrics struct {
	// Snapshot metrics
	snapshotsTotal   *prometheus.CounterVec
	snapshotDuration *prometheus.HistogramVec
	selectionSize    prometheus.Gauge

	// Inlining metrics
	resourcesTotal *prometheus.CounterVec

	// Delivery metrics
	deliveriesTotal  *prometheus.CounterVec
	deliveryDuration *prometheus.HistogramVec

	// PDF metrics
	conversionsTotal   *prometheus.CounterVec
	conversionDuration prometheus.Histogram
	pdfPages           prometheus.Histogram

	// Command and HTTP metrics
	commandsTotal *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec

	logger      *zap.Logger
	httpHandler func(*fasthttp.RequestCtx)
}

// NewPrometheusMetrics registers against the default registry.
func NewPrometheusMetrics(namespace, subsystem string, logger *zap.Logger) *PrometheusMetrics {
	return NewPrometheusMetricsWithRegistry(namespace, subsystem, prometheus.DefaultRegisterer, logger)
}

// NewPrometheusMetricsWithRegistry registers against registerer. Tests pass a
// fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewPrometheusMetricsWithRegistry(namespace, subsystem string, registerer prometheus.Registerer, logger *zap.Logger) *PrometheusMetrics {
	pm := &PrometheusMetrics{
		logger: logger,
	}

	pm.snapshotsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "snapshots_total",
		Help:      "Total snapshot assemblies by mode and status",
	}, []string{"mode", "status"}) // status: success, empty, error

	pm.snapshotDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "snapshot_duration_seconds",
		Help:      "Time spent assembling snapshots",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"mode"})

	pm.selectionSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "selection_size",
		Help:      "Number of elements currently selected",
	})

	pm.resourcesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "resources_total",
		Help:      "Inlined resources by kind and outcome",
	}, []string{"kind", "outcome"}) // outcome: embedded, linked, placeholder

	pm.deliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "deliveries_total",
		Help:      "Delivery attempts by final tier and result",
	}, []string{"tier", "result"})

	pm.deliveryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "delivery_duration_seconds",
		Help:      "Time spent delivering a snapshot",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"tier"})

	pm.conversionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "pdf_conversions_total",
		Help:      "PDF conversions by status",
	}, []string{"status"})

	pm.conversionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "pdf_conversion_duration_seconds",
		Help:      "Time spent converting HTML to PDF",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	pm.pdfPages = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "pdf_pages",
		Help:      "Page count of produced PDFs",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
	})

	pm.commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "commands_total",
		Help:      "Commands by action and status",
	}, []string{"action", "status"})

	pm.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by endpoint and status",
	}, []string{"endpoint", "status"})

	pm.errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "errors_total",
		Help:      "Total errors by type",
	}, []string{"type"}) // type: validation, internal, conversion

	registerer.MustRegister(
		pm.snapshotsTotal,
		pm.snapshotDuration,
		pm.selectionSize,
		pm.resourcesTotal,
		pm.deliveriesTotal,
		pm.deliveryDuration,
		pm.conversionsTotal,
		pm.conversionDuration,
		pm.pdfPages,
		pm.commandsTotal,
		pm.httpRequests,
		pm.errorsTotal,
	)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	pm.httpHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	logger.Info("Prometheus metrics initialized", zap.String("subsystem", subsystem))
	return pm
}

func (pm *PrometheusMetrics) RecordSnapshot(mode, status string) {
	pm.snapshotsTotal.WithLabelValues(mode, status).Inc()
}

func (pm *PrometheusMetrics) RecordSnapshotDuration(mode string, seconds float64) {
	pm.snapshotDuration.WithLabelValues(mode).Observe(seconds)
}

func (pm *PrometheusMetrics) UpdateSelectionSize(n float64) {
	pm.selectionSize.Set(n)
}

func (pm *PrometheusMetrics) RecordResource(kind, outcome string) {
	pm.resourcesTotal.WithLabelValues(kind, outcome).Inc()
}

func (pm *PrometheusMetrics) RecordDelivery(tier, result string, seconds float64) {
	pm.deliveriesTotal.WithLabelValues(tier, result).Inc()
	pm.deliveryDuration.WithLabelValues(tier).Observe(seconds)
}

func (pm *PrometheusMetrics) RecordConversion(status string, seconds float64) {
	pm.conversionsTotal.WithLabelValues(status).Inc()
	pm.conversionDuration.Observe(seconds)
}

func (pm *PrometheusMetrics) RecordPages(pages float64) {
	pm.pdfPages.Observe(pages)
}

func (pm *PrometheusMetrics) RecordCommand(action, status string) {
	pm.commandsTotal.WithLabelValues(action, status).Inc()
}

// RecordHTTPRequest records an HTTP request
func (pm *PrometheusMetrics) RecordHTTPRequest(endpoint, status string) {
	pm.httpRequests.WithLabelValues(endpoint, status).Inc()
}

// RecordError records an error by type
func (pm *PrometheusMetrics) RecordError(errorType string) {
	pm.errorsTotal.WithLabelValues(errorType).Inc()
}

// ServeHTTP serves Prometheus metrics via HTTP
func (pm *PrometheusMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	pm.httpHandler(ctx)
}
