package metricsserver

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/common/configtypes"
)

// MetricsHandler serves the exposition format.
type MetricsHandler interface {
	ServeHTTP(ctx *fasthttp.RequestCtx)
}

// Start runs a dedicated fasthttp server for metrics on its own port.
// Returns nil when metrics are disabled.
func Start(cfg configtypes.MetricsConfig, metrics MetricsHandler, logger *zap.Logger) *fasthttp.Server {
	if !cfg.Enabled {
		logger.Info("Metrics collection disabled")
		return nil
	}

	server := &fasthttp.Server{
		Handler:            NewHandler(cfg.Path, metrics),
		Name:               "pagesaver-metrics",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 1024,
		TCPKeepalive:       true,
		TCPKeepalivePeriod: 30 * time.Second,
		Concurrency:        100,
	}

	go func() {
		logger.Info("Metrics server listening",
			zap.String("listen", cfg.Listen),
			zap.String("path", cfg.Path))

		if err := server.ListenAndServe(cfg.Listen); err != nil {
			logger.Error("Metrics server stopped",
				zap.String("listen", cfg.Listen),
				zap.Error(err))
		}
	}()

	return server
}

// NewHandler routes path to metrics and 404s everything else.
func NewHandler(path string, metrics MetricsHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == path {
			metrics.ServeHTTP(ctx)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString("Not Found")
	}
}
