// Package pdfservice converts saved HTML snapshots to PDF over HTTP.
package pdfservice

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/common/httputil"
)

type Server struct {
	converter        *Converter
	timeout          time.Duration
	metricsCollector MetricsCollector
	logger           *zap.Logger
}

func NewServer(converter *Converter, timeout time.Duration, metricsCollector MetricsCollector, logger *zap.Logger) *Server {
	return &Server{
		converter:        converter,
		timeout:          timeout,
		metricsCollector: metricsCollector,
		logger:           logger,
	}
}

// CreateHTTPHandler routes requests to the handlers.
func (s *Server) CreateHTTPHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case method == fasthttp.MethodPost && path == PathConvert:
			HandleConvert(ctx, s.converter, s.timeout, s.metricsCollector, s.logger)
		case method == fasthttp.MethodGet && path == PathHealth:
			HandleHealth(ctx, s.metricsCollector, s.logger)
		case path == PathConvert:
			httputil.MethodNotAllowed(ctx, fasthttp.MethodPost)
			s.metricsCollector.RecordHTTPRequest(path, "405")
		case path == PathHealth:
			httputil.MethodNotAllowed(ctx, fasthttp.MethodGet)
			s.metricsCollector.RecordHTTPRequest(path, "405")
		default:
			httputil.NotFound(ctx)
			s.metricsCollector.RecordHTTPRequest("unknown", "404")
		}
	}
}
