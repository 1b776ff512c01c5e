// Package service exposes the command surface over HTTP.
package service

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/common/httputil"
)

// CreateHTTPHandler creates the main HTTP request handler with routing
func CreateHTTPHandler(dispatcher Dispatcher, page PageStatus, timeout time.Duration, metricsCollector MetricsCollector, logger *zap.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case method == fasthttp.MethodPost && path == PathCommand:
			HandleCommand(ctx, dispatcher, timeout, metricsCollector, logger)
		case method == fasthttp.MethodGet && path == PathHealth:
			HandleHealth(ctx, page, metricsCollector, logger)
		case path == PathCommand:
			httputil.MethodNotAllowed(ctx, fasthttp.MethodPost)
			metricsCollector.RecordHTTPRequest(path, "405")
		case path == PathHealth:
			httputil.MethodNotAllowed(ctx, fasthttp.MethodGet)
			metricsCollector.RecordHTTPRequest(path, "405")
		default:
			httputil.NotFound(ctx)
			metricsCollector.RecordHTTPRequest("unknown", "404")
		}
	}
}
