package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/command"
)

const (
	PathCommand = "/command"
	PathHealth  = "/health"
)

type MetricsCollector interface {
	RecordHTTPRequest(endpoint, status string)
	RecordValidationError()
	RecordInternalError()
}

// Dispatcher runs one command.
type Dispatcher interface {
	Dispatch(ctx context.Context, req command.Request) (*command.Response, error)
}

// PageStatus reports the session state for health checks.
type PageStatus interface {
	Loaded() bool
	URL() string
	SelectMode() bool
}

type HealthResponse struct {
	Status     string `json:"status"`
	PageLoaded bool   `json:"page_loaded"`
	URL        string `json:"url,omitempty"`
	SelectMode bool   `json:"select_mode"`
}

// writeJSONResponse writes a JSON response with proper error handling
func writeJSONResponse(ctx *fasthttp.RequestCtx, statusCode int, response interface{}, path string, metricsCollector MetricsCollector, logger *zap.Logger) {
	body, err := json.Marshal(response)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"success":false,"error":"Failed to marshal response"}`)
		ctx.SetContentType("application/json")
		metricsCollector.RecordHTTPRequest(path, "500")
		logger.Error("Failed to marshal JSON response",
			zap.String("path", path),
			zap.Error(err))
		return
	}

	ctx.SetStatusCode(statusCode)
	ctx.SetBody(body)
	ctx.SetContentType("application/json")
	metricsCollector.RecordHTTPRequest(path, fmt.Sprintf("%d", statusCode))
}

// statusFor maps a command condition to an HTTP status.
func statusFor(code string) int {
	switch code {
	case command.CodeUnknownAction, command.CodeInvalidRequest:
		return fasthttp.StatusBadRequest
	case command.CodeEmptySelection:
		return fasthttp.StatusUnprocessableEntity
	case command.CodeNoPage:
		return fasthttp.StatusConflict
	default:
		return fasthttp.StatusInternalServerError
	}
}

// HandleCommand processes POST /command.
func HandleCommand(ctx *fasthttp.RequestCtx, dispatcher Dispatcher, timeout time.Duration, metricsCollector MetricsCollector, logger *zap.Logger) {
	var req command.Request
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		metricsCollector.RecordValidationError()
		resp := command.ErrorResponse(fmt.Errorf("%w: invalid JSON body", command.ErrMissingField))
		writeJSONResponse(ctx, fasthttp.StatusBadRequest, resp, PathCommand, metricsCollector, logger)
		return
	}

	cmdCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := dispatcher.Dispatch(cmdCtx, req)
	if err != nil {
		resp = command.ErrorResponse(err)
		status := statusFor(resp.Code)
		if status == fasthttp.StatusInternalServerError {
			metricsCollector.RecordInternalError()
			logger.Error("Command failed",
				zap.String("action", req.Action),
				zap.Error(err))
		} else {
			metricsCollector.RecordValidationError()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			status = fasthttp.StatusGatewayTimeout
		}
		writeJSONResponse(ctx, status, resp, PathCommand, metricsCollector, logger)
		return
	}

	writeJSONResponse(ctx, fasthttp.StatusOK, resp, PathCommand, metricsCollector, logger)
}

// HandleHealth processes GET /health.
func HandleHealth(ctx *fasthttp.RequestCtx, page PageStatus, metricsCollector MetricsCollector, logger *zap.Logger) {
	writeJSONResponse(ctx, fasthttp.StatusOK, HealthResponse{
		Status:     "ok",
		PageLoaded: page.Loaded(),
		URL:        page.URL(),
		SelectMode: page.SelectMode(),
	}, PathHealth, metricsCollector, logger)
}
