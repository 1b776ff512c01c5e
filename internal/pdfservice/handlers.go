package pdfservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	PathConvert = "/convert-to-pdf"
	PathHealth  = "/health"
)

// MetricsCollector is the part of the metrics package the handlers use.
type MetricsCollector interface {
	RecordHTTPRequest(endpoint, status string)
	RecordValidationError()
	RecordInternalError()
}

type ConvertRequest struct {
	HTMLFilePath   string `json:"html_file_path"`
	OutputFilename string `json:"output_filename,omitempty"`
}

type ConvertResponse struct {
	Success bool   `json:"success"`
	PDFPath string `json:"pdf_path,omitempty"`
	Pages   int    `json:"pages,omitempty"`
	Size    int    `json:"size,omitempty"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
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

// HandleConvert processes POST /convert-to-pdf.
func HandleConvert(ctx *fasthttp.RequestCtx, converter *Converter, timeout time.Duration, metricsCollector MetricsCollector, logger *zap.Logger) {
	var req ConvertRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		metricsCollector.RecordValidationError()
		writeJSONResponse(ctx, fasthttp.StatusBadRequest, ConvertResponse{Error: "Invalid JSON body"}, PathConvert, metricsCollector, logger)
		return
	}

	convCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, err := converter.Convert(convCtx, req.HTMLFilePath, req.OutputFilename)
	if err != nil {
		status := fasthttp.StatusInternalServerError
		switch {
		case errors.Is(err, ErrInvalidRequest):
			status = fasthttp.StatusBadRequest
			metricsCollector.RecordValidationError()
		case errors.Is(err, ErrSourceNotFound):
			status = fasthttp.StatusNotFound
			metricsCollector.RecordValidationError()
		case errors.Is(err, context.DeadlineExceeded):
			status = fasthttp.StatusGatewayTimeout
			metricsCollector.RecordInternalError()
		default:
			metricsCollector.RecordInternalError()
		}
		logger.Warn("PDF conversion failed",
			zap.String("html_file_path", req.HTMLFilePath),
			zap.Int("status", status),
			zap.Error(err))
		writeJSONResponse(ctx, status, ConvertResponse{Error: err.Error()}, PathConvert, metricsCollector, logger)
		return
	}

	writeJSONResponse(ctx, fasthttp.StatusOK, ConvertResponse{
		Success: true,
		PDFPath: res.PDFPath,
		Pages:   res.Pages,
		Size:    res.Size,
	}, PathConvert, metricsCollector, logger)
}

// HandleHealth processes GET /health.
func HandleHealth(ctx *fasthttp.RequestCtx, metricsCollector MetricsCollector, logger *zap.Logger) {
	writeJSONResponse(ctx, fasthttp.StatusOK, HealthResponse{Status: "ok"}, PathHealth, metricsCollector, logger)
}
