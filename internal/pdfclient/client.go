// Package pdfclient calls the local HTML-to-PDF conversion service.
package pdfclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// ErrConversionFailed covers network errors and non-2xx answers. Callers
// treat it as soft.
var ErrConversionFailed = errors.New("pdf conversion failed")

const (
	DefaultEndpoint = "http://localhost:5000"
	ConvertPath     = "/convert-to-pdf"
)

type Config struct {
	Enabled  bool
	Endpoint string
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Endpoint: DefaultEndpoint,
		Timeout:  60 * time.Second,
	}
}

func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		return fmt.Errorf("pdf.endpoint must be an http(s) URL, got %q", c.Endpoint)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("pdf.timeout must be positive")
	}
	return nil
}

// ConvertRequest is the body of POST /convert-to-pdf.
type ConvertRequest struct {
	HTMLFilePath   string `json:"html_file_path"`
	OutputFilename string `json:"output_filename"`
}

type Client struct {
	url        string
	timeout    time.Duration
	httpClient *fasthttp.Client
	logger     *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		url:     strings.TrimRight(cfg.Endpoint, "/") + ConvertPath,
		timeout: cfg.Timeout,
		httpClient: &fasthttp.Client{
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: 500 * time.Millisecond,
		},
		logger: logger,
	}
}

// Convert asks the service to render htmlPath into outputFilename and
// returns the response body unchanged.
func (c *Client) Convert(ctx context.Context, htmlPath, outputFilename string) (string, error) {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil || timeout <= 0 {
		return "", fmt.Errorf("%w: %v", ErrConversionFailed, context.DeadlineExceeded)
	}

	body, err := json.Marshal(ConvertRequest{HTMLFilePath: htmlPath, OutputFilename: outputFilename})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	c.logger.Debug("Requesting PDF conversion",
		zap.String("url", c.url),
		zap.String("html_file_path", htmlPath),
		zap.String("output_filename", outputFilename))

	if err := c.httpClient.DoTimeout(req, resp, timeout); err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}

	status := resp.StatusCode()
	result := string(resp.Body())
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", ErrConversionFailed, status, truncate(result, 200))
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
