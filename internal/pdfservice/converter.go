package pdfservice

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

// Recorder receives conversion metrics.
type Recorder interface {
	RecordConversion(ok bool, duration time.Duration)
	RecordPages(pages int)
}

// Result describes a written PDF.
type Result struct {
	PDFPath string
	Pages   int
	Size    int
}

// Converter turns a saved snapshot on disk into a PDF file.
type Converter struct {
	renderer  Renderer
	outputDir string
	recorder  Recorder
	logger    *zap.Logger
}

func NewConverter(renderer Renderer, outputDir string, recorder Recorder, logger *zap.Logger) *Converter {
	return &Converter{
		renderer:  renderer,
		outputDir: outputDir,
		recorder:  recorder,
		logger:    logger,
	}
}

// Convert renders htmlPath and writes outputFilename. An empty
// outputFilename derives one from the HTML file name.
func (c *Converter) Convert(ctx context.Context, htmlPath, outputFilename string) (*Result, error) {
	start := time.Now()
	res, err := c.convert(ctx, htmlPath, outputFilename)
	if c.recorder != nil {
		c.recorder.RecordConversion(err == nil, time.Since(start))
		if err == nil {
			c.recorder.RecordPages(res.Pages)
		}
	}
	return res, err
}

func (c *Converter) convert(ctx context.Context, htmlPath, outputFilename string) (*Result, error) {
	src, err := validateSource(htmlPath)
	if err != nil {
		return nil, err
	}
	name, err := outputName(src, outputFilename)
	if err != nil {
		return nil, err
	}

	dir := c.outputDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	fileURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(src)}).String()
	data, err := c.renderer.RenderPDF(ctx, fileURL)
	if err != nil {
		return nil, err
	}

	pages, err := inspectPDF(data)
	if err != nil {
		return nil, err
	}

	dst := filepath.Join(dir, name)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	c.logger.Info("PDF written",
		zap.String("source", src),
		zap.String("pdf", dst),
		zap.Int("pages", pages),
		zap.Int("bytes", len(data)))

	return &Result{PDFPath: dst, Pages: pages, Size: len(data)}, nil
}

func validateSource(htmlPath string) (string, error) {
	if htmlPath == "" {
		return "", fmt.Errorf("%w: html_file_path is required", ErrInvalidRequest)
	}
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	ext := strings.ToLower(filepath.Ext(abs))
	if ext != ".html" && ext != ".htm" {
		return "", fmt.Errorf("%w: %s is not an html file", ErrInvalidRequest, filepath.Base(abs))
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrSourceNotFound, abs)
	}
	return abs, nil
}

func outputName(src, requested string) (string, error) {
	if requested == "" {
		base := filepath.Base(src)
		return strings.TrimSuffix(base, filepath.Ext(base)) + ".pdf", nil
	}
	if requested != filepath.Base(requested) || requested == "." || requested == ".." {
		return "", fmt.Errorf("%w: output_filename must be a bare file name", ErrInvalidRequest)
	}
	if !strings.EqualFold(filepath.Ext(requested), ".pdf") {
		requested += ".pdf"
	}
	return requested, nil
}

// inspectPDF validates data and returns its page count.
func inspectPDF(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	return ctx.PageCount, nil
}
