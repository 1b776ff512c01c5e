// Package delivery persists an assembled snapshot through a chain of tiers:
// a tracked download, an untracked anchor download and finally a manual
// save. PDF conversion follows a successful save on a best-effort basis.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/common/poll"
	"github.com/edgecomet/pagesaver/pkg/types"
)

var htmlExt = regexp.MustCompile(`(?i)\.html?$`)

// Converter turns a saved HTML file into a PDF. The result is opaque.
type Converter interface {
	Convert(ctx context.Context, htmlPath, outputFilename string) (string, error)
}

// Recorder receives one event per tier attempt.
type Recorder interface {
	RecordDelivery(tier types.DeliveryTier, saved bool, duration time.Duration)
	RecordConversion(ok bool, duration time.Duration)
}

type Option func(*Pipeline)

// WithConverter enables PDF conversion after a successful save.
func WithConverter(c Converter) Option {
	return func(p *Pipeline) { p.converter = c }
}

func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

type Pipeline struct {
	config    Config
	primary   Downloader
	anchor    AnchorSaver
	manual    ManualSaver
	converter Converter
	recorder  Recorder
	logger    *zap.Logger
}

func NewPipeline(config Config, primary Downloader, anchor AnchorSaver, manual ManualSaver, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		config:  config,
		primary: primary,
		anchor:  anchor,
		manual:  manual,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Deliver runs the tiers in order and stops at the first that succeeds.
// It never returns an error: failures are carried in the outcome.
func (p *Pipeline) Deliver(ctx context.Context, doc *types.AssembledDocument) types.DeliveryOutcome {
	data := []byte(doc.HTML)
	filename := doc.SuggestedFilename

	start := time.Now()
	path, err := p.download(ctx, filename, data)
	p.recordTier(types.TierDownload, err == nil, start)
	if err == nil {
		p.logger.Info("Snapshot saved",
			zap.String("path", path),
			zap.String("tier", string(types.TierDownload)))
		out := types.Saved(path, types.TierDownload)
		out.PDF = p.convert(ctx, path, filename)
		return out
	}
	p.logger.Warn("Primary download failed, trying anchor download",
		zap.String("filename", filename),
		zap.Error(err))
	primaryErr := err

	start = time.Now()
	err = p.anchor.Save(ctx, filename, data)
	p.recordTier(types.TierAnchor, err == nil, start)
	if err == nil {
		guessed := p.guessPath(filename)
		p.carryResources(doc.ResourceFolder)
		p.logger.Info("Snapshot saved",
			zap.String("guessed_path", guessed),
			zap.String("tier", string(types.TierAnchor)))
		out := types.Saved(guessed, types.TierAnchor)
		out.PathGuessed = true
		out.Reason = "primary download: " + primaryErr.Error()
		out.PDF = p.convert(ctx, guessed, filename)
		return out
	}
	p.logger.Error("Anchor download failed, falling back to manual save",
		zap.String("filename", filename),
		zap.Error(err))

	start = time.Now()
	tmp, err := p.manual.Present(ctx, filename, data)
	p.recordTier(types.TierManual, false, start)
	if err != nil {
		p.logger.Error("All delivery tiers failed", zap.String("filename", filename), zap.Error(err))
		return types.Failed(fmt.Errorf("%w: %v", ErrDownloadFailed, err).Error(), types.TierManual)
	}
	out := types.Failed(manualReason(tmp), types.TierManual)
	out.Path = tmp
	return out
}

// download starts a tracked download and polls it to completion.
func (p *Pipeline) download(ctx context.Context, filename string, data []byte) (string, error) {
	id, err := p.primary.Download(ctx, DownloadRequest{
		Data:     data,
		Filename: filename,
		Conflict: ConflictUniquify,
		Prompt:   false,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	var path string
	_, err = poll.Until(ctx, p.config.PollInterval, p.config.PollTimeout, func(ctx context.Context) (bool, error) {
		state, resolved, err := p.primary.State(ctx, id)
		switch {
		case err != nil:
			return false, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
		case state == DownloadInterrupted:
			return false, fmt.Errorf("%w: interrupted", ErrDownloadFailed)
		case state == DownloadComplete:
			path = resolved
			return true, nil
		}
		return false, nil
	})
	if errors.Is(err, poll.ErrTimeout) {
		return "", fmt.Errorf("%w after %s", ErrDownloadTimeout, p.config.PollTimeout)
	}
	return path, err
}

func (p *Pipeline) guessPath(filename string) string {
	return filepath.Join(p.config.EffectiveAnchorDir(), filename)
}

// carryResources copies the snapshot's resource folder from the downloads
// directory to the anchor directory when the two differ, so relative
// references in the anchor copy still resolve.
func (p *Pipeline) carryResources(folder string) {
	anchorDir := p.config.EffectiveAnchorDir()
	if folder == "" || sameDir(anchorDir, p.config.DownloadsDir) {
		return
	}
	src := filepath.Join(p.config.DownloadsDir, folder)
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return
	}
	if err := copyDir(src, filepath.Join(anchorDir, folder)); err != nil {
		p.logger.Warn("Failed to copy saved resources next to anchor download",
			zap.String("folder", folder),
			zap.Error(err))
	}
}

// convert is best effort: failures are logged and yield "".
func (p *Pipeline) convert(ctx context.Context, htmlPath, filename string) string {
	if p.converter == nil {
		return ""
	}
	pdfName := PDFFilename(filename)
	start := time.Now()
	result, err := p.converter.Convert(ctx, htmlPath, pdfName)
	if p.recorder != nil {
		p.recorder.RecordConversion(err == nil, time.Since(start))
	}
	if err != nil {
		p.logger.Warn("PDF conversion failed, HTML snapshot kept",
			zap.String("html", htmlPath),
			zap.String("pdf", pdfName),
			zap.Error(err))
		return ""
	}
	p.logger.Info("PDF conversion done", zap.String("pdf", pdfName))
	return result
}

func (p *Pipeline) recordTier(tier types.DeliveryTier, saved bool, start time.Time) {
	if p.recorder != nil {
		p.recorder.RecordDelivery(tier, saved, time.Since(start))
	}
}

// PDFFilename swaps a trailing .html or .htm for .pdf.
func PDFFilename(filename string) string {
	if htmlExt.MatchString(filename) {
		return htmlExt.ReplaceAllString(filename, ".pdf")
	}
	return filename + ".pdf"
}
