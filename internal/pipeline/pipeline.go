// Package pipeline wires capture, inlining, assembly and delivery into a
// page session from a snapshot configuration.
package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/assemble"
	"github.com/edgecomet/pagesaver/internal/capture"
	"github.com/edgecomet/pagesaver/internal/common/config"
	"github.com/edgecomet/pagesaver/internal/delivery"
	"github.com/edgecomet/pagesaver/internal/fetch"
	"github.com/edgecomet/pagesaver/internal/inline"
	"github.com/edgecomet/pagesaver/internal/metrics"
	"github.com/edgecomet/pagesaver/internal/pdfclient"
	"github.com/edgecomet/pagesaver/internal/resourcecache"
	"github.com/edgecomet/pagesaver/internal/sanitize"
	"github.com/edgecomet/pagesaver/internal/session"
)

// Pipeline holds the wired session and whatever must be released with it.
type Pipeline struct {
	Session    *session.Session
	Downloader *delivery.FileDownloader

	closers []func()
	logger  *zap.Logger
}

// Build constructs every stage. collector may be nil.
func Build(cfg *config.SnapshotConfig, collector *metrics.MetricsCollector, logger *zap.Logger) (*Pipeline, error) {
	p := &Pipeline{logger: logger}

	cache, cacheCloser, err := resourcecache.Open(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	// a nil *Cache must not become a non-nil interface
	var fc fetch.Cache
	if cache != nil {
		fc = cache
		p.closers = append(p.closers, func() {
			if err := cacheCloser.Close(); err != nil {
				logger.Warn("Resource cache close failed", zap.Error(err))
			}
		})
	}
	fetcher := fetch.New(cfg.FetchConfig(), fc, logger)

	var capturer capture.Capturer
	if cfg.Chrome.Enabled {
		chrome, err := capture.NewChromeCapturer(cfg.CaptureConfig(), logger)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("chrome capture: %w", err)
		}
		p.closers = append(p.closers, chrome.Close)
		capturer = chrome
	} else {
		logger.Info("Chrome disabled, capturing over HTTP without layout")
		capturer = capture.NewHTTPCapturer(fetcher, cfg.Chrome.DenyPrivateNetworks, logger)
	}

	sanitizer, err := sanitize.New(cfg.Sanitize, logger)
	if err != nil {
		p.Close()
		return nil, err
	}

	dc := cfg.DeliveryOptions()
	p.Downloader = delivery.NewFileDownloader(dc.DownloadsDir, logger)
	p.closers = append(p.closers, p.Downloader.Wait)

	inlineOpts := []inline.Option{inline.WithSaver(p.Downloader)}
	deliveryOpts := []delivery.Option{}
	sessionOpts := []session.Option{}
	if collector != nil {
		inlineOpts = append(inlineOpts, inline.WithRecorder(collector))
		deliveryOpts = append(deliveryOpts, delivery.WithRecorder(collector))
		sessionOpts = append(sessionOpts, session.WithRecorder(collector))
	}
	if pc := cfg.PDFClientOptions(); pc.Enabled {
		deliveryOpts = append(deliveryOpts, delivery.WithConverter(pdfclient.New(pc, logger)))
	}

	inliner := inline.New(cfg.InlineOptions(), fetcher, logger, inlineOpts...)
	deliverer := delivery.NewPipeline(dc,
		p.Downloader,
		delivery.NewAnchorWriter(dc.EffectiveAnchorDir(), logger),
		delivery.NewTempFileOpener(dc.ManualDir, dc.ManualOpen, logger),
		logger, deliveryOpts...)

	p.Session = session.New(capturer, assemble.New(inliner, sanitizer, logger), deliverer, logger, sessionOpts...)
	return p, nil
}

// Close releases resources in reverse construction order.
func (p *Pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
}
