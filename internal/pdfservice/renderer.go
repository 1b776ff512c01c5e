package pdfservice

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"
)

// Renderer prints a URL to PDF bytes.
type Renderer interface {
	RenderPDF(ctx context.Context, targetURL string) ([]byte, error)
	Close() error
}

// ChromeRenderer keeps one headless browser and opens a tab per render.
type ChromeRenderer struct {
	paper         Paper
	timeout       timeoutFunc
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *zap.Logger

	mu     sync.Mutex
	closed bool
}

type timeoutFunc func(context.Context) (context.Context, context.CancelFunc)

// NewChromeRenderer starts the browser eagerly so launch errors surface here.
func NewChromeRenderer(cfg Config, logger *zap.Logger) (*ChromeRenderer, error) {
	execPath := cfg.ChromePath
	if execPath == "" && cfg.DownloadBrowser {
		path, err := launcher.NewBrowser().Get()
		if err != nil {
			return nil, fmt.Errorf("downloading browser: %w", err)
		}
		execPath = path
		logger.Info("Using downloaded browser", zap.String("path", path))
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("allow-file-access-from-files", true),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	timeout := cfg.Timeout
	return &ChromeRenderer{
		paper: cfg.Paper,
		timeout: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithTimeout(ctx, timeout)
		},
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
	}, nil
}

func (r *ChromeRenderer) RenderPDF(ctx context.Context, targetURL string) ([]byte, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	ctx, cancel := r.timeout(ctx)
	defer cancel()

	tabCtx, tabCancel := chromedp.NewContext(r.browserCtx)
	defer tabCancel()
	// tie the tab to the request deadline
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	width, height := r.paper.dimensions()
	margin := r.paper.marginInches()

	var buf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPaperWidth(width).
				WithPaperHeight(height).
				WithMarginTop(margin).
				WithMarginRight(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithScale(r.paper.Scale).
				WithPrintBackground(r.paper.PrintBackground).
				WithLandscape(r.paper.Landscape).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("render %s: %w", targetURL, ctx.Err())
		}
		return nil, fmt.Errorf("render %s: %w", targetURL, err)
	}
	return buf, nil
}

// Close is idempotent.
func (r *ChromeRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.browserCancel()
	r.allocCancel()
	r.logger.Info("Browser closed")
	return nil
}
