package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/common/urlutil"
)

// ChromeCapturer renders pages in a single headless Chrome process and opens
// one tab per capture.
type ChromeCapturer struct {
	config    *Config
	blocklist *Blocklist
	logger    *zap.Logger

	mu              sync.Mutex
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	browserVersion  string
}

// NewChromeCapturer starts Chrome. Call Close to stop it.
func NewChromeCapturer(config *Config, logger *zap.Logger) (*ChromeCapturer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid capture config: %w", err)
	}

	c := &ChromeCapturer{
		config:    config,
		blocklist: NewBlocklist(config.BlockThirdParty, config.BlockedPatterns, logger),
		logger:    logger,
	}
	if err := c.startBrowser(); err != nil {
		return nil, err
	}

	logger.Info("Chrome capturer started",
		zap.String("browser", c.browserVersion),
		zap.Bool("headless", config.Headless),
		zap.Int("blocked_patterns", c.blocklist.Len()))
	return c, nil
}

func (c *ChromeCapturer) startBrowser() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-sync", true),
		chromedp.WindowSize(c.config.WindowWidth, c.config.WindowHeight),
	)
	if c.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.config.ExecPath))
	}
	if c.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.config.UserAgent))
	}

	c.allocatorCtx, c.allocatorCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	c.browserCtx, c.browserCancel = chromedp.NewContext(c.allocatorCtx)

	if err := chromedp.Run(c.browserCtx); err != nil {
		c.Close()
		return fmt.Errorf("failed to start Chrome: %w", err)
	}

	if err := chromedp.Run(c.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, product, _, _, _, err := browser.GetVersion().Do(ctx)
		c.browserVersion = product
		return err
	})); err != nil {
		c.logger.Warn("Failed to read browser version", zap.Error(err))
	}
	return nil
}

// BrowserContext exposes the running browser for components that need their
// own tabs, such as the re-draw tier of the inliner.
func (c *ChromeCapturer) BrowserContext() context.Context {
	return c.browserCtx
}

// Capture loads pageURL in a fresh tab, annotates the DOM and returns the
// parsed LiveDocument. A load that exceeds PageLoadTimeout is not an error:
// whatever has rendered by then is captured.
func (c *ChromeCapturer) Capture(ctx context.Context, pageURL string) (*LiveDocument, error) {
	if err := urlutil.CheckPageURL(pageURL, c.config.DenyPrivateNetworks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrURLRejected, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	tabCtx, tabCancel := chromedp.NewContext(c.browserCtx)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	var markup string
	var ann Annotations
	var handlers sync.WaitGroup
	var blocked int64
	var blockedMu sync.Mutex

	tasks := chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			chromedp.ListenTarget(ctx, func(event interface{}) {
				ev, ok := event.(*fetch.EventRequestPaused)
				if !ok {
					return
				}
				handlers.Add(1)
				go func() {
					defer handlers.Done()
					cmdCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
					defer cancel()
					executor := cdp.WithExecutor(cmdCtx, chromedp.FromContext(cmdCtx).Target)

					if c.blocklist.IsBlocked(ev.Request.URL) {
						blockedMu.Lock()
						blocked++
						blockedMu.Unlock()
						if err := fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(executor); err != nil {
							c.logger.Debug("Failed to block request", zap.String("url", ev.Request.URL), zap.Error(err))
						}
						return
					}
					if err := fetch.ContinueRequest(ev.RequestID).Do(executor); err != nil {
						c.logger.Debug("Failed to continue request, failing instead", zap.String("url", ev.Request.URL), zap.Error(err))
						_ = fetch.FailRequest(ev.RequestID, network.ErrorReasonAborted).Do(executor)
					}
				}()
			})
			return nil
		}),
		network.Enable(),
		fetch.Enable(),
		enableLifecycle(),
		emulation.SetDeviceMetricsOverride(int64(c.config.WindowWidth), int64(c.config.WindowHeight), 1.0, false),
		c.navigateAndWait(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(annotateScript, &ann),
		extractHTML(&markup),
	}

	err := chromedp.Run(tabCtx, tasks)
	handlers.Wait()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("capture cancelled: %w", ctx.Err())
	}
	if err != nil {
		return nil, err
	}

	live, err := Build(markup, ann)
	if err != nil {
		return nil, err
	}
	if live.URL == "" {
		live.URL = pageURL
	}

	c.logger.Info("Page captured",
		zap.String("url", live.URL),
		zap.String("title", live.Title()),
		zap.Int("elements", len(live.Geometry)),
		zap.Int("stylesheets", len(live.StyleSheets)),
		zap.Int64("blocked_requests", blocked),
		zap.Duration("duration", time.Since(start)))
	return live, nil
}

func (c *ChromeCapturer) navigateAndWait(pageURL string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		loaded := make(chan struct{})
		listenCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		var once sync.Once
		chromedp.ListenTarget(listenCtx, func(ev interface{}) {
			if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "load" {
				once.Do(func() { close(loaded) })
			}
		})

		if _, _, errText, err := page.Navigate(pageURL).Do(ctx); err != nil {
			return errors.Join(ErrNavigateFailed, err)
		} else if errText != "" {
			return fmt.Errorf("%w: %s", ErrNavigateFailed, errText)
		}

		select {
		case <-loaded:
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.config.PageLoadTimeout):
			c.logger.Debug("Load event not seen in time, capturing anyway",
				zap.String("url", pageURL),
				zap.Duration("timeout", c.config.PageLoadTimeout))
		}

		if c.config.SettleWait > 0 {
			select {
			case <-time.After(c.config.SettleWait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}
}

func extractHTML(out *string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		var lastErr error
		for attempt := 0; attempt < 3; attempt++ {
			root, err := dom.GetDocument().Do(ctx)
			if err == nil {
				*out, err = dom.GetOuterHTML().WithNodeID(root.NodeID).Do(ctx)
				if err == nil {
					return nil
				}
			}
			lastErr = err
			time.Sleep(300 * time.Millisecond)
		}
		return fmt.Errorf("%w after 3 attempts: %v", ErrExtractHTML, lastErr)
	}
}

func enableLifecycle() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := page.Enable().Do(ctx); err != nil {
			return err
		}
		return page.SetLifecycleEventsEnabled(true).Do(ctx)
	}
}

// Close stops the browser.
func (c *ChromeCapturer) Close() {
	if c.browserCancel != nil {
		c.browserCancel()
	}
	if c.allocatorCancel != nil {
		c.allocatorCancel()
	}
}
