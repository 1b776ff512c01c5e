package inline

import (
	"bytes"
	"context"
	"image"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/common/poll"
	"github.com/edgecomet/pagesaver/internal/fetch"
)

// Prober confirms that an image would load directly from its URL with the
// relink attributes applied.
type Prober interface {
	Probe(ctx context.Context, imageURL, pageURL string) bool
}

// LoadProber loads the image the way <img crossorigin="anonymous"
// referrerpolicy="no-referrer"> would and checks the bytes are an image.
type LoadProber struct {
	fetcher Fetcher
	timeout time.Duration
	logger  *zap.Logger
}

func NewLoadProber(fetcher Fetcher, timeout time.Duration, logger *zap.Logger) *LoadProber {
	return &LoadProber{fetcher: fetcher, timeout: timeout, logger: logger}
}

func (p *LoadProber) Probe(ctx context.Context, imageURL, pageURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	loaded := make(chan bool, 1)
	go func() {
		loaded <- p.load(ctx, imageURL, pageURL)
	}()

	ok, err := poll.Signal(ctx, loaded, p.timeout)
	if err != nil {
		p.logger.Debug("Image load probe timed out", zap.String("url", imageURL), zap.Error(err))
		return false
	}
	return ok
}

func (p *LoadProber) load(ctx context.Context, imageURL, pageURL string) bool {
	resp, err := p.fetcher.Get(ctx, fetch.Request{
		URL:        imageURL,
		PageURL:    pageURL,
		Mode:       fetch.ModeAnonymous,
		NoReferrer: true,
	})
	if err != nil || !resp.Readable {
		return false
	}
	if strings.HasPrefix(strings.ToLower(resp.ContentType), "image/") || isSVG(resp.Body) {
		return true
	}
	_, _, err = image.DecodeConfig(bytes.NewReader(resp.Body))
	return err == nil
}
