package inline

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"time"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/edgecomet/pagesaver/internal/fetch"
)

// maxRedrawPixels caps decoded canvas size.
const maxRedrawPixels = 40_000_000

// RedrawModes is the order CORS settings are tried in.
var RedrawModes = []fetch.Mode{fetch.ModeAnonymous, fetch.ModeUseCredentials, fetch.ModeNone}

// Fetcher loads subresources on behalf of a page.
type Fetcher interface {
	Get(ctx context.Context, req fetch.Request) (*fetch.Response, error)
}

// Redrawer turns an image URL into a PNG data URI by decoding and painting it.
type Redrawer interface {
	Redraw(ctx context.Context, imageURL, pageURL string) (string, error)
}

// RasterRedrawer paints decoded images onto a white canvas and exports PNG.
// A cross-origin image that loads without CORS approval taints the canvas.
type RasterRedrawer struct {
	fetcher Fetcher
	timeout time.Duration
	logger  *zap.Logger
}

func NewRasterRedrawer(fetcher Fetcher, timeout time.Duration, logger *zap.Logger) *RasterRedrawer {
	return &RasterRedrawer{fetcher: fetcher, timeout: timeout, logger: logger}
}

// Redraw tries each of RedrawModes. A load failure moves on to the next
// mode; a tainted canvas or a decode failure ends the attempt.
func (r *RasterRedrawer) Redraw(ctx context.Context, imageURL, pageURL string) (string, error) {
	var lastErr error
	for _, mode := range RedrawModes {
		uri, err := r.redrawOnce(ctx, imageURL, pageURL, mode)
		if err == nil {
			return uri, nil
		}
		lastErr = err
		r.logger.Debug("Redraw attempt failed",
			zap.String("url", imageURL),
			zap.String("mode", modeName(mode)),
			zap.Error(err))
		if !isLoadError(err) || ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

type loadError struct{ err error }

func (e loadError) Error() string { return "image load failed: " + e.err.Error() }
func (e loadError) Unwrap() error { return e.err }

func isLoadError(err error) bool {
	_, ok := err.(loadError)
	return ok
}

func (r *RasterRedrawer) redrawOnce(ctx context.Context, imageURL, pageURL string, mode fetch.Mode) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.fetcher.Get(ctx, fetch.Request{
		URL:     imageURL,
		PageURL: pageURL,
		Mode:    mode,
		Accept:  "image/avif,image/webp,image/apng,image/*,*/*;q=0.8",
	})
	if err != nil {
		return "", loadError{err}
	}
	// with a crossorigin attribute a CORS failure is a load error
	if mode != fetch.ModeNone && !resp.Readable {
		return "", loadError{fmt.Errorf("%w: %s", fetch.ErrCrossOriginDenied, modeName(mode))}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(resp.Body))
	if err != nil {
		return "", loadError{fmt.Errorf("%w: %v", ErrNotImage, err)}
	}
	if cfg.Width*cfg.Height > maxRedrawPixels {
		return "", fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	if !resp.Readable {
		return "", ErrTainted
	}

	src, _, err := image.Decode(bytes.NewReader(resp.Body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return paintPNG(src)
}

// paintPNG draws src over opaque white and encodes the result.
func paintPNG(src image.Image) (string, error) {
	b := src.Bounds()
	if b.Empty() {
		return "", fmt.Errorf("%w: empty image", ErrNotImage)
	}
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return "", fmt.Errorf("png encode: %w", err)
	}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	if !ValidDataURI(uri) {
		return "", ErrInvalidDataURI
	}
	return uri, nil
}

func modeName(m fetch.Mode) string {
	if m == fetch.ModeNone {
		return "none"
	}
	return string(m)
}
