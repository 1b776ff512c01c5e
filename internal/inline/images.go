package inline

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/edgecomet/pagesaver/internal/common/htmlprocessor"
	"github.com/edgecomet/pagesaver/internal/common/urlutil"
	"github.com/edgecomet/pagesaver/internal/fetch"
	"github.com/edgecomet/pagesaver/pkg/types"
)

// Attributes written onto processed images.
const (
	AttrOriginalSrc    = "data-original-src"
	AttrAlternativeSrc = "data-alternative-src"
	AttrEmbedded       = "data-wcs-embedded"
	AttrFallback       = "data-wcs-fallback"
	AttrPlaceholder    = "data-wcs-placeholder"
	AttrOriginalURL    = "data-original-url"
	// AttrSize is the rendered WxH recorded at capture time. It is consumed
	// and removed here.
	AttrSize = "data-wcs-size"
)

const imageAccept = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"

// relinkAttributes go on images left pointing at their source.
var relinkAttributes = map[string]string{
	"crossorigin":    "anonymous",
	"referrerpolicy": "no-referrer",
}

var faviconDomain = regexp.MustCompile(`domain=([^&]+)`)

// ImageReport counts outcomes of one InlineImages call.
type ImageReport struct {
	Total        int
	Small        int
	Embedded     int
	Linked       int
	Placeholders int
	Skipped      int
}

type imageJob struct {
	node     *html.Node
	index    int
	url      string
	filename string
	width    int
	height   int
	alt      string
	small    bool
}

type imageOutcome struct {
	result types.EmbedResult
	altSrc string
}

// InlineImages embeds every <img> under root. Small images go first, one
// at a time; the rest run in batches of Config.BatchSize with a pause in
// between. Tree mutations happen on the calling goroutine only.
func (in *Inliner) InlineImages(ctx context.Context, root *html.Node, page Page) ImageReport {
	imgs := htmlprocessor.FindAll(root, "img")
	report := ImageReport{Total: len(imgs)}

	var small, normal []*imageJob
	for i, img := range imgs {
		job, ok := in.prepareImage(img, i, page)
		htmlprocessor.RemoveAttr(img, AttrSize)
		if !ok {
			report.Skipped++
			continue
		}
		if job.small {
			small = append(small, job)
		} else {
			normal = append(normal, job)
		}
	}
	report.Small = len(small)

	in.logger.Debug("Inlining images",
		zap.String("page", page.URL),
		zap.Int("small", len(small)),
		zap.Int("normal", len(normal)),
		zap.Int("skipped", report.Skipped))

	for _, job := range small {
		in.applyImage(job, in.resolveImage(ctx, job, page), &report)
	}

	size := in.config.BatchSize
	if size <= 0 {
		size = 1
	}
	for start := 0; start < len(normal); start += size {
		batch := normal[start:min(start+size, len(normal))]
		outcomes := make([]imageOutcome, len(batch))

		var g errgroup.Group
		for i, job := range batch {
			i, job := i, job
			g.Go(func() error {
				outcomes[i] = in.resolveImage(ctx, job, page)
				return nil
			})
		}
		_ = g.Wait()

		for i, job := range batch {
			in.applyImage(job, outcomes[i], &report)
		}

		if start+size < len(normal) {
			sleep(ctx, in.config.BatchPause)
		}
	}

	return report
}

func (in *Inliner) prepareImage(img *html.Node, index int, page Page) (*imageJob, bool) {
	src := strings.TrimSpace(htmlprocessor.GetAttr(img, "src"))
	if src == "" || strings.HasPrefix(src, "data:") || strings.HasPrefix(src, "blob:") {
		return nil, false
	}
	abs, err := urlutil.Resolve(page.URL, src)
	if err != nil {
		in.logger.Debug("Skipping image with bad URL", zap.String("src", src), zap.Error(err))
		return nil, false
	}

	w, h := imageSize(img)
	limit := in.config.SmallImageSize
	return &imageJob{
		node:     img,
		index:    index,
		url:      abs,
		filename: ImageFilename(index, abs),
		width:    w,
		height:   h,
		alt:      htmlprocessor.GetAttr(img, "alt"),
		small:    (w > 0 && h > 0 && w <= limit && h <= limit) || strings.Contains(abs, "favicon"),
	}, true
}

// imageSize prefers the width/height attributes, then the captured size.
// Unknown sides are zero.
func imageSize(img *html.Node) (int, int) {
	var sw, sh int
	if size := htmlprocessor.GetAttr(img, AttrSize); size != "" {
		ws, hs, _ := strings.Cut(size, "x")
		sw, _ = strconv.Atoi(ws)
		sh, _ = strconv.Atoi(hs)
	}
	w := dimension(htmlprocessor.GetAttr(img, "width"))
	if w == 0 {
		w = sw
	}
	h := dimension(htmlprocessor.GetAttr(img, "height"))
	if h == 0 {
		h = sh
	}
	return w, h
}

func dimension(s string) int {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0
	}
	return int(f + 0.5)
}

// resolveImage walks the tiers for one image without touching the tree.
func (in *Inliner) resolveImage(ctx context.Context, job *imageJob, page Page) (out imageOutcome) {
	defer func() {
		if r := recover(); r != nil {
			in.logger.Warn("Image processing panicked, using placeholder",
				zap.String("url", job.url),
				zap.Any("panic", r))
			out = imageOutcome{result: in.placeholder(job)}
		}
	}()

	if job.small {
		for _, alt := range faviconAlternatives(job.url) {
			if uri, ok := in.embed(ctx, alt, page.URL); ok {
				return imageOutcome{result: types.Embedded(uri), altSrc: alt}
			}
		}
	}

	attempts := 1
	if job.small {
		attempts = max(in.config.SmallRetries, 1)
	}
	for a := 0; a < attempts; a++ {
		if a > 0 && !sleep(ctx, in.config.SmallRetryDelay) {
			break
		}
		if uri, ok := in.embed(ctx, job.url, page.URL); ok {
			return imageOutcome{result: types.Embedded(uri)}
		}
	}

	if in.prober.Probe(ctx, job.url, page.URL) {
		return imageOutcome{result: types.LinkedExternal(job.url, relinkAttributes)}
	}

	return imageOutcome{result: in.placeholder(job)}
}

// embed runs the fetch tier then the redraw tier.
func (in *Inliner) embed(ctx context.Context, rawURL, pageURL string) (string, bool) {
	resp, err := in.fetcher.Get(ctx, fetch.Request{
		URL:     rawURL,
		PageURL: pageURL,
		Mode:    fetch.ModeAnonymous,
		Accept:  imageAccept,
	})
	switch {
	case err != nil:
		in.logger.Debug("Image fetch failed", zap.String("url", rawURL), zap.Error(err))
	case !resp.Readable:
		in.logger.Debug("Image fetch not readable", zap.String("url", rawURL), zap.Error(fetch.ErrCrossOriginDenied))
	default:
		uri, err := EncodeDataURI(resp.ContentType, resp.Body)
		if err == nil {
			return uri, true
		}
		in.logger.Debug("Fetched image rejected", zap.String("url", rawURL), zap.Error(err))
	}

	if ctx.Err() != nil {
		return "", false
	}
	uri, err := in.redrawer.Redraw(ctx, rawURL, pageURL)
	if err != nil || !ValidDataURI(uri) {
		return "", false
	}
	return uri, true
}

func (in *Inliner) placeholder(job *imageJob) types.EmbedResult {
	uri, err := PlaceholderSVG(job.width, job.height, job.filename, job.url)
	if err != nil {
		in.logger.Debug("SVG placeholder failed, using box", zap.String("url", job.url), zap.Error(err))
		return types.Placeholder(PlaceholderBox(job.width, job.height, job.alt))
	}
	return types.Placeholder(uri)
}

func (in *Inliner) applyImage(job *imageJob, out imageOutcome, report *ImageReport) {
	img := job.node
	res := out.result

	switch res.Kind {
	case types.EmbedEmbedded:
		htmlprocessor.SetAttr(img, "src", res.DataURI)
		htmlprocessor.SetAttr(img, AttrOriginalSrc, job.url)
		if out.altSrc != "" && out.altSrc != job.url {
			htmlprocessor.SetAttr(img, AttrAlternativeSrc, out.altSrc)
		}
		htmlprocessor.SetAttr(img, AttrEmbedded, "true")
		dropResponsiveSources(img)
		report.Embedded++

	case types.EmbedLinkedExternal:
		htmlprocessor.SetAttr(img, "src", res.URL)
		keys := make([]string, 0, len(res.CORSAttributes))
		for k := range res.CORSAttributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			htmlprocessor.SetAttr(img, k, res.CORSAttributes[k])
		}
		htmlprocessor.SetAttr(img, AttrOriginalSrc, job.url)
		htmlprocessor.SetAttr(img, AttrFallback, "true")
		report.Linked++

	case types.EmbedPlaceholder:
		if strings.HasPrefix(res.Markup, "data:") {
			htmlprocessor.SetAttr(img, "src", res.Markup)
			htmlprocessor.SetAttr(img, AttrPlaceholder, "true")
			htmlprocessor.SetAttr(img, AttrOriginalURL, job.url)
			appendStyle(img, "border: 1px dashed #ccc;")
			dropResponsiveSources(img)
		} else if nodes, err := htmlprocessor.ParseFragment(res.Markup); err == nil && len(nodes) > 0 {
			htmlprocessor.ReplaceWith(img, nodes[0])
		}
		report.Placeholders++
	}

	in.record(types.ResourceImage, res.Kind)
	in.logger.Debug("Image processed",
		zap.String("file", job.filename),
		zap.String("url", job.url),
		zap.Stringer("outcome", res.Kind),
		zap.Bool("small", job.small))
}

// dropResponsiveSources removes srcset/sizes so the rewritten src is used.
func dropResponsiveSources(img *html.Node) {
	htmlprocessor.RemoveAttr(img, "srcset")
	htmlprocessor.RemoveAttr(img, "sizes")
}

func appendStyle(n *html.Node, decl string) {
	style := strings.TrimSpace(htmlprocessor.GetAttr(n, "style"))
	if style != "" && !strings.HasSuffix(style, ";") {
		style += ";"
	}
	if style != "" {
		style += " "
	}
	htmlprocessor.SetAttr(n, "style", style+decl)
}

// faviconAlternatives lists mirror endpoints for Google favicon API URLs.
func faviconAlternatives(rawURL string) []string {
	if !strings.Contains(rawURL, "google.com/s2/favicons") {
		return nil
	}
	m := faviconDomain.FindStringSubmatch(rawURL)
	if m == nil {
		return nil
	}
	domain := m[1]
	return []string{
		fmt.Sprintf("https://www.google.com/s2/favicons?domain=%s", domain),
		fmt.Sprintf("https://www.google.com/s2/favicons?sz=64&domain=%s", domain),
		fmt.Sprintf("https://favicon.yandex.net/favicon/%s", domain),
		fmt.Sprintf("https://icons.duckduckgo.com/ip3/%s.ico", domain),
	}
}

// sleep waits for d or until ctx is done. Reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
