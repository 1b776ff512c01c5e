package capture

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aymerick/douceur/parser"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/edgecomet/pagesaver/internal/common/htmlprocessor"
	"github.com/edgecomet/pagesaver/internal/common/urlutil"
	"github.com/edgecomet/pagesaver/internal/fetch"
)

// HTTPCapturer builds a LiveDocument from the raw page markup without a
// browser. It has no layout, so Geometry is empty and pointer-driven
// selection is unavailable; selection by CSS selector still works.
type HTTPCapturer struct {
	fetcher             *fetch.Fetcher
	denyPrivateNetworks bool
	logger              *zap.Logger
}

func NewHTTPCapturer(fetcher *fetch.Fetcher, denyPrivateNetworks bool, logger *zap.Logger) *HTTPCapturer {
	return &HTTPCapturer{fetcher: fetcher, denyPrivateNetworks: denyPrivateNetworks, logger: logger}
}

func (c *HTTPCapturer) Capture(ctx context.Context, pageURL string) (*LiveDocument, error) {
	if err := urlutil.CheckPageURL(pageURL, c.denyPrivateNetworks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrURLRejected, err)
	}

	resp, err := c.fetcher.Get(ctx, fetch.Request{URL: pageURL, Accept: "text/html,application/xhtml+xml"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNavigateFailed, err)
	}

	gq, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractHTML, err)
	}
	doc := htmlprocessor.NewDocument(gq.Get(0))

	live := &LiveDocument{
		URL:        pageURL,
		Doc:        doc,
		Geometry:   map[*html.Node]Rect{},
		CapturedAt: time.Now().UTC(),
	}

	gq.Find(`link, style`).Each(func(_ int, sel *goquery.Selection) {
		node := sel.Get(0)
		if node.Data == "style" {
			live.StyleSheets = append(live.StyleSheets, StyleSheet{
				Owner:      node,
				Accessible: true,
				Rules:      splitRules(sel.Text()),
			})
			return
		}
		if !IsStylesheetLink(node) {
			return
		}
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		abs, err := urlutil.Resolve(pageURL, href)
		if err != nil {
			return
		}
		live.StyleSheets = append(live.StyleSheets, c.linkedSheet(ctx, pageURL, abs, node))
	})

	c.logger.Info("Page captured over HTTP",
		zap.String("url", pageURL),
		zap.String("title", live.Title()),
		zap.Int("stylesheets", len(live.StyleSheets)))
	return live, nil
}

// linkedSheet reads a <link>ed sheet the way the CSSOM would: rules are only
// visible when the sheet is same-origin or served with a permitting
// Access-Control-Allow-Origin.
func (c *HTTPCapturer) linkedSheet(ctx context.Context, pageURL, href string, owner *html.Node) StyleSheet {
	sheet := StyleSheet{Href: href, Owner: owner}

	resp, err := c.fetcher.Get(ctx, fetch.Request{URL: href, PageURL: pageURL, Mode: fetch.ModeAnonymous, Accept: "text/css"})
	if err != nil {
		c.logger.Debug("Stylesheet unavailable", zap.String("href", href), zap.Error(err))
		return sheet
	}
	if !resp.Readable && !urlutil.IsSameOrigin(pageURL, href) {
		return sheet
	}
	sheet.Accessible = true
	sheet.Rules = splitRules(string(resp.Body))
	return sheet
}

// splitRules parses CSS into top-level rule texts. Unparseable input is kept
// as a single rule so nothing is lost.
func splitRules(css string) []string {
	css = strings.TrimSpace(css)
	if css == "" {
		return nil
	}
	sheet, err := parser.Parse(css)
	if err != nil {
		return []string{css}
	}
	rules := make([]string, 0, len(sheet.Rules))
	for _, r := range sheet.Rules {
		rules = append(rules, r.String())
	}
	return rules
}
