// Package assemble turns a live document, or the selected part of it, into
// a standalone HTML snapshot: clone, sanitize, inline, serialize.
package assemble

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/edgecomet/pagesaver/internal/capture"
	"github.com/edgecomet/pagesaver/internal/common/htmlprocessor"
	"github.com/edgecomet/pagesaver/internal/inline"
	"github.com/edgecomet/pagesaver/internal/sanitize"
	"github.com/edgecomet/pagesaver/pkg/types"
)

// Selection yields the selected elements in document order.
type Selection interface {
	Selected() []*html.Node
}

// Inliner is the part of inline.Inliner the assembler drives.
type Inliner interface {
	InlineImages(ctx context.Context, root *html.Node, page inline.Page) inline.ImageReport
	InlineBackgroundImages(ctx context.Context, root *html.Node, page inline.Page) inline.BackgroundReport
	InlineStylesheets(root *html.Node, live *capture.LiveDocument) inline.StylesheetReport
	CollectCSS(ctx context.Context, live *capture.LiveDocument) string
}

type Assembler struct {
	inliner   Inliner
	sanitizer *sanitize.Sanitizer
	logger    *zap.Logger
	now       func() time.Time
}

func New(inliner Inliner, sanitizer *sanitize.Sanitizer, logger *zap.Logger) *Assembler {
	return &Assembler{
		inliner:   inliner,
		sanitizer: sanitizer,
		logger:    logger,
		now:       time.Now,
	}
}

// AssembleFull snapshots the whole document, <html> included.
func (a *Assembler) AssembleFull(ctx context.Context, live *capture.LiveDocument) (*types.AssembledDocument, error) {
	if live == nil || live.Doc == nil || live.Doc.DocumentElement() == nil {
		return nil, ErrNoDocument
	}
	start := time.Now()
	page := inline.Page{URL: live.URL, Title: live.Title()}

	clone := htmlprocessor.Clone(live.Doc.DocumentElement())
	stats := a.sanitizer.Sanitize(clone)

	sheets := a.inliner.InlineStylesheets(clone, live)
	images := a.inliner.InlineImages(ctx, clone, page)
	backgrounds := a.inliner.InlineBackgroundImages(ctx, clone, page)

	if head := htmlprocessor.FindElement(clone, "head"); head != nil {
		style := htmlprocessor.NewElement("style")
		htmlprocessor.SetText(style, correctiveCSS)
		head.AppendChild(style)
	}

	doc := &types.AssembledDocument{
		HTML:              doctype + htmlprocessor.Render(clone),
		SuggestedFilename: types.SnapshotFilename(page.Title, types.ModeFull),
		ResourceFolder:    types.ResourceFolder(page.Title),
		Mode:              types.ModeFull,
		SourceURL:         live.URL,
	}

	a.logger.Info("Full page assembled",
		zap.String("url", live.URL),
		zap.String("filename", doc.SuggestedFilename),
		zap.Int("bytes", len(doc.HTML)),
		zap.Int("removed", stats.Removed),
		zap.Int("images", images.Total),
		zap.Int("images_embedded", images.Embedded),
		zap.Int("placeholders", images.Placeholders),
		zap.Int("backgrounds", backgrounds.Found),
		zap.Int("stylesheets", sheets.Sheets),
		zap.Duration("duration", time.Since(start)))
	return doc, nil
}

// AssembleSelection snapshots each selected element into a shell document.
// Elements are cloned, sanitized and inlined one at a time, in document
// order.
func (a *Assembler) AssembleSelection(ctx context.Context, live *capture.LiveDocument, sel Selection) (*types.AssembledDocument, error) {
	if live == nil || live.Doc == nil {
		return nil, ErrNoDocument
	}
	nodes := sel.Selected()
	if len(nodes) == 0 {
		return nil, ErrEmptySelection
	}
	start := time.Now()
	page := inline.Page{URL: live.URL, Title: live.Title()}

	var images inline.ImageReport
	items := make([]string, 0, len(nodes))
	for _, n := range nodes {
		clone := htmlprocessor.Clone(n)
		a.sanitizer.Sanitize(clone)

		item := htmlprocessor.NewElement("div", html.Attribute{Key: "class", Val: "selected-content-item"})
		item.AppendChild(clone)

		r := a.inliner.InlineImages(ctx, item, page)
		a.inliner.InlineBackgroundImages(ctx, item, page)
		images.Total += r.Total
		images.Embedded += r.Embedded
		images.Placeholders += r.Placeholders

		items = append(items, htmlprocessor.Render(item))
	}

	s := shell{
		Title:     page.Title,
		SourceURL: live.URL,
		SavedAt:   a.now(),
		Count:     len(nodes),
		CSS:       a.inliner.CollectCSS(ctx, live),
		Items:     items,
	}
	doc := &types.AssembledDocument{
		HTML:              s.render(),
		SuggestedFilename: types.SnapshotFilename(page.Title, types.ModeSelection),
		ResourceFolder:    types.ResourceFolder(page.Title),
		Mode:              types.ModeSelection,
		SourceURL:         live.URL,
	}

	a.logger.Info("Selection assembled",
		zap.String("url", live.URL),
		zap.String("filename", doc.SuggestedFilename),
		zap.Int("elements", len(nodes)),
		zap.Int("bytes", len(doc.HTML)),
		zap.Int("images", images.Total),
		zap.Int("images_embedded", images.Embedded),
		zap.Int("placeholders", images.Placeholders),
		zap.Duration("duration", time.Since(start)))
	return doc, nil
}
