package inline

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/edgecomet/pagesaver/internal/common/htmlprocessor"
	"github.com/edgecomet/pagesaver/internal/common/urlutil"
	"github.com/edgecomet/pagesaver/internal/fetch"
	"github.com/edgecomet/pagesaver/pkg/types"
)

var cssURL = regexp.MustCompile(`url\(\s*['"]?([^'")]+?)['"]?\s*\)`)

// BackgroundReport counts outcomes of one InlineBackgroundImages call.
type BackgroundReport struct {
	Found    int
	Embedded int
	Saved    int
	Failed   int
}

// InlineBackgroundImages rewrites url(...) references in background and
// background-image declarations of style attributes under root. Each URL is
// embedded when possible, otherwise saved next to the snapshot through the
// Saver and relinked to the relative path. Without a Saver, or when saving
// fails, the declaration is left as it was.
func (in *Inliner) InlineBackgroundImages(ctx context.Context, root *html.Node, page Page) BackgroundReport {
	var report BackgroundReport
	index := 0

	for _, el := range htmlprocessor.Elements(root) {
		style := htmlprocessor.GetAttr(el, "style")
		if !strings.Contains(style, "url(") {
			continue
		}
		decls, err := parser.ParseDeclarations(style)
		if err != nil {
			in.logger.Debug("Unparseable style attribute", zap.String("style", style), zap.Error(err))
			continue
		}

		changed := false
		for _, decl := range decls {
			if !isBackground(decl) {
				continue
			}
			value, ok := in.rewriteBackground(ctx, decl.Value, page, &index, &report)
			if ok {
				decl.Value = value
				changed = true
			}
		}
		if changed {
			htmlprocessor.SetAttr(el, "style", joinDeclarations(decls))
		}
	}

	if report.Found > 0 {
		in.logger.Debug("Background images processed",
			zap.String("page", page.URL),
			zap.Int("found", report.Found),
			zap.Int("embedded", report.Embedded),
			zap.Int("saved", report.Saved),
			zap.Int("failed", report.Failed))
	}
	return report
}

func isBackground(decl *css.Declaration) bool {
	p := strings.ToLower(decl.Property)
	return p == "background-image" || p == "background"
}

// rewriteBackground replaces every non-data url() in value. ok is false
// when nothing was replaced.
func (in *Inliner) rewriteBackground(ctx context.Context, value string, page Page, index *int, report *BackgroundReport) (string, bool) {
	replaced := false
	out := cssURL.ReplaceAllStringFunc(value, func(match string) string {
		raw := strings.TrimSpace(cssURL.FindStringSubmatch(match)[1])
		if raw == "" || strings.HasPrefix(raw, "data:") {
			return match
		}
		abs, err := urlutil.Resolve(page.URL, raw)
		if err != nil {
			return match
		}
		report.Found++
		i := *index
		*index++

		if uri, ok := in.embed(ctx, abs, page.URL); ok {
			report.Embedded++
			replaced = true
			in.record(types.ResourceBackgroundImage, types.EmbedEmbedded)
			return `url("` + uri + `")`
		}

		rel, err := in.saveBackground(ctx, i, abs, page)
		if err != nil {
			report.Failed++
			in.logger.Warn("Background image left unchanged",
				zap.String("url", abs),
				zap.Error(err))
			return match
		}
		report.Saved++
		replaced = true
		in.record(types.ResourceBackgroundImage, types.EmbedLinkedExternal)
		return `url("` + rel + `")`
	})
	return out, replaced
}

// saveBackground downloads the image without CORS checks and hands it to
// the Saver. The returned path is relative to the snapshot.
func (in *Inliner) saveBackground(ctx context.Context, index int, rawURL string, page Page) (string, error) {
	if in.saver == nil {
		return "", ErrNoSaver
	}
	resp, err := in.fetcher.Get(ctx, fetch.Request{
		URL:     rawURL,
		PageURL: page.URL,
		Mode:    fetch.ModeNone,
		Accept:  imageAccept,
	})
	if err != nil {
		return "", err
	}
	rel := path.Join(types.ResourceFolder(page.Title), BackgroundFilename(index, rawURL))
	if _, err := in.saver.SaveResource(ctx, rel, resp.Body); err != nil {
		return "", err
	}
	return rel, nil
}

func joinDeclarations(decls []*css.Declaration) string {
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.String()
	}
	return strings.Join(parts, " ")
}
