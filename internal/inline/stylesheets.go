package inline

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/edgecomet/pagesaver/internal/capture"
	"github.com/edgecomet/pagesaver/internal/common/htmlprocessor"
	"github.com/edgecomet/pagesaver/internal/common/urlutil"
	"github.com/edgecomet/pagesaver/internal/fetch"
	"github.com/edgecomet/pagesaver/pkg/types"
)

// AttrAdditional marks the auxiliary style element holding collected rules.
const AttrAdditional = "data-wcs-additional"

// overlayStyleID is never copied into a snapshot.
const overlayStyleID = "web-content-saver-styles"

type StylesheetReport struct {
	Links  int
	Styles int
	// Sheets is the number of accessible sheets whose rules went into the
	// auxiliary style element.
	Sheets int
}

// InlineStylesheets copies the live document's <link rel="stylesheet"> and
// <style> elements into the head of root, skipping ones already there, then
// appends one auxiliary <style> with the rule text of every accessible
// sheet. Link hrefs are made absolute and cross-origin links get the same
// crossorigin and referrerpolicy attributes as relinked images.
// Inaccessible sheets are skipped.
func (in *Inliner) InlineStylesheets(root *html.Node, live *capture.LiveDocument) StylesheetReport {
	var report StylesheetReport
	head := ensureHead(root)
	if head == nil || live == nil {
		return report
	}

	links := make(map[string]bool)
	styles := make(map[string]bool)
	for _, n := range htmlprocessor.Elements(root) {
		switch {
		case capture.IsStylesheetLink(n):
			href := absoluteHref(live.URL, n)
			htmlprocessor.SetAttr(n, "href", href)
			markCrossOrigin(n, live.URL, href)
			links[href] = true
		case n.DataAtom == atom.Style:
			styles[htmlprocessor.TextContent(n)] = true
		}
	}

	for _, n := range htmlprocessor.Elements(live.Root()) {
		switch {
		case capture.IsStylesheetLink(n):
			href := absoluteHref(live.URL, n)
			if href == "" || links[href] {
				continue
			}
			c := htmlprocessor.Clone(n)
			htmlprocessor.SetAttr(c, "href", href)
			markCrossOrigin(c, live.URL, href)
			head.AppendChild(c)
			links[href] = true
			report.Links++
		case n.DataAtom == atom.Style:
			text := htmlprocessor.TextContent(n)
			if htmlprocessor.GetAttr(n, "id") == overlayStyleID || styles[text] {
				continue
			}
			head.AppendChild(htmlprocessor.Clone(n))
			styles[text] = true
			report.Styles++
		}
	}

	var b strings.Builder
	for _, sheet := range live.StyleSheets {
		if !sheet.Accessible || len(sheet.Rules) == 0 || isOverlaySheet(sheet) {
			continue
		}
		source := sheet.Href
		if source == "" {
			source = "inline"
		}
		b.WriteString("/* From: " + source + " */\n")
		b.WriteString(strings.Join(sheet.Rules, "\n"))
		b.WriteString("\n")
		report.Sheets++
		in.record(types.ResourceStylesheet, types.EmbedEmbedded)
	}
	if b.Len() > 0 {
		aux := htmlprocessor.NewElement("style", html.Attribute{Key: AttrAdditional, Val: "true"})
		htmlprocessor.SetText(aux, b.String())
		head.AppendChild(aux)
	}

	in.logger.Debug("Stylesheets inlined",
		zap.String("page", live.URL),
		zap.Int("links", report.Links),
		zap.Int("styles", report.Styles),
		zap.Int("sheets", report.Sheets))
	return report
}

func markCrossOrigin(link *html.Node, pageURL, href string) {
	if href == "" || urlutil.IsSameOrigin(pageURL, href) {
		return
	}
	for k, v := range relinkAttributes {
		htmlprocessor.SetAttr(link, k, v)
	}
}

// CollectCSS concatenates the rules of every accessible sheet. An accessible
// linked sheet that exposed no rules is fetched as text instead.
func (in *Inliner) CollectCSS(ctx context.Context, live *capture.LiveDocument) string {
	if live == nil {
		return ""
	}
	var parts []string
	for _, sheet := range live.StyleSheets {
		if !sheet.Accessible || isOverlaySheet(sheet) {
			continue
		}
		if len(sheet.Rules) > 0 {
			parts = append(parts, strings.Join(sheet.Rules, "\n"))
			continue
		}
		if sheet.Href == "" {
			continue
		}
		resp, err := in.fetcher.Get(ctx, fetch.Request{
			URL:     sheet.Href,
			PageURL: live.URL,
			Mode:    fetch.ModeAnonymous,
			Accept:  "text/css,*/*;q=0.1",
		})
		if err != nil || !resp.Readable {
			in.logger.Debug("Could not load stylesheet text", zap.String("href", sheet.Href), zap.Error(err))
			continue
		}
		parts = append(parts, string(resp.Body))
	}
	return strings.Join(parts, "\n")
}

func isOverlaySheet(sheet capture.StyleSheet) bool {
	return sheet.Owner != nil && htmlprocessor.GetAttr(sheet.Owner, "id") == overlayStyleID
}

func absoluteHref(base string, link *html.Node) string {
	href := strings.TrimSpace(htmlprocessor.GetAttr(link, "href"))
	if href == "" {
		return ""
	}
	abs, err := urlutil.Resolve(base, href)
	if err != nil {
		return href
	}
	return abs
}

// ensureHead returns the <head> under root, creating one when root is an
// <html> element without it.
func ensureHead(root *html.Node) *html.Node {
	if head := htmlprocessor.FindElement(root, "head"); head != nil {
		return head
	}
	if root == nil || root.Type != html.ElementNode || root.DataAtom != atom.Html {
		return nil
	}
	head := htmlprocessor.NewElement("head")
	root.InsertBefore(head, root.FirstChild)
	return head
}
