package capture

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/edgecomet/pagesaver/internal/common/htmlprocessor"
)

const (
	// NodeIDAttr tags each element during capture so geometry can be joined
	// back onto the parsed tree. It never survives into a LiveDocument.
	NodeIDAttr = "data-wcs-node"
	// SizeAttr carries the rendered WxH of images into clones.
	SizeAttr = "data-wcs-size"
)

// annotateScript tags every element, records page-coordinate boxes and
// reads document.styleSheets. Cross-origin sheets throw on cssRules.
const annotateScript = `(() => {
  const out = {url: location.href, rects: {}, sheets: []};
  let i = 0;
  for (const el of document.querySelectorAll('*')) {
    const id = String(i++);
    el.setAttribute('` + NodeIDAttr + `', id);
    const r = el.getBoundingClientRect();
    out.rects[id] = {x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height};
    if (el.tagName === 'IMG') {
      el.setAttribute('` + SizeAttr + `', Math.round(r.width) + 'x' + Math.round(r.height));
    }
  }
  for (const sheet of Array.from(document.styleSheets)) {
    const owner = sheet.ownerNode && sheet.ownerNode.getAttribute ? sheet.ownerNode.getAttribute('` + NodeIDAttr + `') : null;
    const s = {href: sheet.href || '', owner: owner || '', accessible: true, rules: []};
    try {
      for (const rule of Array.from(sheet.cssRules)) s.rules.push(rule.cssText);
    } catch (e) {
      s.accessible = false;
    }
    out.sheets.push(s);
  }
  return out;
})()`

// Annotations is what annotateScript returns.
type Annotations struct {
	URL    string          `json:"url"`
	Rects  map[string]Rect `json:"rects"`
	Sheets []SheetInfo     `json:"sheets"`
}

type SheetInfo struct {
	Href       string   `json:"href"`
	Owner      string   `json:"owner"`
	Accessible bool     `json:"accessible"`
	Rules      []string `json:"rules"`
}

// Build parses annotated markup and joins geometry and stylesheets onto the
// resulting tree. The node id attribute is stripped from every element.
func Build(markup string, ann Annotations) (*LiveDocument, error) {
	doc, err := htmlprocessor.ParseString(markup)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractHTML, err)
	}

	byID := make(map[string]*html.Node)
	geometry := make(map[*html.Node]Rect)
	htmlprocessor.Walk(doc.Root(), func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		id, ok := htmlprocessor.LookupAttr(n, NodeIDAttr)
		if !ok {
			return true
		}
		htmlprocessor.RemoveAttr(n, NodeIDAttr)
		byID[id] = n
		if r, ok := ann.Rects[id]; ok {
			geometry[n] = r
		}
		return true
	})

	sheets := make([]StyleSheet, 0, len(ann.Sheets))
	for _, s := range ann.Sheets {
		sheets = append(sheets, StyleSheet{
			Href:       s.Href,
			Owner:      byID[s.Owner],
			Accessible: s.Accessible,
			Rules:      s.Rules,
		})
	}

	return &LiveDocument{
		URL:         ann.URL,
		Doc:         doc,
		StyleSheets: sheets,
		Geometry:    geometry,
		CapturedAt:  time.Now().UTC(),
	}, nil
}

// IsStylesheetLink reports whether n is <link rel="stylesheet">.
func IsStylesheetLink(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Data != "link" {
		return false
	}
	for _, rel := range strings.Fields(strings.ToLower(htmlprocessor.GetAttr(n, "rel"))) {
		if rel == "stylesheet" {
			return true
		}
	}
	return false
}
