package capture

import (
	"context"
	"time"

	"golang.org/x/net/html"

	"github.com/edgecomet/pagesaver/internal/common/htmlprocessor"
)

// Capturer loads a page and returns its rendered state.
type Capturer interface {
	Capture(ctx context.Context, pageURL string) (*LiveDocument, error)
}

// Rect is an element's border box in page coordinates (CSS px).
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

func (r Rect) Right() float64 {
	return r.X + r.Width
}

func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// StyleSheet mirrors one entry of document.styleSheets.
type StyleSheet struct {
	// Href is empty for inline <style> sheets.
	Href string
	// Owner is the <link> or <style> element in the live tree, when known.
	Owner *html.Node
	// Accessible is false when the rules could not be read (cross-origin).
	Accessible bool
	// Rules holds the cssText of each top-level rule.
	Rules []string
}

// LiveDocument is the rendered page the selection tracker works on and the
// assembler clones from.
type LiveDocument struct {
	URL         string
	Doc         *htmlprocessor.Document
	StyleSheets []StyleSheet
	Geometry    map[*html.Node]Rect
	CapturedAt  time.Time
}

func (l *LiveDocument) Root() *html.Node {
	return l.Doc.Root()
}

func (l *LiveDocument) Title() string {
	return l.Doc.Title()
}

// Rect returns the captured box of n.
func (l *LiveDocument) Rect(n *html.Node) (Rect, bool) {
	r, ok := l.Geometry[n]
	return r, ok
}

// ElementAt returns the deepest element whose box contains (x, y), ties
// going to the later element in document order. Every element with captured
// geometry is considered, so children painted outside their parent's box
// (floats in a collapsed container, absolute positioning) are still hit.
// Returns nil when nothing below <html> contains the point.
func (l *LiveDocument) ElementAt(x, y float64) *html.Node {
	docEl := l.Doc.DocumentElement()
	if docEl == nil {
		return nil
	}

	var hit *html.Node
	hitDepth := 0
	var visit func(n *html.Node, depth int)
	visit = func(n *html.Node, depth int) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if r, ok := l.Geometry[c]; ok && !r.Empty() && r.Contains(x, y) && depth >= hitDepth {
				hit, hitDepth = c, depth
			}
			visit(c, depth+1)
		}
	}
	visit(docEl, 1)
	return hit
}
