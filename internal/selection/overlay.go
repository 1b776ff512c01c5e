package selection

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/edgecomet/pagesaver/internal/capture"
	"github.com/edgecomet/pagesaver/internal/common/htmlprocessor"
)

// Marker classes and ids the overlay puts into the live tree. The sanitizer
// strips all of them from clones.
const (
	ClassHover      = "wcs-hover"
	ClassSelected   = "wcs-selected"
	ClassSelectable = "wcs-selectable"
	ClassTooltip    = "wcs-tooltip"
	ClassBadge      = "wcs-selection-badge"
	StyleID         = "web-content-saver-styles"
	InternalPrefix  = "wcs-"
)

const overlayCSS = `
.wcs-selectable { cursor: pointer !important; }
.wcs-hover { outline: 2px dashed #2196F3 !important; outline-offset: 2px !important; background-color: rgba(33, 150, 243, 0.1) !important; }
.wcs-selected { outline: 3px solid #4CAF50 !important; outline-offset: 2px !important; background-color: rgba(76, 175, 80, 0.15) !important; }
.wcs-tooltip { position: fixed !important; background: rgba(0, 0, 0, 0.8) !important; color: white !important; padding: 5px 10px !important; border-radius: 4px !important; font-size: 12px !important; z-index: 10001 !important; pointer-events: none !important; }
`

const badgeStyle = "position: fixed !important; background: #4CAF50 !important; color: white !important; " +
	"padding: 2px 6px !important; font-size: 10px !important; font-weight: bold !important; " +
	"border-radius: 2px !important; z-index: 10000 !important; pointer-events: none !important;"

// Tooltip offset relative to the pointer.
const (
	tooltipOffsetX = 10
	tooltipOffsetY = -30
	badgeInset     = 20
)

type VisualState int

const (
	Hover VisualState = iota
	Selected
	Selectable
)

func (s VisualState) Class() string {
	switch s {
	case Selected:
		return ClassSelected
	case Selectable:
		return ClassSelectable
	default:
		return ClassHover
	}
}

// Overlay renders tracker state onto the page. It never decides membership.
type Overlay interface {
	Install()
	Uninstall()
	ApplyVisualState(n *html.Node, s VisualState)
	RemoveVisualState(n *html.Node, s VisualState)
	ShowTooltip(label string, x, y float64)
	HideTooltip()
}

// Geometry resolves an element's box.
type Geometry interface {
	Rect(n *html.Node) (capture.Rect, bool)
}

// DOMOverlay writes classes, the tooltip, badges and the overlay stylesheet
// straight into the captured tree.
type DOMOverlay struct {
	doc     *htmlprocessor.Document
	geom    Geometry
	style   *html.Node
	tooltip *html.Node
	badges  map[*html.Node]*html.Node
}

func NewDOMOverlay(doc *htmlprocessor.Document, geom Geometry) *DOMOverlay {
	return &DOMOverlay{
		doc:    doc,
		geom:   geom,
		badges: make(map[*html.Node]*html.Node),
	}
}

func (o *DOMOverlay) Install() {
	if o.style != nil {
		return
	}
	head := o.doc.Head()
	if head == nil {
		return
	}
	o.style = htmlprocessor.NewElement("style", html.Attribute{Key: "id", Val: StyleID})
	htmlprocessor.SetText(o.style, overlayCSS)
	head.AppendChild(o.style)
}

// Uninstall removes the stylesheet, the tooltip, every badge and every
// marker class.
func (o *DOMOverlay) Uninstall() {
	htmlprocessor.Detach(o.style)
	o.style = nil
	o.HideTooltip()
	for el, badge := range o.badges {
		htmlprocessor.Detach(badge)
		delete(o.badges, el)
	}
	for _, el := range htmlprocessor.Elements(o.doc.Root()) {
		htmlprocessor.RemoveClass(el, ClassHover, ClassSelected, ClassSelectable)
	}
}

// Installed reports whether the overlay stylesheet is in the tree.
func (o *DOMOverlay) Installed() bool {
	return o.style != nil
}

func (o *DOMOverlay) ApplyVisualState(n *html.Node, s VisualState) {
	htmlprocessor.AddClass(n, s.Class())
	if s == Selected {
		o.addBadge(n)
	}
}

func (o *DOMOverlay) RemoveVisualState(n *html.Node, s VisualState) {
	htmlprocessor.RemoveClass(n, s.Class())
	if s == Selected {
		o.removeBadge(n)
	}
}

func (o *DOMOverlay) ShowTooltip(label string, x, y float64) {
	o.HideTooltip()
	body := o.doc.Body()
	if body == nil {
		return
	}
	o.tooltip = htmlprocessor.NewElement("div",
		html.Attribute{Key: "class", Val: ClassTooltip},
		html.Attribute{Key: "style", Val: fmt.Sprintf("left: %gpx; top: %gpx;", x+tooltipOffsetX, y+tooltipOffsetY)},
	)
	htmlprocessor.SetText(o.tooltip, label)
	body.AppendChild(o.tooltip)
}

func (o *DOMOverlay) HideTooltip() {
	htmlprocessor.Detach(o.tooltip)
	o.tooltip = nil
}

// Tooltip returns the current tooltip node, or nil.
func (o *DOMOverlay) Tooltip() *html.Node {
	return o.tooltip
}

// Badge returns the badge attached for n, or nil.
func (o *DOMOverlay) Badge(n *html.Node) *html.Node {
	return o.badges[n]
}

func (o *DOMOverlay) addBadge(n *html.Node) {
	o.removeBadge(n)
	body := o.doc.Body()
	if body == nil {
		return
	}
	style := badgeStyle
	if r, ok := o.geom.Rect(n); ok {
		style += fmt.Sprintf(" left: %gpx; top: %gpx;", r.Right()-badgeInset, r.Y)
	}
	badge := htmlprocessor.NewElement("div",
		html.Attribute{Key: "class", Val: ClassBadge},
		html.Attribute{Key: "style", Val: style},
	)
	htmlprocessor.SetText(badge, "✓")
	body.AppendChild(badge)
	o.badges[n] = badge
}

func (o *DOMOverlay) removeBadge(n *html.Node) {
	if badge, ok := o.badges[n]; ok {
		htmlprocessor.Detach(badge)
		delete(o.badges, n)
	}
}

// Label renders the tooltip text for n: tag, #id and the non-internal
// classes joined with dots.
func Label(n *html.Node) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(n.Data))
	if id := htmlprocessor.GetAttr(n, "id"); id != "" {
		b.WriteString("#")
		b.WriteString(id)
	}
	for _, c := range htmlprocessor.Classes(n) {
		if strings.HasPrefix(c, InternalPrefix) {
			continue
		}
		b.WriteString(".")
		b.WriteString(c)
	}
	return b.String()
}
