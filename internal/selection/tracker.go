package selection

import (
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/edgecomet/pagesaver/internal/common/htmlprocessor"
)

type State int

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "inactive"
}

// Document is the part of the live page the tracker needs.
type Document interface {
	Root() *html.Node
	ElementAt(x, y float64) *html.Node
}

// structural elements get the selectable cursor on Enable
var structuralTags = map[atom.Atom]bool{
	atom.Div:     true,
	atom.Section: true,
	atom.Article: true,
	atom.Main:    true,
	atom.Aside:   true,
	atom.Header:  true,
	atom.Footer:  true,
	atom.Nav:     true,
}

// Tracker is the selection-mode state machine for one live document.
type Tracker struct {
	mu      sync.Mutex
	doc     Document
	overlay Overlay
	events  EventSource
	logger  *zap.Logger

	state       State
	unsubscribe func()
	hovered     *html.Node
	selected    map[*html.Node]struct{}
	selectable  []*html.Node
}

func NewTracker(doc Document, overlay Overlay, events EventSource, logger *zap.Logger) *Tracker {
	return &Tracker{
		doc:      doc,
		overlay:  overlay,
		events:   events,
		logger:   logger,
		selected: make(map[*html.Node]struct{}),
	}
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) Active() bool {
	return t.State() == Active
}

// Enable switches to Active. Any prior selection is dropped.
func (t *Tracker) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearLocked()
	t.overlay.Install()

	if t.state == Active {
		t.logger.Debug("Selection mode already active, selection reset")
		return
	}
	t.state = Active
	if t.events != nil {
		t.unsubscribe = t.events.Subscribe(t.handle)
	}

	t.selectable = t.selectable[:0]
	htmlprocessor.Walk(t.doc.Root(), func(n *html.Node) bool {
		if n.Type == html.ElementNode && structuralTags[n.DataAtom] {
			t.overlay.ApplyVisualState(n, Selectable)
			t.selectable = append(t.selectable, n)
		}
		return true
	})

	t.logger.Info("Selection mode enabled", zap.Int("selectable", len(t.selectable)))
}

// Disable switches to Inactive. The selection survives.
func (t *Tracker) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Inactive {
		return
	}
	t.state = Inactive
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}

	t.overlay.HideTooltip()
	if t.hovered != nil {
		t.overlay.RemoveVisualState(t.hovered, Hover)
		t.hovered = nil
	}
	for _, n := range t.selectable {
		t.overlay.RemoveVisualState(n, Selectable)
	}
	t.selectable = nil
	if len(t.selected) == 0 {
		t.overlay.Uninstall()
	}

	t.logger.Info("Selection mode disabled", zap.Int("selected", len(t.selected)))
}

// Clear empties the selection in either state.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearLocked()
	if t.state == Inactive {
		t.overlay.Uninstall()
	}
	t.logger.Debug("Selection cleared")
}

func (t *Tracker) clearLocked() {
	for n := range t.selected {
		t.overlay.RemoveVisualState(n, Selected)
		delete(t.selected, n)
	}
}

// OnPointerMove moves the hover marker to the element under (x, y).
func (t *Tracker) OnPointerMove(x, y float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Active {
		return
	}
	el := t.doc.ElementAt(x, y)
	if t.hovered != nil && t.hovered != el {
		t.overlay.RemoveVisualState(t.hovered, Hover)
		t.hovered = nil
	}
	if el == nil || !selectable(el) {
		return
	}
	t.overlay.ApplyVisualState(el, Hover)
	t.hovered = el
	t.overlay.ShowTooltip(Label(el), x, y)
}

// OnClick toggles the element under (x, y). The result reports whether the
// page's default action is suppressed, which is always the case while Active.
func (t *Tracker) OnClick(x, y float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Active {
		return false
	}
	if el := t.doc.ElementAt(x, y); el != nil && selectable(el) {
		t.toggleLocked(el)
	}
	return true
}

// ClickElement toggles n as if it had been clicked. Reports false when the
// tracker is not Active or n cannot be selected.
func (t *Tracker) ClickElement(n *html.Node) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Active || n == nil || !selectable(n) {
		return false
	}
	t.toggleLocked(n)
	return true
}

func (t *Tracker) toggleLocked(n *html.Node) {
	if _, ok := t.selected[n]; ok {
		delete(t.selected, n)
		t.overlay.RemoveVisualState(n, Selected)
	} else {
		t.selected[n] = struct{}{}
		t.overlay.ApplyVisualState(n, Selected)
	}
	t.logger.Debug("Selection toggled",
		zap.String("element", Label(n)),
		zap.Int("selected", len(t.selected)))
}

// IsSelected reports membership of n.
func (t *Tracker) IsSelected(n *html.Node) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.selected[n]
	return ok
}

// Len counts members, attached or not.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.selected)
}

// Selected returns the members still attached to the document, in document
// order. Detached members are skipped.
func (t *Tracker) Selected() []*html.Node {
	t.mu.Lock()
	defer t.mu.Unlock()

	root := t.doc.Root()
	out := make([]*html.Node, 0, len(t.selected))
	for n := range t.selected {
		if !htmlprocessor.IsAttached(root, n) {
			t.logger.Debug("Skipping detached selection", zap.String("element", Label(n)))
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return htmlprocessor.CompareDocumentPosition(out[i], out[j]) < 0
	})
	return out
}

func (t *Tracker) handle(ev Event) bool {
	switch ev.Kind {
	case PointerMove:
		t.OnPointerMove(ev.X, ev.Y)
		return false
	case Click:
		return t.OnClick(ev.X, ev.Y)
	}
	return false
}

// html and body are never selectable.
func selectable(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom != atom.Html && n.DataAtom != atom.Body
}
