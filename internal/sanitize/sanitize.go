// Package sanitize strips overlay markup and third-party widgets from a
// cloned subtree before it is serialized.
package sanitize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/edgecomet/pagesaver/internal/common/htmlprocessor"
	"github.com/edgecomet/pagesaver/pkg/pattern"
)

var ErrInvalidSelector = errors.New("invalid selector")

// internal overlay markup
const (
	internalPrefix = "wcs-"
	overlayStyleID = "web-content-saver-styles"
)

var markerClasses = []string{"wcs-hover", "wcs-selected", "wcs-selectable"}

var overlaySelectors = []string{
	"#" + overlayStyleID,
	".wcs-tooltip",
	".wcs-selection-badge",
}

// thirdPartySelectors are removed together with their subtrees.
var thirdPartySelectors = []string{
	"script",
	`[id*="drift"]`, `[class*="drift"]`,
	`[id*="intercom"]`, `[class*="intercom"]`,
	`[id*="zendesk"]`, `[class*="zendesk"]`,
	`[id*="tawk"]`, `[class*="tawk"]`,
	`[id*="crisp"]`, `[class*="crisp"]`,
	`[id*="hotjar"]`, `[class*="hotjar"]`,
	`[id*="gtag"]`, `[class*="gtag"]`,
	".fb-customerchat",
	"#fb-root",
}

// frameSourcePatterns match the src of iframes that get removed.
var frameSourcePatterns = []string{
	"*drift.com*",
	"*intercom.io*",
	"*zendesk.com*",
}

type Config struct {
	ExtraSelectors []string `yaml:"extra_selectors" json:"extra_selectors"`
	FrameSources   []string `yaml:"frame_sources" json:"frame_sources"`
}

func (c Config) Validate() error {
	for _, s := range c.ExtraSelectors {
		if _, err := cascadia.ParseGroup(s); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidSelector, s, err)
		}
	}
	for _, p := range c.FrameSources {
		if _, err := pattern.Compile(p); err != nil {
			return fmt.Errorf("frame source: %w", err)
		}
	}
	return nil
}

// Stats counts what a Sanitize call changed.
type Stats struct {
	ClassesStripped int
	Removed         int
}

type Sanitizer struct {
	overlay cascadia.SelectorGroup
	remove  cascadia.SelectorGroup
	frames  pattern.List
	logger  *zap.Logger
}

// New compiles the built-in denylist plus the configured extras.
func New(cfg Config, logger *zap.Logger) (*Sanitizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	overlay, err := cascadia.ParseGroup(strings.Join(overlaySelectors, ", "))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSelector, err)
	}

	selectors := append(append([]string{}, thirdPartySelectors...), cfg.ExtraSelectors...)
	remove, err := cascadia.ParseGroup(strings.Join(selectors, ", "))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSelector, err)
	}

	frames, err := pattern.CompileList(append(append([]string{}, frameSourcePatterns...), cfg.FrameSources...))
	if err != nil {
		return nil, err
	}

	return &Sanitizer{
		overlay: overlay,
		remove:  remove,
		frames:  frames,
		logger:  logger,
	}, nil
}

// MustNew is New with the default config. It panics only if the built-in
// selectors fail to compile.
func MustNew(logger *zap.Logger) *Sanitizer {
	s, err := New(Config{}, logger)
	if err != nil {
		panic(err)
	}
	return s
}

// Sanitize mutates root, which must be a clone. Marker classes are stripped
// from root and all descendants. Overlay nodes and denylisted elements are
// removed from the descendants. Root itself is never removed.
func (s *Sanitizer) Sanitize(root *html.Node) Stats {
	var stats Stats
	if root == nil {
		return stats
	}

	// overlay nodes are found by their classes, so they go first
	for _, n := range cascadia.QueryAll(root, s.overlay) {
		htmlprocessor.Detach(n)
		stats.Removed++
	}

	htmlprocessor.Walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && stripInternalClasses(n) {
			stats.ClassesStripped++
		}
		return true
	})

	for _, n := range cascadia.QueryAll(root, matcherFunc(s.matchThirdParty)) {
		// already gone with an ancestor
		if !htmlprocessor.IsAttached(root, n) {
			continue
		}
		htmlprocessor.Detach(n)
		stats.Removed++
	}

	if stats.Removed > 0 || stats.ClassesStripped > 0 {
		s.logger.Debug("Sanitized clone",
			zap.String("root", root.Data),
			zap.Int("classes_stripped", stats.ClassesStripped),
			zap.Int("removed", stats.Removed))
	}
	return stats
}

func (s *Sanitizer) matchThirdParty(n *html.Node) bool {
	if s.remove.Match(n) {
		return true
	}
	if n.Type == html.ElementNode && n.DataAtom == atom.Iframe {
		if src := htmlprocessor.GetAttr(n, "src"); src != "" && s.frames.MatchAny(src) != nil {
			return true
		}
	}
	return false
}

// stripInternalClasses removes the marker classes and anything else under
// the internal prefix.
func stripInternalClasses(n *html.Node) bool {
	var internal []string
	for _, c := range htmlprocessor.Classes(n) {
		if strings.HasPrefix(c, internalPrefix) {
			internal = append(internal, c)
		}
	}
	if len(internal) == 0 {
		return false
	}
	return htmlprocessor.RemoveClass(n, append(internal, markerClasses...)...)
}

type matcherFunc func(*html.Node) bool

func (f matcherFunc) Match(n *html.Node) bool { return f(n) }
