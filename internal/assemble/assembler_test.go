package assemble

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/edgecomet/pagesaver/internal/capture"
	"github.com/edgecomet/pagesaver/internal/common/htmlprocessor"
	"github.com/edgecomet/pagesaver/internal/fetch"
	"github.com/edgecomet/pagesaver/internal/inline"
	"github.com/edgecomet/pagesaver/internal/sanitize"
	"github.com/edgecomet/pagesaver/internal/selection"
	"github.com/edgecomet/pagesaver/pkg/types"
)

func onePixelPNG(t *testing.T) []byte {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")
	require.NoError(t, err)
	return b
}

const pageMarkup = `<html><head><title>%TITLE%</title><style>.card { border: 1px solid #333; }</style></head>
<body>
<div id="intro" class="card"><h1>Intro</h1><img src="/img/photo.png" width="120" height="90"></div>
<div id="body"><p id="p1">first</p><p id="p2" class="note">second</p></div>
<script>tracker()</script>
<div id="intercom-container">chat</div>
</body></html>`

func newOrigin(t *testing.T) *httptest.Server {
	t.Helper()
	png := onePixelPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/img/photo.png" {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(png)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newLive(t *testing.T, pageURL, title string) *capture.LiveDocument {
	t.Helper()
	doc, err := htmlprocessor.ParseString(strings.Replace(pageMarkup, "%TITLE%", title, 1))
	require.NoError(t, err)
	style := htmlprocessor.FindElement(doc.Root(), "style")
	return &capture.LiveDocument{
		URL: pageURL,
		Doc: doc,
		StyleSheets: []capture.StyleSheet{
			{Owner: style, Accessible: true, Rules: []string{".card { border: 1px solid #333; }"}},
		},
		Geometry:   map[*html.Node]capture.Rect{},
		CapturedAt: time.Now(),
	}
}

func newAssembler() *Assembler {
	cfg := inline.DefaultConfig()
	cfg.BatchPause = time.Millisecond
	cfg.ProbeTimeout = time.Second
	cfg.RedrawTimeout = time.Second
	in := inline.New(cfg, fetch.New(fetch.DefaultConfig(), nil, zap.NewNop()), zap.NewNop())
	return New(in, sanitize.MustNew(zap.NewNop()), zap.NewNop())
}

func byID(t *testing.T, live *capture.LiveDocument, id string) *html.Node {
	t.Helper()
	for _, n := range htmlprocessor.Elements(live.Root()) {
		if htmlprocessor.GetAttr(n, "id") == id {
			return n
		}
	}
	t.Fatalf("no element %q", id)
	return nil
}

func TestAssembleFull(t *testing.T) {
	srv := newOrigin(t)
	live := newLive(t, srv.URL+"/news", "Report: Q1/Q2")
	before := live.Doc.HTML()

	doc, err := newAssembler().AssembleFull(context.Background(), live)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc.HTML, "<!DOCTYPE html>\n<html>"))
	assert.Contains(t, doc.HTML, "data:image/")
	assert.Contains(t, doc.HTML, ".card { border: 1px solid #333; }")
	assert.Contains(t, doc.HTML, `data-wcs-additional="true"`)
	assert.Contains(t, doc.HTML, "img { max-width: 100%; height: auto; }")
	assert.NotContains(t, doc.HTML, "<script")
	assert.NotContains(t, doc.HTML, "intercom")
	assert.Equal(t, "Report_Q1Q2_full.html", doc.SuggestedFilename)
	assert.Equal(t, types.ModeFull, doc.Mode)
	assert.Equal(t, srv.URL+"/news", doc.SourceURL)

	// the live page is never touched
	assert.Equal(t, before, live.Doc.HTML())
}

func TestAssembleSelection_EmptySelection(t *testing.T) {
	live := newLive(t, "https://example.com/", "Empty")
	tracker := selection.NewTracker(live, selection.NewDOMOverlay(live.Doc, live), nil, zap.NewNop())

	doc, err := newAssembler().AssembleSelection(context.Background(), live, tracker)
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Nil(t, doc)

	tracker.Enable()
	_, err = newAssembler().AssembleSelection(context.Background(), live, tracker)
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestAssembleSelection(t *testing.T) {
	srv := newOrigin(t)
	live := newLive(t, srv.URL+"/docs", "Guide")
	overlay := selection.NewDOMOverlay(live.Doc, live)
	tracker := selection.NewTracker(live, overlay, nil, zap.NewNop())
	tracker.Enable()

	// clicked in reverse document order
	require.True(t, tracker.ClickElement(byID(t, live, "p2")))
	require.True(t, tracker.ClickElement(byID(t, live, "intro")))
	require.True(t, tracker.ClickElement(byID(t, live, "p1")))
	// detached before saving
	htmlprocessor.Detach(byID(t, live, "p1"))

	a := newAssembler()
	a.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }
	doc, err := a.AssembleSelection(context.Background(), live, tracker)
	require.NoError(t, err)

	out := doc.HTML
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>\n<html>"))
	assert.Contains(t, out, "<title>Selected Content - Guide</title>")
	assert.Contains(t, out, "<strong>Source:</strong> "+srv.URL+"/docs<br>")
	assert.Contains(t, out, "<strong>Saved at:</strong> 2026-03-14 09:26:53 UTC<br>")
	assert.Contains(t, out, "<strong>Selected elements:</strong> 2")
	assert.Contains(t, out, ".card { border: 1px solid #333; }")
	assert.Contains(t, out, "position: relative !important;")
	assert.Contains(t, out, ".selected-content-item .sr-only")

	intro := strings.Index(out, `<div class="selected-content-item"><div id="intro" class="card">`)
	second := strings.Index(out, `<div class="selected-content-item"><p id="p2" class="note">second</p></div>`)
	require.NotEqual(t, -1, intro)
	require.NotEqual(t, -1, second)
	assert.Less(t, intro, second)
	assert.NotContains(t, out, "first")

	assert.Contains(t, out, "data:image/")
	assert.NotContains(t, out, "wcs-selected")
	assert.NotContains(t, out, "wcs-selection-badge")
	assert.NotContains(t, out, "✓")

	assert.Equal(t, "Guide_selection.html", doc.SuggestedFilename)
	assert.Equal(t, types.ModeSelection, doc.Mode)

	// selection markers stay on the live page
	assert.True(t, htmlprocessor.HasClass(byID(t, live, "intro"), selection.ClassSelected))
}

func TestShell_EscapesStyleClose(t *testing.T) {
	s := shell{Title: "<x>", SourceURL: "https://a.test/?q=<b>", CSS: "p{}</style><script>alert(1)</script>"}
	out := s.render()
	assert.Contains(t, out, "Selected Content - &lt;x&gt;")
	assert.Contains(t, out, "https://a.test/?q=&lt;b&gt;")
	assert.NotContains(t, out, "</style><script>")
}

func TestAssemble_NoDocument(t *testing.T) {
	_, err := newAssembler().AssembleFull(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDocument)
}
