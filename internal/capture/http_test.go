package capture

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/fetch"
)

func zapNop() *zap.Logger { return zap.NewNop() }

func TestHTTPCapturer(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		if r.URL.Path == "/open.css" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		_, _ = fmt.Fprint(w, ".cdn { margin: 0; }")
	}))
	defer cdn.Close()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/local.css":
			w.Header().Set("Content-Type", "text/css")
			_, _ = fmt.Fprint(w, "body { background: white; } h1 { font-size: 2em; }")
		default:
			w.Header().Set("Content-Type", "text/html")
			_, _ = fmt.Fprintf(w, `<html><head><title>Report: Q1/Q2</title>
<link rel="stylesheet" href="/local.css">
<link rel="stylesheet" href="%s/closed.css">
<link rel="stylesheet" href="%s/open.css">
<style>p { color: red; }</style></head><body><p>x</p></body></html>`, cdn.URL, cdn.URL)
		}
	}))
	defer site.Close()

	c := NewHTTPCapturer(fetch.New(fetch.DefaultConfig(), nil, zapNop()), false, zapNop())
	live, err := c.Capture(context.Background(), site.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, "Report: Q1/Q2", live.Title())
	assert.Empty(t, live.Geometry)
	require.Len(t, live.StyleSheets, 4)

	local := live.StyleSheets[0]
	assert.True(t, local.Accessible)
	assert.Equal(t, site.URL+"/local.css", local.Href)
	assert.Len(t, local.Rules, 2)

	assert.False(t, live.StyleSheets[1].Accessible)
	assert.Empty(t, live.StyleSheets[1].Rules)
	assert.True(t, live.StyleSheets[2].Accessible)

	inline := live.StyleSheets[3]
	assert.Empty(t, inline.Href)
	assert.True(t, inline.Accessible)
	require.Len(t, inline.Rules, 1)
	assert.Contains(t, inline.Rules[0], "color: red")
	assert.Equal(t, "style", inline.Owner.Data)
}

func TestHTTPCapturer_Rejects(t *testing.T) {
	c := NewHTTPCapturer(fetch.New(fetch.DefaultConfig(), nil, zapNop()), true, zapNop())
	_, err := c.Capture(context.Background(), "http://127.0.0.1:1/")
	assert.ErrorIs(t, err, ErrURLRejected)

	c = NewHTTPCapturer(fetch.New(fetch.DefaultConfig(), nil, zapNop()), false, zapNop())
	_, err = c.Capture(context.Background(), "http://127.0.0.1:1/")
	assert.ErrorIs(t, err, ErrNavigateFailed)
}

func TestSplitRules(t *testing.T) {
	assert.Nil(t, splitRules("  "))
	rules := splitRules("a { color: blue; } @media print { a { color: black; } }")
	assert.Len(t, rules, 2)
}
