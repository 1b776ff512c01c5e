package htmlprocessor

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const sampleHTML = `<html><head><title>  Quarterly Report </title></head>
<body><div id="a" class="card wide"><p id="p1">one</p><p id="p2">two</p></div><section id="b"><span id="s">x</span></section></body></html>`

func byID(t *testing.T, d *Document, id string) *html.Node {
	t.Helper()
	var found *html.Node
	Walk(d.Root(), func(n *html.Node) bool {
		if n.Type == html.ElementNode && GetAttr(n, "id") == id {
			found = n
		}
		return found == nil
	})
	require.NotNil(t, found, id)
	return found
}

func TestDocument_Basics(t *testing.T) {
	d, err := ParseString(sampleHTML)
	require.NoError(t, err)

	assert.Equal(t, "Quarterly Report", d.Title())
	assert.NotNil(t, d.Head())
	assert.NotNil(t, d.Body())
	assert.Equal(t, "html", d.DocumentElement().Data)
	assert.Len(t, FindAll(d.Root(), "p"), 2)
	assert.True(t, strings.Contains(d.HTML(), `<section id="b">`))
}

func TestDocument_TitleTruncated(t *testing.T) {
	d, err := ParseString("<title>" + strings.Repeat("é", 250) + "</title>")
	require.NoError(t, err)
	assert.Len(t, []rune(d.Title()), maxTitleLength)
}

func TestClassHelpers(t *testing.T) {
	d, err := ParseString(sampleHTML)
	require.NoError(t, err)
	div := byID(t, d, "a")

	assert.Equal(t, []string{"card", "wide"}, Classes(div))
	AddClass(div, "wcs-hover")
	AddClass(div, "wcs-hover")
	assert.Equal(t, "card wide wcs-hover", GetAttr(div, "class"))

	assert.True(t, RemoveClass(div, "wcs-hover", "missing"))
	assert.False(t, RemoveClass(div, "missing"))
	assert.Equal(t, "card wide", GetAttr(div, "class"))

	RemoveClass(div, "card", "wide")
	_, ok := LookupAttr(div, "class")
	assert.False(t, ok)
}

func TestAttrHelpers(t *testing.T) {
	n := NewElement("img")
	SetAttr(n, "src", "a.png")
	SetAttr(n, "SRC", "b.png")
	assert.Equal(t, "b.png", GetAttr(n, "src"))
	assert.Len(t, n.Attr, 1)
	RemoveAttr(n, "src")
	assert.Empty(t, n.Attr)
}

func TestClone_IsDeepAndDetached(t *testing.T) {
	d, err := ParseString(sampleHTML)
	require.NoError(t, err)
	div := byID(t, d, "a")

	c, m := CloneWithMap(div)
	assert.Nil(t, c.Parent)
	assert.Equal(t, Render(div), Render(c))

	SetAttr(c, "id", "changed")
	assert.Equal(t, "a", GetAttr(div, "id"))
	assert.Equal(t, c, m[div])
	assert.Equal(t, "one", TextContent(m[byID(t, d, "p1")]))
}

func TestCompareDocumentPosition(t *testing.T) {
	d, err := ParseString(sampleHTML)
	require.NoError(t, err)
	nodes := []*html.Node{byID(t, d, "s"), byID(t, d, "p2"), byID(t, d, "b"), byID(t, d, "a"), byID(t, d, "p1")}

	sort.Slice(nodes, func(i, j int) bool { return CompareDocumentPosition(nodes[i], nodes[j]) < 0 })

	var ids []string
	for _, n := range nodes {
		ids = append(ids, GetAttr(n, "id"))
	}
	assert.Equal(t, []string{"a", "p1", "p2", "b", "s"}, ids)
	assert.Zero(t, CompareDocumentPosition(nodes[0], nodes[0]))
}

func TestIsAttachedAndDetach(t *testing.T) {
	d, err := ParseString(sampleHTML)
	require.NoError(t, err)
	p := byID(t, d, "p1")

	assert.True(t, IsAttached(d.Root(), p))
	Detach(p)
	assert.False(t, IsAttached(d.Root(), p))
}

func TestReplaceWithAndText(t *testing.T) {
	d, err := ParseString(sampleHTML)
	require.NoError(t, err)
	p := byID(t, d, "p1")

	repl := NewElement("div")
	SetText(repl, "replacement")
	ReplaceWith(p, repl)

	assert.Contains(t, Render(byID(t, d, "a")), "<div>replacement</div>")
	assert.Nil(t, p.Parent)
}

func TestParseFragment(t *testing.T) {
	nodes, err := ParseFragment(`<svg width="10"></svg><div>x</div>`)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "svg", nodes[0].Data)
	assert.Equal(t, "div", nodes[1].Data)
}
