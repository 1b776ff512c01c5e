package htmlprocessor

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const maxTitleLength = 200

// Doctype is prepended to every serialized snapshot.
const Doctype = "<!DOCTYPE html>"

// Document wraps a parsed HTML tree rooted at a DocumentNode.
type Document struct {
	root *html.Node
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

// ParseString is Parse for in-memory markup.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// NewDocument wraps an existing tree. root may be the DocumentNode or the <html> element.
func NewDocument(root *html.Node) *Document {
	return &Document{root: root}
}

// Root returns the DocumentNode (or whatever node the document was built from).
func (d *Document) Root() *html.Node {
	return d.root
}

// DocumentElement returns the <html> element.
func (d *Document) DocumentElement() *html.Node {
	if d.root.Type == html.ElementNode && d.root.DataAtom == atom.Html {
		return d.root
	}
	return FindElement(d.root, "html")
}

func (d *Document) Head() *html.Node {
	return FindElement(d.root, "head")
}

func (d *Document) Body() *html.Node {
	return FindElement(d.root, "body")
}

// Title returns the trimmed <title> text, capped at 200 runes.
func (d *Document) Title() string {
	head := d.Head()
	if head == nil {
		return ""
	}
	title := FindElement(head, "title")
	if title == nil {
		return ""
	}

	text := strings.TrimSpace(TextContent(title))
	runes := []rune(text)
	if len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength])
	}
	return text
}

// HTML serializes the document without a doctype node duplication check.
func (d *Document) HTML() string {
	return Render(d.root)
}

// Render serializes n and its descendants. Render errors only come from the
// writer, which is a bytes.Buffer here.
func Render(n *html.Node) string {
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}

// RenderChildren serializes the children of n without n itself.
func RenderChildren(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// ParseFragment parses markup in the context of a <body> element and returns
// the resulting nodes, detached.
func ParseFragment(markup string) ([]*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return html.ParseFragment(strings.NewReader(markup), context)
}
