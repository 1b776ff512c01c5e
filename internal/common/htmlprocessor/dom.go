package htmlprocessor

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FindElement returns the first element named tag in n's subtree, n included.
func FindElement(n *html.Node, tag string) *html.Node {
	if n == nil {
		return nil
	}
	tag = strings.ToLower(tag)
	var found *html.Node
	Walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if c.Type == html.ElementNode && strings.ToLower(c.Data) == tag {
			found = c
			return false
		}
		return true
	})
	return found
}

// FindAll returns every element named tag in n's subtree in document order.
func FindAll(n *html.Node, tag string) []*html.Node {
	tag = strings.ToLower(tag)
	var out []*html.Node
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && strings.ToLower(c.Data) == tag {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Elements returns every element node in n's subtree in document order.
func Elements(n *html.Node) []*html.Node {
	var out []*html.Node
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the current node.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		Walk(c, fn)
		c = next
	}
}

// GetAttr returns the value of attribute name, or "" when absent.
func GetAttr(n *html.Node, name string) string {
	v, _ := LookupAttr(n, name)
	return v
}

// LookupAttr is GetAttr with a presence flag.
func LookupAttr(n *html.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr replaces or appends attribute name.
func SetAttr(n *html.Node, name, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: val})
}

// RemoveAttr drops attribute name if present.
func RemoveAttr(n *html.Node, name string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// Classes splits the class attribute.
func Classes(n *html.Node) []string {
	return strings.Fields(GetAttr(n, "class"))
}

func HasClass(n *html.Node, class string) bool {
	for _, c := range Classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends class unless already present.
func AddClass(n *html.Node, class string) {
	if HasClass(n, class) {
		return
	}
	classes := append(Classes(n), class)
	SetAttr(n, "class", strings.Join(classes, " "))
}

// RemoveClass drops every class in names. An emptied class attribute is removed.
// Reports whether anything changed.
func RemoveClass(n *html.Node, names ...string) bool {
	classes := Classes(n)
	if len(classes) == 0 {
		return false
	}
	kept := classes[:0]
	for _, c := range classes {
		drop := false
		for _, name := range names {
			if c == name {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, c)
		}
	}
	changed := len(kept) != len(Classes(n))
	if len(kept) == 0 {
		RemoveAttr(n, "class")
	} else if changed {
		SetAttr(n, "class", strings.Join(kept, " "))
	}
	return changed
}

// TextContent concatenates all descendant text nodes.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

// Clone deep-copies n. The copy is detached from any parent.
func Clone(n *html.Node) *html.Node {
	c, _ := CloneWithMap(n)
	return c
}

// CloneWithMap deep-copies n and returns a map from each original node to its copy.
func CloneWithMap(n *html.Node) (*html.Node, map[*html.Node]*html.Node) {
	m := make(map[*html.Node]*html.Node)
	return cloneInto(n, m), m
}

func cloneInto(n *html.Node, m map[*html.Node]*html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	m[n] = c
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneInto(child, m))
	}
	return c
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// IsAttached reports whether n is root or a descendant of root.
func IsAttached(root, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

// Path returns the child-index path from the topmost ancestor to n.
func Path(n *html.Node) []int {
	var path []int
	for p := n; p.Parent != nil; p = p.Parent {
		idx := 0
		for s := p.Parent.FirstChild; s != p; s = s.NextSibling {
			idx++
		}
		path = append(path, idx)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// CompareDocumentPosition orders a and b by pre-order position in their
// shared tree: negative when a precedes b, zero when equal.
func CompareDocumentPosition(a, b *html.Node) int {
	if a == b {
		return 0
	}
	pa, pb := Path(a), Path(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			return pa[i] - pb[i]
		}
	}
	// an ancestor precedes its descendants
	return len(pa) - len(pb)
}

// NewElement creates a detached element.
func NewElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// NewText creates a detached text node.
func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// SetText replaces all children of n with a single text node.
func SetText(n *html.Node, s string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(NewText(s))
}

// ReplaceWith puts repl where n was. n ends up detached.
func ReplaceWith(n, repl *html.Node) {
	if n.Parent == nil {
		return
	}
	n.Parent.InsertBefore(repl, n)
	n.Parent.RemoveChild(n)
}
