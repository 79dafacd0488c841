// Package dom holds the document-tree helpers shared by the binding packages.
// Trees are golang.org/x/net/html nodes; templates are cloned, never mutated.
package dom

import (
	"bytes"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Clone returns a detached deep copy of n.
func Clone(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	out := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		out.Attr = append([]html.Attribute(nil), n.Attr...)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		out.AppendChild(Clone(child))
	}
	return out
}

// Attr returns the value of key on n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether key is present on n.
func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// SetAttr sets or replaces key on n.
func SetAttr(n *html.Node, key, value string) {
	if n == nil {
		return
	}
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

// RemoveAttr drops key from n.
func RemoveAttr(n *html.Node, key string) {
	if n == nil {
		return
	}
	kept := n.Attr[:0]
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			continue
		}
		kept = append(kept, attr)
	}
	n.Attr = kept
}

// IsElement reports element nodes.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// ElementChildren returns the direct element children of n.
func ElementChildren(n *html.Node) []*html.Node {
	if n == nil {
		return nil
	}
	var out []*html.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			out = append(out, child)
		}
	}
	return out
}

// Clear removes every child of n.
func Clear(n *html.Node) {
	if n == nil {
		return
	}
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		n.RemoveChild(child)
		child = next
	}
}

// Append attaches nodes to parent in order, detaching any that already have a
// parent.
func Append(parent *html.Node, nodes ...*html.Node) {
	if parent == nil {
		return
	}
	for _, node := range nodes {
		if node == nil {
			continue
		}
		Detach(node)
		parent.AppendChild(node)
	}
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the node's subtree.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		Walk(child, fn)
		child = next
	}
}

// Query returns the first descendant of root matching sel. root itself is
// not considered.
func Query(root *html.Node, sel cascadia.Selector) *html.Node {
	if root == nil || sel == nil {
		return nil
	}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if match := sel.MatchFirst(child); match != nil {
			return match
		}
	}
	return nil
}

// QueryAll returns every descendant of root matching sel in document order.
// root itself is not considered.
func QueryAll(root *html.Node, sel cascadia.Selector) []*html.Node {
	if root == nil || sel == nil {
		return nil
	}
	var out []*html.Node
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		out = append(out, sel.MatchAll(child)...)
	}
	return out
}

// Matches reports whether n itself matches sel.
func Matches(n *html.Node, sel cascadia.Selector) bool {
	return n != nil && sel != nil && sel.Match(n)
}

// FindByAttr returns the first node, n included, whose key attribute equals
// value.
func FindByAttr(n *html.Node, key, value string) *html.Node {
	var found *html.Node
	Walk(n, func(node *html.Node) bool {
		if found != nil {
			return false
		}
		if v, ok := Attr(node, key); ok && v == value && node.Type == html.ElementNode {
			found = node
			return false
		}
		return true
	})
	return found
}

// Element builds a detached element.
func Element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Lookup([]byte(tag)),
		Data:     tag,
		Attr:     attrs,
	}
}

// TextNode builds a detached text node.
func TextNode(value string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: value}
}

var bodyContext = &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}

// ParseFragment parses markup as body content and returns detached nodes.
func ParseFragment(markup string) ([]*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), bodyContext)
	if err != nil {
		return nil, err
	}
	for _, node := range nodes {
		Detach(node)
	}
	return nodes, nil
}

// ParseDocument parses a full HTML document.
func ParseDocument(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// Render serialises n and its subtree.
func Render(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderNodes serialises nodes back to back.
func RenderNodes(nodes []*html.Node) (string, error) {
	var buf bytes.Buffer
	for _, node := range nodes {
		if err := html.Render(&buf, node); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// InnerHTML serialises the children of n.
func InnerHTML(n *html.Node) (string, error) {
	if n == nil {
		return "", nil
	}
	var buf bytes.Buffer
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&buf, child); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
