package dom

import (
	"testing"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

func mustFragment(t *testing.T, markup string) *html.Node {
	t.Helper()
	nodes, err := ParseFragment(markup)
	if err != nil {
		t.Fatalf("parse fragment: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected one root node, got %d", len(nodes))
	}
	return nodes[0]
}

func mustRender(t *testing.T, n *html.Node) string {
	t.Helper()
	out, err := Render(n)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out
}

func TestCloneIsDeepAndDetached(t *testing.T) {
	t.Parallel()

	root := mustFragment(t, `<div class="a"><p data-x="1">hi</p></div>`)
	clone := Clone(root)

	if clone.Parent != nil || clone.NextSibling != nil {
		t.Fatalf("clone must be detached")
	}
	SetAttr(clone.FirstChild, "data-x", "2")
	clone.FirstChild.FirstChild.Data = "changed"

	if got := mustRender(t, root); got != `<div class="a"><p data-x="1">hi</p></div>` {
		t.Fatalf("original mutated: %s", got)
	}
	if got := mustRender(t, clone); got != `<div class="a"><p data-x="2">changed</p></div>` {
		t.Fatalf("unexpected clone: %s", got)
	}
}

func TestPathRoundTrip(t *testing.T) {
	t.Parallel()

	root := mustFragment(t, `<section> <header></header> <div><span id="slot"></span></div></section>`)
	target := FindByAttr(root, "id", "slot")
	if target == nil {
		t.Fatalf("slot not found")
	}

	path, ok := PathTo(root, target)
	if !ok {
		t.Fatalf("PathTo failed")
	}
	clone := Clone(root)
	found := path.Follow(clone)
	if v, _ := Attr(found, "id"); v != "slot" {
		t.Fatalf("Follow on clone resolved %v", found)
	}
	if Path(nil).Follow(clone) != clone {
		t.Fatalf("empty path must resolve to root")
	}
	if _, ok := PathTo(root, Element("em")); ok {
		t.Fatalf("detached node has no path")
	}
}

func TestQueryExcludesRoot(t *testing.T) {
	t.Parallel()

	root := mustFragment(t, `<div data-slot><p data-slot>one</p><p data-slot>two</p></div>`)
	sel := cascadia.MustCompile("[data-slot]")

	first := Query(root, sel)
	if first == nil || first.Data != "p" {
		t.Fatalf("Query should skip the root, got %v", first)
	}
	if all := QueryAll(root, sel); len(all) != 2 {
		t.Fatalf("QueryAll returned %d nodes, want 2", len(all))
	}
	if !Matches(root, sel) {
		t.Fatalf("root should match directly")
	}
}

func TestAttrHelpersAndClear(t *testing.T) {
	t.Parallel()

	root := mustFragment(t, `<ul data-a="1"><li>a</li><li>b</li></ul>`)
	SetAttr(root, "data-b", "2")
	RemoveAttr(root, "data-a")
	if HasAttr(root, "data-a") || !HasAttr(root, "data-b") {
		t.Fatalf("unexpected attributes %v", root.Attr)
	}
	if n := len(ElementChildren(root)); n != 2 {
		t.Fatalf("expected 2 element children, got %d", n)
	}

	Clear(root)
	Append(root, TextNode("x & y"))
	if got := mustRender(t, root); got != `<ul data-b="2">x &amp; y</ul>` {
		t.Fatalf("unexpected render %s", got)
	}
}
