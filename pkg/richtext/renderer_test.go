package richtext

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-contentbind/pkg/binderr"
	"github.com/goliatone/go-contentbind/pkg/content"
	"github.com/goliatone/go-contentbind/pkg/testsupport"
)

const templatesMarkup = `<div data-contentful-property="body">` +
	`<p data-contentful-rich-link="paragraph">placeholder</p>` +
	`<h2 data-contentful-rich-link="heading-2"><span data-contentful-rich-value></span></h2>` +
	`<hr data-contentful-rich-link="hr">` +
	`<a data-contentful-rich-link="hyperlink"></a>` +
	`<a data-contentful-rich-link="asset-hyperlink"></a>` +
	`<a data-contentful-rich-link="entry-hyperlink" data-contentful-rich-embed-hyperlink-url="/entries/{{ID}}"></a>` +
	`<figure data-contentful-rich-link="embedded-asset-block"><img data-contentful-rich-value></figure>` +
	`<ul data-contentful-rich-link="unordered-list"><li data-contentful-rich-link="child-item"></li></ul>` +
	`<span data-contentful-rich-link="list-item-paragraph"></span>` +
	`</div>`

func buildRegistry(t *testing.T, markup string, options ...Option) *Registry {
	t.Helper()

	root := testsupport.MustParseFragment(t, markup)
	registry, err := Build(root, options...)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return registry
}

func TestRenderBoldParagraph(t *testing.T) {
	t.Parallel()

	logger, logs := testsupport.CaptureWarnings()
	registry := buildRegistry(t, templatesMarkup, WithLogger(logger))

	nodes := []content.Node{
		content.Container(content.NodeParagraph, content.Text("Hi", content.MarkBold)),
	}
	fragments, err := Render(nodes, registry, content.Assets{}, WithLogger(logger))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(fragments))
	}

	got := testsupport.RenderNodes(t, fragments)
	want := `<p data-contentful-rich-link="paragraph"><span><b>Hi</b></span></p>`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fragment mismatch (-want +got):\n%s", diff)
	}
	if !logs.Empty() {
		t.Fatalf("expected no warnings, got %s", logs.String())
	}
}

func TestRenderMissingEmbeddedAssetAborts(t *testing.T) {
	t.Parallel()

	logger, _ := testsupport.CaptureWarnings()
	registry := buildRegistry(t, templatesMarkup, WithLogger(logger))

	nodes := []content.Node{
		content.Container(content.NodeParagraph, content.Text("before")),
		content.Link(content.NodeEmbeddedAssetBlock, "X"),
	}
	fragments, err := Render(nodes, registry, content.Assets{
		Block: content.NewAssetIndex(content.Asset{ID: "Y", URL: "https://cdn.test/y.png"}),
	}, WithLogger(logger))
	if !errors.Is(err, binderr.ErrMissingAsset) {
		t.Fatalf("expected missing asset error, got %v", err)
	}
	if fragments != nil {
		t.Fatalf("expected no fragments, got %d", len(fragments))
	}

	var bindErr *binderr.Error
	if !errors.As(err, &bindErr) {
		t.Fatalf("expected *binderr.Error, got %T", err)
	}
	if id, _ := bindErr.Detail("asset_id"); id != "X" {
		t.Fatalf("expected asset_id X, got %v", id)
	}
}

func TestRenderUnorderedListClonesChildPerItem(t *testing.T) {
	t.Parallel()

	logger, logs := testsupport.CaptureWarnings()
	registry := buildRegistry(t, templatesMarkup, WithLogger(logger))

	nodes := []content.Node{
		content.Container(content.NodeUnorderedList,
			content.Container(content.NodeListItem, content.Container(content.NodeParagraph, content.Text("one"))),
			content.Container(content.NodeListItem, content.Container(content.NodeParagraph, content.Text("two"))),
			content.Container(content.NodeListItem, content.Container(content.NodeParagraph, content.Text("three"))),
		),
	}
	content.MarkListItemParagraphs(nodes)

	fragments, err := Render(nodes, registry, content.Assets{}, WithLogger(logger))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(fragments))
	}

	got := testsupport.RenderHTML(t, fragments[0])
	item := func(text string) string {
		return `<li data-contentful-rich-link="child-item">` +
			`<span data-contentful-rich-link="list-item-paragraph"><span>` + text + `</span></span></li>`
	}
	want := `<ul data-contentful-rich-link="unordered-list">` + item("one") + item("two") + item("three") + `</ul>`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
	if !logs.Empty() {
		t.Fatalf("expected no warnings, got %s", logs.String())
	}
}

func TestRenderListUsesSlotHoldingChildTemplate(t *testing.T) {
	t.Parallel()

	logger, _ := testsupport.CaptureWarnings()
	registry := buildRegistry(t, `<div>`+
		`<section data-contentful-rich-link="ordered-list"><h3 data-contentful-rich-value>title</h3>`+
		`<ol data-contentful-rich-value><li>stale</li><li data-contentful-rich-link="child-item"><b>keep</b><i data-contentful-rich-value></i></li></ol></section>`+
		`<em data-contentful-rich-link="list-item-paragraph"></em>`+
		`</div>`, WithLogger(logger))

	nodes := []content.Node{
		content.Container(content.NodeOrderedList,
			content.Container(content.NodeListItem, content.Container(content.NodeListItemParagraph, content.Text("a"))),
		),
	}
	fragments, err := Render(nodes, registry, content.Assets{}, WithLogger(logger))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	got := testsupport.RenderNodes(t, fragments)
	want := `<section data-contentful-rich-link="ordered-list"><h3 data-contentful-rich-value="">title</h3>` +
		`<ol data-contentful-rich-value=""><li data-contentful-rich-link="child-item"><b>keep</b>` +
		`<i data-contentful-rich-value=""><em data-contentful-rich-link="list-item-paragraph"><span>a</span></em></i></li></ol></section>`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderLinksInsideParagraph(t *testing.T) {
	t.Parallel()

	logger, logs := testsupport.CaptureWarnings()
	registry := buildRegistry(t, templatesMarkup, WithLogger(logger))

	nodes := []content.Node{
		content.Container(content.NodeParagraph,
			content.Text("See "),
			content.Hyperlink("https://example.test", content.Text("site")),
			content.Link(content.NodeAssetHyperlink, "doc", content.Text("doc")),
			content.Link(content.NodeAssetHyperlink, "img", content.Text("img")),
			content.Link(content.NodeEntryHyperlink, "e1", content.Text("entry", content.MarkItalic)),
		),
	}
	assets := content.Assets{
		Hyperlink: content.NewAssetIndex(content.Asset{ID: "doc", URL: "https://cdn.test/doc.pdf"}),
		Block:     content.NewAssetIndex(content.Asset{ID: "img", URL: "https://cdn.test/img.png"}),
	}

	fragments, err := Render(nodes, registry, assets, WithLogger(logger))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	got := testsupport.RenderNodes(t, fragments)
	want := `<p data-contentful-rich-link="paragraph"><span>See </span>` +
		`<a data-contentful-rich-link="hyperlink" href="https://example.test"><span>site</span></a>` +
		`<a data-contentful-rich-link="asset-hyperlink" href="https://cdn.test/doc.pdf"><span>doc</span></a>` +
		`<a data-contentful-rich-link="asset-hyperlink" href="https://cdn.test/img.png"><span>img</span></a>` +
		`<a data-contentful-rich-link="entry-hyperlink" data-contentful-rich-embed-hyperlink-url="/entries/{{ID}}" href="/entries/e1"><span><i>entry</i></span></a>` +
		`</p>`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}
	if !logs.Empty() {
		t.Fatalf("expected no warnings, got %s", logs.String())
	}
}

func TestRenderMissingHyperlinkAssetAborts(t *testing.T) {
	t.Parallel()

	logger, _ := testsupport.CaptureWarnings()
	registry := buildRegistry(t, templatesMarkup, WithLogger(logger))

	nodes := []content.Node{
		content.Container(content.NodeParagraph, content.Link(content.NodeAssetHyperlink, "gone", content.Text("x"))),
	}
	_, err := Render(nodes, registry, content.Assets{}, WithLogger(logger))
	if !errors.Is(err, binderr.ErrMissingAsset) {
		t.Fatalf("expected missing asset error, got %v", err)
	}
}

func TestRenderEmbeddedAssetAndRule(t *testing.T) {
	t.Parallel()

	logger, _ := testsupport.CaptureWarnings()
	registry := buildRegistry(t, templatesMarkup, WithLogger(logger))

	nodes := []content.Node{
		content.Link(content.NodeEmbeddedAssetBlock, "hero"),
		content.Container(content.NodeHR),
	}
	assets := content.Assets{
		Block: content.NewAssetIndex(content.Asset{ID: "hero", URL: "https://cdn.test/hero.png", Title: "Hero"}),
	}
	fragments, err := Render(nodes, registry, assets, WithLogger(logger))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	got := testsupport.RenderNodes(t, fragments)
	want := `<figure data-contentful-rich-link="embedded-asset-block">` +
		`<img data-contentful-rich-value="" src="https://cdn.test/hero.png" alt="Hero"/></figure>` +
		`<hr data-contentful-rich-link="hr"/>`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderDropsUnresolvedNodesAndKeepsOrder(t *testing.T) {
	t.Parallel()

	logger, logs := testsupport.CaptureWarnings()
	registry := buildRegistry(t, templatesMarkup, WithLogger(logger))

	nodes := []content.Node{
		content.Container(content.NodeHeading1, content.Text("no template")),
		content.Container(content.NodeHeading2, content.Text("Title")),
		content.Container(content.NodeType("table")),
		content.Text("stray"),
		content.Container(content.NodeParagraph,
			content.Text("a"),
			content.Container(content.NodeHeading3, content.Text("nested heading")),
			content.Container(content.NodeParagraph, content.Text("inner")),
		),
	}
	fragments, err := Render(nodes, registry, content.Assets{}, WithLogger(logger))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(fragments))
	}

	got := testsupport.RenderNodes(t, fragments)
	want := `<h2 data-contentful-rich-link="heading-2"><span data-contentful-rich-value=""><span>Title</span></span></h2>` +
		`<p data-contentful-rich-link="paragraph"><span>a</span>` +
		`<p data-contentful-rich-link="paragraph"><span>inner</span></p></p>`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	out := logs.String()
	for _, fragment := range []string{`"node_type":"heading-1"`, `"node_type":"table"`, `"node_type":"text"`, `"node_type":"heading-3"`} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected warning mentioning %s, got %s", fragment, out)
		}
	}
}

func TestRenderMarksWrapInDeclarationOrder(t *testing.T) {
	t.Parallel()

	logger, logs := testsupport.CaptureWarnings()
	registry := buildRegistry(t, templatesMarkup, WithLogger(logger))

	nodes := []content.Node{
		content.Container(content.NodeParagraph,
			content.Text("x", content.MarkBold, content.MarkItalic, content.Mark("strike"), content.MarkUnderline, content.MarkCode),
			content.Text("a\nb & <script>c</script>"),
		),
	}
	fragments, err := Render(nodes, registry, content.Assets{}, WithLogger(logger))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	got := testsupport.RenderNodes(t, fragments)
	want := `<p data-contentful-rich-link="paragraph">` +
		`<span><code><u><i><b>x</b></i></u></code></span>` +
		`<span>a<br/>b &amp; </span></p>`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs.String(), `"mark":"strike"`) {
		t.Fatalf("expected unknown mark warning, got %s", logs.String())
	}
}

func TestRenderIsDeterministicAndLeavesPrototypesIntact(t *testing.T) {
	t.Parallel()

	logger, _ := testsupport.CaptureWarnings()
	registry := buildRegistry(t, templatesMarkup, WithLogger(logger))
	tpl, _ := registry.Lookup(content.NodeParagraph)
	before := testsupport.RenderHTML(t, tpl.prototype)

	nodes := []content.Node{
		content.Container(content.NodeParagraph, content.Text("Hello "), content.Hyperlink("/x", content.Text("x"))),
		content.Container(content.NodeUnorderedList,
			content.Container(content.NodeListItem, content.Container(content.NodeListItemParagraph, content.Text("i"))),
		),
	}
	renderer := NewRenderer(WithLogger(logger))

	first, err := renderer.Render(nodes, registry, content.Assets{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	second, err := renderer.Render(nodes, registry, content.Assets{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if diff := cmp.Diff(testsupport.RenderNodes(t, first), testsupport.RenderNodes(t, second)); diff != "" {
		t.Fatalf("renders differ (-first +second):\n%s", diff)
	}
	if after := testsupport.RenderHTML(t, tpl.prototype); after != before {
		t.Fatalf("prototype mutated: %s", after)
	}
}
