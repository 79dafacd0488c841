package markup

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-contentbind/pkg/binderr"
	"github.com/goliatone/go-contentbind/pkg/dom"
	"github.com/goliatone/go-contentbind/pkg/listing"
	"github.com/goliatone/go-contentbind/pkg/property"
	"github.com/goliatone/go-contentbind/pkg/testsupport"
)

var ignoreRegistry = cmpopts.IgnoreFields(property.Property{}, "Registry")

func newScanner(options ...Option) (*Scanner, *testsupport.LogBuffer) {
	logger, logs := testsupport.CaptureWarnings()
	return NewScanner(append([]Option{WithLogger(logger)}, options...)...), logs
}

const blogPage = `<main>
  <ul data-contentful-list="blogPost" data-contentful-order="published" data-contentful-order-type="date" data-contentful-order-direction="descending" data-contentful-limit="3">
    <li><h2 data-contentful-property="title" data-contentful-type="text"></h2><a data-contentful-property="sys.id" data-contentful-type="text" data-contentful-attribute-fill="href" href="/p/{{CONTENTFUL-VALUE}}">more</a></li>
  </ul>
  <article data-contentful-content="page" data-contentful-id="home">
    <h1 data-contentful-property="heading" data-contentful-type="text">Loading</h1>
    <time data-contentful-property="updated" data-contentful-type="date" data-contentful-format="YYYY"></time>
    <div data-contentful-property="body" data-contentful-type="rich-text"><p data-contentful-rich-link="paragraph"></p></div>
  </article>
</main>`

func TestScanCollectsListsAndContents(t *testing.T) {
	t.Parallel()

	root := testsupport.MustParseFragment(t, blogPage)
	scanner, logs := newScanner()
	page, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(page.Lists) != 1 || len(page.Contents) != 1 {
		t.Fatalf("expected 1 list and 1 content, got %d/%d", len(page.Lists), len(page.Contents))
	}

	list := page.Lists[0]
	if list.Name() != "blogPost" {
		t.Fatalf("list name %q", list.Name())
	}
	wantList := []property.Property{
		{ID: "p0", Name: "title", Kind: property.KindText},
		{ID: "p1", Name: property.SysID, Kind: property.KindText, AttributeFill: "href"},
	}
	if diff := cmp.Diff(wantList, list.Binding.Properties, ignoreRegistry); diff != "" {
		t.Fatalf("list properties mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(&listing.OrderSpec{Key: "published", Type: listing.OrderDate, Direction: listing.Descending}, list.Binding.Order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if list.Binding.Limit == nil || *list.Binding.Limit != 3 {
		t.Fatalf("expected limit 3, got %v", list.Binding.Limit)
	}
	if list.Binding.Chunk != nil {
		t.Fatalf("unexpected chunk spec")
	}

	tpl := list.Binding.Template
	if tpl.Parent != nil {
		t.Fatalf("item template must be detached")
	}
	wantTpl := `<li><h2 data-contentful-property="title" data-contentful-type="text" data-contentful-property-id="p0"></h2>` +
		`<a data-contentful-property="sys.id" data-contentful-type="text" data-contentful-attribute-fill="href" href="/p/{{CONTENTFUL-VALUE}}" data-contentful-property-id="p1">more</a></li>`
	if diff := cmp.Diff(wantTpl, testsupport.RenderHTML(t, tpl)); diff != "" {
		t.Fatalf("template mismatch (-want +got):\n%s", diff)
	}
	if list.Element.FirstChild != nil {
		t.Fatalf("list container must be emptied")
	}

	c := page.Contents[0]
	if c.Alias != "obj0" || c.Name != "page" || c.ID != "home" {
		t.Fatalf("unexpected content %+v", c)
	}
	wantContent := []property.Property{
		{ID: "p2", Name: "heading", Kind: property.KindText},
		{ID: "p3", Name: "updated", Kind: property.KindDate, Format: "YYYY"},
		{ID: "p4", Name: "body", Kind: property.KindRichText},
	}
	if diff := cmp.Diff(wantContent, c.Properties, ignoreRegistry); diff != "" {
		t.Fatalf("content properties mismatch (-want +got):\n%s", diff)
	}
	if c.Properties[2].Registry == nil || c.Properties[2].Registry.Len() != 1 {
		t.Fatalf("rich text registry not captured")
	}
	if c.Slots[2].FirstChild != nil {
		t.Fatalf("rich text element must be emptied")
	}
	if got := testsupport.RenderHTML(t, c.Slots[0]); got != `<h1 data-contentful-property="heading" data-contentful-type="text" data-contentful-property-id="p2">Loading</h1>` {
		t.Fatalf("scalar slot must keep its content, got %s", got)
	}
	if !logs.Empty() {
		t.Fatalf("unexpected warnings: %s", logs.String())
	}
}

func TestScanAllocatesIdsPerCall(t *testing.T) {
	t.Parallel()

	scanner, _ := newScanner()
	for i := 0; i < 2; i++ {
		page, err := scanner.Scan(testsupport.MustParseFragment(t, blogPage))
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if id := page.Lists[0].Binding.Properties[0].ID; id != "p0" {
			t.Fatalf("scan %d: first property id %q", i, id)
		}
		if alias := page.Contents[0].Alias; alias != "obj0" {
			t.Fatalf("scan %d: first alias %q", i, alias)
		}
	}
}

func TestScanChunkedList(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		markup     string
		targetPath dom.Path
		item       string
	}{
		{
			name:       "nested target",
			markup:     `<div data-contentful-list="slide" data-contentful-list-chunk="2"><section class="page"><div class="row" data-contentful-list-chunk-target><article><span data-contentful-property="title" data-contentful-type="text"></span></article></div></section></div>`,
			targetPath: dom.Path{0},
			item:       `<article><span data-contentful-property="title" data-contentful-type="text" data-contentful-property-id="p0"></span></article>`,
		},
		{
			name:       "chunk root is the target",
			markup:     `<div data-contentful-list="slide" data-contentful-list-chunk="3"><div data-contentful-list-chunk-target><p data-contentful-property="title" data-contentful-type="text"></p></div></div>`,
			targetPath: dom.Path{},
			item:       `<p data-contentful-property="title" data-contentful-type="text" data-contentful-property-id="p0"></p>`,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			scanner, _ := newScanner()
			page, err := scanner.Scan(testsupport.MustParseFragment(t, `<main>`+tc.markup+`</main>`))
			if err != nil {
				t.Fatalf("Scan: %v", err)
			}
			chunk := page.Lists[0].Binding.Chunk
			if chunk == nil {
				t.Fatalf("expected chunk spec")
			}
			if diff := cmp.Diff(tc.targetPath, chunk.Target, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("target path mismatch (-want +got):\n%s", diff)
			}
			if target := chunk.Target.Follow(chunk.Template); !dom.HasAttr(target, ChunkTargetAttr) {
				t.Fatalf("target path does not resolve in the chunk template")
			}
			if diff := cmp.Diff(tc.item, testsupport.RenderHTML(t, page.Lists[0].Binding.Template)); diff != "" {
				t.Fatalf("item template mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScanRandomOrderWithoutKey(t *testing.T) {
	t.Parallel()

	scanner, _ := newScanner()
	page, err := scanner.Scan(testsupport.MustParseFragment(t,
		`<main><ul data-contentful-list="quote" data-contentful-order-direction="random"><li></li></ul><ol data-contentful-list="plain"><li></li></ol></main>`))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if diff := cmp.Diff(&listing.OrderSpec{Type: listing.OrderNumber, Direction: listing.Random}, page.Lists[0].Binding.Order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if page.Lists[1].Binding.Order != nil {
		t.Fatalf("list without order key must keep response order")
	}
}

func TestScanConfigurationErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown property type":     `<div data-contentful-content="page" data-contentful-id="a"><p data-contentful-property="x" data-contentful-type="video"></p></div>`,
		"empty property name":       `<div data-contentful-content="page" data-contentful-id="a"><p data-contentful-property="" data-contentful-type="text"></p></div>`,
		"empty list name":           `<ul data-contentful-list=""><li></li></ul>`,
		"empty content name":        `<div data-contentful-content="" data-contentful-id="a"></div>`,
		"content without id":        `<div data-contentful-content="page"></div>`,
		"list with two children":    `<ul data-contentful-list="a"><li></li><li></li></ul>`,
		"list without children":     `<ul data-contentful-list="a"></ul>`,
		"chunk without target":      `<ul data-contentful-list="a" data-contentful-list-chunk="2"><li></li></ul>`,
		"chunk target two children": `<div data-contentful-list="a" data-contentful-list-chunk="2"><div data-contentful-list-chunk-target><p></p><p></p></div></div>`,
		"unparsable limit":          `<ul data-contentful-list="a" data-contentful-limit="ten"><li></li></ul>`,
		"negative limit":            `<ul data-contentful-list="a" data-contentful-limit="-1"><li></li></ul>`,
		"unparsable chunk size":     `<ul data-contentful-list="a" data-contentful-list-chunk="x"><li></li></ul>`,
		"unknown order type":        `<ul data-contentful-list="a" data-contentful-order="k" data-contentful-order-type="bool"><li></li></ul>`,
		"unknown direction":         `<ul data-contentful-list="a" data-contentful-order="k" data-contentful-order-direction="up"><li></li></ul>`,
	}

	for name, markup := range cases {
		markup := markup
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			scanner, _ := newScanner()
			_, err := scanner.Scan(testsupport.MustParseFragment(t, `<main>`+markup+`</main>`))
			if !errors.Is(err, binderr.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestScanStrictTemplates(t *testing.T) {
	t.Parallel()

	markup := `<main><div data-contentful-content="page" data-contentful-id="a"><div data-contentful-property="body" data-contentful-type="rich-text"><ul data-contentful-rich-link="unordered-list"></ul></div></div></main>`

	lenient, logs := newScanner()
	if _, err := lenient.Scan(testsupport.MustParseFragment(t, markup)); err != nil {
		t.Fatalf("lenient scan: %v", err)
	}
	if !strings.Contains(logs.String(), `"node_type":"unordered-list"`) {
		t.Fatalf("expected warning, got %s", logs.String())
	}

	strict, _ := newScanner(WithStrictTemplates(true))
	if _, err := strict.Scan(testsupport.MustParseFragment(t, markup)); !errors.Is(err, binderr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestScanFailureLeavesDocumentUntouched(t *testing.T) {
	t.Parallel()

	root := testsupport.MustParseFragment(t,
		`<main><ul data-contentful-list="a"><li>keep</li></ul><div data-contentful-content="page"></div></main>`)
	before := testsupport.RenderHTML(t, root)

	scanner, _ := newScanner()
	if _, err := scanner.Scan(root); err == nil {
		t.Fatalf("expected error")
	}
	after := testsupport.RenderHTML(t, root)
	if !strings.Contains(after, "<li>keep</li>") {
		t.Fatalf("list cleared on failure: %s (was %s)", after, before)
	}
}

func TestScanIgnoresNestedDeclarations(t *testing.T) {
	t.Parallel()

	root := testsupport.MustParseFragment(t, `<main>`+
		`<ul data-contentful-list="outer"><li>`+
		`<div data-contentful-content="inner" data-contentful-id="x"><span data-contentful-property="t" data-contentful-type="text"></span></div>`+
		`<ol data-contentful-list="nested"><li></li></ol>`+
		`</li></ul>`+
		`<div data-contentful-content="c" data-contentful-id="1"><div data-contentful-property="body" data-contentful-type="rich-text">`+
		`<p data-contentful-rich-link="paragraph"><span data-contentful-property="ghost" data-contentful-type="text"></span></p>`+
		`</div></div>`+
		`</main>`)

	scanner, logs := newScanner()
	page, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(page.Lists) != 1 || len(page.Contents) != 1 {
		t.Fatalf("expected 1 list and 1 content, got %d/%d", len(page.Lists), len(page.Contents))
	}
	if n := len(page.Lists[0].Binding.Properties); n != 0 {
		t.Fatalf("outer list must not own nested properties, got %d", n)
	}
	if n := len(page.Contents[0].Properties); n != 1 {
		t.Fatalf("rich text templates must not declare properties, got %d", n)
	}
	if !strings.Contains(logs.String(), `"list":"nested"`) {
		t.Fatalf("expected nested list warning, got %s", logs.String())
	}
}

func TestAllocator(t *testing.T) {
	t.Parallel()

	a := NewAllocator()
	got := []string{a.PropertyID(), a.Alias(), a.PropertyID(), a.Alias()}
	if diff := cmp.Diff([]string{"p0", "obj0", "p1", "obj1"}, got); diff != "" {
		t.Fatalf("allocation mismatch (-want +got):\n%s", diff)
	}
	if !(&Page{}).Empty() {
		t.Fatalf("empty page must report empty")
	}
}
