// Package markup scans an HTML document for list, content and property
// declarations and turns them into descriptors the binding passes consume.
package markup

import (
	"strconv"

	"golang.org/x/net/html"

	"github.com/goliatone/go-contentbind/pkg/listing"
	"github.com/goliatone/go-contentbind/pkg/property"
)

// Declaration attributes.
const (
	ListAttr           = "data-contentful-list"
	ContentAttr        = "data-contentful-content"
	ContentIDAttr      = "data-contentful-id"
	OrderAttr          = "data-contentful-order"
	OrderTypeAttr      = "data-contentful-order-type"
	OrderDirectionAttr = "data-contentful-order-direction"
	LimitAttr          = "data-contentful-limit"
	ChunkAttr          = "data-contentful-list-chunk"
	ChunkTargetAttr    = "data-contentful-list-chunk-target"
)

// Page is everything a scan found in one document.
type Page struct {
	Lists    []*List
	Contents []*Content
}

// List is a declared list container and the binding its items are built
// from. Binding.Template and Binding.Chunk.Template are detached copies.
type List struct {
	Element *html.Node
	Binding listing.Binding
}

// Name returns the content type the list is bound to.
func (l *List) Name() string { return l.Binding.Name }

// Content is a single entry declared in place. Slots[i] is the document
// element for Properties[i].
type Content struct {
	Alias      string
	Name       string
	ID         string
	Element    *html.Node
	Properties []property.Property
	Slots      []*html.Node
}

// Empty reports whether the page declares nothing to fetch.
func (p *Page) Empty() bool {
	return p == nil || (len(p.Lists) == 0 && len(p.Contents) == 0)
}

// Allocator hands out property ids and content aliases. A fresh allocator is
// used for every scan so ids never depend on earlier scans.
type Allocator struct {
	properties int
	contents   int
}

// NewAllocator returns an allocator starting at zero.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// PropertyID returns the next property id.
func (a *Allocator) PropertyID() string {
	id := "p" + strconv.Itoa(a.properties)
	a.properties++
	return id
}

// Alias returns the next content alias used as the GraphQL field alias.
func (a *Allocator) Alias() string {
	alias := "obj" + strconv.Itoa(a.contents)
	a.contents++
	return alias
}
