// Package contentful builds the GraphQL query for a scanned page, fetches the
// response from the Content Delivery API or a recorded file, and resolves it
// into list instances and content values.
package contentful

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-contentbind/pkg/listing"
	"github.com/goliatone/go-contentbind/pkg/markup"
	"github.com/goliatone/go-contentbind/pkg/property"
)

const (
	collectionSuffix = "Collection"
	sysSelection     = "sys{id}"
)

// BuildQuery returns the single GraphQL document that fetches every list and
// content declared on page.
func BuildQuery(page *markup.Page) string {
	if page == nil {
		return "{}"
	}
	var parts []string
	for _, list := range page.Lists {
		parts = append(parts, listQuery(list.Binding))
	}
	for _, c := range page.Contents {
		parts = append(parts, contentQuery(c))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// CollectionField is the response field holding a list's items.
func CollectionField(name string) string {
	return name + collectionSuffix
}

func listQuery(binding listing.Binding) string {
	fields := selections(binding.Properties)
	if order := binding.Order; order != nil && order.Direction != listing.Random && strings.TrimSpace(order.Key) != "" {
		fields = appendUnique(fields, Nest(strings.TrimSpace(order.Key)))
	}
	return CollectionField(binding.Name) + "{items{" + strings.Join(fields, ",") + "}}"
}

func contentQuery(c *markup.Content) string {
	return c.Alias + ":" + c.Name + "(id:" + strconv.Quote(c.ID) + "){" + strings.Join(selections(c.Properties), ",") + "}"
}

// selections starts with sys{id} and adds every property fragment once.
func selections(properties []property.Property) []string {
	fields := []string{sysSelection}
	for _, p := range properties {
		if fragment := p.Query(); fragment != "" {
			fields = appendUnique(fields, Nest(fragment))
		}
	}
	return fields
}

// Nest rewrites a dotted field path into nested selections, keeping any
// trailing sub-selection: "author.name" becomes "author{name}" and
// "meta.hero{url}" becomes "meta{hero{url}}".
func Nest(fragment string) string {
	head, tail := fragment, ""
	if i := strings.IndexByte(fragment, '{'); i >= 0 {
		head, tail = fragment[:i], fragment[i:]
	}
	parts := strings.Split(head, ".")
	if len(parts) == 1 {
		return fragment
	}
	var b strings.Builder
	for _, part := range parts[:len(parts)-1] {
		b.WriteString(part)
		b.WriteByte('{')
	}
	b.WriteString(parts[len(parts)-1])
	b.WriteString(tail)
	b.WriteString(strings.Repeat("}", len(parts)-1))
	return b.String()
}

func appendUnique(fields []string, field string) []string {
	for _, existing := range fields {
		if existing == field {
			return fields
		}
	}
	return append(fields, field)
}
