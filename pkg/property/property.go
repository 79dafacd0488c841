// Package property describes the scalar and rich-text properties declared in
// markup and binds resolved values onto their elements.
package property

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-contentbind/pkg/binderr"
	"github.com/goliatone/go-contentbind/pkg/content"
	"github.com/goliatone/go-contentbind/pkg/richtext"
)

// Markup attributes read and written for properties.
const (
	NameAttr          = "data-contentful-property"
	TypeAttr          = "data-contentful-type"
	FormatAttr        = "data-contentful-format"
	AttributeFillAttr = "data-contentful-attribute-fill"
	IDAttr            = "data-contentful-property-id"

	// FillToken is replaced by the value inside an attribute-fill attribute.
	FillToken = "{{CONTENTFUL-VALUE}}"

	// SysID names the entry id pseudo-property.
	SysID = "sys.id"
)

// Kind is the declared type of a property.
type Kind string

const (
	KindText          Kind = "text"
	KindTextMultiline Kind = "text-multiline"
	KindDate          Kind = "date"
	KindImage         Kind = "image"
	KindRichText      Kind = "rich-text"
)

// ParseKind validates a data-contentful-type value.
func ParseKind(raw string) (Kind, error) {
	kind := Kind(strings.TrimSpace(raw))
	if _, ok := handlers[kind]; !ok {
		return "", binderr.Configuration("unknown %s value %q", TypeAttr, raw).With("type", raw)
	}
	return kind, nil
}

// Property is one declared property. ID is the call-scoped identifier written
// to the element so clones can find their copy of it.
type Property struct {
	ID            string
	Name          string
	Kind          Kind
	Format        string
	AttributeFill string

	// Registry holds the rich-text templates captured at scan time.
	Registry *richtext.Registry
}

// Query returns the GraphQL selection for the property. It is empty for
// properties that need no field, such as sys.id.
func (p Property) Query() string {
	h, ok := handlers[p.Kind]
	if !ok {
		return ""
	}
	return h.query(p)
}

// Value is a decoded property value. Which fields are meaningful depends on
// Kind.
type Value struct {
	Kind     Kind
	Text     string
	Time     time.Time
	Asset    content.Asset
	RichText content.RichText

	// Missing marks a field absent from the response; binding skips it.
	Missing bool
}

// Source is the raw data a property is decoded from: one collection item or
// one content entry.
type Source struct {
	ID     string
	Fields map[string]any
}

// Decode extracts p's value from src.
func Decode(p Property, src Source) (Value, error) {
	h, ok := handlers[p.Kind]
	if !ok {
		return Value{}, binderr.Configuration("unknown property kind %q", p.Kind).With("property", p.Name)
	}
	value, err := h.decode(p, src)
	if err != nil {
		return Value{}, err
	}
	value.Kind = p.Kind
	return value, nil
}

// DecodeAll decodes every property, in order.
func DecodeAll(properties []Property, src Source) ([]Value, error) {
	values := make([]Value, len(properties))
	for i, p := range properties {
		v, err := Decode(p, src)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (p Property) String() string {
	return fmt.Sprintf("%s(%s)#%s", p.Name, p.Kind, p.ID)
}
