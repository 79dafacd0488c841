package property

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/goliatone/go-contentbind/pkg/binderr"
	"github.com/goliatone/go-contentbind/pkg/content"
	"github.com/goliatone/go-contentbind/pkg/dom"
)

// handler is the per-kind behaviour table entry.
type handler struct {
	query  func(Property) string
	decode func(Property, Source) (Value, error)
	bind   func(*Binder, *html.Node, Property, Value) error
}

var handlers = map[Kind]handler{
	KindText: {
		query:  scalarQuery,
		decode: decodeText,
		bind: func(b *Binder, el *html.Node, p Property, v Value) error {
			text := strings.ReplaceAll(v.Text, "\n", "")
			if b.fillAttribute(el, p, text) {
				return nil
			}
			dom.Clear(el)
			dom.Append(el, dom.TextNode(text))
			return nil
		},
	},
	KindTextMultiline: {
		query:  scalarQuery,
		decode: decodeText,
		bind: func(b *Binder, el *html.Node, p Property, v Value) error {
			if b.fillAttribute(el, p, v.Text) {
				return nil
			}
			dom.Clear(el)
			for i, line := range strings.Split(v.Text, "\n") {
				if i > 0 {
					dom.Append(el, dom.Element("br"))
				}
				if line != "" {
					dom.Append(el, dom.TextNode(line))
				}
			}
			return nil
		},
	},
	KindDate: {
		query:  scalarQuery,
		decode: decodeDate,
		bind: func(b *Binder, el *html.Node, p Property, v Value) error {
			layout := p.Format
			if layout == "" {
				layout = b.dateFormat
			}
			text := FormatDate(v.Time, layout)
			if b.fillAttribute(el, p, text) {
				return nil
			}
			dom.Clear(el)
			dom.Append(el, dom.TextNode(text))
			return nil
		},
	},
	KindImage: {
		query: func(p Property) string {
			return p.Name + "{title,url}"
		},
		decode: decodeImage,
		bind: func(b *Binder, el *html.Node, p Property, v Value) error {
			if b.fillAttribute(el, p, v.Asset.URL) {
				return nil
			}
			dom.SetAttr(el, "src", v.Asset.URL)
			dom.SetAttr(el, "alt", v.Asset.Title)
			return nil
		},
	},
	KindRichText: {
		query: func(p Property) string {
			return p.Name + "{json,links{assets{hyperlink{sys{id},url},block{sys{id},title,url}}}}"
		},
		decode: decodeRichText,
		bind: func(b *Binder, el *html.Node, p Property, v Value) error {
			dom.Clear(el)
			fragments, err := b.renderer.Render(v.RichText.Nodes, p.Registry, v.RichText.Assets)
			if err != nil {
				return err
			}
			dom.Append(el, fragments...)
			return nil
		},
	},
}

func scalarQuery(p Property) string {
	if p.Name == SysID {
		return ""
	}
	return p.Name
}

func lookup(p Property, src Source) (any, bool) {
	raw, ok := content.Lookup(src.Fields, p.Name)
	if !ok || raw == nil {
		return nil, false
	}
	return raw, true
}

func decodeText(p Property, src Source) (Value, error) {
	if p.Name == SysID {
		return Value{Text: src.ID}, nil
	}
	raw, ok := lookup(p, src)
	if !ok {
		return Value{Missing: true}, nil
	}
	switch v := raw.(type) {
	case string:
		return Value{Text: v}, nil
	case float64, int, int64, bool:
		return Value{Text: fmt.Sprint(v)}, nil
	}
	return Value{}, invalid(p, "expected text, got %T", raw)
}

func decodeDate(p Property, src Source) (Value, error) {
	raw, ok := lookup(p, src)
	if !ok {
		return Value{Missing: true}, nil
	}
	switch v := raw.(type) {
	case time.Time:
		return Value{Time: v}, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return Value{Missing: true}, nil
		}
		t, err := content.ParseTime(v)
		if err != nil {
			return Value{}, binderr.Wrapf(err, binderr.CodeInvalidInput, "property %q", p.Name).With("property", p.Name)
		}
		return Value{Time: t}, nil
	}
	return Value{}, invalid(p, "expected date string, got %T", raw)
}

func decodeImage(p Property, src Source) (Value, error) {
	raw, ok := lookup(p, src)
	if !ok {
		return Value{Missing: true}, nil
	}
	fields, ok := content.AsMap(raw)
	if !ok {
		return Value{}, invalid(p, "expected image object, got %T", raw)
	}
	asset := content.Asset{}
	if url, ok := fields["url"].(string); ok {
		asset.URL = url
	}
	if title, ok := fields["title"].(string); ok {
		asset.Title = title
	}
	return Value{Asset: asset}, nil
}

func decodeRichText(p Property, src Source) (Value, error) {
	raw, ok := lookup(p, src)
	if !ok {
		return Value{Missing: true}, nil
	}
	doc, err := content.DecodeRichText(raw)
	if err != nil {
		return Value{}, binderr.Wrapf(err, binderr.CodeInvalidInput, "property %q", p.Name).With("property", p.Name)
	}
	return Value{RichText: doc}, nil
}

func invalid(p Property, format string, args ...any) error {
	return binderr.Newf(binderr.CodeInvalidInput, "property %q: "+format, append([]any{p.Name}, args...)...).
		With("property", p.Name)
}
