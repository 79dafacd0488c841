// Package richtext turns rich-text documents into cloned, populated template
// fragments. Templates are declared in markup as direct children of a
// rich-text property element, each tagged with the node type it renders.
package richtext

import (
	"github.com/andybalholm/cascadia"
	"github.com/flosch/pongo2/v6"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/goliatone/go-contentbind/pkg/binderr"
	"github.com/goliatone/go-contentbind/pkg/content"
	"github.com/goliatone/go-contentbind/pkg/dom"
	"github.com/goliatone/go-contentbind/pkg/logging"
)

// Markup attributes understood by the registry builder.
const (
	LinkAttr             = "data-contentful-rich-link"
	ValueAttr            = "data-contentful-rich-value"
	EmbedURLAttr         = "data-contentful-rich-embed-hyperlink-url"
	ChildItemTag         = "child-item"
	entryIDPatternVar    = "ID"
	defaultComponentName = "richtext"
)

var (
	linkSelector      = cascadia.MustCompile("[" + LinkAttr + "]")
	valueSelector     = cascadia.MustCompile("[" + ValueAttr + "]")
	childItemSelector = cascadia.MustCompile("[" + LinkAttr + `="` + ChildItemTag + `"]`)
)

var templateTypes = map[content.NodeType]bool{
	content.NodeHeading1:           true,
	content.NodeHeading2:           true,
	content.NodeHeading3:           true,
	content.NodeHeading4:           true,
	content.NodeHeading5:           true,
	content.NodeHeading6:           true,
	content.NodeParagraph:          true,
	content.NodeListItemParagraph:  true,
	content.NodeBlockquote:         true,
	content.NodeHyperlink:          true,
	content.NodeAssetHyperlink:     true,
	content.NodeEntryHyperlink:     true,
	content.NodeHR:                 true,
	content.NodeEmbeddedAssetBlock: true,
	content.NodeOrderedList:        true,
	content.NodeUnorderedList:      true,
}

// Supported reports whether a template may be registered for t.
func Supported(t content.NodeType) bool {
	return templateTypes[t]
}

// Template is a read-only prototype for one node type. Rendering always works
// on a clone of the prototype; the slot path addresses the same element in
// every clone.
type Template struct {
	Type      content.NodeType
	prototype *html.Node
	slot      dom.Path

	// List-bearing templates only.
	child     *Template
	childSlot dom.Path

	// Entry-hyperlink templates only.
	urlPattern *pongo2.Template
}

// Instantiate returns a fresh clone of the prototype together with its slot.
func (t *Template) Instantiate() (root, slot *html.Node) {
	root = dom.Clone(t.prototype)
	slot = t.slot.Follow(root)
	if slot == nil {
		slot = root
	}
	return root, slot
}

// Child returns the child-item template of a list-bearing template.
func (t *Template) Child() *Template { return t.child }

// Registry maps node types to templates. It is built once per property and
// never mutated afterwards.
type Registry struct {
	templates map[content.NodeType]*Template
}

// Lookup returns the template registered for t.
func (r *Registry) Lookup(t content.NodeType) (*Template, bool) {
	if r == nil {
		return nil, false
	}
	tpl, ok := r.templates[t]
	return tpl, ok
}

// Len reports the number of registered templates.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.templates)
}

// Types lists the registered node types in declaration-independent order.
func (r *Registry) Types() []content.NodeType {
	if r == nil {
		return nil
	}
	out := make([]content.NodeType, 0, len(r.templates))
	for _, t := range allTypes {
		if _, ok := r.templates[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

var allTypes = []content.NodeType{
	content.NodeHeading1, content.NodeHeading2, content.NodeHeading3,
	content.NodeHeading4, content.NodeHeading5, content.NodeHeading6,
	content.NodeParagraph, content.NodeListItemParagraph, content.NodeBlockquote,
	content.NodeHyperlink, content.NodeAssetHyperlink, content.NodeEntryHyperlink,
	content.NodeHR, content.NodeEmbeddedAssetBlock,
	content.NodeOrderedList, content.NodeUnorderedList,
}

// Option customises registry building and rendering.
type Option func(*settings)

type settings struct {
	logger    zerolog.Logger
	hasLogger bool
	strict    bool
}

// WithLogger routes warnings to logger instead of the global component
// logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
		s.hasLogger = true
	}
}

// WithStrict makes a list template without a child-item template a
// configuration error instead of a warning.
func WithStrict(strict bool) Option {
	return func(s *settings) {
		s.strict = strict
	}
}

func newSettings(options []Option) settings {
	var s settings
	for _, opt := range options {
		if opt != nil {
			opt(&s)
		}
	}
	if !s.hasLogger {
		s.logger = logging.GetLogger(defaultComponentName)
	}
	return s
}

// Build collects the templates declared as direct children of root. Unknown
// tags and list templates without a child-item template are skipped with a
// warning; a duplicate tag replaces the earlier declaration.
func Build(root *html.Node, options ...Option) (*Registry, error) {
	s := newSettings(options)
	registry := &Registry{templates: make(map[content.NodeType]*Template)}
	if root == nil {
		return registry, nil
	}

	for _, el := range dom.ElementChildren(root) {
		if !dom.Matches(el, linkSelector) {
			continue
		}
		raw, _ := dom.Attr(el, LinkAttr)
		nodeType := content.NodeType(raw)

		if _, exists := registry.templates[nodeType]; exists {
			s.logger.Warn().Str("node_type", raw).Msg("Multiple rich text templates declared, last one wins")
		}
		if !Supported(nodeType) {
			s.logger.Warn().Str("node_type", raw).Msg("Rich text template type not supported, ignoring")
			continue
		}

		tpl, err := buildTemplate(el, nodeType, s)
		if err != nil {
			return nil, err
		}
		if tpl == nil {
			delete(registry.templates, nodeType)
			continue
		}
		registry.templates[nodeType] = tpl
	}

	return registry, nil
}

func buildTemplate(el *html.Node, nodeType content.NodeType, s settings) (*Template, error) {
	prototype := dom.Clone(el)
	tpl := &Template{
		Type:      nodeType,
		prototype: prototype,
		slot:      slotPath(prototype),
	}

	switch {
	case nodeType.IsList():
		childEl := dom.Query(prototype, childItemSelector)
		if childEl == nil {
			if s.strict {
				return nil, binderr.Configuration("rich text template %q has no %s=%q element", nodeType, LinkAttr, ChildItemTag).
					With("node_type", string(nodeType))
			}
			s.logger.Warn().
				Str("node_type", string(nodeType)).
				Msg("List template has no child-item template, ignoring")
			return nil, nil
		}
		childPrototype := dom.Clone(childEl)
		tpl.child = &Template{
			Type:      content.NodeListItem,
			prototype: childPrototype,
			slot:      slotPath(childPrototype),
		}
		tpl.childSlot = listSlotPath(prototype)

	case nodeType == content.NodeEntryHyperlink:
		pattern, ok := dom.Attr(el, EmbedURLAttr)
		if !ok {
			s.logger.Warn().Msg("Entry hyperlink template has no URL pattern, links will render without href")
			break
		}
		compiled, err := pongo2.FromString(pattern)
		if err != nil {
			return nil, binderr.Wrapf(err, binderr.CodeConfiguration, "compile %s %q", EmbedURLAttr, pattern).
				With("node_type", string(nodeType))
		}
		tpl.urlPattern = compiled
	}

	return tpl, nil
}

// slotPath addresses the first rich-value descendant, or the root.
func slotPath(root *html.Node) dom.Path {
	slot := dom.Query(root, valueSelector)
	if slot == nil {
		return nil
	}
	path, _ := dom.PathTo(root, slot)
	return path
}

// listSlotPath addresses the first rich-value descendant that contains the
// child-item template, or the root.
func listSlotPath(root *html.Node) dom.Path {
	for _, candidate := range dom.QueryAll(root, valueSelector) {
		if dom.Query(candidate, childItemSelector) == nil {
			continue
		}
		path, _ := dom.PathTo(root, candidate)
		return path
	}
	return nil
}
