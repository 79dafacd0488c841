package markup

import (
	"errors"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/goliatone/go-contentbind/pkg/binderr"
	"github.com/goliatone/go-contentbind/pkg/dom"
	"github.com/goliatone/go-contentbind/pkg/listing"
	"github.com/goliatone/go-contentbind/pkg/logging"
	"github.com/goliatone/go-contentbind/pkg/property"
	"github.com/goliatone/go-contentbind/pkg/richtext"
)

var (
	listSelector        = cascadia.MustCompile("[" + ListAttr + "]")
	contentSelector     = cascadia.MustCompile("[" + ContentAttr + "]")
	propertySelector    = cascadia.MustCompile("[" + property.NameAttr + "]")
	chunkTargetSelector = cascadia.MustCompile("[" + ChunkTargetAttr + "]")
	richTextSelector    = cascadia.MustCompile("[" + property.NameAttr + "][" + property.TypeAttr + `="` + string(property.KindRichText) + `"]`)
)

// Option customises a Scanner.
type Option func(*Scanner)

// WithLogger sets the scanner logger. Rich-text registries built during the
// scan log through it as well.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// WithStrictTemplates makes malformed rich-text list templates fail the scan.
func WithStrictTemplates(strict bool) Option {
	return func(s *Scanner) {
		s.strict = strict
	}
}

// Scanner finds declarations in a document.
type Scanner struct {
	logger zerolog.Logger
	strict bool
}

// NewScanner constructs a Scanner.
func NewScanner(options ...Option) *Scanner {
	s := &Scanner{logger: logging.GetLogger("markup")}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Scan collects every list and content declared below root, assigns property
// ids, captures item and rich-text templates, and then empties list
// containers and rich-text property elements. Nothing is cleared when the
// scan fails.
func (s *Scanner) Scan(root *html.Node) (*Page, error) {
	defer logging.LogOperationStart(s.logger, "scan")()

	run := &scan{Scanner: s, alloc: NewAllocator()}
	page := &Page{}
	if root == nil {
		return page, nil
	}

	for _, el := range dom.QueryAll(root, listSelector) {
		if ancestorMatches(el, root, listSelector) {
			name, _ := dom.Attr(el, ListAttr)
			s.logger.Warn().Str("list", name).Msg("Nested list declaration ignored")
			continue
		}
		list, err := run.list(el)
		if err != nil {
			return nil, err
		}
		page.Lists = append(page.Lists, list)
	}

	for _, el := range dom.QueryAll(root, contentSelector) {
		if ancestorMatches(el, root, listSelector) {
			continue
		}
		c, err := run.content(el)
		if err != nil {
			return nil, err
		}
		page.Contents = append(page.Contents, c)
	}

	for _, list := range page.Lists {
		dom.Clear(list.Element)
	}
	for _, c := range page.Contents {
		for i, p := range c.Properties {
			if p.Kind == property.KindRichText {
				dom.Clear(c.Slots[i])
			}
		}
	}

	s.logger.Debug().
		Int("lists", len(page.Lists)).
		Int("contents", len(page.Contents)).
		Msg("Scanned document")
	return page, nil
}

type scan struct {
	*Scanner
	alloc *Allocator
}

func (s *scan) list(el *html.Node) (*List, error) {
	name, _ := dom.Attr(el, ListAttr)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, binderr.Configuration("%s attribute requires the content type name", ListAttr).
			With("element", el.Data)
	}

	children := dom.ElementChildren(el)
	if len(children) != 1 {
		return nil, binderr.Configuration("list %q must have exactly one child element defining the item template, found %d", name, len(children)).
			With("list", name)
	}

	binding := listing.Binding{Name: name}
	var err error
	if binding.Order, err = orderSpec(el); err != nil {
		return nil, withDetail(err, "list", name)
	}
	if binding.Limit, err = intAttr(el, LimitAttr, 0); err != nil {
		return nil, withDetail(err, "list", name)
	}
	chunkSize, err := intAttr(el, ChunkAttr, 0)
	if err != nil {
		return nil, withDetail(err, "list", name)
	}

	itemEl := children[0]
	var chunkRoot, target *html.Node
	if chunkSize != nil && *chunkSize > 0 {
		chunkRoot = children[0]
		target = chunkRoot
		if !dom.Matches(chunkRoot, chunkTargetSelector) {
			target = dom.Query(chunkRoot, chunkTargetSelector)
		}
		if target == nil {
			return nil, binderr.Configuration("list %q declares %s without a %s element", name, ChunkAttr, ChunkTargetAttr).
				With("list", name)
		}
		targetChildren := dom.ElementChildren(target)
		if len(targetChildren) != 1 {
			return nil, binderr.Configuration("list %q chunk target must have exactly one child element defining the item template, found %d", name, len(targetChildren)).
				With("list", name)
		}
		itemEl = targetChildren[0]
	}

	properties, _, err := s.properties(itemEl, true)
	if err != nil {
		return nil, withDetail(err, "list", name)
	}
	binding.Properties = properties
	binding.Template = dom.Clone(itemEl)
	clearRichText(binding.Template)

	if chunkRoot != nil {
		path, _ := dom.PathTo(chunkRoot, target)
		binding.Chunk = &listing.ChunkSpec{
			Size:     *chunkSize,
			Template: dom.Clone(chunkRoot),
			Target:   path,
		}
	}

	return &List{Element: el, Binding: binding}, nil
}

func (s *scan) content(el *html.Node) (*Content, error) {
	name, _ := dom.Attr(el, ContentAttr)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, binderr.Configuration("%s attribute requires the content type name", ContentAttr).
			With("element", el.Data)
	}
	id, _ := dom.Attr(el, ContentIDAttr)
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, binderr.Configuration("content %q requires the %s attribute", name, ContentIDAttr).
			With("content", name)
	}

	properties, slots, err := s.properties(el, false)
	if err != nil {
		return nil, withDetail(err, "content", name)
	}
	return &Content{
		Alias:      s.alloc.Alias(),
		Name:       name,
		ID:         id,
		Element:    el,
		Properties: properties,
		Slots:      slots,
	}, nil
}

// properties collects the property declarations owned by scope: those not
// nested in another list, content or rich-text property.
func (s *scan) properties(scope *html.Node, includeRoot bool) ([]property.Property, []*html.Node, error) {
	var candidates []*html.Node
	if includeRoot && dom.Matches(scope, propertySelector) {
		candidates = append(candidates, scope)
	}
	candidates = append(candidates, dom.QueryAll(scope, propertySelector)...)

	var (
		properties []property.Property
		elements   []*html.Node
	)
	for _, el := range candidates {
		if el != scope && (ancestorMatches(el, scope, listSelector) ||
			ancestorMatches(el, scope, contentSelector) ||
			ancestorMatches(el, scope, richTextSelector)) {
			continue
		}
		p, err := s.property(el)
		if err != nil {
			return nil, nil, err
		}
		properties = append(properties, p)
		elements = append(elements, el)
	}
	return properties, elements, nil
}

func (s *scan) property(el *html.Node) (property.Property, error) {
	name, _ := dom.Attr(el, property.NameAttr)
	name = strings.TrimSpace(name)
	if name == "" {
		return property.Property{}, binderr.Configuration("%s attribute requires a value", property.NameAttr).
			With("element", el.Data)
	}
	rawKind, _ := dom.Attr(el, property.TypeAttr)
	kind, err := property.ParseKind(rawKind)
	if err != nil {
		return property.Property{}, withDetail(err, "property", name)
	}

	format, _ := dom.Attr(el, property.FormatAttr)
	fill, _ := dom.Attr(el, property.AttributeFillAttr)
	p := property.Property{
		ID:            s.alloc.PropertyID(),
		Name:          name,
		Kind:          kind,
		Format:        strings.TrimSpace(format),
		AttributeFill: strings.TrimSpace(fill),
	}

	if kind == property.KindRichText {
		registry, err := richtext.Build(el, richtext.WithLogger(s.logger), richtext.WithStrict(s.strict))
		if err != nil {
			return property.Property{}, withDetail(err, "property", name)
		}
		p.Registry = registry
	}

	dom.SetAttr(el, property.IDAttr, p.ID)
	return p, nil
}

func orderSpec(el *html.Node) (*listing.OrderSpec, error) {
	key, _ := dom.Attr(el, OrderAttr)
	rawType, _ := dom.Attr(el, OrderTypeAttr)
	rawDirection, _ := dom.Attr(el, OrderDirectionAttr)

	orderType, err := listing.ParseOrderType(rawType)
	if err != nil {
		return nil, err
	}
	direction, err := listing.ParseDirection(rawDirection)
	if err != nil {
		return nil, err
	}

	key = strings.TrimSpace(key)
	if key == "" && direction != listing.Random {
		return nil, nil
	}
	return &listing.OrderSpec{Key: key, Type: orderType, Direction: direction}, nil
}

// intAttr parses an optional integer attribute. Absent or blank yields nil.
func intAttr(el *html.Node, key string, minimum int) (*int, error) {
	raw, ok := dom.Attr(el, key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < minimum {
		return nil, binderr.Configuration("%s must be a non-negative integer, got %q", key, raw).
			With("attribute", key)
	}
	return &n, nil
}

// clearRichText empties rich-text property elements in a detached template
// so their template children never show up in placed clones.
func clearRichText(root *html.Node) {
	if dom.Matches(root, richTextSelector) {
		dom.Clear(root)
		return
	}
	for _, el := range dom.QueryAll(root, richTextSelector) {
		dom.Clear(el)
	}
}

// ancestorMatches reports whether any ancestor of el strictly below stop
// matches sel.
func ancestorMatches(el, stop *html.Node, sel cascadia.Selector) bool {
	for node := el.Parent; node != nil && node != stop; node = node.Parent {
		if dom.Matches(node, sel) {
			return true
		}
	}
	return false
}

func withDetail(err error, key string, value any) error {
	var be *binderr.Error
	if errors.As(err, &be) {
		if _, exists := be.Detail(key); !exists {
			be.With(key, value)
		}
	}
	return err
}
