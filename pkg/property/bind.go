package property

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/goliatone/go-contentbind/pkg/binderr"
	"github.com/goliatone/go-contentbind/pkg/dom"
	"github.com/goliatone/go-contentbind/pkg/logging"
	"github.com/goliatone/go-contentbind/pkg/richtext"
)

// DefaultDateFormat is used when neither the element nor the binder names a
// format.
const DefaultDateFormat = "HH:mm, D MMMM, YYYY"

// BinderOption customises a Binder.
type BinderOption func(*Binder)

// WithLogger sets the binder logger.
func WithLogger(logger zerolog.Logger) BinderOption {
	return func(b *Binder) {
		b.logger = logger
	}
}

// WithDateFormat overrides the default date layout.
func WithDateFormat(layout string) BinderOption {
	return func(b *Binder) {
		if strings.TrimSpace(layout) != "" {
			b.dateFormat = layout
		}
	}
}

// WithRenderer injects the rich-text renderer.
func WithRenderer(renderer *richtext.Renderer) BinderOption {
	return func(b *Binder) {
		if renderer != nil {
			b.renderer = renderer
		}
	}
}

// Binder fills property elements from decoded values.
type Binder struct {
	logger     zerolog.Logger
	dateFormat string
	renderer   *richtext.Renderer
}

// NewBinder constructs a Binder.
func NewBinder(options ...BinderOption) *Binder {
	b := &Binder{
		logger:     logging.GetLogger("property"),
		dateFormat: DefaultDateFormat,
	}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}
	if b.renderer == nil {
		b.renderer = richtext.NewRenderer(richtext.WithLogger(b.logger))
	}
	return b
}

// Bind fills el with v according to p's kind. Missing values leave the
// element untouched.
func (b *Binder) Bind(el *html.Node, p Property, v Value) error {
	if el == nil {
		b.logger.Warn().Str("property", p.Name).Msg("Property element not found, skipping")
		return nil
	}
	if v.Missing {
		b.logger.Debug().Str("property", p.Name).Msg("Property value missing, leaving element untouched")
		return nil
	}
	h, ok := handlers[p.Kind]
	if !ok {
		return binderr.Configuration("unknown property kind %q", p.Kind).With("property", p.Name)
	}
	if err := h.bind(b, el, p, v); err != nil {
		var be *binderr.Error
		if errors.As(err, &be) {
			be.With("property", p.Name)
		}
		return err
	}
	return nil
}

// fillAttribute substitutes value into the attribute named by the element's
// attribute-fill declaration. It reports whether the element was handled.
func (b *Binder) fillAttribute(el *html.Node, p Property, value string) bool {
	if p.AttributeFill == "" {
		return false
	}
	current, ok := dom.Attr(el, p.AttributeFill)
	if !ok {
		b.logger.Warn().
			Str("property", p.Name).
			Str("attribute", p.AttributeFill).
			Msg("Attribute fill target not present on element, skipping")
		return true
	}
	dom.SetAttr(el, p.AttributeFill, strings.ReplaceAll(current, FillToken, value))
	return true
}
