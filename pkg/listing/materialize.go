// Package listing orders, limits, chunks and places repeated content
// instances into a list container, then resolves computed attributes.
package listing

import (
	"errors"
	"math/rand/v2"
	"strconv"

	"github.com/andybalholm/cascadia"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/goliatone/go-contentbind/pkg/binderr"
	"github.com/goliatone/go-contentbind/pkg/computed"
	"github.com/goliatone/go-contentbind/pkg/computed/expr"
	"github.com/goliatone/go-contentbind/pkg/dom"
	"github.com/goliatone/go-contentbind/pkg/logging"
	"github.com/goliatone/go-contentbind/pkg/property"
)

// Markup attributes written on placed items and read by the computed pass.
const (
	ContentAttr    = "data-contentful-content"
	IDAttr         = "data-contentful-id"
	IndexAttr      = "data-contentful-list-index"
	ChunkIndexAttr = "data-contentful-chunk-index"
	ComputedAttr   = "data-contentful-computed"
)

var computedSelector = cascadia.MustCompile("[" + ComputedAttr + "]")

// Instance is one realized list item. Index, Element and Slots are assigned
// during placement; Slots[i] is the clone's element for Binding.Properties[i]
// and Values[i] its decoded value.
type Instance struct {
	ID     string
	Fields map[string]any
	Values []property.Value

	Index   int
	Element *html.Node
	Slots   []*html.Node
}

// ChunkSpec groups consecutive items under clones of Template. Target
// addresses the element inside Template that receives the items.
type ChunkSpec struct {
	Size     int
	Template *html.Node
	Target   dom.Path
}

// Binding describes one declared list.
type Binding struct {
	Name       string
	Properties []property.Property
	Template   *html.Node
	Order      *OrderSpec
	Limit      *int
	Chunk      *ChunkSpec
}

// Binder fills a placed instance's property slots.
type Binder interface {
	Bind(inst *Instance) error
}

// BinderFunc adapts a function into a Binder.
type BinderFunc func(inst *Instance) error

// Bind delegates to the underlying function.
func (fn BinderFunc) Bind(inst *Instance) error { return fn(inst) }

// Option customises a Materializer.
type Option func(*Materializer)

// WithLogger sets the materializer logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Materializer) {
		m.logger = logger
	}
}

// WithEvaluator replaces the computed-attribute evaluator.
func WithEvaluator(evaluator computed.Evaluator) Option {
	return func(m *Materializer) {
		if evaluator != nil {
			m.evaluator = evaluator
		}
	}
}

// WithRand sets the source used for random order.
func WithRand(r *rand.Rand) Option {
	return func(m *Materializer) {
		m.rand = r
	}
}

// WithBinder sets the callback that fills each placed instance.
func WithBinder(binder Binder) Option {
	return func(m *Materializer) {
		m.binder = binder
	}
}

// Materializer places list instances. It keeps no per-call state.
type Materializer struct {
	logger    zerolog.Logger
	evaluator computed.Evaluator
	rand      *rand.Rand
	binder    Binder
}

// New constructs a Materializer with the built-in expression evaluator.
func New(options ...Option) *Materializer {
	m := &Materializer{
		logger:    logging.GetLogger("listing"),
		evaluator: expr.New(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Materialize orders, limits and places instances into container, then runs
// the computed-attribute pass over it. Limit applies after ordering.
func (m *Materializer) Materialize(instances []*Instance, binding Binding, container *html.Node) error {
	if container == nil {
		return binderr.New(binderr.CodeInvalidInput, "listing: container is nil").With("list", binding.Name)
	}
	if binding.Template == nil {
		return binderr.Configuration("list %q has no item template", binding.Name).With("list", binding.Name)
	}

	items := Order(instances, binding.Order, m.rand)
	if binding.Limit != nil && *binding.Limit >= 0 && *binding.Limit < len(items) {
		items = items[:*binding.Limit]
	}

	m.logger.Debug().
		Str("list", binding.Name).
		Int("instances", len(instances)).
		Int("placed", len(items)).
		Msg("Materializing list")

	if binding.Chunk != nil && binding.Chunk.Size > 0 {
		if err := m.placeChunks(items, binding, container); err != nil {
			return err
		}
	} else {
		for i, inst := range items {
			if err := m.place(inst, binding, container, i); err != nil {
				return err
			}
		}
	}

	if err := ApplyComputed(container, m.evaluator); err != nil {
		return binderr.Wrapf(err, binderr.CodeExpression, "list %q", binding.Name).With("list", binding.Name)
	}
	return nil
}

// ChunkCount returns ceil(total/size).
func ChunkCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

func (m *Materializer) placeChunks(items []*Instance, binding Binding, container *html.Node) error {
	spec := binding.Chunk
	for chunk := 0; chunk < ChunkCount(len(items), spec.Size); chunk++ {
		chunkRoot := dom.Clone(spec.Template)
		target := spec.Target.Follow(chunkRoot)
		if target == nil {
			return binderr.Configuration("list %q chunk target not found in chunk template", binding.Name).
				With("list", binding.Name)
		}
		dom.Clear(target)
		dom.SetAttr(target, ChunkIndexAttr, strconv.Itoa(chunk))

		end := min((chunk+1)*spec.Size, len(items))
		for i := chunk * spec.Size; i < end; i++ {
			if err := m.place(items[i], binding, target, i); err != nil {
				return err
			}
		}
		dom.Append(container, chunkRoot)
	}
	return nil
}

// place clones the item template, tags it with identity and index, rebinds
// the property slots, appends it to target and hands it to the binder.
func (m *Materializer) place(inst *Instance, binding Binding, target *html.Node, index int) error {
	el := dom.Clone(binding.Template)
	dom.SetAttr(el, ContentAttr, binding.Name)
	dom.SetAttr(el, IDAttr, inst.ID)
	dom.SetAttr(el, IndexAttr, strconv.Itoa(index))

	inst.Index = index
	inst.Element = el
	inst.Slots = make([]*html.Node, len(binding.Properties))
	for i, p := range binding.Properties {
		inst.Slots[i] = dom.FindByAttr(el, property.IDAttr, p.ID)
	}

	dom.Append(target, el)
	if m.binder == nil {
		return nil
	}
	return m.binder.Bind(inst)
}

// ApplyComputed evaluates every attribute of root and its descendants that
// carry the computed marker, using each element's own list and chunk index
// attributes as context. The first failing attribute stops the pass; the
// attributes already evaluated keep their results.
func ApplyComputed(root *html.Node, evaluator computed.Evaluator) error {
	if root == nil {
		return nil
	}
	elements := dom.QueryAll(root, computedSelector)
	if dom.Matches(root, computedSelector) {
		elements = append(elements, root)
	}

	for _, el := range elements {
		ctx := computed.At(
			computed.ParseIndex(dom.Attr(el, IndexAttr)),
			computed.ParseIndex(dom.Attr(el, ChunkIndexAttr)),
		)
		for i := range el.Attr {
			attr := &el.Attr[i]
			if !computed.HasTokens(attr.Val) {
				continue
			}
			value, err := computed.Interpolate(attr.Val, evaluator, ctx)
			if err != nil {
				var be *binderr.Error
				if errors.As(err, &be) {
					be.With("attribute", attr.Key).With("element", el.Data)
				}
				return err
			}
			attr.Val = value
		}
	}
	return nil
}
