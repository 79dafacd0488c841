package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/goliatone/go-contentbind/pkg/binderr"
	"github.com/goliatone/go-contentbind/pkg/computed"
	"github.com/goliatone/go-contentbind/pkg/contentful"
	"github.com/goliatone/go-contentbind/pkg/dom"
	"github.com/goliatone/go-contentbind/pkg/listing"
	"github.com/goliatone/go-contentbind/pkg/logging"
	"github.com/goliatone/go-contentbind/pkg/markup"
	"github.com/goliatone/go-contentbind/pkg/property"
	"github.com/goliatone/go-contentbind/pkg/richtext"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithFetcher sets where content is fetched from.
func WithFetcher(fetcher contentful.Fetcher) Option {
	return func(o *Orchestrator) {
		o.fetcher = fetcher
	}
}

// WithLogger routes every component's logging through logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
		o.hasLogger = true
	}
}

// WithEvaluator replaces the computed-attribute evaluator.
func WithEvaluator(evaluator computed.Evaluator) Option {
	return func(o *Orchestrator) {
		o.evaluator = evaluator
	}
}

// WithRand sets the source used for random list order.
func WithRand(r *rand.Rand) Option {
	return func(o *Orchestrator) {
		o.rand = r
	}
}

// WithDateFormat overrides the default date layout for date properties that
// declare no format of their own.
func WithDateFormat(layout string) Option {
	return func(o *Orchestrator) {
		o.dateFormat = layout
	}
}

// WithStrictTemplates makes malformed rich-text list templates fail the scan.
func WithStrictTemplates(strict bool) Option {
	return func(o *Orchestrator) {
		o.strict = strict
	}
}

// Orchestrator runs one binding pass over a document: scan, clear, query,
// fetch, resolve, then materialize lists and bind contents. It keeps no
// per-document state, so one instance can bind many documents.
type Orchestrator struct {
	fetcher    contentful.Fetcher
	logger     zerolog.Logger
	hasLogger  bool
	evaluator  computed.Evaluator
	rand       *rand.Rand
	dateFormat string
	strict     bool

	scanner *markup.Scanner
	binder  *property.Binder
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

func (o *Orchestrator) applyDefaults() {
	if !o.hasLogger {
		o.logger = logging.GetLogger("orchestrator")
	}
	o.scanner = markup.NewScanner(
		markup.WithLogger(o.logger),
		markup.WithStrictTemplates(o.strict),
	)
	o.binder = property.NewBinder(
		property.WithLogger(o.logger),
		property.WithDateFormat(o.dateFormat),
		property.WithRenderer(richtext.NewRenderer(richtext.WithLogger(o.logger))),
	)
}

// Query scans doc and returns the GraphQL query a Bind would send. The scan
// clears list containers and rich-text elements as Bind does.
func (o *Orchestrator) Query(doc *html.Node) (string, error) {
	page, err := o.scanner.Scan(doc)
	if err != nil {
		return "", fmt.Errorf("orchestrator: scan document: %w", err)
	}
	return contentful.BuildQuery(page), nil
}

// Bind fills doc in place. Scan and fetch failures abort before the document
// is touched beyond the scan. Property failures, such as a missing asset,
// abort only the owning property and are returned joined once every other
// property has been bound. An expression error aborts its list's computed
// pass and is returned with the rest.
func (o *Orchestrator) Bind(ctx context.Context, doc *html.Node) error {
	if ctx == nil {
		return errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil {
		return errors.New("orchestrator: document is required")
	}
	defer logging.LogOperationStart(o.logger, "bind")()

	page, err := o.scanner.Scan(doc)
	if err != nil {
		return fmt.Errorf("orchestrator: scan document: %w", err)
	}
	if page.Empty() {
		o.logger.Debug().Msg("Document declares no content, nothing to bind")
		return nil
	}
	if o.fetcher == nil {
		return binderr.Configuration("orchestrator: no content fetcher configured")
	}

	data, err := o.fetcher.Fetch(ctx, contentful.BuildQuery(page))
	if err != nil {
		return fmt.Errorf("orchestrator: fetch content: %w", err)
	}

	result := contentful.Resolve(page, data)
	errs := append([]error(nil), result.Problems...)
	for _, problem := range result.Problems {
		o.logger.Error().Err(problem).Msg("Content could not be resolved")
	}

	for i, list := range page.Lists {
		errs = append(errs, o.bindList(list, result.Lists[i])...)
	}
	for i, c := range page.Contents {
		errs = append(errs, o.bindContent(c, result.Contents[i])...)
	}
	return errors.Join(errs...)
}

// BindHTML parses a document from r, binds it and writes it to w. The
// document is written whenever binding got past the fetch, even if some
// properties failed; those failures are still returned.
func (o *Orchestrator) BindHTML(ctx context.Context, r io.Reader, w io.Writer) error {
	doc, err := dom.ParseDocument(r)
	if err != nil {
		return fmt.Errorf("orchestrator: parse document: %w", err)
	}
	bindErr := o.Bind(ctx, doc)
	if fatal(bindErr) {
		return bindErr
	}
	if err := html.Render(w, doc); err != nil {
		return errors.Join(bindErr, fmt.Errorf("orchestrator: render document: %w", err))
	}
	return bindErr
}

// fatal reports errors that stop a pass before any content is bound.
func fatal(err error) bool {
	if err == nil {
		return false
	}
	code, ok := binderr.CodeOf(err)
	if !ok {
		return true
	}
	return code == binderr.CodeConfiguration || code == binderr.CodeFetch
}

func (o *Orchestrator) bindList(list *markup.List, instances []*listing.Instance) []error {
	var errs []error
	properties := list.Binding.Properties

	materializer := listing.New(
		listing.WithLogger(o.logger),
		listing.WithEvaluator(o.evaluator),
		listing.WithRand(o.rand),
		listing.WithBinder(listing.BinderFunc(func(inst *listing.Instance) error {
			for j, p := range properties {
				if j >= len(inst.Values) {
					continue
				}
				if err := o.binder.Bind(inst.Slots[j], p, inst.Values[j]); err != nil {
					errs = append(errs, o.propertyFailed(err, p, "list", list.Name()))
				}
			}
			return nil
		})),
	)

	if err := materializer.Materialize(instances, list.Binding, list.Element); err != nil {
		o.logger.Error().Err(err).Str("list", list.Name()).Msg("List binding aborted")
		errs = append(errs, err)
	}
	return errs
}

func (o *Orchestrator) bindContent(c *markup.Content, values contentful.ContentValues) []error {
	if !values.Found {
		return nil
	}
	var errs []error
	for j, p := range c.Properties {
		if err := o.binder.Bind(c.Slots[j], p, values.Values[j]); err != nil {
			errs = append(errs, o.propertyFailed(err, p, "content", c.Name))
		}
	}
	return errs
}

func (o *Orchestrator) propertyFailed(err error, p property.Property, scope, name string) error {
	o.logger.Error().
		Err(err).
		Str("property", p.Name).
		Str(scope, name).
		Msg("Property binding aborted")

	var be *binderr.Error
	if errors.As(err, &be) {
		if _, ok := be.Detail(scope); !ok {
			be.With(scope, name)
		}
	}
	return err
}
