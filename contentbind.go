// Package contentbind fills HTML documents annotated with data-contentful-*
// attributes from a headless CMS. The root package re-exports the pieces most
// callers need; the packages under pkg/ hold the implementation.
package contentbind

import (
	"context"
	"io"

	"golang.org/x/net/html"

	"github.com/goliatone/go-contentbind/pkg/contentful"
	"github.com/goliatone/go-contentbind/pkg/orchestrator"
)

// Option configures an orchestrator.
type Option = orchestrator.Option

// Fetcher sends one GraphQL query and returns the response data.
type Fetcher = contentful.Fetcher

// HTTPConfig locates a Contentful space on the GraphQL content API.
type HTTPConfig = contentful.HTTPConfig

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// NewHTTPFetcher builds a fetcher for the Contentful GraphQL CDN.
func NewHTTPFetcher(cfg HTTPConfig, options ...contentful.Option) (*contentful.HTTPFetcher, error) {
	return contentful.NewHTTPFetcher(cfg, options...)
}

// NewFileFetcher builds a fetcher that replays a recorded response.
func NewFileFetcher(path string, options ...contentful.Option) *contentful.FileFetcher {
	return contentful.NewFileFetcher(path, options...)
}

// WithFetcher forwards to orchestrator.WithFetcher.
func WithFetcher(fetcher Fetcher) Option {
	return orchestrator.WithFetcher(fetcher)
}

// BindHTML parses r, binds it with a one-off orchestrator and writes the
// result to w. It is the simplest entry point for callers that hold markup.
func BindHTML(ctx context.Context, r io.Reader, w io.Writer, options ...Option) error {
	return orchestrator.New(options...).BindHTML(ctx, r, w)
}

// BindDocument binds an already parsed document in place.
func BindDocument(ctx context.Context, doc *html.Node, options ...Option) error {
	return orchestrator.New(options...).Bind(ctx, doc)
}

// Query returns the GraphQL query a bind of doc would send. doc is scanned
// and therefore cleared like a bind would clear it.
func Query(doc *html.Node, options ...Option) (string, error) {
	return orchestrator.New(options...).Query(doc)
}
