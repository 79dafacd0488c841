package contentful

import (
	"context"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-contentbind/pkg/binderr"
	"github.com/goliatone/go-contentbind/pkg/content"
	"github.com/goliatone/go-contentbind/pkg/logging"
)

// Defaults for the Content Delivery GraphQL API.
const (
	DefaultEndpoint    = "https://graphql.contentful.com/content/v1/spaces"
	DefaultEnvironment = "master"
	DefaultTimeout     = 15 * time.Second
)

// Fetcher runs a GraphQL query and returns the response's data object.
type Fetcher interface {
	Fetch(ctx context.Context, query string) (map[string]any, error)
}

// FetcherFunc adapts a function into a Fetcher.
type FetcherFunc func(ctx context.Context, query string) (map[string]any, error)

// Fetch delegates to the underlying function.
func (fn FetcherFunc) Fetch(ctx context.Context, query string) (map[string]any, error) {
	return fn(ctx, query)
}

// Option customises the fetchers.
type Option func(*options)

type options struct {
	logger    zerolog.Logger
	hasLogger bool
	client    *http.Client
	fsys      fs.FS
}

// WithLogger sets the fetcher logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
		o.hasLogger = true
	}
}

// WithHTTPClient replaces the HTTP client. Its Timeout is kept when set.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithFS makes the file fetcher read from fsys instead of the OS.
func WithFS(fsys fs.FS) Option {
	return func(o *options) {
		o.fsys = fsys
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if !o.hasLogger {
		o.logger = logging.GetLogger("contentful")
	}
	return o
}

// dataOf unwraps a GraphQL envelope. GraphQL errors fail the fetch. When
// bare is true a document without a data member is taken as the data
// itself, which lets recorded files omit the envelope.
func dataOf(envelope map[string]any, bare bool) (map[string]any, error) {
	if raw, ok := envelope["errors"]; ok {
		if list, _ := raw.([]any); len(list) > 0 {
			messages := make([]string, 0, len(list))
			for _, item := range list {
				entry, _ := content.AsMap(item)
				if msg, ok := entry["message"].(string); ok {
					messages = append(messages, msg)
				}
			}
			return nil, binderr.Newf(binderr.CodeFetch, "graphql errors: %s", strings.Join(messages, "; ")).
				With("errors", messages)
		}
	}

	raw, ok := envelope["data"]
	if !ok {
		if bare {
			return envelope, nil
		}
		return nil, binderr.New(binderr.CodeFetch, "graphql response has no data")
	}
	data, ok := content.AsMap(raw)
	if !ok {
		return nil, binderr.Newf(binderr.CodeFetch, "graphql data must be an object, got %T", raw)
	}
	return data, nil
}
