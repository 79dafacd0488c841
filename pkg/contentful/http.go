package contentful

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-contentbind/pkg/binderr"
)

// HTTPConfig locates a space on the GraphQL API.
type HTTPConfig struct {
	Endpoint    string
	SpaceID     string
	Environment string
	AccessToken string
	Timeout     time.Duration
}

// HTTPFetcher posts queries to the Content Delivery GraphQL API.
type HTTPFetcher struct {
	url     string
	token   string
	timeout time.Duration
	client  *http.Client
	logger  zerolog.Logger
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher validates cfg and constructs a fetcher. Blank endpoint,
// environment and timeout fall back to the defaults.
func NewHTTPFetcher(cfg HTTPConfig, opts ...Option) (*HTTPFetcher, error) {
	if strings.TrimSpace(cfg.SpaceID) == "" {
		return nil, binderr.Configuration("contentful: space id is required")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, binderr.Configuration("contentful: access token is required")
	}
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = DefaultEnvironment
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	o := newOptions(opts)
	client := &http.Client{Timeout: timeout}
	if o.client != nil {
		clone := *o.client
		if clone.Timeout == 0 {
			clone.Timeout = timeout
		}
		client = &clone
	}

	return &HTTPFetcher{
		url:     endpoint + "/" + url.PathEscape(strings.TrimSpace(cfg.SpaceID)) + "/environments/" + url.PathEscape(environment),
		token:   strings.TrimSpace(cfg.AccessToken),
		timeout: timeout,
		client:  client,
		logger:  o.logger,
	}, nil
}

// URL returns the resolved GraphQL endpoint.
func (f *HTTPFetcher) URL() string { return f.url }

// Fetch posts query and returns the response data. Transport failures,
// non-2xx statuses and GraphQL errors are FETCH errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, query string) (map[string]any, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, binderr.Wrap(err, binderr.CodeFetch, "encode graphql request")
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return nil, binderr.Wrap(err, binderr.CodeFetch, "build graphql request")
	}
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set("Content-Type", "application/json")

	f.logger.Debug().
		Str("url", f.url).
		Int("query_bytes", len(query)).
		Msg("Fetching content")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, binderr.Wrap(err, binderr.CodeFetch, "graphql request failed").With("url", f.url)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, binderr.Wrap(err, binderr.CodeFetch, "read graphql response").With("url", f.url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, binderr.Newf(binderr.CodeFetch, "unexpected status %s", resp.Status).
			With("status", resp.StatusCode).
			With("body", string(payload))
	}

	var envelope map[string]any
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, binderr.Wrap(err, binderr.CodeFetch, "decode graphql response")
	}
	return dataOf(envelope, false)
}
