package contentful

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-contentbind/pkg/binderr"
)

// FileFetcher serves a recorded GraphQL response from disk. The file may be
// JSON or YAML, with or without the {"data": ...} envelope. The query is
// ignored.
type FileFetcher struct {
	path   string
	fsys   fs.FS
	logger zerolog.Logger
}

var _ Fetcher = (*FileFetcher)(nil)

// NewFileFetcher constructs a fetcher for path.
func NewFileFetcher(path string, opts ...Option) *FileFetcher {
	o := newOptions(opts)
	return &FileFetcher{path: path, fsys: o.fsys, logger: o.logger}
}

// Fetch reads and decodes the recorded response.
func (f *FileFetcher) Fetch(ctx context.Context, query string) (map[string]any, error) {
	if strings.TrimSpace(f.path) == "" {
		return nil, binderr.New(binderr.CodeFetch, "recorded response path is required")
	}
	select {
	case <-ctx.Done():
		return nil, binderr.Wrap(ctx.Err(), binderr.CodeFetch, "read recorded response")
	default:
	}

	data, err := f.read()
	if err != nil {
		return nil, binderr.Wrap(err, binderr.CodeFetch, "read recorded response").With("path", f.path)
	}

	f.logger.Debug().
		Str("path", f.path).
		Int("query_bytes", len(query)).
		Msg("Serving recorded content")

	var envelope map[string]any
	if err := yaml.Unmarshal(data, &envelope); err != nil {
		return nil, binderr.Wrap(err, binderr.CodeFetch, "decode recorded response").With("path", f.path)
	}
	if envelope == nil {
		return nil, binderr.New(binderr.CodeFetch, "recorded response is empty").With("path", f.path)
	}
	return dataOf(envelope, true)
}

func (f *FileFetcher) read() ([]byte, error) {
	if f.fsys != nil {
		return fs.ReadFile(f.fsys, filepath.ToSlash(f.path))
	}
	abs, err := filepath.Abs(f.path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}
