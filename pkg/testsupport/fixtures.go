package testsupport

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/goliatone/go-contentbind/pkg/dom"
)

// MustParseFragment parses markup that holds exactly one root element and
// returns it detached. Testing helpers fail the test on error to keep
// table cases concise.
func MustParseFragment(t *testing.T, markup string) *html.Node {
	t.Helper()

	nodes, err := dom.ParseFragment(strings.TrimSpace(markup))
	if err != nil {
		t.Fatalf("parse fragment: %v", err)
	}
	var roots []*html.Node
	for _, node := range nodes {
		if node.Type == html.ElementNode {
			roots = append(roots, node)
		}
	}
	if len(roots) != 1 {
		t.Fatalf("expected one root element, got %d", len(roots))
	}
	return roots[0]
}

// MustParseDocument parses a full HTML document.
func MustParseDocument(t *testing.T, markup string) *html.Node {
	t.Helper()

	doc, err := dom.ParseDocument(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

// RenderHTML serialises n.
func RenderHTML(t *testing.T, n *html.Node) string {
	t.Helper()

	out, err := dom.Render(n)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out
}

// RenderNodes serialises nodes back to back.
func RenderNodes(t *testing.T, nodes []*html.Node) string {
	t.Helper()

	out, err := dom.RenderNodes(nodes)
	if err != nil {
		t.Fatalf("render nodes: %v", err)
	}
	return out
}

// LogBuffer is a goroutine-safe sink for captured log output.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything written so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Empty reports whether nothing was logged.
func (b *LogBuffer) Empty() bool {
	return b.String() == ""
}

// CaptureLogger returns a JSON logger at trace level writing into a buffer,
// so tests can assert on emitted warnings without touching the global
// logger.
func CaptureLogger() (zerolog.Logger, *LogBuffer) {
	buf := &LogBuffer{}
	return zerolog.New(buf).Level(zerolog.TraceLevel), buf
}

// CaptureWarnings is CaptureLogger filtered to warnings and above.
func CaptureWarnings() (zerolog.Logger, *LogBuffer) {
	logger, buf := CaptureLogger()
	return logger.Level(zerolog.WarnLevel), buf
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
