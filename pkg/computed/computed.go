package computed

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-contentbind/pkg/binderr"
)

// Context is the index context a computed attribute is evaluated against.
// Either index may be absent.
type Context struct {
	Index      *int
	ChunkIndex *int
}

// At builds a context from optional indices.
func At(index, chunkIndex *int) Context {
	return Context{Index: index, ChunkIndex: chunkIndex}
}

// Int returns a pointer to v, for building contexts inline.
func Int(v int) *int { return &v }

// ParseIndex reads an index attribute value; blank or non-numeric values are
// absent.
func ParseIndex(raw string, ok bool) *int {
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &v
}

// Evaluator evaluates the inner text of one `{{...}}` token and returns its
// string form.
type Evaluator interface {
	Eval(expression string, ctx Context) (string, error)
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(expression string, ctx Context) (string, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(expression string, ctx Context) (string, error) {
	return fn(expression, ctx)
}

var tokenPattern = regexp.MustCompile(`\{\{(.*?)\}\}`)

// HasTokens reports whether raw contains at least one token.
func HasTokens(raw string) bool {
	return tokenPattern.MatchString(raw)
}

// Interpolate locates every non-overlapping `{{...}}` token in raw, evaluates
// all of them against ctx first, then splices the results into the original
// string by position. A failing token aborts with an EXPRESSION error and
// raw is left for the caller to keep.
func Interpolate(raw string, evaluator Evaluator, ctx Context) (string, error) {
	matches := tokenPattern.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return raw, nil
	}
	if evaluator == nil {
		return "", binderr.New(binderr.CodeExpression, "computed: evaluator is nil")
	}

	values := make([]string, len(matches))
	for i, match := range matches {
		expression := raw[match[2]:match[3]]
		value, err := evaluator.Eval(expression, ctx)
		if err != nil {
			return "", binderr.Wrapf(err, binderr.CodeExpression, "evaluate %q", expression).
				With("expression", expression)
		}
		values[i] = value
	}

	var b strings.Builder
	last := 0
	for i, match := range matches {
		b.WriteString(raw[last:match[0]])
		b.WriteString(values[i])
		last = match[1]
	}
	b.WriteString(raw[last:])
	return b.String(), nil
}
