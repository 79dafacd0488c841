package expr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-contentbind/pkg/computed"
)

// Evaluator is a small, dependency-free interpreter for computed attribute
// tokens. It exposes only the index context, never host code.
//
// Supported syntax:
//   - identifiers: `index` (alias `listIndex`), `chunkIndex`
//   - literals: numbers, 'single' or "double" quoted strings, true, false, null
//   - arithmetic: `+ - * / %` (`+` concatenates when either side is a string)
//   - comparisons: `== != === !== < <= > >=`
//   - logic: `&& || !`, nullish fallback `??`, ternary `cond ? a : b`
//   - functions: floor, ceil, round, abs, min, max
type Evaluator struct{}

func New() *Evaluator { return &Evaluator{} }

// Ensure Evaluator satisfies computed.Evaluator.
var _ computed.Evaluator = (*Evaluator)(nil)

// Eval parses and evaluates expression, returning its string form. A null
// result renders as the empty string.
func (e *Evaluator) Eval(expression string, ctx computed.Context) (string, error) {
	value, err := e.Value(expression, ctx)
	if err != nil {
		return "", err
	}
	return stringify(value), nil
}

// Value parses and evaluates expression, returning the raw result (nil,
// float64, string, or bool).
func (e *Evaluator) Value(expression string, ctx computed.Context) (any, error) {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return nil, errors.New("computed/expr: empty expression")
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	node, err := parseExpression(tokens)
	if err != nil {
		return nil, err
	}
	return node.eval(ctx)
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenOperator
	tokenLParen
	tokenRParen
	tokenComma
)

type token struct {
	kind tokenKind
	raw  string
}

// Longest operators first so "===" wins over "==".
var operators = []string{
	"===", "!==", "==", "!=", "<=", ">=", "&&", "||", "??",
	"+", "-", "*", "/", "%", "<", ">", "!", "?", ":",
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	for i < len(input) {
		ch := input[i]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			i++
			continue
		}

		switch {
		case ch == '(':
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
			i++
			continue
		case ch == ')':
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
			i++
			continue
		case ch == ',':
			tokens = append(tokens, token{kind: tokenComma, raw: ","})
			i++
			continue
		case ch == '"' || ch == '\'':
			value, next, err := readString(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenString, raw: value})
			i = next
			continue
		case isDigit(ch) || (ch == '.' && i+1 < len(input) && isDigit(input[i+1])):
			start := i
			for i < len(input) && (isDigit(input[i]) || input[i] == '.') {
				i++
			}
			tokens = append(tokens, token{kind: tokenNumber, raw: input[start:i]})
			continue
		case isIdentStart(ch):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			raw := input[start:i]
			switch raw {
			case "true", "false":
				tokens = append(tokens, token{kind: tokenBool, raw: raw})
			case "null", "undefined":
				tokens = append(tokens, token{kind: tokenNull, raw: "null"})
			default:
				tokens = append(tokens, token{kind: tokenIdentifier, raw: raw})
			}
			continue
		}

		matched := false
		for _, op := range operators {
			if strings.HasPrefix(input[i:], op) {
				tokens = append(tokens, token{kind: tokenOperator, raw: op})
				i += len(op)
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("computed/expr: unexpected character %q", ch)
		}
	}

	return tokens, nil
}

func readString(input string, start int) (string, int, error) {
	quote := input[start]
	var b strings.Builder
	escaped := false
	for i := start + 1; i < len(input); i++ {
		c := input[i]
		if escaped {
			switch c {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(c)
			}
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == quote {
			return b.String(), i + 1, nil
		}
		b.WriteByte(c)
	}
	return "", 0, errors.New("computed/expr: unterminated string literal")
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }

type exprNode interface {
	eval(ctx computed.Context) (any, error)
}

type literalNode struct{ value any }

func (n literalNode) eval(computed.Context) (any, error) { return n.value, nil }

type identNode struct{ name string }

func (n identNode) eval(ctx computed.Context) (any, error) {
	var ref *int
	switch n.name {
	case "index", "listIndex":
		ref = ctx.Index
	case "chunkIndex":
		ref = ctx.ChunkIndex
	default:
		return nil, fmt.Errorf("computed/expr: unknown identifier %q", n.name)
	}
	if ref == nil {
		return nil, nil
	}
	return float64(*ref), nil
}

type unaryNode struct {
	op    string
	inner exprNode
}

func (n unaryNode) eval(ctx computed.Context) (any, error) {
	value, err := n.inner.eval(ctx)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "!":
		return !truthy(value), nil
	case "-", "+":
		num, err := number(value, n.op)
		if err != nil {
			return nil, err
		}
		if n.op == "-" {
			return -num, nil
		}
		return num, nil
	}
	return nil, fmt.Errorf("computed/expr: unsupported unary operator %q", n.op)
}

type binaryNode struct {
	op          string
	left, right exprNode
}

func (n binaryNode) eval(ctx computed.Context) (any, error) {
	left, err := n.left.eval(ctx)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "&&":
		if !truthy(left) {
			return left, nil
		}
		return n.right.eval(ctx)
	case "||":
		if truthy(left) {
			return left, nil
		}
		return n.right.eval(ctx)
	case "??":
		if left != nil {
			return left, nil
		}
		return n.right.eval(ctx)
	}

	right, err := n.right.eval(ctx)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==", "===":
		return equal(left, right), nil
	case "!=", "!==":
		return !equal(left, right), nil
	case "+":
		_, ls := left.(string)
		_, rs := right.(string)
		if ls || rs {
			return stringify(left) + stringify(right), nil
		}
	case "<", "<=", ">", ">=":
		return compare(n.op, left, right)
	}

	a, err := number(left, n.op)
	if err != nil {
		return nil, err
	}
	b, err := number(right, n.op)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return nil, errors.New("computed/expr: division by zero")
		}
		return a / b, nil
	case "%":
		if b == 0 {
			return nil, errors.New("computed/expr: modulo by zero")
		}
		return math.Mod(a, b), nil
	}
	return nil, fmt.Errorf("computed/expr: unsupported operator %q", n.op)
}

type ternaryNode struct {
	cond, then, otherwise exprNode
}

func (n ternaryNode) eval(ctx computed.Context) (any, error) {
	cond, err := n.cond.eval(ctx)
	if err != nil {
		return nil, err
	}
	if truthy(cond) {
		return n.then.eval(ctx)
	}
	return n.otherwise.eval(ctx)
}

type callNode struct {
	name string
	args []exprNode
}

func (n callNode) eval(ctx computed.Context) (any, error) {
	values := make([]float64, 0, len(n.args))
	for _, arg := range n.args {
		v, err := arg.eval(ctx)
		if err != nil {
			return nil, err
		}
		num, err := number(v, n.name)
		if err != nil {
			return nil, err
		}
		values = append(values, num)
	}

	unary := func(fn func(float64) float64) (any, error) {
		if len(values) != 1 {
			return nil, fmt.Errorf("computed/expr: %s expects 1 argument, got %d", n.name, len(values))
		}
		return fn(values[0]), nil
	}

	switch n.name {
	case "floor":
		return unary(math.Floor)
	case "ceil":
		return unary(math.Ceil)
	case "round":
		return unary(func(v float64) float64 { return math.Floor(v + 0.5) })
	case "abs":
		return unary(math.Abs)
	case "min", "max":
		if len(values) == 0 {
			return nil, fmt.Errorf("computed/expr: %s expects at least 1 argument", n.name)
		}
		out := values[0]
		for _, v := range values[1:] {
			if n.name == "min" {
				out = math.Min(out, v)
			} else {
				out = math.Max(out, v)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("computed/expr: unknown function %q", n.name)
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseExpression(tokens []token) (exprNode, error) {
	stream := &tokenStream{tokens: tokens}
	node, err := parseTernary(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("computed/expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return node, nil
}

func parseTernary(stream *tokenStream) (exprNode, error) {
	cond, err := parseBinary(stream, 0)
	if err != nil {
		return nil, err
	}
	if !stream.matchOp("?") {
		return cond, nil
	}
	then, err := parseTernary(stream)
	if err != nil {
		return nil, err
	}
	if !stream.matchOp(":") {
		return nil, errors.New("computed/expr: missing ':' in conditional")
	}
	otherwise, err := parseTernary(stream)
	if err != nil {
		return nil, err
	}
	return ternaryNode{cond: cond, then: then, otherwise: otherwise}, nil
}

// Binary precedence levels, loosest first.
var precedence = [][]string{
	{"??"},
	{"||"},
	{"&&"},
	{"==", "!=", "===", "!=="},
	{"<", "<=", ">", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func parseBinary(stream *tokenStream, level int) (exprNode, error) {
	if level >= len(precedence) {
		return parseUnary(stream)
	}
	left, err := parseBinary(stream, level+1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := stream.matchAnyOp(precedence[level])
		if !ok {
			return left, nil
		}
		right, err := parseBinary(stream, level+1)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func parseUnary(stream *tokenStream) (exprNode, error) {
	if op, ok := stream.matchAnyOp([]string{"!", "-", "+"}); ok {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return unaryNode{op: op, inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (exprNode, error) {
	if stream.pos >= len(stream.tokens) {
		return nil, errors.New("computed/expr: unexpected end of expression")
	}
	tok := stream.tokens[stream.pos]
	stream.pos++

	switch tok.kind {
	case tokenLParen:
		inner, err := parseTernary(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("computed/expr: missing closing ')'")
		}
		return inner, nil
	case tokenNumber:
		value, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return nil, fmt.Errorf("computed/expr: invalid number literal %q", tok.raw)
		}
		return literalNode{value: value}, nil
	case tokenString:
		return literalNode{value: tok.raw}, nil
	case tokenBool:
		return literalNode{value: tok.raw == "true"}, nil
	case tokenNull:
		return literalNode{value: nil}, nil
	case tokenIdentifier:
		if stream.match(tokenLParen) {
			return parseCall(stream, tok.raw)
		}
		return identNode{name: tok.raw}, nil
	}
	return nil, fmt.Errorf("computed/expr: unexpected token %q", tok.raw)
}

func parseCall(stream *tokenStream, name string) (exprNode, error) {
	call := callNode{name: name}
	if stream.match(tokenRParen) {
		return call, nil
	}
	for {
		arg, err := parseTernary(stream)
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		if stream.match(tokenComma) {
			continue
		}
		if stream.match(tokenRParen) {
			return call, nil
		}
		return nil, fmt.Errorf("computed/expr: expected ',' or ')' in call to %s", name)
	}
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) matchOp(op string) bool {
	_, ok := s.matchAnyOp([]string{op})
	return ok
}

func (s *tokenStream) matchAnyOp(ops []string) (string, bool) {
	if s.pos >= len(s.tokens) {
		return "", false
	}
	tok := s.tokens[s.pos]
	if tok.kind != tokenOperator {
		return "", false
	}
	for _, op := range ops {
		if tok.raw == op {
			s.pos++
			return op, true
		}
	}
	return "", false
}

func number(value any, op string) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("computed/expr: %q is not a number (operator %s)", v, op)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("computed/expr: null operand for %s", op)
	}
	return 0, fmt.Errorf("computed/expr: unsupported operand %T for %s", value, op)
}

func compare(op string, left, right any) (any, error) {
	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		switch op {
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		case ">":
			return ls > rs, nil
		default:
			return ls >= rs, nil
		}
	}
	a, err := number(left, op)
	if err != nil {
		return nil, err
	}
	b, err := number(right, op)
	if err != nil {
		return nil, err
	}
	switch op {
	case "<":
		return a < b, nil
	case "<=":
		return a <= b, nil
	case ">":
		return a > b, nil
	default:
		return a >= b, nil
	}
}

func equal(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	switch l := left.(type) {
	case float64:
		if r, ok := right.(float64); ok {
			return l == r
		}
	case string:
		if r, ok := right.(string); ok {
			return l == r
		}
	case bool:
		if r, ok := right.(bool); ok {
			return l == r
		}
	}
	return false
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	}
	return true
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(value)
}
