// Package predicate compiles small boolean expressions over form values, as
// used by the DisabledWhen rule.
//
// Supported syntax:
//   - truthiness: `channel`
//   - comparisons: `age == 0`, `channel != "none"`, `social.twitter == null`
//   - composition: `a && !b`, `(a || b) && c`
//
// Identifiers are dotted paths resolved against the nested values tree. List
// items are addressed by index, for example `phNumbers.0.number`.
package predicate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrSyntax wraps every compile failure.
var ErrSyntax = errors.New("predicate: syntax error")

// Predicate is a compiled expression. It is immutable and safe for concurrent
// use.
type Predicate struct {
	source string
	root   node
	deps   []string
}

// Compile parses expr. An empty expression compiles to a predicate that is
// always false.
func Compile(expr string) (*Predicate, error) {
	trimmed := strings.TrimSpace(expr)
	p := &Predicate{source: trimmed}
	if trimmed == "" {
		return p, nil
	}

	tokens, err := scan(trimmed)
	if err != nil {
		return nil, err
	}
	parser := &parser{tokens: tokens}
	root, err := parser.parseOr()
	if err != nil {
		return nil, err
	}
	if parser.pos < len(parser.tokens) {
		return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, parser.tokens[parser.pos].text)
	}
	p.root = root

	seen := map[string]struct{}{}
	root.collect(seen)
	p.deps = make([]string, 0, len(seen))
	for dep := range seen {
		p.deps = append(p.deps, dep)
	}
	sort.Strings(p.deps)
	return p, nil
}

// MustCompile is Compile for expressions known at compile time.
func MustCompile(expr string) *Predicate {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the trimmed source expression.
func (p *Predicate) String() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Deps returns the sorted, de-duplicated paths the expression reads.
func (p *Predicate) Deps() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.deps...)
}

// Eval evaluates the predicate against a nested values tree.
func (p *Predicate) Eval(values map[string]any) (bool, error) {
	if p == nil || p.root == nil {
		return false, nil
	}
	return p.root.eval(values)
}

type kind int

const (
	kindIdent kind = iota
	kindString
	kindNumber
	kindBool
	kindNull
	kindEq
	kindNeq
	kindAnd
	kindOr
	kindNot
	kindLParen
	kindRParen
)

type tok struct {
	kind kind
	text string
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDelimiter(c byte) bool {
	return isSpace(c) || strings.IndexByte("()!=&|", c) >= 0
}

func scan(input string) ([]tok, error) {
	var out []tok
	for i := 0; i < len(input); {
		c := input[i]
		switch {
		case isSpace(c):
			i++
		case c == '(':
			out = append(out, tok{kindLParen, "("})
			i++
		case c == ')':
			out = append(out, tok{kindRParen, ")"})
			i++
		case c == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				out = append(out, tok{kindNeq, "!="})
				i += 2
				continue
			}
			out = append(out, tok{kindNot, "!"})
			i++
		case c == '=' || c == '&' || c == '|':
			if i+1 >= len(input) || input[i+1] != c {
				return nil, fmt.Errorf("%w: lone %q at offset %d", ErrSyntax, c, i)
			}
			k := map[byte]kind{'=': kindEq, '&': kindAnd, '|': kindOr}[c]
			out = append(out, tok{k, input[i : i+2]})
			i += 2
		case c == '"' || c == '\'':
			end := i + 1
			for end < len(input) && input[end] != c {
				if input[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(input) {
				return nil, fmt.Errorf("%w: unterminated string", ErrSyntax)
			}
			body := input[i+1 : end]
			if c == '\'' {
				body = strings.ReplaceAll(body, `\'`, `'`)
				body = strings.ReplaceAll(body, `"`, `\"`)
			}
			text, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return nil, fmt.Errorf("%w: bad string literal: %v", ErrSyntax, err)
			}
			out = append(out, tok{kindString, text})
			i = end + 1
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			word := input[start:i]
			switch lower := strings.ToLower(word); {
			case lower == "true" || lower == "false":
				out = append(out, tok{kindBool, lower})
			case lower == "null" || lower == "nil":
				out = append(out, tok{kindNull, "null"})
			case word[0] == '-' || word[0] == '+' || (word[0] >= '0' && word[0] <= '9'):
				out = append(out, tok{kindNumber, word})
			default:
				out = append(out, tok{kindIdent, word})
			}
		}
	}
	return out, nil
}

type parser struct {
	tokens []tok
	pos    int
}

func (p *parser) accept(k kind) (tok, bool) {
	if p.pos < len(p.tokens) && p.tokens[p.pos].kind == k {
		t := p.tokens[p.pos]
		p.pos++
		return t, true
	}
	return tok{}, false
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(kindOr); !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(kindAnd); !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if _, ok := p.accept(kindNot); ok {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	if _, ok := p.accept(kindLParen); ok {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, ok := p.accept(kindRParen); !ok {
			return nil, fmt.Errorf("%w: missing ')'", ErrSyntax)
		}
		return inner, nil
	}

	ident, ok := p.accept(kindIdent)
	if !ok {
		if p.pos >= len(p.tokens) {
			return nil, fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
		}
		return nil, fmt.Errorf("%w: expected a field path, got %q", ErrSyntax, p.tokens[p.pos].text)
	}

	for _, op := range []kind{kindEq, kindNeq} {
		if _, ok := p.accept(op); ok {
			lit, err := p.literal()
			if err != nil {
				return nil, err
			}
			return compareNode{path: ident.text, negate: op == kindNeq, lit: lit}, nil
		}
	}
	return truthyNode{path: ident.text}, nil
}

func (p *parser) literal() (tok, error) {
	if p.pos >= len(p.tokens) {
		return tok{}, fmt.Errorf("%w: missing literal", ErrSyntax)
	}
	t := p.tokens[p.pos]
	p.pos++
	switch t.kind {
	case kindString, kindNumber, kindBool, kindNull:
		return t, nil
	case kindIdent:
		// bare words compare as strings
		return tok{kindString, t.text}, nil
	default:
		return tok{}, fmt.Errorf("%w: expected literal, got %q", ErrSyntax, t.text)
	}
}

type node interface {
	eval(values map[string]any) (bool, error)
	collect(deps map[string]struct{})
}

type orNode struct{ left, right node }

func (n orNode) eval(values map[string]any) (bool, error) {
	ok, err := n.left.eval(values)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(values)
}

func (n orNode) collect(deps map[string]struct{}) {
	n.left.collect(deps)
	n.right.collect(deps)
}

type andNode struct{ left, right node }

func (n andNode) eval(values map[string]any) (bool, error) {
	ok, err := n.left.eval(values)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(values)
}

func (n andNode) collect(deps map[string]struct{}) {
	n.left.collect(deps)
	n.right.collect(deps)
}

type notNode struct{ inner node }

func (n notNode) eval(values map[string]any) (bool, error) {
	ok, err := n.inner.eval(values)
	return !ok, err
}

func (n notNode) collect(deps map[string]struct{}) { n.inner.collect(deps) }

type truthyNode struct{ path string }

func (n truthyNode) eval(values map[string]any) (bool, error) {
	v, _ := Lookup(values, n.path)
	return truthy(v), nil
}

func (n truthyNode) collect(deps map[string]struct{}) { deps[n.path] = struct{}{} }

type compareNode struct {
	path   string
	negate bool
	lit    tok
}

func (n compareNode) collect(deps map[string]struct{}) { deps[n.path] = struct{}{} }

func (n compareNode) eval(values map[string]any) (bool, error) {
	v, _ := Lookup(values, n.path)
	var equal bool
	switch n.lit.kind {
	case kindNull:
		equal = isNull(v)
	case kindBool:
		equal = boolean(v) == (n.lit.text == "true")
	case kindNumber:
		want, err := strconv.ParseFloat(n.lit.text, 64)
		if err != nil {
			return false, fmt.Errorf("predicate: invalid number %q", n.lit.text)
		}
		got, ok := number(v)
		equal = ok && got == want
	default:
		equal = text(v) == n.lit.text
	}
	if n.negate {
		return !equal, nil
	}
	return equal, nil
}

// Lookup resolves a dotted path inside a nested tree of maps and slices.
func Lookup(values map[string]any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" || values == nil {
		return nil, false
	}
	var current any = values
	for _, part := range strings.Split(path, ".") {
		switch typed := current.(type) {
		case map[string]any:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(typed) {
				return nil, false
			}
			current = typed[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

func isNull(v any) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(typed)
	case time.Time:
		return typed.IsZero()
	}
	return false
}

func truthy(v any) bool {
	switch typed := v.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return strings.TrimSpace(typed) != ""
	case float64:
		return typed != 0 && !math.IsNaN(typed)
	case int:
		return typed != 0
	case time.Time:
		return !typed.IsZero()
	case []any:
		return len(typed) > 0
	case map[string]any:
		return len(typed) > 0
	default:
		return true
	}
}

func boolean(v any) bool {
	if s, ok := v.(string); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b
		}
	}
	return truthy(v)
}

func number(v any) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		return typed, !math.IsNaN(typed)
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func text(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case time.Time:
		if typed.IsZero() {
			return ""
		}
		return typed.Format("2006-01-02")
	default:
		return fmt.Sprint(typed)
	}
}
