package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/goliatone/go-pickupform/pkg/visibility"
)

// Evaluator compiles and evaluates rule expressions.
//
// Supported syntax:
//   - truthiness: `note`, `!note`
//   - comparisons: `service == "引越し"`, `parking != "なし"`, `images == 0`
//   - membership: `service in ["遺品整理", "ゴミ屋敷片付け"]`
//   - composition: `a && (b || !c)`
//
// Compiled programs are cached per rule string.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*Program
}

// New returns an Evaluator with an empty program cache.
func New() *Evaluator {
	return &Evaluator{cache: make(map[string]*Program)}
}

var _ visibility.Evaluator = (*Evaluator)(nil)

// Eval compiles rule (or reuses the cached program) and evaluates it.
func (e *Evaluator) Eval(rule string, ctx visibility.Context) (bool, error) {
	prog, err := e.program(rule)
	if err != nil {
		return false, err
	}
	return prog.Eval(ctx)
}

func (e *Evaluator) program(rule string) (*Program, error) {
	e.mu.RLock()
	prog, ok := e.cache[rule]
	e.mu.RUnlock()
	if ok {
		return prog, nil
	}
	prog, err := Compile(rule)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.cache == nil {
		e.cache = make(map[string]*Program)
	}
	e.cache[rule] = prog
	e.mu.Unlock()
	return prog, nil
}

// Program is a compiled rule.
type Program struct {
	source string
	root   node
}

// Compile parses rule into a Program. An empty rule compiles to a program that
// always holds.
func Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return &Program{}, nil
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("visibility/expr: unexpected %q in %q", p.tokens[p.pos].raw, trimmed)
	}
	return &Program{source: trimmed, root: root}, nil
}

// String returns the normalised rule text.
func (p *Program) String() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Eval evaluates the program against ctx.
func (p *Program) Eval(ctx visibility.Context) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.eval(ctx)
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokBool
	tokNull
	tokEq
	tokNeq
	tokAnd
	tokOr
	tokNot
	tokIn
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
)

type token struct {
	kind tokenKind
	raw  string
}

func tokenize(input string) ([]token, error) {
	runes := []rune(input)
	var tokens []token
	for i := 0; i < len(runes); {
		ch := runes[i]
		switch {
		case unicode.IsSpace(ch):
			i++
		case ch == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case ch == '[':
			tokens = append(tokens, token{tokLBracket, "["})
			i++
		case ch == ']':
			tokens = append(tokens, token{tokRBracket, "]"})
			i++
		case ch == ',':
			tokens = append(tokens, token{tokComma, ","})
			i++
		case ch == '!':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{tokNeq, "!="})
				i += 2
				continue
			}
			tokens = append(tokens, token{tokNot, "!"})
			i++
		case ch == '=' || ch == '&' || ch == '|':
			if i+1 >= len(runes) || runes[i+1] != ch {
				return nil, fmt.Errorf("visibility/expr: unexpected %q; use %q", string(ch), string([]rune{ch, ch}))
			}
			kind := map[rune]tokenKind{'=': tokEq, '&': tokAnd, '|': tokOr}[ch]
			tokens = append(tokens, token{kind, string([]rune{ch, ch})})
			i += 2
		case ch == '"' || ch == '\'':
			value, next, err := readString(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokString, value})
			i = next
		default:
			start := i
			for i < len(runes) && !isDelimiter(runes[i]) {
				i++
			}
			tokens = append(tokens, classify(string(runes[start:i])))
		}
	}
	return tokens, nil
}

func readString(runes []rune, start int) (string, int, error) {
	quote := runes[start]
	var b strings.Builder
	for i := start + 1; i < len(runes); i++ {
		ch := runes[i]
		if ch == '\\' && i+1 < len(runes) {
			i++
			b.WriteRune(runes[i])
			continue
		}
		if ch == quote {
			return b.String(), i + 1, nil
		}
		b.WriteRune(ch)
	}
	return "", 0, errors.New("visibility/expr: unterminated string literal")
}

func isDelimiter(ch rune) bool {
	if unicode.IsSpace(ch) {
		return true
	}
	return strings.ContainsRune("()[],!=&|\"'", ch)
}

func classify(raw string) token {
	switch strings.ToLower(raw) {
	case "true", "false":
		return token{tokBool, strings.ToLower(raw)}
	case "null", "nil":
		return token{tokNull, "null"}
	case "in":
		return token{tokIn, "in"}
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return token{tokNumber, raw}
	}
	return token{tokIdent, raw}
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) match(kind tokenKind) bool {
	if p.pos < len(p.tokens) && p.tokens[p.pos].kind == kind {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.match(tokOr) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.match(tokAnd) {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.match(tokNot) {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	if p.match(tokLParen) {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.match(tokRParen) {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}
	if p.pos >= len(p.tokens) {
		return nil, errors.New("visibility/expr: unexpected end of expression")
	}
	ident := p.tokens[p.pos]
	if ident.kind != tokIdent {
		return nil, fmt.Errorf("visibility/expr: expected field name, got %q", ident.raw)
	}
	p.pos++

	switch {
	case p.match(tokEq):
		lit, err := p.literal()
		return compareNode{field: ident.raw, negate: false, want: lit}, err
	case p.match(tokNeq):
		lit, err := p.literal()
		return compareNode{field: ident.raw, negate: true, want: lit}, err
	case p.match(tokIn):
		set, err := p.list()
		return inNode{field: ident.raw, set: set}, err
	}
	return truthyNode{field: ident.raw}, nil
}

func (p *parser) literal() (token, error) {
	if p.pos >= len(p.tokens) {
		return token{}, errors.New("visibility/expr: missing literal")
	}
	tok := p.tokens[p.pos]
	p.pos++
	switch tok.kind {
	case tokString, tokNumber, tokBool, tokNull:
		return tok, nil
	case tokIdent:
		// bare words compare as strings
		return token{tokString, tok.raw}, nil
	}
	return token{}, fmt.Errorf("visibility/expr: expected literal, got %q", tok.raw)
}

func (p *parser) list() ([]token, error) {
	if !p.match(tokLBracket) {
		return nil, errors.New("visibility/expr: expected '[' after in")
	}
	var out []token
	if p.match(tokRBracket) {
		return out, nil
	}
	for {
		lit, err := p.literal()
		if err != nil {
			return nil, err
		}
		out = append(out, lit)
		if p.match(tokRBracket) {
			return out, nil
		}
		if !p.match(tokComma) {
			return nil, errors.New("visibility/expr: expected ',' or ']' in list")
		}
	}
}

type node interface {
	eval(ctx visibility.Context) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type andNode struct{ left, right node }

func (n andNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type notNode struct{ inner node }

func (n notNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	return !ok && err == nil, err
}

type truthyNode struct{ field string }

func (n truthyNode) eval(ctx visibility.Context) (bool, error) {
	value, ok := ctx.Values[n.field]
	return ok && truthy(value), nil
}

type compareNode struct {
	field  string
	negate bool
	want   token
}

func (n compareNode) eval(ctx visibility.Context) (bool, error) {
	equal, err := matches(ctx.Values[n.field], n.want)
	if err != nil {
		return false, err
	}
	return equal != n.negate, nil
}

type inNode struct {
	field string
	set   []token
}

func (n inNode) eval(ctx visibility.Context) (bool, error) {
	value := ctx.Values[n.field]
	for _, candidate := range n.set {
		ok, err := matches(value, candidate)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func matches(value any, lit token) (bool, error) {
	switch lit.kind {
	case tokNull:
		return value == nil || value == "", nil
	case tokBool:
		return truthy(value) == (lit.raw == "true"), nil
	case tokNumber:
		want, err := strconv.ParseFloat(lit.raw, 64)
		if err != nil {
			return false, fmt.Errorf("visibility/expr: invalid number %q", lit.raw)
		}
		got, ok := number(value)
		return ok && got == want, nil
	default:
		return stringify(value) == lit.raw, nil
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
		return strings.TrimSpace(v) != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
