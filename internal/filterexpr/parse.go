// Package filterexpr parses the backend filter language and evaluates it
// either in memory or as a SQLite WHERE clause, with identical semantics.
//
//	expr       := or
//	or         := and ('||' and)*
//	and        := unary ('&&' unary)*
//	unary      := '(' expr ')' | comparison
//	comparison := field op value
//	op         := '=' | '!=' | '~' | '!~'
//	value      := 'quoted' | "quoted" | number | true | false | null
//
// Fields are id, path, slug, content, created, updated, deleted, hash and
// frontmatter.<key>. Missing values compare as the empty string.
package filterexpr

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ErrSyntax is wrapped by every parse failure.
var ErrSyntax = errors.New("filter syntax error")

// Op is a comparison operator.
type Op string

// Operators.
const (
	OpEq      Op = "="
	OpNeq     Op = "!="
	OpLike    Op = "~"
	OpNotLike Op = "!~"
)

// FrontmatterPrefix namespaces frontmatter keys in field references.
const FrontmatterPrefix = "frontmatter."

// Fields lists the top-level record fields a filter may reference.
var Fields = []string{"id", "path", "slug", "content", "created", "updated", "deleted", "hash"}

var keyRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Expr is a parsed filter.
type Expr interface {
	isExpr()
}

// All matches every record; it is what the empty filter parses to.
type All struct{}

// And matches when every term matches.
type And struct {
	Terms []Expr
}

// Or matches when any term matches.
type Or struct {
	Terms []Expr
}

// Compare tests one field against a literal.
type Compare struct {
	Field string
	Op    Op
	Value string

	like *regexp.Regexp
}

func (All) isExpr()      {}
func (And) isExpr()      {}
func (Or) isExpr()       {}
func (*Compare) isExpr() {}

// Parse parses s. Blank input yields All.
func Parse(s string) (Expr, error) {
	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return All{}, nil
	}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, t.text, t.pos)
	}
	return e, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (Expr, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []Expr{first}
	for p.peek().kind == tokOr {
		p.next()
		e, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, e)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return Or{Terms: terms}, nil
}

func (p *parser) parseAnd() (Expr, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	terms := []Expr{first}
	for p.peek().kind == tokAnd {
		p.next()
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		terms = append(terms, e)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return And{Terms: terms}, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.peek().kind == tokLParen {
		open := p.next()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t := p.next(); t.kind != tokRParen {
			return nil, fmt.Errorf("%w: unclosed parenthesis opened at %d", ErrSyntax, open.pos)
		}
		return e, nil
	}
	return p.parseCompare()
}

func (p *parser) parseCompare() (Expr, error) {
	ft := p.next()
	if ft.kind != tokIdent {
		return nil, fmt.Errorf("%w: expected field at %d, got %q", ErrSyntax, ft.pos, ft.text)
	}
	if err := checkField(ft.text); err != nil {
		return nil, fmt.Errorf("%w: %v at %d", ErrSyntax, err, ft.pos)
	}
	ot := p.next()
	if ot.kind != tokOp {
		return nil, fmt.Errorf("%w: expected operator after %q at %d", ErrSyntax, ft.text, ot.pos)
	}
	vt := p.next()
	var value string
	switch vt.kind {
	case tokString:
		value = vt.text
	case tokNumber:
		f, err := strconv.ParseFloat(vt.text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q at %d", ErrSyntax, vt.text, vt.pos)
		}
		value = strconv.FormatFloat(f, 'f', -1, 64)
	case tokIdent:
		switch vt.text {
		case "true", "false":
			value = vt.text
		case "null":
			value = ""
		default:
			return nil, fmt.Errorf("%w: field comparisons are not supported (%q at %d)", ErrSyntax, vt.text, vt.pos)
		}
	default:
		return nil, fmt.Errorf("%w: expected value at %d", ErrSyntax, vt.pos)
	}

	c := &Compare{Field: ft.text, Op: Op(ot.text), Value: value}
	if c.Op == OpLike || c.Op == OpNotLike {
		c.like = likeRegexp(LikePattern(value))
	}
	return c, nil
}

func checkField(name string) error {
	if key, ok := strings.CutPrefix(name, FrontmatterPrefix); ok {
		if !keyRe.MatchString(key) {
			return fmt.Errorf("invalid frontmatter key %q", key)
		}
		return nil
	}
	for _, f := range Fields {
		if f == name {
			return nil
		}
	}
	return fmt.Errorf("unknown field %q", name)
}

// LikePattern returns the LIKE pattern for a ~ operand: values without an
// unescaped % are wrapped as %value%.
func LikePattern(v string) string {
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '\\':
			i++
		case '%':
			return v
		}
	}
	return "%" + v + "%"
}

// likeRegexp compiles a LIKE pattern with backslash escapes into an
// anchored regexp. Case folding covers ASCII letters only, as SQLite's LIKE
// does.
func likeRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`(?s)^`)
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(foldASCII(r))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(`.*`)
		case r == '_':
			b.WriteString(`.`)
		default:
			b.WriteString(foldASCII(r))
		}
	}
	if escaped {
		b.WriteString(`\\`)
	}
	b.WriteString(`$`)
	return regexp.MustCompile(b.String())
}

func foldASCII(r rune) string {
	switch {
	case r >= 'a' && r <= 'z':
		return "[" + string(r) + string(r-'a'+'A') + "]"
	case r >= 'A' && r <= 'Z':
		return "[" + string(r-'A'+'a') + string(r) + "]"
	default:
		return regexp.QuoteMeta(string(r))
	}
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokOp
	tokAnd
	tokOr
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(s string) ([]token, error) {
	var out []token
	rs := []rune(s)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			out = append(out, token{tokLParen, "(", i})
			i++
		case r == ')':
			out = append(out, token{tokRParen, ")", i})
			i++
		case r == '&' || r == '|':
			if i+1 >= len(rs) || rs[i+1] != r {
				return nil, fmt.Errorf("%w: expected %c%c at %d", ErrSyntax, r, r, i)
			}
			kind := tokAnd
			if r == '|' {
				kind = tokOr
			}
			out = append(out, token{kind, string([]rune{r, r}), i})
			i += 2
		case r == '=' || r == '~':
			out = append(out, token{tokOp, string(r), i})
			i++
		case r == '!':
			if i+1 < len(rs) && (rs[i+1] == '=' || rs[i+1] == '~') {
				out = append(out, token{tokOp, string(rs[i : i+2]), i})
				i += 2
				continue
			}
			return nil, fmt.Errorf("%w: negation is only supported as != or !~ (at %d)", ErrSyntax, i)
		case r == '\'' || r == '"':
			text, next, err := lexString(rs, i)
			if err != nil {
				return nil, err
			}
			out = append(out, token{tokString, text, i})
			i = next
		case r == '-' || unicode.IsDigit(r):
			start := i
			i++
			for i < len(rs) && (unicode.IsDigit(rs[i]) || rs[i] == '.') {
				i++
			}
			out = append(out, token{tokNumber, string(rs[start:i]), start})
		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(rs) && (rs[i] == '_' || rs[i] == '.' || unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i])) {
				i++
			}
			out = append(out, token{tokIdent, string(rs[start:i]), start})
		default:
			return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, r, i)
		}
	}
	out = append(out, token{tokEOF, "", len(rs)})
	return out, nil
}

// lexString reads a quoted literal. A backslash escapes the quote character
// and itself; before any other character it is kept, so \% reaches a LIKE
// pattern as an escaped wildcard.
func lexString(rs []rune, start int) (string, int, error) {
	quote := rs[start]
	var b strings.Builder
	for i := start + 1; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == '\\' && i+1 < len(rs):
			n := rs[i+1]
			if n == quote || n == '\\' {
				b.WriteRune(n)
			} else {
				b.WriteRune('\\')
				b.WriteRune(n)
			}
			i++
		case r == quote:
			return b.String(), i + 1, nil
		default:
			b.WriteRune(r)
		}
	}
	return "", 0, fmt.Errorf("%w: unterminated string at %d", ErrSyntax, start)
}
