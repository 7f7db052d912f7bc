package sets

import (
	"fmt"
	"strings"
)

// Op is a binary set operator.
type Op byte

const (
	OpUnion               Op = '+'
	OpDifference          Op = '-'
	OpSymmetricDifference Op = '^'
	OpIntersection        Op = '&'
)

// Expr is a parsed set expression.
type Expr interface {
	String() string
}

// Ref references a persisted set, optionally pinned to a snapshot.
type Ref struct {
	Name string
}

func (r Ref) String() string { return r.Name }

// Computed references a set derived from repository state, such as @dirty.
type Computed struct {
	Name string
}

func (c Computed) String() string { return "@" + c.Name }

// Binary combines two expressions.
type Binary struct {
	Op          Op
	Left, Right Expr
}

func (b Binary) String() string {
	return fmt.Sprintf("(%s %c %s)", b.Left, b.Op, b.Right)
}

type tokenKind int

const (
	tokName tokenKind = iota
	tokComputed
	tokOp
	tokOpen
	tokClose
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '.'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// dateSuffix reports whether s starts with -YYYY-MM-DD that is not followed
// by another name character.
func dateSuffix(s string) bool {
	const layout = "-0000-00-00"
	if len(s) < len(layout) {
		return false
	}
	for i := 0; i < len(layout); i++ {
		if layout[i] == '-' && s[i] != '-' || layout[i] == '0' && !isDigit(s[i]) {
			return false
		}
	}
	return len(s) == len(layout) || !isNameByte(s[len(layout)])
}

func lex(expr string) ([]token, error) {
	var toks []token
	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokOpen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokClose, ")", i})
			i++
		case strings.IndexByte("+-^&", c) >= 0:
			toks = append(toks, token{tokOp, string(c), i})
			i++
		case c == '@':
			j := i + 1
			for j < len(expr) && isNameByte(expr[j]) {
				j++
			}
			if j == i+1 {
				return nil, &ParseError{Expr: expr, Offset: i, Msg: "expected computed set name after @"}
			}
			toks = append(toks, token{tokComputed, expr[i+1 : j], i})
			i = j
		case isNameByte(c):
			j := i
			for j < len(expr) && isNameByte(expr[j]) {
				j++
			}
			if dateSuffix(expr[j:]) {
				j += len("-0000-00-00")
			}
			toks = append(toks, token{tokName, expr[i:j], i})
			i = j
		default:
			return nil, &ParseError{Expr: expr, Offset: i, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	return append(toks, token{tokEOF, "", len(expr)}), nil
}

type parser struct {
	expr string
	toks []token
	pos  int
}

// ParseExpr parses a set expression. Operators are applied left to right
// with equal precedence; parentheses group.
func ParseExpr(expr string) (Expr, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{expr: expr, toks: toks}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %q", t.text)
	}
	return e, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &ParseError{Expr: p.expr, Offset: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp {
		op := Op(p.next().text[0])
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseOperand() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokName:
		return Ref{Name: t.text}, nil
	case tokComputed:
		return Computed{Name: t.text}, nil
	case tokOpen:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokClose {
			return nil, p.errorf(c, "expected )")
		}
		return e, nil
	case tokEOF:
		return nil, p.errorf(t, "unexpected end of expression")
	default:
		return nil, p.errorf(t, "unexpected %q", t.text)
	}
}
