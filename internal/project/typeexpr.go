package project

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// TypeExprKind distinguishes the forms of a manifest type expression.
type TypeExprKind uint8

const (
	ExprName TypeExprKind = iota
	ExprTuple
	ExprArray
	ExprFn
)

// TypeExpr is a parsed type expression:
//
//	type := ident ['<' type {',' type} '>']
//	      | '(' [type {',' type}] ')'
//	      | '[' type ';' int ']'
//	      | 'fn' '(' [type {',' type}] ')' '->' type
type TypeExpr struct {
	Kind TypeExprKind
	Name string
	// Args are generic arguments, tuple elements, the array element or fn
	// parameters.
	Args   []*TypeExpr
	Count  uint64
	Result *TypeExpr
}

func (e *TypeExpr) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e *TypeExpr) write(sb *strings.Builder) {
	list := func(open, close string) {
		sb.WriteString(open)
		for i, a := range e.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			a.write(sb)
		}
		sb.WriteString(close)
	}
	switch e.Kind {
	case ExprName:
		sb.WriteString(e.Name)
		if len(e.Args) > 0 {
			list("<", ">")
		}
	case ExprTuple:
		list("(", ")")
	case ExprArray:
		sb.WriteByte('[')
		e.Args[0].write(sb)
		fmt.Fprintf(sb, "; %d]", e.Count)
	case ExprFn:
		list("fn(", ") -> ")
		e.Result.write(sb)
	}
}

// TypeExprError reports the byte offset within the expression text.
type TypeExprError struct {
	Text string
	Pos  int
	Msg  string
}

func (e *TypeExprError) Error() string {
	return fmt.Sprintf("type %q at %d: %s", e.Text, e.Pos, e.Msg)
}

// ParseTypeExpr parses one complete type expression.
func ParseTypeExpr(text string) (*TypeExpr, error) {
	p := &typeParser{text: text}
	p.next()
	e, err := p.typ()
	if err != nil {
		return nil, err
	}
	if p.tok != tokEOF {
		return nil, p.errorf("unexpected %q", p.lit)
	}
	return e, nil
}

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokPunct
	tokArrow
	tokBad
)

type typeParser struct {
	text string
	off  int
	pos  int
	tok  tokKind
	lit  string
}

func (p *typeParser) errorf(format string, args ...any) error {
	return &TypeExprError{Text: p.text, Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *typeParser) next() {
	for p.off < len(p.text) && unicode.IsSpace(rune(p.text[p.off])) {
		p.off++
	}
	p.pos = p.off
	if p.off >= len(p.text) {
		p.tok, p.lit = tokEOF, ""
		return
	}
	c := p.text[p.off]
	switch {
	case c == '_' || unicode.IsLetter(rune(c)):
		end := p.off
		for end < len(p.text) {
			r := rune(p.text[end])
			if r != '_' && r != '.' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				break
			}
			end++
		}
		p.tok, p.lit = tokIdent, p.text[p.off:end]
		p.off = end
	case unicode.IsDigit(rune(c)):
		end := p.off
		for end < len(p.text) && unicode.IsDigit(rune(p.text[end])) {
			end++
		}
		p.tok, p.lit = tokInt, p.text[p.off:end]
		p.off = end
	case strings.HasPrefix(p.text[p.off:], "->"):
		p.tok, p.lit = tokArrow, "->"
		p.off += 2
	case strings.IndexByte("<>,()[];", c) >= 0:
		p.tok, p.lit = tokPunct, string(c)
		p.off++
	default:
		p.tok, p.lit = tokBad, string(c)
		p.off++
	}
}

func (p *typeParser) expect(lit string) error {
	if p.tok != tokPunct && p.tok != tokArrow || p.lit != lit {
		if p.tok == tokEOF {
			return p.errorf("expected %q, found end of input", lit)
		}
		return p.errorf("expected %q, found %q", lit, p.lit)
	}
	p.next()
	return nil
}

func (p *typeParser) is(lit string) bool {
	return p.tok == tokPunct && p.lit == lit
}

// list parses types separated by commas up to close, consuming close.
func (p *typeParser) list(close string) ([]*TypeExpr, error) {
	var out []*TypeExpr
	if p.is(close) {
		p.next()
		return out, nil
	}
	for {
		e, err := p.typ()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if !p.is(",") {
			break
		}
		p.next()
	}
	return out, p.expect(close)
}

func (p *typeParser) typ() (*TypeExpr, error) {
	switch {
	case p.tok == tokIdent && p.lit == "fn":
		p.next()
		if err := p.expect("("); err != nil {
			return nil, err
		}
		params, err := p.list(")")
		if err != nil {
			return nil, err
		}
		if err := p.expect("->"); err != nil {
			return nil, err
		}
		result, err := p.typ()
		if err != nil {
			return nil, err
		}
		return &TypeExpr{Kind: ExprFn, Args: params, Result: result}, nil

	case p.tok == tokIdent:
		e := &TypeExpr{Kind: ExprName, Name: p.lit}
		p.next()
		if p.is("<") {
			p.next()
			if p.is(">") {
				return nil, p.errorf("empty generic argument list")
			}
			args, err := p.list(">")
			if err != nil {
				return nil, err
			}
			e.Args = args
		}
		return e, nil

	case p.is("("):
		p.next()
		elems, err := p.list(")")
		if err != nil {
			return nil, err
		}
		return &TypeExpr{Kind: ExprTuple, Args: elems}, nil

	case p.is("["):
		p.next()
		elem, err := p.typ()
		if err != nil {
			return nil, err
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
		if p.tok != tokInt {
			return nil, p.errorf("expected array length")
		}
		n, err := strconv.ParseUint(p.lit, 10, 64)
		if err != nil {
			return nil, p.errorf("array length %s: %v", p.lit, err)
		}
		p.next()
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		return &TypeExpr{Kind: ExprArray, Args: []*TypeExpr{elem}, Count: n}, nil
	}
	if p.tok == tokEOF {
		return nil, p.errorf("expected a type, found end of input")
	}
	return nil, p.errorf("expected a type, found %q", p.lit)
}
