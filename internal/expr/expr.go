// Package expr evaluates a small arithmetic language: decimal literals,
// binary + - * /, unary + -, parentheses and sqrt(x). Nothing else is
// accepted, so caller-supplied text is never executed as code.
package expr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

const sqrtToken = "sqrt"

var ErrEmpty = errors.New("empty expression")

// Sanitize strips every character outside the calculator whitelist
// (digits, + - * / . ( ), whitespace and the sqrt token).
func Sanitize(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], sqrtToken) {
			b.WriteString(sqrtToken)
			i += len(sqrtToken)
			continue
		}
		c := s[i]
		switch {
		case c >= '0' && c <= '9', strings.IndexByte("+-*/.()", c) >= 0:
			b.WriteByte(c)
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			b.WriteByte(c)
		}
		i++
	}
	return b.String()
}

// Eval parses and evaluates s. The result may be non-finite (division by
// zero, sqrt of a negative); callers decide how to treat that.
func Eval(s string) (float64, error) {
	p := &parser{src: s}
	p.skipSpace()
	if p.done() {
		return 0, ErrEmpty
	}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if !p.done() {
		return 0, fmt.Errorf("unexpected %q at position %d", p.src[p.pos], p.pos)
	}
	return v, nil
}

// maxDepth bounds nesting of parentheses and unary operators.
const maxDepth = 256

type parser struct {
	src   string
	pos   int
	depth int
}

func (p *parser) done() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.done() && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

// expr := term (('+' | '-') term)*
func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

// term := unary (('*' | '/') unary)*
func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			left /= right
		}
	}
}

// unary := ('+' | '-') unary | primary
func (p *parser) parseUnary() (float64, error) {
	p.skipSpace()
	switch p.peek() {
	case '-', '+':
		op := p.peek()
		p.pos++
		if err := p.enter(); err != nil {
			return 0, err
		}
		defer p.leave()
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if op == '-' {
			return -v, nil
		}
		return v, nil
	}
	return p.parsePrimary()
}

// primary := number | '(' expr ')' | 'sqrt' '(' expr ')'
func (p *parser) parsePrimary() (float64, error) {
	p.skipSpace()
	if p.done() {
		return 0, errors.New("unexpected end of expression")
	}

	if strings.HasPrefix(p.src[p.pos:], sqrtToken) {
		p.pos += len(sqrtToken)
		p.skipSpace()
		if p.peek() != '(' {
			return 0, errors.New("sqrt must be followed by '('")
		}
		v, err := p.parseGroup()
		if err != nil {
			return 0, err
		}
		return math.Sqrt(v), nil
	}

	c := p.peek()
	if c == '(' {
		return p.parseGroup()
	}
	if (c >= '0' && c <= '9') || c == '.' {
		return p.parseNumber()
	}
	return 0, fmt.Errorf("unexpected %q at position %d", c, p.pos)
}

func (p *parser) parseGroup() (float64, error) {
	if err := p.enter(); err != nil {
		return 0, err
	}
	defer p.leave()

	p.pos++ // '('
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.peek() != ')' {
		return 0, errors.New("missing closing parenthesis")
	}
	p.pos++
	return v, nil
}

func (p *parser) parseNumber() (float64, error) {
	start := p.pos
	dots := 0
	for !p.done() {
		c := p.peek()
		if c == '.' {
			dots++
		} else if c < '0' || c > '9' {
			break
		}
		p.pos++
	}
	lit := p.src[start:p.pos]
	if dots > 1 || lit == "." {
		return 0, fmt.Errorf("invalid number %q", lit)
	}
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", lit)
	}
	return v, nil
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return errors.New("expression nested too deeply")
	}
	return nil
}

func (p *parser) leave() { p.depth-- }
