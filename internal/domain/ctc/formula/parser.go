package formula

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const FuncIf = "IF"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func tokenize(src string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			dots := 0
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				if src[i] == '.' {
					dots++
				}
				i++
			}
			if dots > 1 {
				return nil, &SyntaxError{Pos: start, Msg: "malformed number " + src[start:i]}
			}
			i += exponentLen(src, i)
			tokens = append(tokens, token{kind: tokNumber, text: src[start:i], pos: start})
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: src[start:i], pos: start})
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			tokens = append(tokens, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == '+' || c == '-' || c == '%':
			tokens = append(tokens, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '*' || c == '/':
			op := string(c)
			if i+1 < len(src) && src[i+1] == c {
				op += op
			}
			tokens = append(tokens, token{kind: tokOp, text: op, pos: i})
			i += len(op)
		case c == '<' || c == '>' || c == '=' || c == '!':
			op := string(c)
			if i+1 < len(src) && src[i+1] == '=' {
				op += "="
			}
			if op == "=" || op == "!" {
				return nil, &OperatorError{Op: op}
			}
			tokens = append(tokens, token{kind: tokOp, text: op, pos: i})
			i += len(op)
		default:
			return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(src)})
	return tokens, nil
}

// exponentLen returns the length of an exponent suffix (e3, E-2, e+10)
// starting at i, or zero when there is none.
func exponentLen(src string, i int) int {
	if i >= len(src) || (src[i] != 'e' && src[i] != 'E') {
		return 0
	}
	j := i + 1
	if j < len(src) && (src[j] == '+' || src[j] == '-') {
		j++
	}
	if j >= len(src) || !isDigit(src[j]) {
		return 0
	}
	for j < len(src) && isDigit(src[j]) {
		j++
	}
	return j - i
}

type parser struct {
	tokens []token
	pos    int
}

// Parse builds the expression tree for src. Operator precedence, lowest first:
// comparisons, + and -, * / % //, unary sign, **. All binary operators are
// left-associative. %, // and ** parse but are Unsupported, as are calls
// other than a three-argument IF.
func Parse(src string) (Node, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.expression()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &SyntaxError{Pos: tok.pos, Msg: "unexpected " + describe(tok)}
	}
	return node, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) matchOp(ops ...string) (string, bool) {
	tok := p.peek()
	if tok.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if tok.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) expression() (Node, error) {
	return p.binary(0)
}

var precedence = [][]string{
	{"<", "<=", ">", ">=", "==", "!="},
	{"+", "-"},
	{"*", "/", "%", "//"},
}

func unsupportedOp(op string) bool {
	return op == "%" || op == "//" || op == "**"
}

func (p *parser) binary(level int) (Node, error) {
	if level == len(precedence) {
		return p.unary()
	}
	left, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOp(precedence[level]...)
		if !ok {
			return left, nil
		}
		right, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}
		if unsupportedOp(op) {
			left = Unsupported{Err: &OperatorError{Op: op}}
			continue
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) unary() (Node, error) {
	if op, ok := p.matchOp("-", "+"); ok {
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return Unary{Op: op, Operand: operand}, nil
	}
	return p.power()
}

func (p *parser) power() (Node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.matchOp("**"); !ok {
		return base, nil
	}
	if _, err := p.unary(); err != nil {
		return nil, err
	}
	return Unsupported{Err: &OperatorError{Op: "**"}}, nil
}

func (p *parser) primary() (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		value, err := decimal.NewFromString(tok.text)
		if err != nil {
			return nil, &SyntaxError{Pos: tok.pos, Msg: "malformed number " + tok.text}
		}
		return Literal{Value: value}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.call(tok)
		}
		return Variable{Name: tok.text}, nil
	case tokLParen:
		node, err := p.expression()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &SyntaxError{Pos: closing.pos, Msg: "expected ) but found " + describe(closing)}
		}
		return node, nil
	}
	return nil, &SyntaxError{Pos: tok.pos, Msg: "unexpected " + describe(tok)}
}

func (p *parser) call(name token) (Node, error) {
	p.next()
	var args []Node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if closing := p.next(); closing.kind != tokRParen {
		return nil, &SyntaxError{Pos: closing.pos, Msg: "expected ) but found " + describe(closing)}
	}
	if name.text != FuncIf || len(args) != 3 {
		return Unsupported{Err: &CallError{Name: name.text, Arity: len(args)}}, nil
	}
	return IfCall{Cond: args[0], Then: args[1], Else: args[2]}, nil
}

func describe(tok token) string {
	if tok.kind == tokEOF {
		return "end of formula"
	}
	return fmt.Sprintf("%q", tok.text)
}
