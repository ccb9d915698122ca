package eval

import (
	"errors"
	"fmt"
	"strconv"
)

type parser struct {
	toks []token
	pos  int
}

// Parse builds the syntax tree of src. It accepts a wider grammar than Eval
// so that Eval can reject unsupported constructs by node kind.
func Parse(src string) (*Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tEOF {
		return nil, syntaxError(t.pos, fmt.Sprintf("unexpected %q", t.text))
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(ops ...string) bool {
	t := p.peek()
	if t.kind != tOp {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

func (p *parser) isKeyword(word string) bool {
	t := p.peek()
	return t.kind == tName && t.text == word
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.peek()
	if t.kind != kind {
		if t.kind == tEOF {
			return t, syntaxError(t.pos, "unexpected end of expression, expected "+what)
		}
		return t, syntaxError(t.pos, fmt.Sprintf("unexpected %q, expected %s", t.text, what))
	}
	return p.advance(), nil
}

// exprlist: expr (',' expr)* [','], a bare comma list is a tuple.
func (p *parser) parseExprList() (*Node, error) {
	start := p.peek().pos
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tComma {
		return first, nil
	}
	elts := []*Node{first}
	for p.peek().kind == tComma {
		p.advance()
		if k := p.peek().kind; k == tEOF || k == tRParen {
			break
		}
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elts = append(elts, n)
	}
	return &Node{Kind: NodeTuple, Pos: start, Elts: elts}, nil
}

func (p *parser) parseExpr() (*Node, error) {
	return p.parseBoolOp("or", p.parseAnd)
}

func (p *parser) parseAnd() (*Node, error) {
	return p.parseBoolOp("and", p.parseNot)
}

func (p *parser) parseBoolOp(word string, operand func() (*Node, error)) (*Node, error) {
	start := p.peek().pos
	first, err := operand()
	if err != nil {
		return nil, err
	}
	if !p.isKeyword(word) {
		return first, nil
	}
	values := []*Node{first}
	for p.isKeyword(word) {
		p.advance()
		n, err := operand()
		if err != nil {
			return nil, err
		}
		values = append(values, n)
	}
	return &Node{Kind: NodeBoolOp, Pos: start, Op: word, Elts: values}, nil
}

func (p *parser) parseNot() (*Node, error) {
	if p.isKeyword("not") {
		t := p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeUnaryOp, Pos: t.pos, Op: "not", Left: operand}, nil
	}
	return p.parseComparison()
}

// compareOp returns the comparison operator at the cursor, consuming it.
func (p *parser) compareOp() (string, bool) {
	switch {
	case p.isOp("<", ">", "<=", ">=", "==", "!="):
		return p.advance().text, true
	case p.isKeyword("in"):
		p.advance()
		return "in", true
	case p.isKeyword("is"):
		p.advance()
		if p.isKeyword("not") {
			p.advance()
			return "is not", true
		}
		return "is", true
	case p.isKeyword("not") && p.pos+1 < len(p.toks) && p.toks[p.pos+1].kind == tName && p.toks[p.pos+1].text == "in":
		p.pos += 2
		return "not in", true
	}
	return "", false
}

func (p *parser) parseComparison() (*Node, error) {
	start := p.peek().pos
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	var ops []string
	var comparators []*Node
	for {
		op, ok := p.compareOp()
		if !ok {
			break
		}
		right, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		comparators = append(comparators, right)
	}
	if len(ops) == 0 {
		return left, nil
	}
	return &Node{Kind: NodeCompare, Pos: start, Left: left, Ops: ops, Comparators: comparators}, nil
}

// parseLeftAssoc parses operand (op operand)* into left-associative BinOp nodes.
func (p *parser) parseLeftAssoc(operand func() (*Node, error), ops ...string) (*Node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for p.isOp(ops...) {
		t := p.advance()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: NodeBinOp, Pos: t.pos, Op: t.text, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseBitOr() (*Node, error) {
	return p.parseLeftAssoc(p.parseBitXor, "|")
}

func (p *parser) parseBitXor() (*Node, error) {
	return p.parseLeftAssoc(p.parseBitAnd, "^")
}

func (p *parser) parseBitAnd() (*Node, error) {
	return p.parseLeftAssoc(p.parseShift, "&")
}

func (p *parser) parseShift() (*Node, error) {
	return p.parseLeftAssoc(p.parseArith, "<<", ">>")
}

func (p *parser) parseArith() (*Node, error) {
	return p.parseLeftAssoc(p.parseTerm, "+", "-")
}

func (p *parser) parseTerm() (*Node, error) {
	return p.parseLeftAssoc(p.parseFactor, "*", "/", "//", "%", "@")
}

func (p *parser) parseFactor() (*Node, error) {
	if p.isOp("+", "-", "~") {
		t := p.advance()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeUnaryOp, Pos: t.pos, Op: t.text, Left: operand}, nil
	}
	return p.parsePower()
}

// power binds tighter than a unary operator on its left and looser on its right: -2**-1 is -(2**(-1)).
func (p *parser) parsePower() (*Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if !p.isOp("**") {
		return base, nil
	}
	t := p.advance()
	exp, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: NodeBinOp, Pos: t.pos, Op: "**", Left: base, Right: exp}, nil
}

func (p *parser) parsePrimary() (*Node, error) {
	n, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch t.kind {
		case tLParen:
			p.advance()
			var args []*Node
			for p.peek().kind != tRParen {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.peek().kind != tComma {
					break
				}
				p.advance()
			}
			if _, err := p.expect(tRParen, "')'"); err != nil {
				return nil, err
			}
			n = &Node{Kind: NodeCall, Pos: t.pos, Left: n, Elts: args}
		case tDot:
			p.advance()
			name, err := p.expect(tName, "attribute name")
			if err != nil {
				return nil, err
			}
			n = &Node{Kind: NodeAttribute, Pos: t.pos, Left: n, Text: name.text}
		case tLBracket:
			p.advance()
			index, err := p.parseExprList()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tRBracket, "']'"); err != nil {
				return nil, err
			}
			n = &Node{Kind: NodeSubscript, Pos: t.pos, Left: n, Right: index}
		default:
			return n, nil
		}
	}
}

var reserved = map[string]bool{"and": true, "or": true, "not": true, "in": true, "is": true}

func (p *parser) parseAtom() (*Node, error) {
	t := p.peek()
	switch t.kind {
	case tInt:
		p.advance()
		v, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return nil, syntaxError(t.pos, fmt.Sprintf("integer literal %s out of range", t.text))
			}
			return nil, syntaxError(t.pos, fmt.Sprintf("invalid integer literal %s", t.text))
		}
		return &Node{Kind: NodeConstant, Pos: t.pos, Int: v, Text: t.text}, nil
	case tFloat:
		p.advance()
		return &Node{Kind: NodeFloat, Pos: t.pos, Text: t.text}, nil
	case tString:
		p.advance()
		return &Node{Kind: NodeString, Pos: t.pos, Text: t.text}, nil
	case tName:
		if reserved[t.text] {
			return nil, syntaxError(t.pos, fmt.Sprintf("unexpected keyword %q", t.text))
		}
		p.advance()
		return &Node{Kind: NodeName, Pos: t.pos, Text: t.text}, nil
	case tLParen:
		p.advance()
		if p.peek().kind == tRParen {
			p.advance()
			return &Node{Kind: NodeTuple, Pos: t.pos}, nil
		}
		inner, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case tLBracket:
		p.advance()
		var elts []*Node
		for p.peek().kind != tRBracket {
			n, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elts = append(elts, n)
			if p.peek().kind != tComma {
				break
			}
			p.advance()
		}
		if _, err := p.expect(tRBracket, "']'"); err != nil {
			return nil, err
		}
		return &Node{Kind: NodeList, Pos: t.pos, Elts: elts}, nil
	case tEOF:
		return nil, syntaxError(t.pos, "unexpected end of expression")
	default:
		return nil, syntaxError(t.pos, fmt.Sprintf("unexpected %q", t.text))
	}
}
