package eval

import (
	"fmt"
	"strings"

	"firestige.xyz/p4calc/internal/core"
)

type tokenKind uint8

const (
	tEOF tokenKind = iota
	tInt
	tFloat
	tString
	tName
	tOp
	tLParen
	tRParen
	tLBracket
	tRBracket
	tComma
	tDot
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// Longest operators first.
var operators = []string{
	"**", "//", "<<", ">>", "<=", ">=", "==", "!=",
	"+", "-", "*", "/", "%", "@", "&", "|", "^", "~", "<", ">",
}

var punctuation = map[byte]tokenKind{
	'(': tLParen,
	')': tRParen,
	'[': tLBracket,
	']': tRBracket,
	',': tComma,
	'.': tDot,
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			j, kind := scanNumber(src, i)
			toks = append(toks, token{kind: kind, text: src[i:j], pos: i})
			i = j
		case isNameStart(c):
			j := i + 1
			for j < len(src) && (isNameStart(src[j]) || isDigit(src[j])) {
				j++
			}
			toks = append(toks, token{kind: tName, text: src[i:j], pos: i})
			i = j
		case c == '\'' || c == '"':
			end := strings.IndexByte(src[i+1:], c)
			if end < 0 {
				return nil, syntaxError(i, "unterminated string literal")
			}
			j := i + 1 + end + 1
			toks = append(toks, token{kind: tString, text: src[i:j], pos: i})
			i = j
		default:
			if kind, ok := punctuation[c]; ok {
				toks = append(toks, token{kind: kind, text: src[i : i+1], pos: i})
				i++
				continue
			}
			op := matchOperator(src[i:])
			if op == "" {
				return nil, syntaxError(i, fmt.Sprintf("unexpected character %q", c))
			}
			toks = append(toks, token{kind: tOp, text: op, pos: i})
			i += len(op)
		}
	}
	return append(toks, token{kind: tEOF, pos: len(src)}), nil
}

// scanNumber returns the end of the literal at i and whether it is an integer or a float.
func scanNumber(src string, i int) (int, tokenKind) {
	kind := tInt
	j := i
	for j < len(src) && isDigit(src[j]) {
		j++
	}
	if j < len(src) && src[j] == '.' {
		kind = tFloat
		j++
		for j < len(src) && isDigit(src[j]) {
			j++
		}
	}
	if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
		k := j + 1
		if k < len(src) && (src[k] == '+' || src[k] == '-') {
			k++
		}
		if k < len(src) && isDigit(src[k]) {
			kind = tFloat
			j = k
			for j < len(src) && isDigit(src[j]) {
				j++
			}
		}
	}
	return j, kind
}

func matchOperator(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func syntaxError(pos int, detail string) error {
	return &Error{Err: core.ErrSyntaxInvalid, Pos: pos, Detail: detail}
}
