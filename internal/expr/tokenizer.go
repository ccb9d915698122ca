package expr

import (
	"fmt"
	"regexp"

	"firestige.xyz/p4calc/internal/core"
)

// Two-character operators come first so they win over their one-character prefixes.
var (
	numberPattern   = regexp.MustCompile(`^\s*([0-9]+)\s*`)
	operatorPattern = regexp.MustCompile(`^\s*(>=|<=|==|!=|[-+&|^~<>])\s*`)
)

// TokenizeError reports the position and remaining input where a token was expected.
type TokenizeError struct {
	Err  error // core.ErrNumberExpected or core.ErrOperatorExpected
	Pos  int
	Rest string
}

func (e *TokenizeError) Error() string {
	return fmt.Sprintf("%v at offset %d: %q", e.Err, e.Pos, e.Rest)
}

func (e *TokenizeError) Unwrap() error {
	return e.Err
}

// Step consumes one token from s starting at pos and appends it to ts.
type Step func(s string, pos int, ts []Token) (int, []Token, error)

// NextNumber matches a decimal number literal at pos.
func NextNumber(s string, pos int, ts []Token) (int, []Token, error) {
	return next(numberPattern, KindNumber, core.ErrNumberExpected, s, pos, ts)
}

// NextOperator matches the longest operator symbol at pos.
func NextOperator(s string, pos int, ts []Token) (int, []Token, error) {
	return next(operatorPattern, KindOperator, core.ErrOperatorExpected, s, pos, ts)
}

func next(re *regexp.Regexp, kind Kind, sentinel error, s string, pos int, ts []Token) (int, []Token, error) {
	if pos > len(s) {
		pos = len(s)
	}
	m := re.FindStringSubmatchIndex(s[pos:])
	if m == nil {
		return pos, ts, &TokenizeError{Err: sentinel, Pos: pos, Rest: s[pos:]}
	}
	ts = append(ts, Token{Kind: kind, Text: s[pos+m[2] : pos+m[3]], Pos: pos + m[2]})
	return pos + m[1], ts, nil
}

// Seq runs steps left to right, threading the cursor and token slice.
func Seq(steps ...Step) Step {
	return func(s string, pos int, ts []Token) (int, []Token, error) {
		var err error
		for _, step := range steps {
			pos, ts, err = step(s, pos, ts)
			if err != nil {
				return pos, ts, err
			}
		}
		return pos, ts, nil
	}
}

var binary = Seq(NextNumber, NextOperator, NextNumber)

// Tokenize reads <number> <operator> <number> from the start of s.
// It returns the tokens and the cursor after the last one.
func Tokenize(s string) ([]Token, int, error) {
	pos, ts, err := binary(s, 0, make([]Token, 0, 3))
	return ts, pos, err
}
