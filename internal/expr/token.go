// Package expr tokenizes operator input and extracts the operand triple
// that goes into a P4calc request.
package expr

// Kind is the token type.
type Kind uint8

const (
	KindNumber Kind = iota + 1
	KindOperator
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindOperator:
		return "operator"
	default:
		return "unknown"
	}
}

// Symbol is an operator as typed by the operator.
type Symbol string

const (
	SymAdd          Symbol = "+"
	SymSub          Symbol = "-"
	SymAnd          Symbol = "&"
	SymOr           Symbol = "|"
	SymXor          Symbol = "^"
	SymNot          Symbol = "~"
	SymLess         Symbol = "<"
	SymGreater      Symbol = ">"
	SymLessEqual    Symbol = "<="
	SymGreaterEqual Symbol = ">="
	SymEqual        Symbol = "=="
	SymNotEqual     Symbol = "!="
)

// Token is one lexical unit of an input line.
type Token struct {
	Kind Kind
	Text string // Matched text without surrounding whitespace
	Pos  int    // Offset of the match in the line
}

// Symbol returns the token text as an operator symbol.
func (t Token) Symbol() Symbol {
	return Symbol(t.Text)
}
