package eval

import "fmt"

// Error is returned for any expression the evaluator refuses.
// It unwraps to core.ErrSyntaxInvalid or core.ErrUnsupportedExpression.
type Error struct {
	Err    error
	Pos    int
	Node   string // rejected node kind, empty for syntax errors
	Detail string
}

func (e *Error) Error() string {
	switch {
	case e.Node != "" && e.Detail != "":
		return fmt.Sprintf("%v: %s at offset %d (%s)", e.Err, e.Node, e.Pos, e.Detail)
	case e.Node != "":
		return fmt.Sprintf("%v: %s at offset %d", e.Err, e.Node, e.Pos)
	default:
		return fmt.Sprintf("%v at offset %d: %s", e.Err, e.Pos, e.Detail)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}
