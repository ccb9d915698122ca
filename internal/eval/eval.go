// Package eval is the restricted evaluator that computes the expected result
// of an operator expression. It only evaluates integer literals combined with
// + - & | ^, unary - and ~, and the six comparisons; every other construct is
// rejected with core.ErrUnsupportedExpression.
package eval

import (
	"fmt"
	"math"

	"firestige.xyz/p4calc/internal/core"
)

// Evaluate parses and evaluates src.
func Evaluate(src string) (Value, error) {
	n, err := Parse(src)
	if err != nil {
		return Value{}, err
	}
	return Eval(n)
}

// Eval evaluates a syntax tree. Node kinds and operators outside the whitelist are rejected.
func Eval(n *Node) (Value, error) {
	if n == nil {
		return Value{}, syntaxError(0, "empty expression")
	}
	switch n.Kind {
	case NodeConstant:
		return Int(n.Int), nil
	case NodeUnaryOp:
		return evalUnary(n)
	case NodeBinOp:
		return evalBinary(n)
	case NodeCompare:
		return evalCompare(n)
	default:
		return Value{}, unsupported(n, "")
	}
}

func evalUnary(n *Node) (Value, error) {
	switch n.Op {
	case "-", "~":
	default:
		return Value{}, unsupported(n, "operator "+n.Op)
	}
	operand, err := Eval(n.Left)
	if err != nil {
		return Value{}, err
	}
	x := operand.Int64()
	if n.Op == "~" {
		return Int(^x), nil
	}
	if x == math.MinInt64 {
		return Value{}, overflow(n)
	}
	return Int(-x), nil
}

func evalBinary(n *Node) (Value, error) {
	switch n.Op {
	case "+", "-", "&", "|", "^":
	default:
		return Value{}, unsupported(n, "operator "+n.Op)
	}
	left, err := Eval(n.Left)
	if err != nil {
		return Value{}, err
	}
	right, err := Eval(n.Right)
	if err != nil {
		return Value{}, err
	}
	a, b := left.Int64(), right.Int64()
	bothBool := left.IsBool() && right.IsBool()

	switch n.Op {
	case "+":
		if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
			return Value{}, overflow(n)
		}
		return Int(a + b), nil
	case "-":
		if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
			return Value{}, overflow(n)
		}
		return Int(a - b), nil
	case "&":
		return bitwise(a&b, bothBool), nil
	case "|":
		return bitwise(a|b, bothBool), nil
	default:
		return bitwise(a^b, bothBool), nil
	}
}

func bitwise(v int64, asBool bool) Value {
	if asBool {
		return Bool(v != 0)
	}
	return Int(v)
}

// evalCompare folds a comparison chain with logical AND. Every operand is
// evaluated first so an unsupported node is rejected even behind a failing link.
func evalCompare(n *Node) (Value, error) {
	for _, op := range n.Ops {
		switch op {
		case "<", "<=", ">", ">=", "==", "!=":
		default:
			return Value{}, unsupported(n, "operator "+op)
		}
	}
	if len(n.Ops) != len(n.Comparators) {
		return Value{}, syntaxError(n.Pos, "malformed comparison")
	}

	operands := make([]int64, 0, len(n.Comparators)+1)
	for _, child := range append([]*Node{n.Left}, n.Comparators...) {
		v, err := Eval(child)
		if err != nil {
			return Value{}, err
		}
		operands = append(operands, v.Int64())
	}

	for i, op := range n.Ops {
		if !compare(op, operands[i], operands[i+1]) {
			return Bool(false), nil
		}
	}
	return Bool(true), nil
}

func compare(op string, a, b int64) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "==":
		return a == b
	default:
		return a != b
	}
}

func unsupported(n *Node, detail string) error {
	return &Error{Err: core.ErrUnsupportedExpression, Pos: n.Pos, Node: n.Kind.String(), Detail: detail}
}

func overflow(n *Node) error {
	return &Error{
		Err:    core.ErrUnsupportedExpression,
		Pos:    n.Pos,
		Node:   n.Kind.String(),
		Detail: fmt.Sprintf("%s result exceeds the 64-bit integer range", n.Op),
	}
}
