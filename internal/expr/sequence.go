package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"firestige.xyz/p4calc/internal/core"
)

// FixedOperandB is the only right-hand operand the device supports for & and |.
const FixedOperandB int32 = 0xF

// Parsed is the operand triple carried by a P4calc request.
type Parsed struct {
	OperandA int32
	Operator Symbol
	OperandB int32
}

func (p Parsed) String() string {
	return fmt.Sprintf("%d %s %d", p.OperandA, p.Operator, p.OperandB)
}

// Warning is a non-fatal note produced while parsing.
type Warning string

// Normalize strips spaces the way the operator line is cleaned before evaluation.
func Normalize(line string) string {
	return strings.ReplaceAll(strings.TrimRight(line, "\r\n"), " ", "")
}

// Parse validates that line is exactly <number> <operator> <number>.
// For & and | the second operand is forced to FixedOperandB and a warning is returned.
func Parse(line string) (Parsed, []Warning, error) {
	s := Normalize(line)

	ts, pos, err := Tokenize(s)
	if err != nil {
		return Parsed{}, nil, fmt.Errorf("%w: %w", core.ErrTokenShapeInvalid, err)
	}
	if pos != len(s) {
		return Parsed{}, nil, fmt.Errorf("%w: unexpected %q after %s %s %s",
			core.ErrTokenShapeInvalid, s[pos:], ts[0].Text, ts[1].Text, ts[2].Text)
	}

	a, err := operand(ts[0])
	if err != nil {
		return Parsed{}, nil, err
	}
	b, err := operand(ts[2])
	if err != nil {
		return Parsed{}, nil, err
	}

	p := Parsed{OperandA: a, Operator: ts[1].Symbol(), OperandB: b}

	var warnings []Warning
	if p.Operator == SymAnd || p.Operator == SymOr {
		p.OperandB = FixedOperandB
		warnings = append(warnings, Warning(fmt.Sprintf(
			"& and | only support a fixed operand, operand_b is forced to 0x%X", FixedOperandB)))
	}
	return p, warnings, nil
}

func operand(t Token) (int32, error) {
	v, err := strconv.ParseInt(t.Text, 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %s", core.ErrOperandRange, t.Text)
		}
		return 0, fmt.Errorf("%w: %v", core.ErrTokenShapeInvalid, err)
	}
	return int32(v), nil
}
