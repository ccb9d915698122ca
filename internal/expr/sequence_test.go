package expr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/p4calc/internal/core"
)

func TestParseRecoversOperands(t *testing.T) {
	ops := []Symbol{SymAdd, SymSub, SymXor, SymLess, SymLessEqual, SymGreater,
		SymGreaterEqual, SymEqual, SymNotEqual}
	operands := [][2]int32{{0, 0}, {5, 3}, {2147483647, 1}, {17, 2147483647}}

	for _, op := range ops {
		for _, ab := range operands {
			line := fmt.Sprintf("%d %s %d", ab[0], op, ab[1])
			t.Run(line, func(t *testing.T) {
				p, warnings, err := Parse(line)
				require.NoError(t, err)
				assert.Empty(t, warnings)
				assert.Equal(t, Parsed{OperandA: ab[0], Operator: op, OperandB: ab[1]}, p)
			})
		}
	}
}

func TestParseForcesFixedOperandForBitwiseAndOr(t *testing.T) {
	for _, line := range []string{"6&3", "6 | 100", "255&0"} {
		t.Run(line, func(t *testing.T) {
			p, warnings, err := Parse(line)
			require.NoError(t, err)
			assert.Equal(t, FixedOperandB, p.OperandB)
			require.Len(t, warnings, 1)
			assert.Contains(t, string(warnings[0]), "0xF")
		})
	}
}

func TestParseShapeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		cause error
	}{
		{"empty", "", core.ErrNumberExpected},
		{"missing operator", "5 3", core.ErrOperatorExpected},
		{"missing second operand", "5+", core.ErrNumberExpected},
		{"leading operator", "-5+3", core.ErrNumberExpected},
		{"two operators", "5+-3", core.ErrNumberExpected},
		{"trailing tokens", "1+2+3", nil},
		{"trailing garbage", "1+2x", nil},
		{"words", "quit", core.ErrNumberExpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrTokenShapeInvalid), "got %v", err)
			if tt.cause != nil {
				assert.True(t, errors.Is(err, tt.cause), "got %v", err)
			}
		})
	}
}

func TestParseOperandRange(t *testing.T) {
	_, _, err := Parse("2147483648+1")
	assert.True(t, errors.Is(err, core.ErrOperandRange))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "5+3", Normalize(" 5 + 3 \n"))
	assert.Equal(t, "quit", Normalize("qu it"))
}

func TestParsedString(t *testing.T) {
	assert.Equal(t, "5 + 3", Parsed{OperandA: 5, Operator: SymAdd, OperandB: 3}.String())
}
