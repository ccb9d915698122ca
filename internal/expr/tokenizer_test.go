package expr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/p4calc/internal/core"
)

func TestNextNumber(t *testing.T) {
	pos, ts, err := NextNumber("  42  +1", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, pos)
	require.Len(t, ts, 1)
	assert.Equal(t, Token{Kind: KindNumber, Text: "42", Pos: 2}, ts[0])
}

func TestNextNumberExpected(t *testing.T) {
	_, ts, err := NextNumber("+5", 0, nil)
	require.Error(t, err)
	assert.Empty(t, ts)
	assert.True(t, errors.Is(err, core.ErrNumberExpected))

	var tokErr *TokenizeError
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, "+5", tokErr.Rest)
	assert.Equal(t, 0, tokErr.Pos)
}

func TestNextOperatorLongestMatch(t *testing.T) {
	tests := []struct {
		input string
		want  Symbol
	}{
		{">=1", SymGreaterEqual},
		{"<=1", SymLessEqual},
		{"==1", SymEqual},
		{"!=1", SymNotEqual},
		{"-1", SymSub},
		{"+1", SymAdd},
		{"&1", SymAnd},
		{"|1", SymOr},
		{"^1", SymXor},
		{"~1", SymNot},
		{"<1", SymLess},
		{">1", SymGreater},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			pos, ts, err := NextOperator(tt.input, 0, nil)
			require.NoError(t, err)
			require.Len(t, ts, 1)
			assert.Equal(t, tt.want, ts[0].Symbol())
			assert.Equal(t, len(tt.want), pos)
		})
	}
}

func TestNextOperatorExpected(t *testing.T) {
	for _, input := range []string{"*3", "=3", "!3", "", "abc"} {
		t.Run(input, func(t *testing.T) {
			_, _, err := NextOperator(input, 0, nil)
			assert.True(t, errors.Is(err, core.ErrOperatorExpected), "got %v", err)
		})
	}
}

func TestTokenize(t *testing.T) {
	ts, pos, err := Tokenize("12 <= 7")
	require.NoError(t, err)
	assert.Equal(t, 7, pos)
	require.Len(t, ts, 3)
	assert.Equal(t, KindNumber, ts[0].Kind)
	assert.Equal(t, "12", ts[0].Text)
	assert.Equal(t, KindOperator, ts[1].Kind)
	assert.Equal(t, SymLessEqual, ts[1].Symbol())
	assert.Equal(t, "7", ts[2].Text)
	assert.Equal(t, 6, ts[2].Pos)
}

func TestTokenizeStopsAtFirstFailure(t *testing.T) {
	ts, _, err := Tokenize("1 2")
	assert.True(t, errors.Is(err, core.ErrOperatorExpected))
	assert.Len(t, ts, 1)
}

func TestSeqAppendsInOrder(t *testing.T) {
	step := Seq(NextNumber, NextOperator, NextNumber, NextOperator, NextNumber)
	pos, ts, err := step("1+2-3", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, pos)
	texts := make([]string, 0, len(ts))
	for _, tok := range ts {
		texts = append(texts, tok.Text)
	}
	assert.Equal(t, []string{"1", "+", "2", "-", "3"}, texts)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "number", KindNumber.String())
	assert.Equal(t, "operator", KindOperator.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
