package p4calc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/p4calc/internal/core"
	"firestige.xyz/p4calc/internal/expr"
)

func TestEncodeLayout(t *testing.T) {
	f := Encode(expr.Parsed{OperandA: 5, Operator: expr.SymAdd, OperandB: 3})
	data, err := f.MarshalBinary()
	require.NoError(t, err)

	want := []byte{
		// magic, version, op code
		'P', '4', 0x01, '+', ' ',
		// operand_a, operand_b, result
		0x00, 0x00, 0x00, 0x05,
		0x00, 0x00, 0x00, 0x03,
		0x00, 0x00, 0x00, 0x00,
	}
	assert.Equal(t, want, data)
	assert.Len(t, data, FrameLen)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := Encode(expr.Parsed{OperandA: 5, Operator: expr.SymAdd, OperandB: 3})
	data, err := f.MarshalBinary()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, int32(5), got.OperandA)
	assert.Equal(t, int32(3), got.OperandB)
	assert.Equal(t, [2]byte{'+', ' '}, got.OpCode)
	assert.Equal(t, "+", got.Operator())
	assert.Equal(t, int32(0), got.Result)
}

func TestRoundTripNegativeOperands(t *testing.T) {
	f := Frame{Magic: Magic, Version: Version, OpCode: OpCode("!="), OperandA: -1, OperandB: -2147483648, Result: 2147483647}
	var got Frame
	require.NoError(t, got.UnmarshalBinary(f.AppendTo(nil)))
	assert.Equal(t, f, got)
}

func TestOpCode(t *testing.T) {
	assert.Equal(t, [2]byte{'+', ' '}, OpCode("+"))
	assert.Equal(t, [2]byte{'<', '='}, OpCode("<="))
	assert.Equal(t, [2]byte{'q', 'u'}, OpCode("quit"))
	assert.Equal(t, [2]byte{' ', ' '}, OpCode(""))
}

func TestDecodeTooShort(t *testing.T) {
	data := Encode(expr.Parsed{OperandA: 1, Operator: expr.SymSub, OperandB: 1}).AppendTo(nil)
	for _, n := range []int{0, 2, 15, FrameLen - 1} {
		_, err := Decode(data[:n])
		assert.True(t, errors.Is(err, core.ErrFrameTooShort), "len %d: got %v", n, err)
	}
}

func TestDecodeMagicMismatch(t *testing.T) {
	data := QuitFrame().AppendTo(nil)
	data[1] = '5'
	_, err := Decode(data)
	assert.True(t, errors.Is(err, core.ErrMagicMismatch))
}

func TestDecodeVersionMismatch(t *testing.T) {
	data := QuitFrame().AppendTo(nil)
	data[2] = 2
	_, err := Decode(data)
	assert.True(t, errors.Is(err, core.ErrVersionMismatch))
}

func TestDecodeIgnoresTrailer(t *testing.T) {
	data := append(QuitFrame().AppendTo(nil), []byte(DefaultTrailer)...)
	f, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, f.IsQuit())
}

func TestQuitFrame(t *testing.T) {
	f := QuitFrame()
	assert.Equal(t, "qu", f.Operator())
	assert.Equal(t, int32(0), f.OperandA)
	assert.Equal(t, int32(0), f.OperandB)
	assert.True(t, f.IsQuit())
}

func TestAnswers(t *testing.T) {
	req := Encode(expr.Parsed{OperandA: 5, Operator: expr.SymAdd, OperandB: 3})
	reply := req
	reply.Result = 8
	assert.True(t, reply.Answers(req))

	other := req
	other.OperandB = 4
	assert.False(t, other.Answers(req))
}
