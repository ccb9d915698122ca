// Package p4calc implements the P4calc wire format: a fixed 17-byte header
// carried directly over Ethernet that asks a device to compute
// operand_a <op> operand_b and write the answer into the result field.
package p4calc

import (
	"encoding/binary"
	"fmt"
	"strings"

	"firestige.xyz/p4calc/internal/core"
	"firestige.xyz/p4calc/internal/expr"
)

const (
	// FrameLen is the size of the P4calc header in bytes.
	FrameLen = 17

	// Version is the only protocol version this harness speaks.
	Version uint8 = 0x01

	// EtherType identifies P4calc frames on the wire. Untyped so it serves both
	// as a layers.EthernetType and as the uint16 of the link configuration.
	EtherType = 0x1234

	// DefaultTrailer is appended after the header on requests.
	DefaultTrailer = "P4calc test"

	// QuitOp is the op code of the frame sent when the session ends.
	QuitOp = "qu"
)

// Magic is the two-byte frame prefix.
var Magic = [2]byte{'P', '4'}

// Field offsets.
const (
	offMagic    = 0
	offVersion  = 2
	offOp       = 3
	offOperandA = 5
	offOperandB = 9
	offResult   = 13
)

// Frame is a decoded P4calc header.
type Frame struct {
	Magic    [2]byte
	Version  uint8
	OpCode   [2]byte
	OperandA int32
	OperandB int32
	Result   int32
}

// OpCode pads op with spaces or truncates it to exactly two bytes.
func OpCode(op string) [2]byte {
	code := [2]byte{' ', ' '}
	copy(code[:], op)
	return code
}

// Encode builds the request frame for a parsed expression. Result is always 0;
// the device fills it in.
func Encode(p expr.Parsed) Frame {
	return Frame{
		Magic:    Magic,
		Version:  Version,
		OpCode:   OpCode(string(p.Operator)),
		OperandA: p.OperandA,
		OperandB: p.OperandB,
	}
}

// QuitFrame is the send-only frame that ends a session.
func QuitFrame() Frame {
	return Frame{Magic: Magic, Version: Version, OpCode: OpCode(QuitOp)}
}

// Operator returns the op code with padding removed.
func (f Frame) Operator() string {
	return strings.TrimRight(string(f.OpCode[:]), " \x00")
}

// IsQuit reports whether f is the session-ending frame.
func (f Frame) IsQuit() bool {
	return f.OpCode == OpCode(QuitOp)
}

// Answers reports whether f is a reply to req: same op code and operands.
func (f Frame) Answers(req Frame) bool {
	return f.OpCode == req.OpCode && f.OperandA == req.OperandA && f.OperandB == req.OperandB
}

func (f Frame) String() string {
	return fmt.Sprintf("P4calc(v%d op=%q a=%d b=%d result=%d)",
		f.Version, string(f.OpCode[:]), f.OperandA, f.OperandB, f.Result)
}

// AppendTo appends the 17-byte wire form of f to b.
func (f Frame) AppendTo(b []byte) []byte {
	b = append(b, f.Magic[0], f.Magic[1], f.Version, f.OpCode[0], f.OpCode[1])
	b = binary.BigEndian.AppendUint32(b, uint32(f.OperandA))
	b = binary.BigEndian.AppendUint32(b, uint32(f.OperandB))
	b = binary.BigEndian.AppendUint32(b, uint32(f.Result))
	return b
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (f Frame) MarshalBinary() ([]byte, error) {
	return f.AppendTo(make([]byte, 0, FrameLen)), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (f *Frame) UnmarshalBinary(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*f = decoded
	return nil
}

// Decode reads a frame from the start of data. Bytes past FrameLen are ignored.
func Decode(data []byte) (Frame, error) {
	if len(data) < FrameLen {
		return Frame{}, fmt.Errorf("%w: %d bytes, need %d", core.ErrFrameTooShort, len(data), FrameLen)
	}
	var f Frame
	copy(f.Magic[:], data[offMagic:offVersion])
	if f.Magic != Magic {
		return Frame{}, fmt.Errorf("%w: got %q", core.ErrMagicMismatch, string(f.Magic[:]))
	}
	f.Version = data[offVersion]
	if f.Version != Version {
		return Frame{}, fmt.Errorf("%w: got %d, want %d", core.ErrVersionMismatch, f.Version, Version)
	}
	copy(f.OpCode[:], data[offOp:offOperandA])
	f.OperandA = int32(binary.BigEndian.Uint32(data[offOperandA:offOperandB]))
	f.OperandB = int32(binary.BigEndian.Uint32(data[offOperandB:offResult]))
	f.Result = int32(binary.BigEndian.Uint32(data[offResult:FrameLen]))
	return f, nil
}
