package transport

import (
	"golang.org/x/net/bpf"
)

// etherTypeFilter assembles a classic BPF program that accepts frames of the
// given EtherType, truncated to snapLen, and drops everything else.
func etherTypeFilter(etherType uint16, snapLen int) ([]bpf.RawInstruction, error) {
	return bpf.Assemble([]bpf.Instruction{
		// EtherType sits behind the two MAC addresses
		bpf.LoadAbsolute{Off: 12, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(etherType), SkipFalse: 1},
		bpf.RetConstant{Val: uint32(snapLen)},
		bpf.RetConstant{Val: 0},
	})
}
