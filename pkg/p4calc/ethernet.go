package p4calc

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/p4calc/internal/core"
)

// Link describes the Ethernet envelope of P4calc frames.
type Link struct {
	SrcMAC    net.HardwareAddr
	DstMAC    net.HardwareAddr
	EtherType layers.EthernetType
	Trailer   []byte // optional payload after the P4calc header
}

// Build serializes f inside an Ethernet frame.
func (l Link) Build(f Frame) ([]byte, error) {
	src := l.SrcMAC
	if src == nil {
		src = make(net.HardwareAddr, 6)
	}
	eth := &layers.Ethernet{
		SrcMAC:       src,
		DstMAC:       l.DstMAC,
		EthernetType: l.EtherType,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	if err := gopacket.SerializeLayers(buf, opts, eth, &Layer{Frame: f}, gopacket.Payload(l.Trailer)); err != nil {
		return nil, fmt.Errorf("serialize P4calc frame: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes the Ethernet header of data and the P4calc header behind it.
// A frame of another EtherType is reported as a magic mismatch: it carries no P4calc header.
func Parse(data []byte, etherType layers.EthernetType) (*layers.Ethernet, Frame, error) {
	eth := &layers.Ethernet{}
	if err := eth.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil, Frame{}, fmt.Errorf("%w: ethernet: %v", core.ErrFrameTooShort, err)
	}
	if eth.EthernetType != etherType {
		return eth, Frame{}, fmt.Errorf("%w: ethertype 0x%04x is not P4calc", core.ErrMagicMismatch, uint16(eth.EthernetType))
	}
	f, err := Decode(eth.Payload)
	if err != nil {
		return eth, Frame{}, err
	}
	return eth, f, nil
}

// Dump renders an Ethernet frame as a layer-by-layer hexdump for diagnostics.
func Dump(data []byte) string {
	return gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default).Dump()
}
