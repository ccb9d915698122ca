package p4calc

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/p4calc/internal/core"
	"firestige.xyz/p4calc/internal/expr"
)

var (
	testSrc = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	testDst = net.HardwareAddr{0x62, 0x9b, 0x0c, 0xdb, 0xac, 0x20}
)

func testLink() Link {
	return Link{SrcMAC: testSrc, DstMAC: testDst, EtherType: layers.EthernetType(EtherType), Trailer: []byte(DefaultTrailer)}
}

func TestBuildLayout(t *testing.T) {
	f := Encode(expr.Parsed{OperandA: 5, Operator: expr.SymAdd, OperandB: 3})
	data, err := testLink().Build(f)
	require.NoError(t, err)

	// gopacket pads Ethernet frames to the 60-byte minimum
	require.Len(t, data, 60)
	assert.Equal(t, []byte(testDst), data[0:6])
	assert.Equal(t, []byte(testSrc), data[6:12])
	assert.Equal(t, []byte{0x12, 0x34}, data[12:14])
	assert.Equal(t, f.AppendTo(nil), data[14:14+FrameLen])
	assert.Equal(t, DefaultTrailer, string(data[14+FrameLen:14+FrameLen+len(DefaultTrailer)]))
}

func TestBuildParseRoundTrip(t *testing.T) {
	f := Encode(expr.Parsed{OperandA: -7, Operator: expr.SymGreaterEqual, OperandB: 9})
	data, err := testLink().Build(f)
	require.NoError(t, err)

	eth, got, err := Parse(data, layers.EthernetType(EtherType))
	require.NoError(t, err)
	assert.Equal(t, f, got)
	assert.Equal(t, testDst, eth.DstMAC)
}

func TestParseOtherEtherType(t *testing.T) {
	link := testLink()
	link.EtherType = layers.EthernetTypeIPv4
	data, err := link.Build(QuitFrame())
	require.NoError(t, err)

	_, _, err = Parse(data, layers.EthernetType(EtherType))
	assert.True(t, errors.Is(err, core.ErrMagicMismatch))
}

func TestParseTruncated(t *testing.T) {
	data, err := testLink().Build(QuitFrame())
	require.NoError(t, err)

	_, _, err = Parse(data[:14+10], layers.EthernetType(EtherType))
	assert.True(t, errors.Is(err, core.ErrFrameTooShort))

	_, _, err = Parse(data[:6], layers.EthernetType(EtherType))
	assert.True(t, errors.Is(err, core.ErrFrameTooShort))
}

func TestGopacketDecodesP4calcLayer(t *testing.T) {
	f := Encode(expr.Parsed{OperandA: 5, Operator: expr.SymXor, OperandB: 3})
	data, err := testLink().Build(f)
	require.NoError(t, err)

	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
	layer := packet.Layer(LayerTypeP4calc)
	require.NotNil(t, layer)
	p4, ok := layer.(*Layer)
	require.True(t, ok)
	assert.Equal(t, f, p4.Frame)
	assert.True(t, strings.HasPrefix(string(p4.LayerPayload()), DefaultTrailer))
	assert.Contains(t, Dump(data), "P4calc")
}

func TestBindEtherType(t *testing.T) {
	custom := layers.EthernetType(0x88B5)
	BindEtherType(custom)

	link := testLink()
	link.EtherType = custom
	data, err := link.Build(QuitFrame())
	require.NoError(t, err)

	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
	assert.NotNil(t, packet.Layer(LayerTypeP4calc))
}
