package p4calc

import (
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/p4calc/internal/core"
)

// LayerTypeP4calc is the gopacket layer type of a P4calc header.
var LayerTypeP4calc = gopacket.RegisterLayerType(2030, gopacket.LayerTypeMetadata{
	Name:    "P4calc",
	Decoder: gopacket.DecodeFunc(decodeP4calc),
})

func init() {
	BindEtherType(layers.EthernetType(EtherType))
}

// BindEtherType makes gopacket decode frames of the given EtherType as P4calc.
func BindEtherType(t layers.EthernetType) {
	layers.EthernetTypeMetadata[t] = layers.EnumMetadata{
		DecodeWith: gopacket.DecodeFunc(decodeP4calc),
		Name:       "P4calc",
		LayerType:  LayerTypeP4calc,
	}
}

// Layer wraps a Frame as a gopacket decoding and serializable layer.
type Layer struct {
	layers.BaseLayer
	Frame
}

func (l *Layer) LayerType() gopacket.LayerType {
	return LayerTypeP4calc
}

func (l *Layer) CanDecode() gopacket.LayerClass {
	return LayerTypeP4calc
}

func (l *Layer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypePayload
}

func (l *Layer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	f, err := Decode(data)
	if err != nil {
		if errors.Is(err, core.ErrFrameTooShort) {
			df.SetTruncated()
		}
		return err
	}
	l.Frame = f
	l.BaseLayer = layers.BaseLayer{Contents: data[:FrameLen], Payload: data[FrameLen:]}
	return nil
}

func (l *Layer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(FrameLen)
	if err != nil {
		return err
	}
	copy(bytes, l.Frame.AppendTo(make([]byte, 0, FrameLen)))
	return nil
}

func decodeP4calc(data []byte, p gopacket.PacketBuilder) error {
	l := &Layer{}
	if err := l.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(l)
	if len(l.Payload) == 0 {
		return nil
	}
	return p.NextDecoder(l.NextLayerType())
}
