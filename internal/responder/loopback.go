package responder

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/gopacket/layers"

	"firestige.xyz/p4calc/internal/config"
	"firestige.xyz/p4calc/internal/core"
	"firestige.xyz/p4calc/internal/transport"
)

// NameLoopback is the in-process transport backed by a software Device.
const NameLoopback = "loopback"

// DefaultHostMAC is the harness address on a loopback link.
var DefaultHostMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}

// LoopbackOptions are the transport.options understood by the loopback transport.
type LoopbackOptions struct {
	HostMAC string        `mapstructure:"host_mac"`
	Delay   time.Duration `mapstructure:"delay"`
	Script  string        `mapstructure:"script"`
}

func init() {
	transport.Register(NameLoopback, openLoopback)
}

func openLoopback(cfg config.TransportConfig, link config.LinkConfig) (transport.Conn, error) {
	var opts LoopbackOptions
	if err := transport.DecodeOptions(cfg.Options, &opts); err != nil {
		return nil, err
	}

	hostMAC := DefaultHostMAC
	if opts.HostMAC != "" {
		mac, err := net.ParseMAC(opts.HostMAC)
		if err != nil {
			return nil, fmt.Errorf("%w: transport.options.host_mac: %v", core.ErrConfigInvalid, err)
		}
		hostMAC = mac
	}
	deviceMAC, err := link.HardwareAddr()
	if err != nil {
		return nil, err
	}

	devOpts := Options{EtherType: layers.EthernetType(link.EtherType), Delay: opts.Delay}
	if opts.Script != "" {
		script, err := LoadScript(opts.Script)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
		}
		devOpts.Script = script
	}
	return NewLoopback(hostMAC, deviceMAC, devOpts), nil
}

// Loopback is a transport.Conn whose peer is a Device running in a goroutine.
type Loopback struct {
	*transport.PipeConn

	device *Device
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoopback links a host Conn at hostMAC to a Device at deviceMAC built from opts.
// opts.Conn is ignored.
func NewLoopback(hostMAC, deviceMAC net.HardwareAddr, opts Options) *Loopback {
	host, dev := transport.Pipe(hostMAC, deviceMAC)
	opts.Conn = dev
	d := New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	l := &Loopback{PipeConn: host, device: d, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(l.done)
		defer dev.Close()
		if err := d.Serve(ctx); err != nil {
			d.logger.WithError(err).Error("loopback device stopped")
		}
	}()
	return l
}

// Close stops the device and closes both ends of the link.
func (l *Loopback) Close() error {
	l.cancel()
	<-l.done
	if l.device.script != nil {
		l.device.script.Close()
	}
	return l.PipeConn.Close()
}
