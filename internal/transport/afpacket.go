package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket/afpacket"

	"firestige.xyz/p4calc/internal/config"
	"firestige.xyz/p4calc/internal/core"
	"firestige.xyz/p4calc/internal/log"
)

// NameAfpacket is the raw-socket transport.
const NameAfpacket = "afpacket"

// AfpacketOptions are the transport.options understood by the afpacket transport.
type AfpacketOptions struct {
	SnapLen      int           `mapstructure:"snap_len"`
	BufferSizeMB int           `mapstructure:"buffer_size_mb"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`  // Granularity of context checks while reading
	BlockTimeout time.Duration `mapstructure:"block_timeout"` // TPACKET_V3 block retire timeout
}

func defaultAfpacketOptions() AfpacketOptions {
	return AfpacketOptions{
		SnapLen:      2048,
		BufferSizeMB: 2,
		PollTimeout:  50 * time.Millisecond,
		BlockTimeout: 5 * time.Millisecond,
	}
}

type afpacketConn struct {
	handle *afpacket.TPacket
	device string
	mac    net.HardwareAddr

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func init() {
	Register(NameAfpacket, openAfpacket)
}

func openAfpacket(cfg config.TransportConfig, link config.LinkConfig) (Conn, error) {
	opts := defaultAfpacketOptions()
	if err := DecodeOptions(cfg.Options, &opts); err != nil {
		return nil, err
	}
	return NewAfpacketConn(cfg.Interface, link.EtherType, opts)
}

// NewAfpacketConn opens a TPACKET_V3 raw socket on device that only sees frames of etherType.
func NewAfpacketConn(device string, etherType uint16, opts AfpacketOptions) (Conn, error) {
	iface, err := net.InterfaceByName(device)
	if err != nil {
		return nil, fmt.Errorf("%w: interface %s: %v", core.ErrTransportIO, device, err)
	}

	frameSize, blockSize, numBlocks, err := ringSize(opts.BufferSizeMB, opts.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, fmt.Errorf("%w: afpacket ring: %v", core.ErrConfigInvalid, err)
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(device),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(opts.PollTimeout),
		afpacket.OptBlockTimeout(opts.BlockTimeout),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", core.ErrTransportIO, device, err)
	}

	filter, err := etherTypeFilter(etherType, opts.SnapLen)
	if err == nil {
		err = tp.SetBPF(filter)
	}
	if err != nil {
		tp.Close()
		return nil, fmt.Errorf("%w: attach filter on %s: %v", core.ErrTransportIO, device, err)
	}

	log.GetLogger().WithFields(map[string]interface{}{
		"device":     device,
		"mac":        iface.HardwareAddr.String(),
		"ether_type": fmt.Sprintf("0x%04x", etherType),
		"frame_size": frameSize,
		"block_size": blockSize,
		"num_blocks": numBlocks,
	}).Debug("afpacket transport opened")

	return &afpacketConn{
		handle: tp,
		device: device,
		mac:    iface.HardwareAddr,
	}, nil
}

func (c *afpacketConn) WriteFrame(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.handle.WritePacketData(data); err != nil {
		return fmt.Errorf("%w: write %s: %v", core.ErrTransportIO, c.device, err)
	}
	return nil
}

func (c *afpacketConn) ReadFrame(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, _, err := c.handle.ReadPacketData()
		switch {
		case err == nil:
			return data, nil
		case errors.Is(err, afpacket.ErrTimeout):
			continue
		default:
			return nil, fmt.Errorf("%w: read %s: %v", core.ErrTransportIO, c.device, err)
		}
	}
}

func (c *afpacketConn) HardwareAddr() net.HardwareAddr {
	return c.mac
}

func (c *afpacketConn) Close() error {
	c.closeOnce.Do(c.handle.Close)
	return nil
}
