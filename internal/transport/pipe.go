package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"firestige.xyz/p4calc/internal/core"
)

const pipeQueueLen = 64

// PipeConn is one end of an in-memory link created by Pipe.
type PipeConn struct {
	mac  net.HardwareAddr
	in   chan []byte
	peer *PipeConn

	done      chan struct{}
	closeOnce sync.Once
}

var _ Conn = (*PipeConn)(nil)

// Pipe returns two connected in-memory Conns with the given MAC addresses.
// A frame written on one end is read on the other.
func Pipe(a, b net.HardwareAddr) (*PipeConn, *PipeConn) {
	ca := &PipeConn{mac: a, in: make(chan []byte, pipeQueueLen), done: make(chan struct{})}
	cb := &PipeConn{mac: b, in: make(chan []byte, pipeQueueLen), done: make(chan struct{})}
	ca.peer, cb.peer = cb, ca
	return ca, cb
}

func (c *PipeConn) WriteFrame(ctx context.Context, data []byte) error {
	select {
	case <-c.done:
		return fmt.Errorf("%w: pipe closed", core.ErrTransportIO)
	case <-c.peer.done:
		return fmt.Errorf("%w: peer closed", core.ErrTransportIO)
	default:
	}

	frame := append([]byte(nil), data...)
	select {
	case c.peer.in <- frame:
		return nil
	case <-c.peer.done:
		return fmt.Errorf("%w: peer closed", core.ErrTransportIO)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *PipeConn) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.in:
		return data, nil
	case <-c.done:
		return nil, fmt.Errorf("%w: pipe closed", core.ErrTransportIO)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *PipeConn) HardwareAddr() net.HardwareAddr {
	return c.mac
}

func (c *PipeConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}
