// Package transport moves P4calc Ethernet frames between the harness and a device.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/p4calc/internal/core"
	"firestige.xyz/p4calc/internal/log"
	"firestige.xyz/p4calc/internal/metrics"
	"firestige.xyz/p4calc/pkg/p4calc"
)

// Conn is a raw link-layer endpoint bound to one interface.
type Conn interface {
	// WriteFrame transmits one complete Ethernet frame.
	WriteFrame(ctx context.Context, data []byte) error
	// ReadFrame blocks until a frame arrives or ctx is done.
	ReadFrame(ctx context.Context) ([]byte, error)
	// HardwareAddr is the MAC address of the local end.
	HardwareAddr() net.HardwareAddr
	Close() error
}

// Transport is what a session needs from the link.
type Transport interface {
	Send(ctx context.Context, frame []byte) error
	// RequestReply sends frame and waits at most timeout for an answer.
	// It returns nil, nil when nothing arrived in time.
	RequestReply(ctx context.Context, frame []byte, timeout time.Duration) ([]byte, error)
	LocalAddr() net.HardwareAddr
	Close() error
}

// Endpoint implements Transport over a Conn. Incoming frames of another
// EtherType and our own transmissions looped back by the kernel are skipped.
// While waiting for a reply, well-formed P4calc frames that answer a
// different request (late replies to an earlier round) are skipped as well.
type Endpoint struct {
	conn      Conn
	etherType layers.EthernetType
}

var _ Transport = (*Endpoint)(nil)

// NewEndpoint wraps conn.
func NewEndpoint(conn Conn, etherType layers.EthernetType) *Endpoint {
	return &Endpoint{conn: conn, etherType: etherType}
}

// Send transmits frame without waiting for anything.
func (e *Endpoint) Send(ctx context.Context, frame []byte) error {
	if err := e.conn.WriteFrame(ctx, frame); err != nil {
		return ioError("send", err)
	}
	metrics.ObserveFrame(core.DirectionOut)
	return nil
}

// RequestReply sends frame and returns the first correlated frame received before the timeout.
func (e *Endpoint) RequestReply(ctx context.Context, frame []byte, timeout time.Duration) ([]byte, error) {
	var req *p4calc.Frame
	if _, f, err := p4calc.Parse(frame, e.etherType); err == nil {
		req = &f
	}

	if err := e.Send(ctx, frame); err != nil {
		return nil, err
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		data, err := e.conn.ReadFrame(rctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, nil
			}
			return nil, ioError("receive", err)
		}
		if !e.accept(data) {
			continue
		}
		metrics.ObserveFrame(core.DirectionIn)
		if req != nil && stale(data, e.etherType, *req) {
			continue
		}
		return data, nil
	}
}

func (e *Endpoint) accept(data []byte) bool {
	eth := &layers.Ethernet{}
	if err := eth.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return false
	}
	if eth.EthernetType != e.etherType {
		return false
	}
	local := e.conn.HardwareAddr()
	return len(local) == 0 || !bytes.Equal(eth.SrcMAC, local)
}

// stale reports whether data is a valid P4calc frame that answers something other than req.
// Malformed frames are not stale: the caller gets them and reports a bad reply.
func stale(data []byte, etherType layers.EthernetType, req p4calc.Frame) bool {
	_, f, err := p4calc.Parse(data, etherType)
	if err != nil || f.Answers(req) {
		return false
	}
	log.GetLogger().WithFields(map[string]interface{}{
		"request": req.String(),
		"reply":   f.String(),
	}).Debug("skipping uncorrelated reply")
	return true
}

// LocalAddr returns the MAC address frames are sent from.
func (e *Endpoint) LocalAddr() net.HardwareAddr {
	return e.conn.HardwareAddr()
}

// Close releases the underlying Conn.
func (e *Endpoint) Close() error {
	return e.conn.Close()
}

func ioError(op string, err error) error {
	if errors.Is(err, core.ErrTransportIO) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", core.ErrTransportIO, op, err)
}
