// Package responder simulates a P4calc device in software.
package responder

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/google/gopacket/layers"

	"firestige.xyz/p4calc/internal/log"
	"firestige.xyz/p4calc/internal/metrics"
	"firestige.xyz/p4calc/internal/transport"
	"firestige.xyz/p4calc/pkg/p4calc"
)

// ComputeFunc produces the device result for one request.
type ComputeFunc func(op string, a, b int32) (int32, bool)

// Options configures a Device.
type Options struct {
	Conn      transport.Conn
	EtherType layers.EthernetType
	Compute   ComputeFunc   // Defaults to p4calc.Compute
	Script    *Script       // Optional fault injection, applied after Compute
	Delay     time.Duration // Added before every reply
	Logger    log.Logger
}

// Device answers P4calc requests arriving on a Conn the way the P4 switch does:
// it fills in the result and sends the frame back with the MAC addresses swapped.
type Device struct {
	conn      transport.Conn
	etherType layers.EthernetType
	compute   ComputeFunc
	script    *Script
	delay     time.Duration
	logger    log.Logger
}

// New builds a Device.
func New(opts Options) *Device {
	d := &Device{
		conn:      opts.Conn,
		etherType: opts.EtherType,
		compute:   opts.Compute,
		script:    opts.Script,
		delay:     opts.Delay,
		logger:    opts.Logger,
	}
	if d.etherType == 0 {
		d.etherType = p4calc.EtherType
	}
	if d.compute == nil {
		d.compute = p4calc.Compute
	}
	if d.logger == nil {
		d.logger = log.GetLogger()
	}
	return d
}

// Serve answers requests until ctx is cancelled or the Conn fails.
func (d *Device) Serve(ctx context.Context) error {
	d.logger.WithField("mac", d.conn.HardwareAddr().String()).Info("responder serving")
	for {
		data, err := d.conn.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		reply, ok := d.Handle(data)
		if !ok {
			continue
		}
		if d.delay > 0 {
			select {
			case <-time.After(d.delay):
			case <-ctx.Done():
				return nil
			}
		}
		if err := d.conn.WriteFrame(ctx, reply); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Handle computes the reply to one received frame. ok is false when nothing is sent back.
func (d *Device) Handle(data []byte) (reply []byte, ok bool) {
	eth, req, err := p4calc.Parse(data, d.etherType)
	if err != nil {
		if eth != nil && eth.EthernetType == d.etherType {
			d.logger.WithError(err).Warn("malformed P4calc request")
			metrics.ResponderRepliesTotal.WithLabelValues("malformed").Inc()
		}
		return nil, false
	}
	if local := d.conn.HardwareAddr(); len(local) > 0 && bytes.Equal(eth.SrcMAC, local) {
		return nil, false
	}

	logger := d.logger.WithFields(map[string]interface{}{
		"src": eth.SrcMAC.String(),
		"op":  req.Operator(),
		"a":   req.OperandA,
		"b":   req.OperandB,
	})

	if req.IsQuit() {
		logger.Info("quit received")
		metrics.ResponderRepliesTotal.WithLabelValues("quit").Inc()
		return nil, false
	}

	result, ok := d.compute(req.Operator(), req.OperandA, req.OperandB)
	if !ok {
		logger.Warn("unknown operation")
		metrics.ResponderRepliesTotal.WithLabelValues("unknown_op").Inc()
		return nil, false
	}

	label := "computed"
	if d.script != nil {
		scripted, send, err := d.script.Compute(req.Operator(), req.OperandA, req.OperandB, result)
		switch {
		case err != nil:
			logger.WithError(err).Warn("fault script failed, using computed result")
		case !send:
			logger.Debug("dropped by fault script")
			metrics.ResponderRepliesTotal.WithLabelValues("dropped").Inc()
			return nil, false
		case scripted != result:
			result, label = scripted, "scripted"
		}
	}

	resp := req
	resp.Result = result
	link := p4calc.Link{
		SrcMAC:    eth.DstMAC,
		DstMAC:    eth.SrcMAC,
		EtherType: d.etherType,
		Trailer:   eth.Payload[p4calc.FrameLen:],
	}
	out, err := link.Build(resp)
	if err != nil {
		logger.WithError(err).Error("build reply")
		return nil, false
	}

	logger.WithField("result", result).Debug("reply")
	metrics.ResponderRepliesTotal.WithLabelValues(label).Inc()
	return out, true
}
