package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/p4calc/internal/core"
	"firestige.xyz/p4calc/internal/log"
)

const recorderSnapLen = 65536

// Recorder is a Conn decorator that writes every frame it sees to a pcap stream.
type Recorder struct {
	Conn

	mu     sync.Mutex
	w      *pcapgo.Writer
	closer io.Closer
	now    func() time.Time
}

// NewRecorder records the traffic of conn to w.
func NewRecorder(conn Conn, w io.Writer) (*Recorder, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(recorderSnapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	return &Recorder{Conn: conn, w: pw, now: time.Now}, nil
}

// OpenRecorder records the traffic of conn to a new pcap file at path.
func OpenRecorder(conn Conn, path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: create pcap file: %v", core.ErrConfigInvalid, err)
	}
	r, err := NewRecorder(conn, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	log.GetLogger().WithField("path", path).Info("recording frames to pcap")
	return r, nil
}

func (r *Recorder) WriteFrame(ctx context.Context, data []byte) error {
	if err := r.Conn.WriteFrame(ctx, data); err != nil {
		return err
	}
	r.record(core.RawFrame{Data: data, Timestamp: r.now(), Direction: core.DirectionOut})
	return nil
}

func (r *Recorder) ReadFrame(ctx context.Context) ([]byte, error) {
	data, err := r.Conn.ReadFrame(ctx)
	if err != nil {
		return nil, err
	}
	r.record(core.RawFrame{Data: data, Timestamp: r.now(), Direction: core.DirectionIn})
	return data, nil
}

// record never fails the exchange; a broken capture file is only logged.
func (r *Recorder) record(f core.RawFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ci := gopacket.CaptureInfo{
		Timestamp:     f.Timestamp,
		CaptureLength: len(f.Data),
		Length:        len(f.Data),
	}
	if err := r.w.WritePacket(ci, f.Data); err != nil {
		log.GetLogger().WithError(err).WithField("direction", f.Direction.String()).Warn("pcap record failed")
	}
}

func (r *Recorder) HardwareAddr() net.HardwareAddr {
	return r.Conn.HardwareAddr()
}

// Close closes the wrapped Conn and the pcap file.
func (r *Recorder) Close() error {
	err := r.Conn.Close()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
