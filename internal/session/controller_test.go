package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"firestige.xyz/p4calc/internal/core"
	"firestige.xyz/p4calc/internal/metrics"
	"firestige.xyz/p4calc/internal/responder"
	"firestige.xyz/p4calc/internal/transport"
	"firestige.xyz/p4calc/pkg/p4calc"
)

var (
	hostMAC   = net.HardwareAddr{0x02, 0, 0, 0, 0, 0x01}
	deviceMAC = net.HardwareAddr{0x62, 0x9b, 0x0c, 0xdb, 0xac, 0x20}
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Send(ctx context.Context, frame []byte) error {
	args := m.Called(ctx, frame)
	return args.Error(0)
}

func (m *mockTransport) RequestReply(ctx context.Context, frame []byte, timeout time.Duration) ([]byte, error) {
	args := m.Called(ctx, frame, timeout)
	reply, _ := args.Get(0).([]byte)
	return reply, args.Error(1)
}

func (m *mockTransport) LocalAddr() net.HardwareAddr { return hostMAC }
func (m *mockTransport) Close() error                { return nil }

func loopback(t *testing.T, compute responder.ComputeFunc) transport.Transport {
	t.Helper()
	lb := responder.NewLoopback(hostMAC, deviceMAC, responder.Options{Compute: compute})
	ep := transport.NewEndpoint(lb, p4calc.EtherType)
	t.Cleanup(func() { ep.Close() })
	return ep
}

func newController(t *testing.T, tr transport.Transport, input string, out io.Writer) *Controller {
	t.Helper()
	c, err := New(Options{
		Transport: tr,
		In:        strings.NewReader(input),
		Out:       out,
		DstMAC:    deviceMAC,
		Trailer:   []byte(p4calc.DefaultTrailer),
		Timeout:   200 * time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func reply(t *testing.T, f p4calc.Frame) []byte {
	t.Helper()
	data, err := p4calc.Link{SrcMAC: deviceMAC, DstMAC: hostMAC, EtherType: p4calc.EtherType}.Build(f)
	require.NoError(t, err)
	return data
}

func sentFrame(t *testing.T, data []byte) p4calc.Frame {
	t.Helper()
	eth, f, err := p4calc.Parse(data, p4calc.EtherType)
	require.NoError(t, err)
	assert.Equal(t, deviceMAC, eth.DstMAC)
	assert.Equal(t, hostMAC, eth.SrcMAC)
	return f
}

func TestRunPass(t *testing.T) {
	var out bytes.Buffer
	c := newController(t, loopback(t, nil), "5+3\n", &out)

	st, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, st.OverallPass)
	assert.Equal(t, 1, st.Rounds)
	assert.Equal(t, 1, st.Outcomes[OutcomePass])
	assert.Equal(t, StateTerminated, c.State())

	assert.Contains(t, out.String(), "true result: 8")
	assert.Contains(t, out.String(), "remote result: 8")
	assert.True(t, strings.HasSuffix(out.String(), "calculator test success!\n"))
}

func TestRunFailureIsSticky(t *testing.T) {
	var calls int32
	compute := func(op string, a, b int32) (int32, bool) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return 7, true
		}
		return p4calc.Compute(op, a, b)
	}
	var out bytes.Buffer
	c := newController(t, loopback(t, compute), "5+3\n5+3\n", &out)

	st, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, st.OverallPass)
	assert.Equal(t, 2, st.Rounds)
	assert.Equal(t, 1, st.Outcomes[OutcomeMismatch])
	assert.Equal(t, 1, st.Outcomes[OutcomePass])
	assert.Contains(t, out.String(), "FAIL: expected 8, device returned 7")
	assert.True(t, strings.HasSuffix(out.String(), "calculator test failed!\n"))
}

// slowFirstDevice answers every request on dev, the first one only after delay.
func slowFirstDevice(t *testing.T, dev transport.Conn, delay time.Duration) {
	t.Helper()
	t.Cleanup(func() { dev.Close() })
	go func() {
		for i := 0; ; i++ {
			data, err := dev.ReadFrame(context.Background())
			if err != nil {
				return
			}
			_, req, err := p4calc.Parse(data, p4calc.EtherType)
			if err != nil {
				continue
			}
			if i == 0 {
				time.Sleep(delay)
			}
			rep, _ := p4calc.Reply(req)
			out, err := p4calc.Link{SrcMAC: deviceMAC, DstMAC: hostMAC, EtherType: p4calc.EtherType}.Build(rep)
			if err != nil {
				return
			}
			_ = dev.WriteFrame(context.Background(), out)
		}
	}()
}

func TestRunLateReplyDoesNotFailNextRound(t *testing.T) {
	host, dev := transport.Pipe(hostMAC, deviceMAC)
	ep := transport.NewEndpoint(host, p4calc.EtherType)
	t.Cleanup(func() { ep.Close() })
	slowFirstDevice(t, dev, 250*time.Millisecond)

	var out bytes.Buffer
	c := newController(t, ep, "5+3\n2+2\n", &out)

	st, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Rounds)
	assert.Equal(t, 1, st.Outcomes[OutcomeNoReply])
	assert.Equal(t, 1, st.Outcomes[OutcomePass])
	assert.Zero(t, st.Outcomes[OutcomeBadReply])
	assert.Contains(t, out.String(), "remote result: 4")
	assert.False(t, st.OverallPass)
}

func TestRunCancelledRoundNotCounted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := &mockTransport{}
	m.On("RequestReply", mock.Anything, mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		cancel()
	}).Return(nil, context.Canceled).Once()

	before := testutil.ToFloat64(metrics.RoundsTotal.WithLabelValues(OutcomeError.String()))
	c := newController(t, m, "5+3\n", io.Discard)

	st, err := c.Run(ctx)
	assert.NoError(t, err)
	assert.Zero(t, st.Rounds)
	assert.True(t, st.OverallPass)
	assert.Equal(t, before, testutil.ToFloat64(metrics.RoundsTotal.WithLabelValues(OutcomeError.String())))
	m.AssertExpectations(t)
}

func TestRunQuit(t *testing.T) {
	m := &mockTransport{}
	var sent []byte
	m.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).([]byte)
	}).Return(nil).Once()

	c := newController(t, m, "quit\n5+3\n", io.Discard)
	st, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, st.OverallPass)
	assert.Zero(t, st.Rounds)
	assert.Equal(t, 1, st.Outcomes[OutcomeQuit])
	assert.Equal(t, StateTerminated, c.State())
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "RequestReply", mock.Anything, mock.Anything, mock.Anything)

	f := sentFrame(t, sent)
	assert.True(t, f.IsQuit())
	assert.Zero(t, f.OperandA)
	assert.Zero(t, f.OperandB)
}

func TestRunEndOfInput(t *testing.T) {
	m := &mockTransport{}
	var out bytes.Buffer
	c := newController(t, m, "\n   \n", &out)

	st, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, st.OverallPass)
	assert.Zero(t, st.Rounds)
	m.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	assert.Contains(t, out.String(), "calculator test success!")
}

func TestRunCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	c, err := New(Options{Transport: &mockTransport{}, In: r, DstMAC: deviceMAC})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	st, err := c.Run(ctx)
	assert.NoError(t, err)
	assert.True(t, st.OverallPass)
	assert.Equal(t, StateTerminated, c.State())
}

func TestRunAbortsOnTransportIO(t *testing.T) {
	m := &mockTransport{}
	ioErr := errors.Join(core.ErrTransportIO, errors.New("interface down"))
	m.On("RequestReply", mock.Anything, mock.Anything, mock.Anything).Return(nil, ioErr).Once()

	c := newController(t, m, "5+3\n1+1\n", io.Discard)
	st, err := c.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrTransportIO)
	assert.False(t, st.OverallPass)
	assert.Equal(t, 1, st.Outcomes[OutcomeError])
	m.AssertExpectations(t)
}

func TestRoundOutcomes(t *testing.T) {
	req := p4calc.Frame{Magic: p4calc.Magic, Version: p4calc.Version, OpCode: p4calc.OpCode("+"), OperandA: 5, OperandB: 3}
	wrongOperands := req
	wrongOperands.OperandB, wrongOperands.Result = 4, 9
	badMagic := reply(t, req)
	badMagic[14] = 'X'

	tests := []struct {
		name    string
		reply   []byte
		err     error
		outcome Outcome
		wantErr error
	}{
		{"no reply", nil, nil, OutcomeNoReply, core.ErrTransportTimeout},
		{"magic mismatch", badMagic, nil, OutcomeBadReply, core.ErrMagicMismatch},
		{"truncated", reply(t, req)[:20], nil, OutcomeBadReply, core.ErrFrameTooShort},
		{"does not answer", reply(t, wrongOperands), nil, OutcomeBadReply, nil},
		{"soft transport error", nil, errors.New("resource temporarily unavailable"), OutcomeError, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockTransport{}
			m.On("RequestReply", mock.Anything, mock.Anything, 200*time.Millisecond).Return(tt.reply, tt.err).Once()
			c := newController(t, m, "", io.Discard)

			r, err := c.Round(context.Background(), "5+3")
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, r.Outcome)
			assert.True(t, r.Outcome.Failed())
			require.Error(t, r.Err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, r.Err, tt.wantErr)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestRoundRejectedInput(t *testing.T) {
	tests := []struct {
		input   string
		wantErr error
	}{
		{"abs(1)", core.ErrUnsupportedExpression},
		{"2*3", core.ErrUnsupportedExpression},
		{"5+", core.ErrSyntaxInvalid},
		{"1<2<3", core.ErrTokenShapeInvalid},
		{"-5+3", core.ErrTokenShapeInvalid},
		{"9999999999+1", core.ErrOperandRange},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m := &mockTransport{}
			c := newController(t, m, "", io.Discard)

			r, err := c.Round(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, OutcomeError, r.Outcome)
			assert.ErrorIs(t, r.Err, tt.wantErr)
			m.AssertNotCalled(t, "RequestReply", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRoundEncodesRequest(t *testing.T) {
	m := &mockTransport{}
	var sent []byte
	m.On("RequestReply", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).([]byte)
	}).Return(nil, nil).Once()

	var out bytes.Buffer
	c := newController(t, m, "", &out)
	r, err := c.Round(context.Background(), " 6 & 3 ")
	require.NoError(t, err)

	assert.Equal(t, "6&3", r.Input)
	assert.Equal(t, int64(2), r.TrueResult.Int64())
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, out.String(), "warning:")

	f := sentFrame(t, sent)
	assert.Equal(t, [2]byte{'&', ' '}, f.OpCode)
	assert.Equal(t, int32(6), f.OperandA)
	assert.Equal(t, int32(15), f.OperandB)
	assert.Zero(t, f.Result)
	assert.Equal(t, f, r.Request)
}

func TestRoundComparison(t *testing.T) {
	var out bytes.Buffer
	c := newController(t, loopback(t, nil), "", &out)

	r, err := c.Round(context.Background(), "3<=2")
	require.NoError(t, err)
	assert.Equal(t, OutcomePass, r.Outcome)
	assert.True(t, r.TrueResult.IsBool())
	require.NotNil(t, r.Reply)
	assert.Equal(t, int32(0), r.Reply.Result)
	assert.Contains(t, out.String(), "true result: false")
}

func TestDump(t *testing.T) {
	var out bytes.Buffer
	c, err := New(Options{
		Transport: loopback(t, nil),
		In:        strings.NewReader("1+1\n"),
		Out:       &out,
		DstMAC:    deviceMAC,
		Dump:      true,
		Prompt:    DefaultPrompt,
	})
	require.NoError(t, err)

	_, err = c.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "sending:")
	assert.Contains(t, out.String(), "received:")
	assert.Contains(t, out.String(), "P4calc")
	assert.True(t, strings.HasPrefix(out.String(), DefaultPrompt))
}

func TestNewValidation(t *testing.T) {
	_, err := New(Options{In: strings.NewReader(""), DstMAC: deviceMAC})
	assert.Error(t, err)

	_, err = New(Options{Transport: &mockTransport{}, DstMAC: deviceMAC})
	assert.Error(t, err)

	_, err = New(Options{Transport: &mockTransport{}, In: strings.NewReader("")})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)

	c, err := New(Options{Transport: &mockTransport{}, In: strings.NewReader(""), DstMAC: deviceMAC})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.timeout)
	assert.Equal(t, layers.EthernetType(p4calc.EtherType), c.link.EtherType)
	assert.Equal(t, StateAwaitingInput, c.State())
}

func TestStateAndOutcomeStrings(t *testing.T) {
	assert.Equal(t, "AwaitingResponse", StateAwaitingResponse.String())
	assert.Equal(t, "State(42)", State(42).String())
	assert.Equal(t, "no_reply", OutcomeNoReply.String())
	assert.False(t, OutcomeQuit.Failed())
	assert.False(t, OutcomePass.Failed())
	assert.True(t, OutcomeBadReply.Failed())
}
