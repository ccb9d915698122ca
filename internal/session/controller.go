// Package session drives the interactive test rounds against a P4calc device.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/gopacket/layers"

	"firestige.xyz/p4calc/internal/core"
	"firestige.xyz/p4calc/internal/eval"
	"firestige.xyz/p4calc/internal/expr"
	"firestige.xyz/p4calc/internal/log"
	"firestige.xyz/p4calc/internal/metrics"
	"firestige.xyz/p4calc/internal/transport"
	"firestige.xyz/p4calc/pkg/p4calc"
)

// QuitCommand ends the session.
const QuitCommand = "quit"

const (
	DefaultTimeout = time.Second
	DefaultPrompt  = "> "
)

// Options configures a Controller.
type Options struct {
	Transport transport.Transport
	In        io.Reader
	Out       io.Writer

	DstMAC    net.HardwareAddr
	EtherType layers.EthernetType // Defaults to p4calc.EtherType
	Trailer   []byte

	Timeout time.Duration // Bounded wait for each reply
	Prompt  string
	Dump    bool // Print a layer dump of every frame
	Logger  log.Logger
}

// Controller runs rounds one at a time over a single transport.
type Controller struct {
	tr      transport.Transport
	in      io.Reader
	out     io.Writer
	link    p4calc.Link
	timeout time.Duration
	prompt  string
	dump    bool
	logger  log.Logger

	state State
}

// New validates opts and builds a Controller.
func New(opts Options) (*Controller, error) {
	if opts.Transport == nil {
		return nil, errors.New("session: transport is required")
	}
	if opts.In == nil {
		return nil, errors.New("session: input is required")
	}
	if len(opts.DstMAC) != 6 {
		return nil, fmt.Errorf("%w: destination MAC %q", core.ErrConfigInvalid, opts.DstMAC.String())
	}

	c := &Controller{
		tr:      opts.Transport,
		in:      opts.In,
		out:     opts.Out,
		timeout: opts.Timeout,
		prompt:  opts.Prompt,
		dump:    opts.Dump,
		logger:  opts.Logger,
		link: p4calc.Link{
			SrcMAC:    opts.Transport.LocalAddr(),
			DstMAC:    opts.DstMAC,
			EtherType: opts.EtherType,
			Trailer:   opts.Trailer,
		},
	}
	if c.out == nil {
		c.out = io.Discard
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.link.EtherType == 0 {
		c.link.EtherType = p4calc.EtherType
	}
	if c.logger == nil {
		c.logger = log.GetLogger()
	}
	return c, nil
}

// State returns the current state of the round loop.
func (c *Controller) State() State {
	return c.state
}

// Run reads lines until end of input, quit or cancellation of ctx, running one round per line.
// The returned error is non-nil only for failures that abort the session;
// the aggregate state is returned either way.
func (c *Controller) Run(ctx context.Context) (SessionState, error) {
	st := newSessionState()
	metrics.SetSessionPass(true)

	done := make(chan struct{})
	defer close(done)
	lines := readLines(c.in, done)
	var fatal error

loop:
	for {
		c.state = StateAwaitingInput
		c.printf("%s", c.prompt)

		var line string
		select {
		case <-ctx.Done():
			break loop
		case l, ok := <-lines:
			if !ok {
				break loop
			}
			line = l
		}

		input := expr.Normalize(line)
		if input == "" {
			continue
		}

		if input == QuitCommand {
			r := RoundResult{Input: input, Outcome: OutcomeQuit}
			if err := c.Quit(ctx); err != nil {
				r.Outcome, r.Err = OutcomeError, err
				fatal = err
			}
			st.record(r)
			c.report(r)
			break loop
		}

		r, err := c.Round(ctx, input)
		if err != nil && ctx.Err() != nil {
			// Cancelled mid-round: end like end of input, the round never completed
			break loop
		}
		st.record(r)
		c.report(r)
		metrics.SetSessionPass(st.OverallPass)
		if err != nil {
			fatal = err
			break loop
		}
	}

	c.state = StateTerminated
	metrics.SetSessionPass(st.OverallPass)
	c.logger.WithFields(map[string]interface{}{
		"rounds":  st.Rounds,
		"pass":    st.Outcomes[OutcomePass],
		"overall": st.OverallPass,
	}).Debug("session terminated")

	if st.OverallPass {
		c.printf("calculator test success!\n")
	} else {
		c.printf("calculator test failed!\n")
	}
	return st, fatal
}

// Quit sends the sentinel quit frame without waiting for an answer.
func (c *Controller) Quit(ctx context.Context) error {
	c.state = StateTransmitting
	data, err := c.link.Build(p4calc.QuitFrame())
	if err != nil {
		return err
	}
	c.dumpFrame("sending quit frame", data)
	if err := c.tr.Send(ctx, data); err != nil {
		return err
	}
	c.state = StateTerminated
	return nil
}

// Round runs one expression through evaluation, transmission and comparison.
// Round failures are reported in the result. The error is non-nil only when
// the transport is unusable or ctx is done, in which case the session cannot go on.
func (c *Controller) Round(ctx context.Context, input string) (RoundResult, error) {
	input = expr.Normalize(input)
	r := RoundResult{Input: input}

	c.state = StateEvaluating
	value, err := eval.Evaluate(input)
	if err != nil {
		return c.finish(r, OutcomeError, err), nil
	}
	r.TrueResult = value
	c.printf("true result: %s\n", value)

	parsed, warnings, err := expr.Parse(input)
	if err != nil {
		return c.finish(r, OutcomeError, err), nil
	}
	r.Parsed, r.Warnings = parsed, warnings
	for _, w := range warnings {
		c.printf("warning: %s\n", w)
	}

	c.state = StateTransmitting
	r.Request = p4calc.Encode(parsed)
	data, err := c.link.Build(r.Request)
	if err != nil {
		return c.finish(r, OutcomeError, err), nil
	}
	c.dumpFrame("sending", data)

	c.state = StateAwaitingResponse
	start := time.Now()
	reply, err := c.tr.RequestReply(ctx, data, c.timeout)
	if err != nil {
		if ctx.Err() != nil {
			// Abandoned, not finished: Run drops the round
			r.Outcome, r.Err = OutcomeError, err
			return r, err
		}
		r = c.finish(r, OutcomeError, err)
		if errors.Is(err, core.ErrTransportIO) {
			return r, err
		}
		return r, nil
	}
	if reply == nil {
		return c.finish(r, OutcomeNoReply, fmt.Errorf("%w: no reply within %s", core.ErrTransportTimeout, c.timeout)), nil
	}
	r.Latency = time.Since(start)
	c.dumpFrame("received", reply)

	c.state = StateComparing
	_, f, err := p4calc.Parse(reply, c.link.EtherType)
	if err != nil {
		return c.finish(r, OutcomeBadReply, err), nil
	}
	r.Reply = &f
	if !f.Answers(r.Request) {
		return c.finish(r, OutcomeBadReply, fmt.Errorf("reply %s does not answer %s", f, r.Request)), nil
	}
	c.printf("remote result: %d\n", f.Result)

	if !value.Matches(f.Result) {
		return c.finish(r, OutcomeMismatch, fmt.Errorf("expected %s, device returned %d", value, f.Result)), nil
	}
	return c.finish(r, OutcomePass, nil), nil
}

func (c *Controller) finish(r RoundResult, o Outcome, err error) RoundResult {
	r.Outcome, r.Err = o, err
	metrics.ObserveRound(o.String(), r.Latency)

	logger := c.logger.WithFields(map[string]interface{}{
		"input":   r.Input,
		"outcome": o.String(),
	})
	if err != nil {
		logger = logger.WithError(err)
	}
	logger.Debug("round finished")
	return r
}

func (c *Controller) report(r RoundResult) {
	switch r.Outcome {
	case OutcomePass:
		c.printf("pass\n")
	case OutcomeQuit:
		c.printf("quit\n")
	case OutcomeMismatch, OutcomeNoReply, OutcomeBadReply:
		c.printf("FAIL: %v\n", r.Err)
	default:
		c.printf("error: %v\n", r.Err)
	}
}

func (c *Controller) dumpFrame(title string, data []byte) {
	if !c.dump {
		return
	}
	c.printf("%s:\n%s", title, p4calc.Dump(data))
}

func (c *Controller) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

// readLines feeds lines from r into the returned channel and closes it at end of input.
// A read blocked in r is abandoned, not interrupted, once done is closed.
func readLines(r io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}
