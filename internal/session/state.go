package session

import (
	"fmt"
	"time"

	"firestige.xyz/p4calc/internal/eval"
	"firestige.xyz/p4calc/internal/expr"
	"firestige.xyz/p4calc/pkg/p4calc"
)

// State is the position of the controller in its round loop.
type State int

const (
	StateAwaitingInput State = iota
	StateEvaluating
	StateTransmitting
	StateAwaitingResponse
	StateComparing
	StateTerminated
)

var stateNames = [...]string{
	StateAwaitingInput:    "AwaitingInput",
	StateEvaluating:       "Evaluating",
	StateTransmitting:     "Transmitting",
	StateAwaitingResponse: "AwaitingResponse",
	StateComparing:        "Comparing",
	StateTerminated:       "Terminated",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Outcome classifies one finished round.
type Outcome int

const (
	OutcomePass     Outcome = iota // device result equals the true result
	OutcomeMismatch                // device answered with another result
	OutcomeNoReply                 // nothing arrived before the timeout
	OutcomeBadReply                // something arrived that is not an answer to the request
	OutcomeError                   // the input could not be evaluated, parsed or sent
	OutcomeQuit                    // quit frame sent, session over
)

var outcomeNames = [...]string{
	OutcomePass:     "pass",
	OutcomeMismatch: "mismatch",
	OutcomeNoReply:  "no_reply",
	OutcomeBadReply: "bad_reply",
	OutcomeError:    "error",
	OutcomeQuit:     "quit",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// Failed reports whether the outcome clears the session's pass flag.
func (o Outcome) Failed() bool {
	return o != OutcomePass && o != OutcomeQuit
}

// RoundResult is everything known about one round once it is over.
type RoundResult struct {
	Input      string
	TrueResult eval.Value
	Parsed     expr.Parsed
	Warnings   []expr.Warning
	Request    p4calc.Frame
	Reply      *p4calc.Frame // nil unless a P4calc frame came back
	Latency    time.Duration
	Outcome    Outcome
	Err        error
}

// SessionState is the aggregate over all rounds. OverallPass starts true and,
// once cleared by a failed round, stays false.
type SessionState struct {
	OverallPass bool
	Rounds      int
	Outcomes    map[Outcome]int
}

func newSessionState() SessionState {
	return SessionState{OverallPass: true, Outcomes: make(map[Outcome]int)}
}

func (s *SessionState) record(r RoundResult) {
	if r.Outcome != OutcomeQuit {
		s.Rounds++
	}
	s.Outcomes[r.Outcome]++
	if r.Outcome.Failed() {
		s.OverallPass = false
	}
}
