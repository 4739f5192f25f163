// Package state implements the three-state codec lifecycle
// (unconfigured / configured / closed) shared by VideoEncoder,
// VideoDecoder, AudioEncoder, and AudioDecoder, as a total function over
// (state, event) pairs rather than scattered if-statements.
package state

import "github.com/five82/webcodecsgo/internal/codecerr"

// State is the tagged three-armed sum type of spec.md §4.C.
type State int

const (
	Unconfigured State = iota
	Configured
	Closed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is an operation requested against the machine.
type Event int

const (
	EventConfigure Event = iota
	EventEncodeOrDecode
	EventFlush
	EventReset
	EventClose
)

// Machine holds the current state plus the generation counter that the
// pipeline uses to identify and cancel work enqueued before a
// reset/reconfigure/close. Machine is not safe for concurrent use by
// multiple goroutines; callers serialize access (the codec facade does
// so via a mutex guarding state transitions, distinct from the pipeline
// goroutine that executes the enqueued work itself).
type Machine struct {
	state      State
	generation uint64
}

// New returns a Machine in the initial unconfigured state.
func New() *Machine {
	return &Machine{state: Unconfigured}
}

// Current reports the machine's state.
func (m *Machine) Current() State {
	return m.state
}

// Generation reports the current generation. Work items dispatched to
// the pipeline capture this value; the worker discards a result whose
// captured generation no longer matches Generation() at completion time.
func (m *Machine) Generation() uint64 {
	return m.generation
}

// Configure applies a configure(valid) transition: unconfigured →
// configured, or configured → configured (tearing down and rebuilding
// the backend is the caller's responsibility; Configure only legality-
// checks and updates state). closed rejects with invalid-state.
func (m *Machine) Configure() error {
	if m.state == Closed {
		return codecerr.NewInvalidStateError("configure called on a closed codec")
	}
	m.state = Configured
	return nil
}

// ConfigureUnsupported applies the configured → closed transition taken
// when configure's semantic (backend) check fails; the synchronous
// syntactic check must be done by the caller before ever reaching this
// machine, so this path always moves toward closed.
func (m *Machine) ConfigureUnsupported() {
	m.generation++
	m.state = Closed
}

// EncodeOrDecode legality-checks an encode/decode call: only legal while
// configured.
func (m *Machine) EncodeOrDecode() error {
	switch m.state {
	case Unconfigured:
		return codecerr.NewInvalidStateError("encode/decode called while unconfigured")
	case Closed:
		return codecerr.NewInvalidStateError("encode/decode called on a closed codec")
	default:
		return nil
	}
}

// Flush legality-checks a flush call: only legal while configured.
func (m *Machine) Flush() error {
	switch m.state {
	case Unconfigured:
		return codecerr.NewInvalidStateError("flush called while unconfigured")
	case Closed:
		return codecerr.NewInvalidStateError("flush called on a closed codec")
	default:
		return nil
	}
}

// Reset applies the reset transition: legal from unconfigured (a no-op
// transition that still cancels pending flush futures) and configured
// (bumps generation, returns to unconfigured). closed rejects.
func (m *Machine) Reset() error {
	if m.state == Closed {
		return codecerr.NewInvalidStateError("reset called on a closed codec")
	}
	m.generation++
	m.state = Unconfigured
	return nil
}

// Close applies the close transition: legal from any non-closed state,
// bumps generation, and is terminal. A second close is an error.
func (m *Machine) Close() error {
	if m.state == Closed {
		return codecerr.NewInvalidStateError("close called twice")
	}
	m.generation++
	m.state = Closed
	return nil
}
