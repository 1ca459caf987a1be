// Package link implements the Link state machine (C7): the directional
// binding between an output port and an input port that owns format
// negotiation and buffer relay. It is the data-plane heart of the core.
package link

import (
	"sync"

	errwrap "github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/pwired/pwired/format"
	"github.com/pwired/pwired/node"
	"github.com/pwired/pwired/signal"
)

// Link binds an output Port to an input Port under a negotiated format and
// relays buffers between them. Construct one with New; it is only ever
// reached through Core.CreateLink in normal operation, but New has no
// dependency on core so it can be tested in isolation.
type Link struct {
	Output *node.Port
	Input  *node.Port

	// Filter is the format.Set supplied at creation time (possibly nil,
	// meaning no additional constraint beyond the ports' own capability
	// sets).
	Filter format.Set

	// Limiter, if set, throttles the output-side send callback: each
	// buffer consumes one token before being forwarded to the input. This
	// is optional flow control the control loop may attach to a link that
	// is misbehaving or needs pacing; the data path still never blocks
	// (see onOutputSend: an empty bucket returns node.ErrWouldBlock).
	Limiter *rate.Limiter

	// OnRemove fires exactly once, when this link finishes tearing down.
	OnRemove signal.Signal[*Link]
	// OnStateChanged fires whenever the internal State changes.
	OnStateChanged signal.Signal[State]
	// OnFormatChanged fires once negotiation commits a format.
	OnFormatChanged signal.Signal[format.Format]

	mu          sync.Mutex
	state       State
	chosenFmt   format.Format
	active      bool // re-entrancy guard for mutual activation, §5
	lastErr     error
	outputCbID  node.CallbackID
	inputCbID   node.CallbackID
	actHandles  [2]signal.Handle // output, input OnActivate
	deactHandle [2]signal.Handle
	closeHandle [2]signal.Handle
}

// New normalizes a and b (swapping them if a is not the Output), negotiates
// a format from output.PossibleFormats(), input.PossibleFormats() and
// filter, and on success wires the buffer-relay callbacks and mutual
// activation subscriptions, then activates both ports (scenario S1:
// a successful New leaves the link Active, not merely Configured). New
// rejects a or b if either is already bound to another link (§3, ErrPortBusy).
//
// Per the §9 Open Question, this implementation does NOT copy
// possible_formats/format between the two ports before negotiation: both
// ports' existing capability sets are read as independent negotiator
// inputs, and format is written to both ports only once negotiation
// succeeds. This is a deliberate deviation from the original's
// unconditional cross-wiring, which this spec's author flagged as more
// likely a latent bug than an intentional design.
//
// If negotiation fails, New registers nothing on either port: no
// callbacks, no subscriptions (§8 scenario S3).
func New(a, b *node.Port, filter format.Set) (*Link, error) {
	output, input := a, b
	if output.Direction != node.Output {
		output, input = input, output
	}
	if output.Direction != node.Output || input.Direction != node.Input {
		return nil, errwrap.Wrap(node.ErrDirectionMismatch, "link.New")
	}
	if output.Linked() || input.Linked() {
		return nil, errwrap.Wrap(node.ErrPortBusy, "link.New")
	}

	var filters []format.Set
	if filter != nil {
		filters = append(filters, filter)
	}
	chosen, err := format.Negotiate(output.PossibleFormats(), input.PossibleFormats(), filters...)
	if err != nil {
		return nil, errwrap.Wrap(err, "link.New: negotiation failed")
	}

	l := &Link{
		Output: output,
		Input:  input,
		Filter: filter,
		state:  Created,
	}

	output.SetFormat(chosen)
	input.SetFormat(chosen)
	l.chosenFmt = chosen
	l.setState(Configured)
	l.OnFormatChanged.Emit(chosen)

	l.outputCbID = output.AddSendBufferCb(func(buf *node.Buffer) error {
		return l.onOutputSend(buf)
	}, l)
	l.inputCbID = input.AddSendBufferCb(func(buf *node.Buffer) error {
		return l.onInputSend(buf)
	}, l)

	l.actHandles[0] = output.OnActivate.Connect(l.onPortActivate)
	l.actHandles[1] = input.OnActivate.Connect(l.onPortActivate)
	l.deactHandle[0] = output.OnDeactivate.Connect(l.onPortDeactivate)
	l.deactHandle[1] = input.OnDeactivate.Connect(l.onPortDeactivate)
	l.closeHandle[0] = output.OnClose.Connect(l.onPortClosed)
	l.closeHandle[1] = input.OnClose.Connect(l.onPortClosed)

	// Scenario S1: a link with no filter narrowing the negotiated format
	// down to nothing reaches Active on its own, with no separate
	// control-loop step required.
	if err := l.Activate(); err != nil {
		return nil, errwrap.Wrap(err, "link.New: activate")
	}

	return l, nil
}

// onOutputSend is registered as the output port's send-buffer callback: it
// forwards the buffer to the input port's receive entrypoint, unchanged.
func (l *Link) onOutputSend(buf *node.Buffer) error {
	if l.Limiter != nil && !l.Limiter.Allow() {
		return node.ErrWouldBlock
	}
	return l.Input.ReceiveBuffer(buf)
}

// onInputSend is registered as the input port's send-buffer callback: it
// forwards the buffer to the output port's receive entrypoint. This
// symmetric path carries feedback such as format events or buffer returns,
// per §4.7 step 4.
func (l *Link) onInputSend(buf *node.Buffer) error {
	return l.Output.ReceiveBuffer(buf)
}

// onPortActivate implements the mutual-activation rule of §4.7 step 6: when
// one side activates, the other is activated too. The active flag guards
// re-entrancy so the paired activation does not loop back.
func (l *Link) onPortActivate(p *node.Port) {
	l.mu.Lock()
	if l.active {
		l.mu.Unlock()
		return
	}
	l.active = true
	l.mu.Unlock()

	other := l.other(p)
	_ = other.Activate() // best-effort: port.Activate is idempotent and only
	// errors if not yet Configured, which cannot happen here since both
	// ports were configured together in New.

	l.setState(Active)
}

// onPortDeactivate is the symmetric counterpart of onPortActivate.
func (l *Link) onPortDeactivate(p *node.Port) {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return
	}
	l.active = false
	l.mu.Unlock()

	other := l.other(p)
	_ = other.Deactivate()

	l.mu.Lock()
	st := l.state
	l.mu.Unlock()
	if st == Active {
		l.setState(Configured)
	}
}

// onPortClosed implements the cyclic-reference teardown of Design Note 9:
// a port being closed triggers this link's own removal, since the link
// holds only non-owning back references to its ports.
func (l *Link) onPortClosed(*node.Port) {
	_ = l.Remove()
}

func (l *Link) other(p *node.Port) *node.Port {
	if p == l.Output {
		return l.Input
	}
	return l.Output
}

// State returns the link's current internal state.
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// WireState returns the bus-facing wire state (§6) corresponding to the
// link's current internal state.
func (l *Link) WireState() WireState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return wireState(l.state, l.lastErr != nil)
}

// Format returns the negotiated format, or nil before negotiation commits
// (which, for New, never leaves the link in a visible state without one —
// New either returns a fully Configured link or an error).
func (l *Link) Format() format.Format {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chosenFmt
}

func (l *Link) setState(s State) {
	l.mu.Lock()
	changed := l.state != s
	l.state = s
	l.mu.Unlock()
	if changed {
		l.OnStateChanged.Emit(s)
	}
}

// Activate drives the link from Configured to Active by activating the
// output port; the mutual-activation wiring set up in New takes care of
// activating the input port too. It is idempotent.
func (l *Link) Activate() error {
	if l.State() == Active {
		return nil
	}
	return l.Output.Activate()
}

// Deactivate drives the link back to Configured. It is idempotent.
func (l *Link) Deactivate() error {
	if l.State() != Active {
		return nil
	}
	return l.Output.Deactivate()
}

// Remove tears the link down (§3 Link lifecycle, §4.7 "removed" state):
// unregisters the send-buffer callbacks from both ports, deactivates both
// ports if the link had activated them, and emits OnRemove. The Output and
// Input fields are not cleared: they still name the two ports after
// removal. Remove is idempotent and safe to call re-entrantly from a
// port's OnClose handler.
func (l *Link) Remove() error {
	l.mu.Lock()
	if l.state == Removed {
		l.mu.Unlock()
		return nil
	}
	wasActive := l.state == Active
	l.state = Removed
	l.mu.Unlock()

	l.Output.RemoveSendBufferCb(l.outputCbID)
	l.Input.RemoveSendBufferCb(l.inputCbID)
	l.Output.OnActivate.Disconnect(l.actHandles[0])
	l.Input.OnActivate.Disconnect(l.actHandles[1])
	l.Output.OnDeactivate.Disconnect(l.deactHandle[0])
	l.Input.OnDeactivate.Disconnect(l.deactHandle[1])
	l.Output.OnClose.Disconnect(l.closeHandle[0])
	l.Input.OnClose.Disconnect(l.closeHandle[1])

	if wasActive {
		_ = l.Output.Deactivate()
		_ = l.Input.Deactivate()
	}

	l.OnRemove.Emit(l)
	l.OnStateChanged.Emit(Removed)
	return nil
}
