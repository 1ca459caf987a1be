// Package node implements the Port (C5) and its owning Node from the core
// data model. A Port is the endpoint a Link binds to: it carries a
// direction, a capability set, a negotiated format once one is chosen, and
// the send/receive entry points the data loop drives.
package node

import (
	"fmt"
	"sync"

	"github.com/spf13/afero"

	"github.com/pwired/pwired/format"
	"github.com/pwired/pwired/signal"
)

// Direction is the flow direction of a Port.
type Direction int

const (
	// Output ports produce buffers; a node calls Send on them.
	Output Direction = iota
	// Input ports consume buffers; a node installs a ReceiveFunc on them.
	Input
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// State is the activation state of a Port.
type State int

const (
	// Idle: no format negotiated yet.
	Idle State = iota
	// Configured: a format has been chosen but buffers are not flowing.
	Configured
	// Active: buffers may flow.
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Configured:
		return "configured"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// CallbackID identifies one registered send-buffer callback, for O(1)
// stable removal.
type CallbackID uint64

// sendCb is one registered send-buffer callback plus the opaque user data
// it was registered with (mirrors the original's (id, fn, user) triple).
type sendCb struct {
	id   CallbackID
	fn   func(*Buffer) error
	user interface{}
}

// Port is a directional endpoint belonging to a Node. It implements the
// send/receive contract (§4.5) and exposes possible_formats/format as
// observable properties (Design Note 9).
type Port struct {
	// Name identifies the port within its owning Node, for logs and
	// find_port matching.
	Name      string
	Direction Direction

	// Fs, if set, is the filesystem VarDir creates this port's scratch
	// directory on (for example for a file-backed ring buffer
	// implementation). Grounded on the teacher's Init.VarDir facility;
	// backed by afero so tests can use an in-memory filesystem.
	Fs     afero.Fs
	varDir string

	mu              sync.Mutex
	possibleFormats format.Set
	chosenFormat    format.Format
	state           State
	sendCbs         []sendCb
	nextCbID        CallbackID
	receiveFunc     func(*Buffer) error

	// OnActivate/OnDeactivate fire whenever this port's state crosses the
	// corresponding transition. A Link subscribes to both of every port it
	// binds to implement mutual activation (§4.7 step 6).
	OnActivate   signal.Signal[*Port]
	OnDeactivate signal.Signal[*Port]
	// OnFormatChanged fires after format is written (post-negotiation).
	OnFormatChanged signal.Signal[format.Format]
	// OnPossibleFormatsChanged fires when the capability set is replaced.
	OnPossibleFormatsChanged signal.Signal[format.Set]
	// OnClose fires once, when the port is being torn down, after it has
	// been deactivated if it was Active. A Link bound to this port
	// subscribes to learn it must unwind itself.
	OnClose signal.Signal[*Port]

	closed bool
}

// NewPort returns a new, Idle port with the given name, direction, and
// initial capability set.
func NewPort(name string, direction Direction, possibleFormats format.Set) *Port {
	return &Port{
		Name:            name,
		Direction:       direction,
		possibleFormats: possibleFormats,
		state:           Idle,
	}
}

// PossibleFormats returns the port's current capability set.
func (p *Port) PossibleFormats() format.Set {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.possibleFormats
}

// SetPossibleFormats replaces the capability set and fires
// OnPossibleFormatsChanged. It does not itself trigger renegotiation; the
// control loop decides whether and when to do that.
func (p *Port) SetPossibleFormats(s format.Set) {
	p.mu.Lock()
	p.possibleFormats = s
	p.mu.Unlock()
	p.OnPossibleFormatsChanged.Emit(s)
}

// Format returns the negotiated format, or nil if none has been chosen yet.
func (p *Port) Format() format.Format {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chosenFormat
}

// SetFormat commits a negotiated format and fires OnFormatChanged. This
// should only be called by the link once negotiation has succeeded
// (§9 Open Question: format is written only after negotiation, never
// cross-wired between peers at construction time).
func (p *Port) SetFormat(f format.Format) {
	p.mu.Lock()
	p.chosenFormat = f
	if p.state == Idle {
		p.state = Configured
	}
	p.mu.Unlock()
	p.OnFormatChanged.Emit(f)
}

// State returns the port's current activation state.
func (p *Port) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Activate transitions Configured->Active and fires OnActivate. It is
// idempotent: calling it while already Active is a no-op success.
func (p *Port) Activate() error {
	p.mu.Lock()
	if p.state == Active {
		p.mu.Unlock()
		return nil
	}
	if p.state != Configured {
		p.mu.Unlock()
		return fmt.Errorf("port %s: cannot activate from state %s", p.Name, p.state)
	}
	p.state = Active
	p.mu.Unlock()
	p.OnActivate.Emit(p)
	return nil
}

// Deactivate transitions Active->Configured and fires OnDeactivate. It is
// idempotent: calling it while not Active is a no-op success.
func (p *Port) Deactivate() error {
	p.mu.Lock()
	if p.state != Active {
		p.mu.Unlock()
		return nil
	}
	p.state = Configured
	p.mu.Unlock()
	p.OnDeactivate.Emit(p)
	return nil
}

// AddSendBufferCb registers fn to be invoked, in registration order,
// whenever this port must emit a buffer (Send). It returns a CallbackID
// that RemoveSendBufferCb can later use for O(1) stable removal.
func (p *Port) AddSendBufferCb(fn func(*Buffer) error, user interface{}) CallbackID {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextCbID++
	id := p.nextCbID
	p.sendCbs = append(p.sendCbs, sendCb{id: id, fn: fn, user: user})
	return id
}

// Linked reports whether this port already has a send-buffer callback
// registered, i.e. whether a Link already binds to it. §3 fixes the
// default wiring at 1:1, so link.New refuses to bind a second link to a
// port for which this returns true.
func (p *Port) Linked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sendCbs) > 0
}

// RemoveSendBufferCb removes the callback registered under id, if present.
// It preserves the relative order of the remaining callbacks.
func (p *Port) RemoveSendBufferCb(id CallbackID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, cb := range p.sendCbs {
		if cb.id == id {
			p.sendCbs = append(p.sendCbs[:i], p.sendCbs[i+1:]...)
			return
		}
	}
}

// Send hands buf to each registered send-buffer callback, in registration
// order, and returns the first error; callbacks after a failing one are not
// run. §3 fixes the default link wiring at 1:1 (enforced by link.New via
// Linked), so a port bound by a link carries one callback from it. With
// zero registered callbacks (e.g. right after the sole link unregistered
// its callback during teardown), Send succeeds trivially: "zero consumers".
func (p *Port) Send(buf *Buffer) error {
	p.mu.Lock()
	cbs := make([]sendCb, len(p.sendCbs))
	copy(cbs, p.sendCbs)
	p.mu.Unlock()

	for _, cb := range cbs {
		if err := cb.fn(buf); err != nil {
			return err
		}
	}
	return nil
}

// SetReceiveFunc installs the function that will handle buffers arriving on
// this port's ReceiveBuffer entry point. Passing nil restores the default
// behavior of returning ErrWouldBlock.
func (p *Port) SetReceiveFunc(fn func(*Buffer) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.receiveFunc = fn
}

// ReceiveBuffer is the entrypoint a peer (via a Link's forwarding callback)
// uses to hand this port a buffer. It must not allocate and must not block:
// if no consumer is installed, or the installed one is not ready, it
// returns ErrWouldBlock rather than queuing.
func (p *Port) ReceiveBuffer(buf *Buffer) error {
	p.mu.Lock()
	fn := p.receiveFunc
	p.mu.Unlock()
	if fn == nil {
		return ErrWouldBlock
	}
	return fn(buf)
}

// VarDir returns (creating if needed) a scratch directory for this port,
// rooted at prefix, using the configured afero.Fs (or the OS filesystem if
// none was set).
func (p *Port) VarDir(prefix string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fsys := p.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	dir := prefix + "/" + p.Name
	if err := fsys.MkdirAll(dir, 0770); err != nil {
		return "", err
	}
	p.varDir = dir
	return dir, nil
}

// Close tears the port down. If it is Active it is deactivated first (and
// that event fires) so that a paired Link can react before destructors run
// (§4.5 edge case), then OnClose fires so back-referencing Links can
// unwind, and finally the port is marked closed. Close is idempotent.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	if err := p.Deactivate(); err != nil {
		return err
	}
	p.OnClose.Emit(p)
	return nil
}

// Closed reports whether Close has already run.
func (p *Port) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
