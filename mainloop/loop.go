// Package mainloop implements the main-loop and data-loop primitive the
// core treats as an opaque external collaborator (§6: "a reference to a
// main-loop primitive exposing add_fd/update/remove on integer file
// descriptors with level-triggered readiness"). The core never imports
// this package directly; a host process wires a Loop into whatever
// transport (bus, timers) needs one.
package mainloop

// Events is a level-triggered readiness bitmask, mirroring the add_fd/
// update/remove interface's "level-triggered readiness" requirement.
type Events uint32

const (
	// Readable: the fd has data ready to read.
	Readable Events = 1 << iota
	// Writable: the fd can accept a write without blocking.
	Writable
	// Error: the fd reported an error condition (e.g. EPOLLERR/EPOLLHUP).
	Error
)

// Callback is invoked with the readiness bitmask that fired. It must not
// block: the loop is single-threaded and services every registered fd in
// turn.
type Callback func(ready Events)

// Loop is the main-loop/data-loop primitive (§6): add_fd, update, remove on
// integer file descriptors with level-triggered readiness. Both the
// control loop and the (optionally distinct, real-time) data loop are
// obtained as a Loop from the host; the core is agnostic to which
// concrete implementation backs either.
type Loop interface {
	// AddFd registers fd for the given event mask; cb fires from Run
	// whenever fd becomes ready. It is an error to add the same fd twice.
	AddFd(fd int, events Events, cb Callback) error
	// Update changes the event mask of a previously-added fd.
	Update(fd int, events Events) error
	// Remove unregisters fd. It is not an error to remove an fd that was
	// never added.
	Remove(fd int) error
	// Run services ready fds until Close is called from another
	// goroutine. Run blocks the calling goroutine.
	Run() error
	// Close unblocks a concurrent Run and releases the loop's own
	// kernel resources (epoll fd, wakeup fd). Safe to call once from any
	// goroutine; calling it twice is an error.
	Close() error
}
