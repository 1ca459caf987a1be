package mainloop

import (
	"sync"

	errwrap "github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// EpollLoop is the default Linux implementation of Loop: an epoll set plus
// an eventfd used exactly as the teacher's SocketSet uses its pipe socket,
// to unblock a concurrent epoll_wait on Close (util/socketset/socketset.go:
// "create a pipe socket to unblock ... when we close", generalized here
// from select(2)+AF_UNIX pipe to epoll_wait(2)+eventfd since an arbitrary
// fd set, not just one netlink socket, must be serviced).
type EpollLoop struct {
	epfd     int
	wakeupFd int

	mu        sync.Mutex
	callbacks map[int]Callback
	closed    bool
}

// NewEpollLoop creates an epoll instance and its wakeup eventfd.
func NewEpollLoop() (*EpollLoop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errwrap.Wrap(err, "mainloop: epoll_create1")
	}
	wakeupFd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return nil, errwrap.Wrap(err, "mainloop: eventfd")
	}
	l := &EpollLoop{
		epfd:      epfd,
		wakeupFd:  wakeupFd,
		callbacks: make(map[int]Callback),
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeupFd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(wakeupFd),
	}); err != nil {
		unix.Close(wakeupFd)
		unix.Close(epfd)
		return nil, errwrap.Wrap(err, "mainloop: registering wakeup fd")
	}
	return l, nil
}

func toEpollEvents(e Events) uint32 {
	var out uint32
	if e&Readable != 0 {
		out |= unix.EPOLLIN
	}
	if e&Writable != 0 {
		out |= unix.EPOLLOUT
	}
	return out
}

func fromEpollEvents(raw uint32) Events {
	var out Events
	if raw&unix.EPOLLIN != 0 {
		out |= Readable
	}
	if raw&unix.EPOLLOUT != 0 {
		out |= Writable
	}
	if raw&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		out |= Error
	}
	return out
}

// AddFd implements Loop.
func (l *EpollLoop) AddFd(fd int, events Events, cb Callback) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.callbacks[fd]; exists {
		return errwrap.New("mainloop: fd already registered")
	}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: toEpollEvents(events),
		Fd:     int32(fd),
	}); err != nil {
		return errwrap.Wrap(err, "mainloop: epoll_ctl add")
	}
	l.callbacks[fd] = cb
	return nil
}

// Update implements Loop.
func (l *EpollLoop) Update(fd int, events Events) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: toEpollEvents(events),
		Fd:     int32(fd),
	}); err != nil {
		return errwrap.Wrap(err, "mainloop: epoll_ctl mod")
	}
	return nil
}

// Remove implements Loop. Removing an fd that was never added is a no-op,
// matching the teacher's tolerant-shutdown style elsewhere in util/.
func (l *EpollLoop) Remove(fd int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.callbacks[fd]; !exists {
		return nil
	}
	delete(l.callbacks, fd)
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return errwrap.Wrap(err, "mainloop: epoll_ctl del")
	}
	return nil
}

// Run implements Loop: it services ready fds until Close signals the
// wakeup fd. Level-triggered semantics come from epoll's default mode (no
// EPOLLET), so a callback that does not fully drain its fd will simply be
// invoked again next iteration, per §6's "level-triggered readiness".
func (l *EpollLoop) Run() error {
	events := make([]unix.EpollEvent, 64)
	for {
		n, err := unix.EpollWait(l.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return errwrap.Wrap(err, "mainloop: epoll_wait")
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == l.wakeupFd {
				return nil
			}
			l.mu.Lock()
			cb, ok := l.callbacks[fd]
			l.mu.Unlock()
			if ok {
				cb(fromEpollEvents(events[i].Events))
			}
		}
	}
}

// Close implements Loop: it writes to the wakeup eventfd to unblock a
// concurrent Run, then releases both kernel file descriptors.
func (l *EpollLoop) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errwrap.New("mainloop: already closed")
	}
	l.closed = true
	l.mu.Unlock()

	buf := make([]byte, 8)
	buf[0] = 1
	if _, err := unix.Write(l.wakeupFd, buf); err != nil {
		return errwrap.Wrap(err, "mainloop: waking up loop")
	}
	if err := unix.Close(l.wakeupFd); err != nil {
		return errwrap.Wrap(err, "mainloop: closing wakeup fd")
	}
	return unix.Close(l.epfd)
}

var _ Loop = (*EpollLoop)(nil)
