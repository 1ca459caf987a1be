package mainloop

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestEpollLoopFiresOnReadable(t *testing.T) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	l, err := NewEpollLoop()
	if err != nil {
		t.Fatalf("NewEpollLoop: %v", err)
	}

	fired := make(chan Events, 1)
	if err := l.AddFd(fds[0], Readable, func(e Events) {
		select {
		case fired <- e:
		default:
		}
	}); err != nil {
		t.Fatalf("AddFd: %v", err)
	}

	go func() {
		if _, err := unix.Write(fds[1], []byte("x")); err != nil {
			t.Errorf("write: %v", err)
		}
	}()

	done := make(chan error, 1)
	go func() { done <- l.Run() }()

	select {
	case e := <-fired:
		if e&Readable == 0 {
			t.Fatalf("got events %v, want Readable set", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for callback")
	}

	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after Close")
	}
}

func TestEpollLoopAddDuplicateFdErrors(t *testing.T) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	l, err := NewEpollLoop()
	if err != nil {
		t.Fatalf("NewEpollLoop: %v", err)
	}
	defer l.Close()

	if err := l.AddFd(fds[0], Readable, func(Events) {}); err != nil {
		t.Fatalf("AddFd: %v", err)
	}
	if err := l.AddFd(fds[0], Readable, func(Events) {}); err == nil {
		t.Fatalf("expected error adding the same fd twice")
	}
}

func TestEpollLoopRemoveUnknownFdIsNoop(t *testing.T) {
	l, err := NewEpollLoop()
	if err != nil {
		t.Fatalf("NewEpollLoop: %v", err)
	}
	defer l.Close()

	if err := l.Remove(9999); err != nil {
		t.Fatalf("Remove unknown fd: %v", err)
	}
}
