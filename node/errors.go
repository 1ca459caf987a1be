package node

import "errors"

// ErrWouldBlock is returned by ReceiveBuffer when the port cannot accept a
// buffer synchronously (no consumer installed, or the installed consumer
// is momentarily full). The caller must not retry in a tight loop; it owns
// the backoff policy.
var ErrWouldBlock = errors.New("would block")

// ErrDirectionMismatch is returned when an operation expected a port of a
// specific Direction and got the other one.
var ErrDirectionMismatch = errors.New("direction mismatch")

// ErrPortBusy is returned by link.New when a port already has a
// send-buffer callback registered: §3's default wiring is 1:1, so a
// second link cannot bind a port that is already linked.
var ErrPortBusy = errors.New("port busy")
