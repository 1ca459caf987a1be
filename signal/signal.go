// Package signal provides the plain-data replacement for the GObject-style
// signal/property-change machinery of the original implementation (Design
// Note 9: "re-architect as plain data structs plus an explicit observer
// list per signal"). Each Signal[T] is a typed broadcast: Connect returns a
// Handle whose Disconnect call removes that one observer, and Emit
// invokes every currently-connected observer, in registration order,
// against a stable snapshot so that an observer may safely Connect or
// Disconnect (including disconnecting a different handle) from within its
// own callback.
package signal

import "sync"

// Handle identifies one connected observer. It is only valid for the
// Signal it was returned from.
type Handle uint64

// Signal is a typed, ordered, multi-observer broadcast channel. The zero
// value is ready to use.
type Signal[T any] struct {
	mu     sync.Mutex
	nextID Handle
	order  []Handle
	byID   map[Handle]func(T)
}

// Connect registers fn to be called on every future Emit, and returns a
// Handle that can later be passed to Disconnect. Connect is O(1).
func (s *Signal[T]) Connect(fn func(T)) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byID == nil {
		s.byID = make(map[Handle]func(T))
	}
	s.nextID++
	h := s.nextID
	s.byID[h] = fn
	s.order = append(s.order, h)
	return h
}

// Disconnect removes the observer registered under h, if still connected.
// Disconnecting an already-disconnected or unknown handle is a no-op. This
// is O(n) in the number of currently connected observers, to preserve
// registration order for the remainder (the expected observer count per
// signal is small: one or two per port/link).
func (s *Signal[T]) Disconnect(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[h]; !ok {
		return
	}
	delete(s.byID, h)
	for i, id := range s.order {
		if id == h {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Emit calls every currently-connected observer, in registration order,
// with value. It snapshots the observer list before iterating, so an
// observer that connects or disconnects observers during the call does not
// corrupt the in-progress delivery and does not see observers added after
// this Emit started.
func (s *Signal[T]) Emit(value T) {
	s.mu.Lock()
	order := make([]Handle, len(s.order))
	copy(order, s.order)
	fns := make([]func(T), 0, len(order))
	for _, h := range order {
		if fn, ok := s.byID[h]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

// Len returns the number of currently connected observers.
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
