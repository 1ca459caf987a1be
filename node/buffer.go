package node

import "sync/atomic"

// Buffer is the opaque unit of media data moving between ports. The core
// never interprets its payload; it only relays the pointer. Buffers are
// reference-counted (Design Note 9: "Buffers themselves are reference-
// counted with release running on the data loop") so that a buffer handed
// to one send callback and fanned out to several links can be released
// exactly once, after the last consumer is done with it.
type Buffer struct {
	// Payload is the opaque media data. The core never reads or writes it.
	Payload interface{}

	refs    int32
	release func(*Buffer)
}

// NewBuffer wraps payload in a Buffer with an initial reference count of 1.
// release, if non-nil, is invoked exactly once, when the reference count
// drops to zero, and must not block or allocate (it runs on the data loop).
func NewBuffer(payload interface{}, release func(*Buffer)) *Buffer {
	return &Buffer{Payload: payload, refs: 1, release: release}
}

// Ref increments the reference count. Call this before handing the same
// buffer to more than one consumer (fan-out).
func (b *Buffer) Ref() {
	atomic.AddInt32(&b.refs, 1)
}

// Unref decrements the reference count and runs release when it reaches
// zero. Unref must be called exactly once per Ref (including the implicit
// initial reference from NewBuffer) by whoever finished consuming the
// buffer.
func (b *Buffer) Unref() {
	if atomic.AddInt32(&b.refs, -1) == 0 && b.release != nil {
		b.release(b)
	}
}

// RefCount returns the current reference count, for tests and diagnostics.
func (b *Buffer) RefCount() int32 {
	return atomic.LoadInt32(&b.refs)
}
