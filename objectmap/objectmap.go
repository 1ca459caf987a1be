// Package objectmap implements the object map (C2): a monotonic id
// allocator paired with an id -> object table. Ids are never reused across
// the lifetime of a Map, so a reference that outlives its object (e.g. held
// across an async IPC round-trip) can always be detected as stale rather
// than silently resolving to an unrelated later object.
package objectmap

import "sync"

// ID is a server-assigned object id, unique for the life of the Map that
// allocated it.
type ID uint32

// Map is the id allocator and id->object table described by the core
// object map. The zero value is not usable; use New.
type Map struct {
	mu     sync.RWMutex
	byID   map[ID]interface{}
	nextID ID
}

// New returns an initialized, empty object map.
func New() *Map {
	return &Map{byID: make(map[ID]interface{})}
}

// Insert allocates a fresh id for obj, stores it, and returns the id. obj
// may be any concrete object the core wants addressable by id (a Global,
// for internal bookkeeping that needs its own id, etc).
func (m *Map) Insert(obj interface{}) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.byID[id] = obj
	return id
}

// Get returns the object stored at id, or nil, false if id is unknown (it
// was never allocated, or has since been removed).
func (m *Map) Get(id ID) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.byID[id]
	return obj, ok
}

// Remove deletes id from the table. It does not and must not reuse the id:
// subsequent Insert calls always allocate strictly greater ids.
func (m *Map) Remove(id ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

// Len returns the number of objects currently stored (not the number ever
// allocated).
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
