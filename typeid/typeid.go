// Package typeid interns namespaced type URIs into small stable integer
// ids. It implements the type map (C1) of the core object model: every
// kind of global known to a core (node, port, link, client, factory, core,
// ...) is identified by a URI string the first time it is seen, and by a
// cheap integer ID from then on.
package typeid

import (
	"fmt"
	"sync"
)

// ID is a type id, stable for the lifetime of the process that interned
// it. It is never reused and never persisted across processes.
type ID uint32

// Map interns URIs to IDs. The zero value is not usable; use New. A Map is
// safe for concurrent use, though in practice it is only ever touched from
// the control loop.
type Map struct {
	mu     sync.RWMutex
	byURI  map[string]ID
	byID   []string // index 0 unused, ids start at 1
	nextID ID
}

// New returns an initialized, empty type map.
func New() *Map {
	return &Map{
		byURI: make(map[string]ID),
		byID:  []string{""}, // reserve index 0 as "no such id"
	}
}

// Intern returns the ID for uri, allocating a new one if uri has never been
// seen before. Repeated calls with the same uri are idempotent: they return
// the same ID. Entries are never removed.
func (m *Map) Intern(uri string) ID {
	m.mu.RLock()
	if id, ok := m.byURI[uri]; ok {
		m.mu.RUnlock()
		return id
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	// re-check: another goroutine may have interned it while we waited
	// for the write lock.
	if id, ok := m.byURI[uri]; ok {
		return id
	}
	m.nextID++
	id := m.nextID
	m.byURI[uri] = id
	m.byID = append(m.byID, uri)
	return id
}

// Lookup returns the URI that was interned for id, or "" and false if id
// was never allocated by this map.
func (m *Map) Lookup(id ID) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if int(id) <= 0 || int(id) >= len(m.byID) {
		return "", false
	}
	return m.byID[id], true
}

// MustLookup is like Lookup but panics if id is unknown. Useful in contexts
// where the id is known to have come from this same Map (e.g. logging the
// type of a just-interned object).
func (m *Map) MustLookup(id ID) string {
	uri, ok := m.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("typeid: no such id %d", id))
	}
	return uri
}

// Len returns the number of distinct URIs interned so far.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID) - 1
}

// Well-known type URIs, namespaced the way the bus-facing object surface
// (spec §6) identifies globals.
const (
	URICore    = "pwired.core.Core"
	URINode    = "pwired.core.Node"
	URIPort    = "pwired.core.Port"
	URILink    = "pwired.core.Link"
	URIClient  = "pwired.core.Client"
	URIFactory = "pwired.core.Factory"
)
