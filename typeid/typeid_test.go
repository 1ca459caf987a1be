package typeid

import "testing"

func TestInternIdempotent(t *testing.T) {
	m := New()
	a := m.Intern(URINode)
	b := m.Intern(URINode)
	if a != b {
		t.Fatalf("Intern not idempotent: %d != %d", a, b)
	}
	c := m.Intern(URIPort)
	if c == a {
		t.Fatalf("distinct URIs got the same id")
	}
}

func TestLookupRoundTrip(t *testing.T) {
	m := New()
	id := m.Intern(URILink)
	uri, ok := m.Lookup(id)
	if !ok || uri != URILink {
		t.Fatalf("Lookup(%d) = %q, %v; want %q, true", id, uri, ok, URILink)
	}
}

func TestLookupUnknown(t *testing.T) {
	m := New()
	if _, ok := m.Lookup(999); ok {
		t.Fatalf("Lookup of unallocated id should fail")
	}
}

func TestNeverReused(t *testing.T) {
	m := New()
	ids := make(map[ID]bool)
	for i, uri := range []string{URICore, URINode, URIPort, URILink, URIClient} {
		id := m.Intern(uri)
		if ids[id] {
			t.Fatalf("id %d reused at index %d", id, i)
		}
		ids[id] = true
	}
	if m.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", m.Len())
	}
}
