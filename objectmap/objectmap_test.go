package objectmap

import "testing"

func TestInsertGetRemove(t *testing.T) {
	m := New()
	id := m.Insert("hello")
	v, ok := m.Get(id)
	if !ok || v != "hello" {
		t.Fatalf("Get(%d) = %v, %v; want hello, true", id, v, ok)
	}
	m.Remove(id)
	if _, ok := m.Get(id); ok {
		t.Fatalf("object still present after Remove")
	}
}

func TestIDsNeverReused(t *testing.T) {
	m := New()
	var seen []ID
	for i := 0; i < 10; i++ {
		id := m.Insert(i)
		for _, prev := range seen {
			if prev == id {
				t.Fatalf("id %d reused", id)
			}
		}
		seen = append(seen, id)
		if i%2 == 0 {
			m.Remove(id) // removing must not free the id for reuse
		}
	}
	// allocate a few more and confirm strictly increasing, never colliding
	// with a previously removed id.
	for i := 0; i < 5; i++ {
		id := m.Insert("more")
		for _, prev := range seen {
			if prev == id {
				t.Fatalf("id %d reused after removal", id)
			}
		}
		seen = append(seen, id)
	}
}

func TestIDsStrictlyIncreasing(t *testing.T) {
	m := New()
	prev := ID(0)
	for i := 0; i < 20; i++ {
		id := m.Insert(nil)
		if id <= prev {
			t.Fatalf("id %d is not greater than previous id %d", id, prev)
		}
		prev = id
	}
}

func TestLen(t *testing.T) {
	m := New()
	a := m.Insert(1)
	m.Insert(2)
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	m.Remove(a)
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
}
