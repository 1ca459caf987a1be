package format

import "testing"

func a() Media { return Media{Name: "A"} }
func b() Media { return Media{Name: "B"} }
func c() Media { return Media{Name: "C"} }

func TestNegotiateHappyPath(t *testing.T) {
	// S1: output {A,B}, input {B,C} -> B
	output := NewList(a(), b())
	input := NewList(b(), c())
	got, err := Negotiate(output, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(b()) {
		t.Fatalf("got %v, want B", got)
	}
}

func TestNegotiateIncompatible(t *testing.T) {
	// S3: output {A}, input {B} -> IncompatibleFormats
	output := NewList(a())
	input := NewList(b())
	_, err := Negotiate(output, input)
	if err == nil {
		t.Fatalf("expected IncompatibleFormatsError, got nil")
	}
	if _, ok := err.(*IncompatibleFormatsError); !ok {
		t.Fatalf("expected *IncompatibleFormatsError, got %T", err)
	}
}

func TestNegotiateFilterNarrows(t *testing.T) {
	// S4: output {A,B}, input {A,B}, filter {A} -> A
	output := NewList(a(), b())
	input := NewList(a(), b())
	filter := NewList(a())
	got, err := Negotiate(output, input, filter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(a()) {
		t.Fatalf("got %v, want A", got)
	}
}

func TestNegotiateDeterministic(t *testing.T) {
	output := NewList(b(), a())
	input := NewList(a(), b())
	f1, err1 := Negotiate(output, input)
	f2, err2 := Negotiate(output, input)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if !f1.Equal(f2) {
		t.Fatalf("negotiate not deterministic: %v != %v", f1, f2)
	}
}

func TestNegotiateFilterOrderTieBreak(t *testing.T) {
	// Property 7: the resulting candidate *set* is the same regardless of
	// filter order; only which element wins follows the documented first-
	// filter-preferred rule, which intentionally varies if "first filter"
	// changes meaning under reordering.
	output := NewList(a(), b())
	input := NewList(a(), b())
	filter1 := NewList(a(), b()) // prefers A
	filter2 := NewList(b(), a()) // prefers B

	got1, err := Negotiate(output, input, filter1, filter2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got1.Equal(a()) {
		t.Fatalf("got %v, want A (first filter's preference)", got1)
	}

	got2, err := Negotiate(output, input, filter2, filter1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got2.Equal(b()) {
		t.Fatalf("got %v, want B (first filter's preference)", got2)
	}
}

func TestMediaStringDeterministic(t *testing.T) {
	m1 := Media{Name: "video", Params: map[string]string{"height": "1080", "width": "1920"}}
	m2 := Media{Name: "video", Params: map[string]string{"width": "1920", "height": "1080"}}
	if m1.String() != m2.String() {
		t.Fatalf("String() not deterministic across map iteration: %q != %q", m1.String(), m2.String())
	}
}
