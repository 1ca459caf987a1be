package link

import (
	"testing"

	"github.com/pwired/pwired/format"
	"github.com/pwired/pwired/node"
)

func mediaList(names ...string) format.List {
	media := make([]format.Media, len(names))
	for i, n := range names {
		media[i] = format.Media{Name: n}
	}
	return format.NewList(media...)
}

// TestNewHappyPath covers scenario S1: compatible ports negotiate, both
// reach Active, and the active-link invariant (property 3) holds.
func TestNewHappyPath(t *testing.T) {
	out := node.NewPort("out", node.Output, mediaList("A", "B"))
	in := node.NewPort("in", node.Input, mediaList("B", "A"))

	l, err := New(out, in, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.State() != Active {
		t.Fatalf("state = %v, want Active (link auto-activates)", l.State())
	}
	if out.State() != node.Active || in.State() != node.Active {
		t.Fatalf("ports not both active: out=%v in=%v", out.State(), in.State())
	}
	if l.Format() == nil || out.Format() == nil || in.Format() == nil {
		t.Fatalf("expected a committed format on link and both ports")
	}
	if !out.Format().Equal(in.Format()) {
		t.Fatalf("port formats diverge: out=%v in=%v", out.Format(), in.Format())
	}
}

// TestNewSwappedArguments covers scenario S2: New(input, output) normalizes
// the pair exactly as New(output, input) would.
func TestNewSwappedArguments(t *testing.T) {
	out := node.NewPort("out", node.Output, mediaList("A"))
	in := node.NewPort("in", node.Input, mediaList("A"))

	l, err := New(in, out, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.Output != out || l.Input != in {
		t.Fatalf("New did not normalize swapped direction arguments")
	}
}

// TestNewIncompatibleFormats covers scenario S3: negotiation fails, no
// callbacks are registered on either port, and no link is returned.
func TestNewIncompatibleFormats(t *testing.T) {
	out := node.NewPort("out", node.Output, mediaList("A"))
	in := node.NewPort("in", node.Input, mediaList("B"))

	l, err := New(out, in, nil)
	if err == nil {
		t.Fatalf("expected negotiation error")
	}
	if l != nil {
		t.Fatalf("expected nil link on negotiation failure")
	}
	if err := out.Send(node.NewBuffer("x", nil)); err != nil {
		t.Fatalf("Send on unlinked output should be a zero-consumer Ok, got %v", err)
	}
	if out.State() != node.Idle || in.State() != node.Idle {
		t.Fatalf("ports should be untouched on negotiation failure")
	}
}

// TestNewRejectsAlreadyLinkedPort covers the §3 invariant that a port may
// be bound to at most one link at a time.
func TestNewRejectsAlreadyLinkedPort(t *testing.T) {
	out := node.NewPort("out", node.Output, mediaList("A"))
	in := node.NewPort("in", node.Input, mediaList("A"))
	other := node.NewPort("other", node.Input, mediaList("A"))

	if _, err := New(out, in, nil); err != nil {
		t.Fatalf("New: %v", err)
	}
	if !out.Linked() {
		t.Fatalf("expected out.Linked() after New")
	}

	l, err := New(out, other, nil)
	if err == nil {
		t.Fatalf("expected PortBusy error binding an already-linked output")
	}
	if l != nil {
		t.Fatalf("expected nil link on PortBusy")
	}
}

// TestNewFilterNarrows covers scenario S4: an explicit filter further
// constrains which of the mutually-compatible formats is chosen.
func TestNewFilterNarrows(t *testing.T) {
	out := node.NewPort("out", node.Output, mediaList("A", "B"))
	in := node.NewPort("in", node.Input, mediaList("A", "B"))
	filter := mediaList("B")

	l, err := New(out, in, filter)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, ok := l.Format().(format.Media)
	if !ok || got.Name != "B" {
		t.Fatalf("Format() = %v, want B", l.Format())
	}
}

// TestPortCloseRemovesLink covers scenario S5: one endpoint disappearing
// mid-flow tears the link down rather than leaving it dangling.
func TestPortCloseRemovesLink(t *testing.T) {
	out := node.NewPort("out", node.Output, mediaList("A"))
	in := node.NewPort("in", node.Input, mediaList("A"))

	l, err := New(out, in, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var removed bool
	l.OnRemove.Connect(func(*Link) { removed = true })

	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !removed {
		t.Fatalf("expected link to remove itself when an endpoint closed")
	}
	if l.State() != Removed {
		t.Fatalf("state = %v, want Removed", l.State())
	}
}

// TestRemoveIsIdempotent exercises Remove called twice, and a peer port's
// Close after Remove already tore the link down.
func TestRemoveIsIdempotent(t *testing.T) {
	out := node.NewPort("out", node.Output, mediaList("A"))
	in := node.NewPort("in", node.Input, mediaList("A"))

	l, err := New(out, in, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var removeCount int
	l.OnRemove.Connect(func(*Link) { removeCount++ })

	if err := l.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := l.Remove(); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	if removeCount != 1 {
		t.Fatalf("removeCount = %d, want 1", removeCount)
	}
	// Closing the other port after Remove already ran must not panic or
	// double-fire, since Remove already disconnected both subscriptions.
	if err := in.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if removeCount != 1 {
		t.Fatalf("removeCount after peer close = %d, want 1", removeCount)
	}
}

// TestDeactivateReturnsLinkToConfigured checks the mutual-deactivation path
// and that WireState reflects the internal transition correctly.
func TestDeactivateReturnsLinkToConfigured(t *testing.T) {
	out := node.NewPort("out", node.Output, mediaList("A"))
	in := node.NewPort("in", node.Input, mediaList("A"))

	l, err := New(out, in, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.WireState() != WireStreaming {
		t.Fatalf("WireState = %v, want WireStreaming", l.WireState())
	}
	if err := l.Deactivate(); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if l.State() != Configured {
		t.Fatalf("state = %v, want Configured", l.State())
	}
	if out.State() != node.Configured || in.State() != node.Configured {
		t.Fatalf("both ports should have deactivated: out=%v in=%v", out.State(), in.State())
	}
	if l.WireState() != WirePaused {
		t.Fatalf("WireState = %v, want WirePaused", l.WireState())
	}
}
