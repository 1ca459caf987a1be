package node

import (
	"errors"
	"testing"

	"github.com/pwired/pwired/format"
)

func TestAddRemoveSendBufferCbRestoresPriorState(t *testing.T) {
	// spec.md §8 property 4.
	p := NewPort("out", Output, format.NewList(format.Media{Name: "A"}))
	id1 := p.AddSendBufferCb(func(*Buffer) error { return nil }, nil)
	before := len(p.sendCbs)
	id2 := p.AddSendBufferCb(func(*Buffer) error { return nil }, nil)
	p.RemoveSendBufferCb(id2)
	after := len(p.sendCbs)
	if before != after {
		t.Fatalf("callback list length mismatch: %d != %d", before, after)
	}
	p.RemoveSendBufferCb(id1)
	if len(p.sendCbs) != 0 {
		t.Fatalf("expected empty callback list, got %d", len(p.sendCbs))
	}
}

func TestSendZeroConsumersIsOk(t *testing.T) {
	p := NewPort("out", Output, format.NewList(format.Media{Name: "A"}))
	if err := p.Send(NewBuffer("x", nil)); err != nil {
		t.Fatalf("Send with zero callbacks should be Ok, got %v", err)
	}
}

func TestSendShortCircuitsOnFirstError(t *testing.T) {
	p := NewPort("out", Output, format.NewList(format.Media{Name: "A"}))
	var secondCalled bool
	wantErr := errors.New("boom")
	p.AddSendBufferCb(func(*Buffer) error { return wantErr }, nil)
	p.AddSendBufferCb(func(*Buffer) error { secondCalled = true; return nil }, nil)
	err := p.Send(NewBuffer("x", nil))
	if err != wantErr {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if secondCalled {
		t.Fatalf("second callback should not run after first errors")
	}
}

func TestReceiveBufferDefaultWouldBlock(t *testing.T) {
	p := NewPort("in", Input, format.NewList(format.Media{Name: "A"}))
	if err := p.ReceiveBuffer(NewBuffer("x", nil)); err != ErrWouldBlock {
		t.Fatalf("got %v, want ErrWouldBlock", err)
	}
}

func TestActivateIdempotent(t *testing.T) {
	p := NewPort("out", Output, format.NewList(format.Media{Name: "A"}))
	p.SetFormat(format.Media{Name: "A"})
	var activations int
	p.OnActivate.Connect(func(*Port) { activations++ })
	if err := p.Activate(); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := p.Activate(); err != nil {
		t.Fatalf("second Activate: %v", err)
	}
	if activations != 1 {
		t.Fatalf("activations = %d, want 1 (idempotent)", activations)
	}
}

func TestActivateRequiresConfigured(t *testing.T) {
	p := NewPort("out", Output, format.NewList(format.Media{Name: "A"}))
	if err := p.Activate(); err == nil {
		t.Fatalf("expected error activating an Idle port")
	}
}

func TestCloseWhileActiveDeactivatesFirst(t *testing.T) {
	p := NewPort("out", Output, format.NewList(format.Media{Name: "A"}))
	p.SetFormat(format.Media{Name: "A"})
	if err := p.Activate(); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	var order []string
	p.OnDeactivate.Connect(func(*Port) { order = append(order, "deactivate") })
	p.OnClose.Connect(func(*Port) { order = append(order, "close") })
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(order) != 2 || order[0] != "deactivate" || order[1] != "close" {
		t.Fatalf("order = %v, want [deactivate close]", order)
	}
	if p.State() != Configured {
		t.Fatalf("state = %v, want Configured after deactivation", p.State())
	}
}

func TestCloseIdempotent(t *testing.T) {
	p := NewPort("out", Output, format.NewList(format.Media{Name: "A"}))
	var closes int
	p.OnClose.Connect(func(*Port) { closes++ })
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if closes != 1 {
		t.Fatalf("closes = %d, want 1", closes)
	}
}
