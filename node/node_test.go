package node

import (
	"testing"

	"github.com/pwired/pwired/format"
)

func TestNodeAddGetRemovePort(t *testing.T) {
	n := NewNode("sink")
	p := NewPort("in", Input, format.NewList(format.Media{Name: "A"}))
	if err := n.AddPort(p); err != nil {
		t.Fatalf("AddPort: %v", err)
	}
	if err := n.AddPort(p); err == nil {
		t.Fatalf("expected error adding duplicate port name")
	}
	got, ok := n.Port("in")
	if !ok || got != p {
		t.Fatalf("Port(\"in\") = %v, %v", got, ok)
	}
	if err := n.RemovePort("in"); err != nil {
		t.Fatalf("RemovePort: %v", err)
	}
	if !p.Closed() {
		t.Fatalf("expected port to be closed after RemovePort")
	}
	if _, ok := n.Port("in"); ok {
		t.Fatalf("port still present after RemovePort")
	}
}

func TestNodePortsOrder(t *testing.T) {
	n := NewNode("src")
	names := []string{"a", "b", "c"}
	for _, name := range names {
		if err := n.AddPort(NewPort(name, Output, format.NewList(format.Media{Name: "A"}))); err != nil {
			t.Fatalf("AddPort(%s): %v", name, err)
		}
	}
	ports := n.Ports()
	if len(ports) != 3 {
		t.Fatalf("len(Ports()) = %d, want 3", len(ports))
	}
	for i, name := range names {
		if ports[i].Name != name {
			t.Fatalf("Ports()[%d].Name = %s, want %s", i, ports[i].Name, name)
		}
	}
}
