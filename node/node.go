package node

import (
	"fmt"
	"sync"
)

// Node owns a set of ports. The core publishes a Node's ports as Globals
// when the node itself is published; node-plugin loading and the plugin
// ABI that produces a Node's behavior are out of scope for this package
// (spec §1) — Node here is just the owning container the data model
// requires for port lifetime.
type Node struct {
	Name string

	mu    sync.Mutex
	ports map[string]*Port
	order []string // insertion order, for deterministic iteration
}

// NewNode returns an empty, named node.
func NewNode(name string) *Node {
	return &Node{Name: name, ports: make(map[string]*Port)}
}

// AddPort adds port to this node. It errors if a port with the same name
// already exists.
func (n *Node) AddPort(p *Port) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.ports[p.Name]; exists {
		return fmt.Errorf("node %s: port %s already exists", n.Name, p.Name)
	}
	n.ports[p.Name] = p
	n.order = append(n.order, p.Name)
	return nil
}

// Port looks up a port by name.
func (n *Node) Port(name string) (*Port, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.ports[name]
	return p, ok
}

// Ports returns all ports in insertion order.
func (n *Node) Ports() []*Port {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Port, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.ports[name])
	}
	return out
}

// RemovePort closes and removes the named port from this node.
func (n *Node) RemovePort(name string) error {
	n.mu.Lock()
	p, ok := n.ports[name]
	if !ok {
		n.mu.Unlock()
		return fmt.Errorf("node %s: no such port %s", n.Name, name)
	}
	delete(n.ports, name)
	for i, v := range n.order {
		if v == name {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
	n.mu.Unlock()
	return p.Close()
}

// Close closes every port owned by this node, in insertion order,
// aggregating the first error encountered but attempting every port
// regardless.
func (n *Node) Close() error {
	var firstErr error
	for _, p := range n.Ports() {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
