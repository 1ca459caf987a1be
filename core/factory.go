package core

import "github.com/pwired/pwired/node"

// NodeFactory is the out-of-scope node-plugin collaborator (§1: "node-plugin
// loading and the plugin ABI" are deliberately out of scope): something
// registered under a name that Core.CreateNode can invoke to produce a
// concrete *node.Node and its ports. The core only needs the result; how a
// factory builds it (loading a shared plugin, constructing an in-process
// type, …) is entirely up to the implementation.
type NodeFactory interface {
	// Name is the identifier clients pass to create_node.
	Name() string
	// New constructs a fresh node instance from the given properties.
	// PluginError should wrap any failure the underlying plugin reports,
	// per §7.
	New(props map[string]string) (*node.Node, error)
}

// FactoryFunc adapts a plain function to the NodeFactory interface, the way
// the teacher's resources package adapts bare funcs to its Res interfaces.
type FactoryFunc struct {
	name string
	fn   func(props map[string]string) (*node.Node, error)
}

// NewFactoryFunc builds a NodeFactory from a name and constructor function.
func NewFactoryFunc(name string, fn func(props map[string]string) (*node.Node, error)) *FactoryFunc {
	return &FactoryFunc{name: name, fn: fn}
}

// Name returns the factory's registered name.
func (f *FactoryFunc) Name() string { return f.name }

// New invokes the wrapped constructor.
func (f *FactoryFunc) New(props map[string]string) (*node.Node, error) {
	return f.fn(props)
}

var _ NodeFactory = (*FactoryFunc)(nil)
