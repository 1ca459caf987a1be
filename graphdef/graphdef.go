// Package graphdef loads a static bootstrap graph of nodes, ports, and
// links from a YAML document, for use without a live IPC client (tests,
// demos, `cmd/pwired --graph`). Grounded on yamlgraph/gconfig.go's
// YAML-graph-definition shape, adapted from resource/edge definitions to
// node/port/link definitions.
package graphdef

import (
	"fmt"
	"io/ioutil"
	"strings"

	errwrap "github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/pwired/pwired/core"
	"github.com/pwired/pwired/format"
	"github.com/pwired/pwired/node"
)

// FormatDef is one entry of a possible_formats or filter list.
type FormatDef struct {
	Name   string            `yaml:"name"`
	Params map[string]string `yaml:"params"`
}

func (f FormatDef) media() format.Media {
	return format.Media{Name: f.Name, Params: f.Params}
}

// PortDef describes one port of a NodeDef.
type PortDef struct {
	Name            string      `yaml:"name"`
	Direction       string      `yaml:"direction"` // "output" or "input"
	PossibleFormats []FormatDef `yaml:"possible_formats"`
}

// NodeDef describes one node and its ports.
type NodeDef struct {
	Name  string    `yaml:"name"`
	Ports []PortDef `yaml:"ports"`
}

// LinkDef describes one link, referencing ports as "node.port" strings.
type LinkDef struct {
	Output string      `yaml:"output"`
	Input  string      `yaml:"input"`
	Filter []FormatDef `yaml:"filter"`
}

// GraphConfig is the top-level document: a named static graph of nodes and
// the links between their ports.
type GraphConfig struct {
	Graph string    `yaml:"graph"`
	Nodes []NodeDef `yaml:"nodes"`
	Links []LinkDef `yaml:"links"`
}

// Parse parses a YAML document into c.
func (c *GraphConfig) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return errwrap.Wrap(err, "graphdef: parse")
	}
	if c.Graph == "" {
		return fmt.Errorf("graphdef: invalid `graph`: must be named")
	}
	return nil
}

// ParseFile reads and parses filename.
func ParseFile(filename string) (*GraphConfig, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errwrap.Wrap(err, "graphdef: reading file")
	}
	var c GraphConfig
	if err := c.Parse(data); err != nil {
		return nil, err
	}
	return &c, nil
}

// direction parses a PortDef's Direction field.
func direction(s string) (node.Direction, error) {
	switch strings.ToLower(s) {
	case "output":
		return node.Output, nil
	case "input":
		return node.Input, nil
	default:
		return 0, fmt.Errorf("graphdef: invalid port direction %q", s)
	}
}

// Build materializes c's nodes and links against co, as owner. Each node
// is registered as its own single-use factory and immediately created
// through Core.CreateNode, so the resulting globals and their lifecycle
// are indistinguishable from ones a live client published.
func (c *GraphConfig) Build(co *core.Core, owner *core.Client) error {
	built := make(map[string]*node.Node, len(c.Nodes))

	for _, nd := range c.Nodes {
		nd := nd // capture
		n := node.NewNode(nd.Name)
		for _, pd := range nd.Ports {
			dir, err := direction(pd.Direction)
			if err != nil {
				return err
			}
			media := make([]format.Media, len(pd.PossibleFormats))
			for i, fd := range pd.PossibleFormats {
				media[i] = fd.media()
			}
			p := node.NewPort(pd.Name, dir, format.NewList(media...))
			if err := n.AddPort(p); err != nil {
				return errwrap.Wrap(err, "graphdef: building node "+nd.Name)
			}
		}

		co.RegisterFactory(core.NewFactoryFunc(nd.Name, func(map[string]string) (*node.Node, error) {
			return n, nil
		}))
		if _, _, err := co.CreateNode(owner, nd.Name, nil); err != nil {
			return errwrap.Wrap(err, "graphdef: creating node "+nd.Name)
		}
		built[nd.Name] = n
	}

	for _, ld := range c.Links {
		output, err := resolvePort(built, ld.Output)
		if err != nil {
			return err
		}
		input, err := resolvePort(built, ld.Input)
		if err != nil {
			return err
		}
		var filter format.Set
		if len(ld.Filter) > 0 {
			media := make([]format.Media, len(ld.Filter))
			for i, fd := range ld.Filter {
				media[i] = fd.media()
			}
			filter = format.NewList(media...)
		}
		if _, _, err := co.CreateLink(owner, output, input, filter); err != nil {
			return errwrap.Wrap(err, fmt.Sprintf("graphdef: linking %s -> %s", ld.Output, ld.Input))
		}
	}

	return nil
}

func resolvePort(built map[string]*node.Node, ref string) (*node.Port, error) {
	parts := strings.SplitN(ref, ".", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("graphdef: port reference %q must be \"node.port\"", ref)
	}
	n, ok := built[parts[0]]
	if !ok {
		return nil, fmt.Errorf("graphdef: no such node %q", parts[0])
	}
	p, ok := n.Port(parts[1])
	if !ok {
		return nil, fmt.Errorf("graphdef: node %q has no port %q", parts[0], parts[1])
	}
	return p, nil
}
