package graphdef

import (
	"testing"

	"github.com/pwired/pwired/core"
)

const sampleGraph = `
graph: demo
nodes:
  - name: src
    ports:
      - name: out
        direction: output
        possible_formats:
          - name: A
          - name: B
  - name: dst
    ports:
      - name: in
        direction: input
        possible_formats:
          - name: B
          - name: C
links:
  - output: src.out
    input: dst.in
`

func TestParseAndBuild(t *testing.T) {
	var cfg GraphConfig
	if err := cfg.Parse([]byte(sampleGraph)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Graph != "demo" {
		t.Fatalf("Graph = %q, want demo", cfg.Graph)
	}

	co := core.New(nil, 0)
	cl := co.NewClient()
	if err := cfg.Build(co, cl); err != nil {
		t.Fatalf("Build: %v", err)
	}

	// At minimum, the core itself, two nodes, two ports, and the link
	// between them must all have published globals.
	if len(co.Globals()) < 6 {
		t.Fatalf("expected several published globals, got %d", len(co.Globals()))
	}
}

func TestParseRejectsMissingGraphName(t *testing.T) {
	var cfg GraphConfig
	if err := cfg.Parse([]byte("nodes: []\n")); err == nil {
		t.Fatalf("expected error for missing `graph` name")
	}
}

func TestBuildRejectsUnknownPortReference(t *testing.T) {
	var cfg GraphConfig
	if err := cfg.Parse([]byte(`
graph: bad
nodes:
  - name: only
    ports:
      - name: p
        direction: output
links:
  - output: only.p
    input: nosuch.port
`)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	co := core.New(nil, 0)
	cl := co.NewClient()
	if err := cfg.Build(co, cl); err == nil {
		t.Fatalf("expected error building a link to a nonexistent node")
	}
}
