package format

import (
	"fmt"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// Media is a single concrete format: a media kind name plus a flat set of
// parameters (sample rate, channel count, pixel format, whatever the media
// domain in use cares about). It implements Format; a List holding one
// Media serves as a singleton Set.
type Media struct {
	Name   string
	Params map[string]string
}

var _ Format = Media{}

// Equal reports whether two Media values name the same format with the
// same parameters.
func (m Media) Equal(other Format) bool {
	o, ok := other.(Media)
	if !ok {
		return false
	}
	if m.Name != o.Name || len(m.Params) != len(o.Params) {
		return false
	}
	for k, v := range m.Params {
		if o.Params[k] != v {
			return false
		}
	}
	return true
}

// String renders a deterministic "name{k=v,k=v}" representation: map key
// order is sorted so that two equal Media values always render identically.
func (m Media) String() string {
	if len(m.Params) == 0 {
		return m.Name
	}
	keys := make([]string, 0, len(m.Params))
	for k := range m.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, m.Params[k])
	}
	return fmt.Sprintf("%s{%s}", m.Name, strings.Join(parts, ","))
}

// List is an ordered capability set: a port's (or filter's) acceptable
// formats, most-preferred first. It is the default Set implementation.
type List struct {
	Candidates []Media
}

var _ Set = List{}

// NewList builds a List from the given candidates, preserving order as the
// preference order (first is most preferred).
func NewList(candidates ...Media) List {
	return List{Candidates: candidates}
}

// Intersect returns the subset of l also present (by Equal) in other,
// preserving l's order.
func (l List) Intersect(other Set) Set {
	out := List{}
	for _, c := range l.Candidates {
		if setContains(other, c) {
			out.Candidates = append(out.Candidates, c)
		}
	}
	return out
}

func setContains(s Set, m Media) bool {
	l, ok := s.(List)
	if !ok {
		// fall back to the generic interface: a non-List Set can still be
		// probed one candidate at a time via a singleton intersection.
		inter := s.Intersect(List{Candidates: []Media{m}})
		return !inter.IsEmpty()
	}
	for _, c := range l.Candidates {
		if c.Equal(m) {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the set has no surviving candidates.
func (l List) IsEmpty() bool {
	return len(l.Candidates) == 0
}

// ChoosePreferred returns the first (most preferred) candidate.
func (l List) ChoosePreferred() (Format, bool) {
	if len(l.Candidates) == 0 {
		return nil, false
	}
	return l.Candidates[0], true
}

// String renders the ordered candidate list.
func (l List) String() string {
	parts := make([]string, len(l.Candidates))
	for i, c := range l.Candidates {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, " | ") + "]"
}

// MarshalYAML lets a List be embedded in a graphdef document, consistent
// with the teacher's habit of describing graphs in YAML.
func (l List) MarshalYAML() (interface{}, error) {
	out := make([]map[string]interface{}, len(l.Candidates))
	for i, c := range l.Candidates {
		m := map[string]interface{}{"name": c.Name}
		if len(c.Params) > 0 {
			m["params"] = c.Params
		}
		out[i] = m
	}
	return out, nil
}

// UnmarshalYAML implements yaml.Unmarshaler for List.
func (l *List) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw []struct {
		Name   string            `yaml:"name"`
		Params map[string]string `yaml:"params"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	l.Candidates = make([]Media, len(raw))
	for i, r := range raw {
		l.Candidates[i] = Media{Name: r.Name, Params: r.Params}
	}
	return nil
}

var _ yaml.Marshaler = List{}
var _ yaml.Unmarshaler = (*List)(nil)
