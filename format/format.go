// Package format implements the capability-set abstraction and format
// negotiator (C6). The concrete format representation is injected behind
// the Set interface (Design Note 9: "the concrete format representation is
// injected as a trait/interface so the core is reusable across media
// domains") — ports and links never depend on the concrete List type
// directly except as the default implementation that graphdef builds.
package format

// Set is an opaque capability set: the (possibly infinite, here always
// finite and enumerable) set of formats one endpoint is willing to speak.
type Set interface {
	// Intersect returns the subset of this Set that is also accepted by
	// other. The result preserves this Set's preferred order among the
	// surviving candidates.
	Intersect(other Set) Set

	// IsEmpty reports whether the set has no candidates left.
	IsEmpty() bool

	// ChoosePreferred returns the single most-preferred candidate in the
	// set, and false if the set is empty. Determinism is required: calling
	// this twice on an unmodified Set must return the same candidate.
	ChoosePreferred() (Format, bool)

	// String renders a human-readable, deterministic representation, for
	// logs and error messages (e.g. which two sets produced an empty
	// intersection).
	String() string
}

// Format is a single concrete, chosen media format. It is opaque to the
// negotiator beyond equality and string rendering.
type Format interface {
	// Equal reports whether two formats are the same concrete format.
	Equal(Format) bool
	String() string
}
