package format

import "fmt"

// IncompatibleFormatsError is returned by Negotiate when some pair in the
// chain (filters..., output, input) produced an empty intersection. It
// names the two sets whose combination first went empty, as required by
// §4.6 and §7.
type IncompatibleFormatsError struct {
	Left, Right Set
}

func (e *IncompatibleFormatsError) Error() string {
	return fmt.Sprintf("incompatible formats: %s does not intersect %s", e.Left, e.Right)
}

// Negotiate computes the intersection of output.possible_formats,
// input.possible_formats, and every filter in filters, in the order
// (filters…, output, input), and selects a single winning Format.
//
// Tie-break: the winning Format is the first candidate of the first
// filter's preferred order; if no filter is given, it is the first
// candidate of output's preferred order. This makes negotiation
// deterministic (same inputs -> same output) and, per §8 property 7,
// commutative in the filter list up to this documented tie-break: the
// resulting candidate set is independent of filter order, only the
// documented rule decides which member of it wins.
//
// Negotiate has no side effect: it is the caller's responsibility to write
// the result onto port.format if it chooses to commit.
func Negotiate(output, input Set, filters ...Set) (Format, error) {
	chain := make([]Set, 0, len(filters)+2)
	chain = append(chain, filters...)
	chain = append(chain, output, input)

	result := chain[0]
	for i := 1; i < len(chain); i++ {
		next := result.Intersect(chain[i])
		if next.IsEmpty() {
			return nil, &IncompatibleFormatsError{Left: result, Right: chain[i]}
		}
		result = next
	}

	// Tie-break: result already preserves the order of chain[0] (the first
	// filter if any, else output, since chain[0] is filters[0] when present
	// and output otherwise) by construction of Intersect, so its preferred
	// candidate is exactly the rule requires.
	f, ok := result.ChoosePreferred()
	if !ok {
		// Intersect never produced an IsEmpty()==true result above but left
		// ChoosePreferred unable to pick one; treat defensively as the same
		// error class.
		return nil, &IncompatibleFormatsError{Left: result, Right: result}
	}
	return f, nil
}
