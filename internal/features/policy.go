package features

import (
	"strings"

	"github.com/ayusman/fingerspell/internal/detector"
)

// DefaultNothingLabel is the reserved label for "no gesture present".
const DefaultNothingLabel = "nothing"

// Outcome says what dataset construction does with one labeled image.
type Outcome int

const (
	// OutcomeRow writes the extracted vector.
	OutcomeRow Outcome = iota
	// OutcomeZeroFill writes the all-zero vector under the nothing label.
	OutcomeZeroFill
	// OutcomeSkip writes nothing.
	OutcomeSkip
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRow:
		return "row"
	case OutcomeZeroFill:
		return "zero-fill"
	case OutcomeSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Policy decides how labeled images without a usable hand are handled.
type Policy struct {
	// NothingLabel is compared case-insensitively. Empty means
	// DefaultNothingLabel.
	NothingLabel string
}

// IsNothing reports whether label is the reserved "nothing" label.
func (p Policy) IsNothing(label string) bool {
	nothing := p.NothingLabel
	if nothing == "" {
		nothing = DefaultNothingLabel
	}
	return strings.EqualFold(label, nothing)
}

// Apply extracts the vector for a labeled hand. When the hand is missing
// or degenerate, images labeled "nothing" get the zero vector and every
// other label is skipped: absence of a hand says nothing about which sign
// was meant. The returned error explains a zero-fill or skip.
func (p Policy) Apply(label string, hand *detector.HandLandmarks) (Vector, Outcome, error) {
	v, err := Extract(hand)
	if err == nil {
		return v, OutcomeRow, nil
	}
	if Unusable(err) && p.IsNothing(label) {
		return Zero(), OutcomeZeroFill, err
	}
	return nil, OutcomeSkip, err
}
