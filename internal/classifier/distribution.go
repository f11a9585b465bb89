package classifier

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// sumTolerance is how far a distribution's total may drift from 1.
const sumTolerance = 1e-3

// Distribution holds one probability per registered label, in label order.
type Distribution []float64

// ArgMax returns the index of the most probable class. Ties resolve to the
// lowest index, i.e. registration order. It returns -1 for an empty
// distribution.
func (d Distribution) ArgMax() int {
	if len(d) == 0 {
		return -1
	}
	return floats.MaxIdx(d)
}

// Validate checks d against labels.
func (d Distribution) Validate(labels Labels) error {
	if len(d) != labels.Len() {
		return errors.Wrapf(ErrMalformedDistribution, "%d probabilities for %d labels", len(d), labels.Len())
	}
	for i, p := range d {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return errors.Wrapf(ErrMalformedDistribution, "probability %d is %v", i, p)
		}
	}
	if sum := floats.Sum(d); math.Abs(sum-1) > sumTolerance {
		return errors.Wrapf(ErrMalformedDistribution, "probabilities sum to %v", sum)
	}
	return nil
}

// Softmax turns scores into a distribution.
func Softmax(scores []float64) Distribution {
	out := make(Distribution, len(scores))
	if len(scores) == 0 {
		return out
	}
	lse := floats.LogSumExp(scores)
	for i, s := range scores {
		out[i] = math.Exp(s - lse)
	}
	return out
}

// probabilities returns raw model output as a distribution. Output that
// already forms a distribution is kept. Anything else is treated as logits,
// including logits that happen to fall inside [0,1].
func probabilities(raw []float64) Distribution {
	for _, p := range raw {
		if p < 0 || p > 1 {
			return Softmax(raw)
		}
	}
	if math.Abs(floats.Sum(raw)-1) > sumTolerance {
		return Softmax(raw)
	}
	return Distribution(raw)
}
