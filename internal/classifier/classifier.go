// Package classifier maps feature vectors to class probabilities over a
// fixed, ordered label set.
package classifier

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ayusman/fingerspell/internal/features"
)

var (
	// ErrAdapterFailure is returned when the underlying model fails.
	ErrAdapterFailure = errors.New("classifier failure")
	// ErrMalformedDistribution is returned when a model's output does not
	// match its labels.
	ErrMalformedDistribution = errors.New("malformed distribution")
)

// Classifier scores one feature vector at a time.
//
// Implementations own their model and release it in Close. Labels never
// changes over the lifetime of a Classifier.
type Classifier interface {
	Classify(ctx context.Context, v features.Vector) (Distribution, error)
	Labels() Labels
	Close() error
}

// Prediction is the most probable class of one classification.
type Prediction struct {
	Index        int
	Label        string
	Confidence   float64
	Distribution Distribution
}

// Predict classifies v and picks the most probable label. Both
// ErrAdapterFailure and ErrMalformedDistribution are adapter failures.
func Predict(ctx context.Context, c Classifier, v features.Vector) (Prediction, error) {
	if len(v) != features.Width {
		return Prediction{}, errors.Wrapf(ErrAdapterFailure, "feature vector has %d values, want %d", len(v), features.Width)
	}

	dist, err := c.Classify(ctx, v)
	if err != nil {
		if IsAdapterFailure(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Prediction{}, err
		}
		return Prediction{}, errors.Wrap(ErrAdapterFailure, err.Error())
	}

	labels := c.Labels()
	if err := dist.Validate(labels); err != nil {
		return Prediction{}, err
	}

	i := dist.ArgMax()
	return Prediction{
		Index:        i,
		Label:        labels.Name(i),
		Confidence:   dist[i],
		Distribution: dist,
	}, nil
}

// IsAdapterFailure reports whether err came from a classifier.
func IsAdapterFailure(err error) bool {
	return errors.Is(err, ErrAdapterFailure) || errors.Is(err, ErrMalformedDistribution)
}
