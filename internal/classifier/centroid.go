package classifier

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/fingerspell/internal/dataset"
	"github.com/ayusman/fingerspell/internal/features"
)

// DefaultTemperature scales distances before the softmax in Centroid.
const DefaultTemperature = 0.1

// Centroid is a nearest-centroid classifier fitted from dataset rows. Each
// label is represented by the mean of its feature vectors; the closer a
// vector is to a centroid, the more probable that label.
//
// A fitted Centroid is read-only and safe for concurrent use.
type Centroid struct {
	labels      Labels
	centroids   [][]float64
	temperature float64
}

// FitCentroid averages rows per label. Labels are registered in sorted
// order so that refitting the same dataset gives the same indices.
func FitCentroid(rows []dataset.Row, temperature float64) (*Centroid, error) {
	if len(rows) == 0 {
		return nil, errors.New("no rows to fit")
	}
	if temperature <= 0 {
		temperature = DefaultTemperature
	}

	sums := make(map[string][]float64)
	counts := make(map[string]int)
	for i, r := range rows {
		if err := r.Validate(); err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		sum, ok := sums[r.Label]
		if !ok {
			sum = make([]float64, features.Width)
			sums[r.Label] = sum
		}
		floats.Add(sum, r.Features)
		counts[r.Label]++
	}

	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Strings(names)

	labels, err := NewLabels(names...)
	if err != nil {
		return nil, err
	}

	c := &Centroid{
		labels:      labels,
		centroids:   make([][]float64, len(names)),
		temperature: temperature,
	}
	for i, name := range names {
		mean := sums[name]
		floats.Scale(1/float64(counts[name]), mean)
		c.centroids[i] = mean
	}
	return c, nil
}

// FitCentroidFile fits a Centroid from a dataset file.
func FitCentroidFile(path string, temperature float64) (*Centroid, error) {
	rows, err := dataset.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FitCentroid(rows, temperature)
}

// Classify implements Classifier.
func (c *Centroid) Classify(ctx context.Context, v features.Vector) (Distribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(v) != features.Width {
		return nil, errors.Wrapf(ErrAdapterFailure, "feature vector has %d values, want %d", len(v), features.Width)
	}

	scores := c.Distances(v)
	floats.Scale(-1/c.temperature, scores)
	return Softmax(scores), nil
}

// Distances returns the Euclidean distance from v to every centroid, in
// label order.
func (c *Centroid) Distances(v features.Vector) []float64 {
	out := make([]float64, len(c.centroids))
	for i, centroid := range c.centroids {
		if len(v) != len(centroid) {
			out[i] = math.Inf(1)
			continue
		}
		out[i] = floats.Distance(v, centroid, 2)
	}
	return out
}

// Labels implements Classifier.
func (c *Centroid) Labels() Labels { return c.labels }

// Close implements Classifier. A Centroid holds no external resources.
func (c *Centroid) Close() error { return nil }
