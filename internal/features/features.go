// Package features turns hand landmarks into the fixed-length vector the
// classifier consumes.
//
// Dataset construction and live inference both go through Extract, so a
// row written to disk and a frame classified at runtime are always
// produced by the same transform.
package features

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ayusman/fingerspell/internal/detector"
)

// Width is the length of every feature vector: an (x, y) pair per landmark.
const Width = 2 * detector.NumLandmarks

var (
	// ErrNoDetection means the detector found no hand. It is a routing
	// signal, not a failure.
	ErrNoDetection = errors.New("no hand detected")

	// ErrDegenerateGeometry means every landmark coincides with the anchor,
	// so there is no scale to normalize by.
	ErrDegenerateGeometry = errors.New("degenerate hand geometry")

	// ErrWrongPointCount means the landmark set does not have exactly
	// detector.NumLandmarks points.
	ErrWrongPointCount = errors.New("wrong landmark count")
)

// Point is a 2D coordinate relative to the anchor landmark.
type Point struct {
	X, Y float64
}

// Coords is a normalized landmark set: anchor at the origin and the
// largest absolute coordinate equal to 1.
type Coords [detector.NumLandmarks]Point

// Vector is a flattened Coords: x0, y0, x1, y1, ...
type Vector []float64

// Normalize translates the landmarks so the anchor is the origin and then
// divides every coordinate by the largest absolute coordinate. A single
// divisor is shared by both axes so the hand keeps its aspect ratio.
func Normalize(points []detector.Point3D) (Coords, error) {
	var c Coords
	if len(points) != detector.NumLandmarks {
		return c, errors.Wrapf(ErrWrongPointCount, "got %d, want %d", len(points), detector.NumLandmarks)
	}

	anchor := points[detector.Anchor]
	var maxAbs float64
	for i, p := range points {
		c[i] = Point{X: p.X - anchor.X, Y: p.Y - anchor.Y}
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(c[i].X), math.Abs(c[i].Y)))
	}

	if maxAbs == 0 {
		return Coords{}, ErrDegenerateGeometry
	}

	for i := range c {
		c[i].X /= maxAbs
		c[i].Y /= maxAbs
	}
	return c, nil
}

// Build flattens normalized coordinates in landmark order.
func Build(c Coords) Vector {
	v := make(Vector, 0, Width)
	for _, p := range c {
		v = append(v, p.X, p.Y)
	}
	return v
}

// Zero returns the all-zero vector used as the "nothing" signature.
//
// A real hand can never normalize to it (the anchor is the only point at
// the origin), but once flattened the two are indistinguishable; callers
// must not try to tell them apart.
func Zero() Vector {
	return make(Vector, Width)
}

// Extract is the single entry point shared by dataset construction and
// live inference. A nil hand yields ErrNoDetection.
func Extract(hand *detector.HandLandmarks) (Vector, error) {
	if hand == nil {
		return nil, ErrNoDetection
	}
	c, err := Normalize(hand.Points[:])
	if err != nil {
		return nil, err
	}
	return Build(c), nil
}

// Unusable reports whether err means the frame carries no usable hand
// signal: no detection or degenerate geometry.
func Unusable(err error) bool {
	return errors.Is(err, ErrNoDetection) || errors.Is(err, ErrDegenerateGeometry)
}

// Float32s converts the vector to the element type most model runtimes
// expect.
func (v Vector) Float32s() []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
