package classifier

import (
	"context"
	"sync"

	"github.com/ayusman/fingerspell/internal/features"
)

// Mock is a Classifier that returns a fixed distribution. For testing.
type Mock struct {
	mu     sync.Mutex
	labels Labels
	dist   Distribution
	err    error
	calls  int
	closed bool
}

// NewMock creates a Mock over labels that returns dist.
func NewMock(labels Labels, dist Distribution) *Mock {
	return &Mock{labels: labels, dist: dist}
}

// SetDistribution changes the returned distribution.
func (m *Mock) SetDistribution(dist Distribution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dist = dist
	m.err = nil
}

// SetError makes Classify fail with err.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Classify was called.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Classify implements Classifier.
func (m *Mock) Classify(ctx context.Context, v features.Vector) (Distribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make(Distribution, len(m.dist))
	copy(out, m.dist)
	return out, nil
}

// Labels implements Classifier.
func (m *Mock) Labels() Labels { return m.labels }

// Close implements Classifier.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
