package inference

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultWindow is the number of recent frames used for rates and latency.
const DefaultWindow = 30

// Snapshot is a point-in-time copy of loop counters.
type Snapshot struct {
	Frames          int64
	Hands           int64
	Decisions       int64
	Rejected        int64
	NoHand          int64
	Degenerate      int64
	DetectorErrors  int64
	AdapterFailures int64
	// FPS is the frame rate over the recent window.
	FPS float64
	// Latency is the mean classify latency over the recent window.
	Latency time.Duration
}

// Stats counts what the loop did with each frame.
type Stats struct {
	mu        sync.Mutex
	s         Snapshot
	window    int
	frameAt   []time.Time
	latencies []float64
}

// NewStats keeps rolling figures over the last window frames.
func NewStats(window int) *Stats {
	if window < 2 {
		window = DefaultWindow
	}
	return &Stats{window: window}
}

func (st *Stats) frame(at time.Time) int64 {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.s.Frames++
	st.frameAt = append(st.frameAt, at)
	if len(st.frameAt) > st.window {
		st.frameAt = st.frameAt[len(st.frameAt)-st.window:]
	}
	return st.s.Frames
}

func (st *Stats) add(f func(s *Snapshot)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	f(&st.s)
}

func (st *Stats) classified(latency time.Duration, rejected bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if rejected {
		st.s.Rejected++
	} else {
		st.s.Decisions++
	}
	st.latencies = append(st.latencies, float64(latency))
	if len(st.latencies) > st.window {
		st.latencies = st.latencies[len(st.latencies)-st.window:]
	}
}

// Snapshot returns the current counters.
func (st *Stats) Snapshot() Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.s
	if n := len(st.frameAt); n > 1 {
		if span := st.frameAt[n-1].Sub(st.frameAt[0]); span > 0 {
			s.FPS = float64(n-1) / span.Seconds()
		}
	}
	if len(st.latencies) > 0 {
		s.Latency = time.Duration(stat.Mean(st.latencies, nil))
	}
	return s
}
