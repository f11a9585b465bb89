package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	hands    []HandLandmarks
	sequence [][]HandLandmarks
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by every Detect call.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
	m.sequence = nil
}

// SetSequence makes Detect return the given results one per call, in
// order. After the last entry the sequence starts over.
func (m *MockDetector) SetSequence(results [][]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = results
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.calls
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		return m.sequence[idx%len(m.sequence)], nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// pose builds a right hand from 2D image coordinates listed in landmark order.
func pose(points [NumLandmarks][2]float64) HandLandmarks {
	h := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}
	for i, p := range points {
		h.Points[i] = Point3D{X: p[0], Y: p[1]}
	}
	return h
}

// LetterALandmarks returns a fingerspelled "A": a fist with the thumb
// resting straight up along the side of the index finger.
func LetterALandmarks() HandLandmarks {
	return pose([NumLandmarks][2]float64{
		{0.50, 0.80},
		{0.56, 0.75}, {0.60, 0.68}, {0.61, 0.61}, {0.61, 0.55},
		{0.56, 0.64}, {0.56, 0.58}, {0.55, 0.63}, {0.54, 0.67},
		{0.51, 0.63}, {0.51, 0.57}, {0.50, 0.62}, {0.50, 0.66},
		{0.46, 0.64}, {0.46, 0.58}, {0.46, 0.63}, {0.46, 0.67},
		{0.42, 0.66}, {0.42, 0.61}, {0.42, 0.65}, {0.42, 0.68},
	})
}

// LetterBLandmarks returns a fingerspelled "B": four fingers extended
// upward and held together, thumb folded across the palm.
func LetterBLandmarks() HandLandmarks {
	return pose([NumLandmarks][2]float64{
		{0.50, 0.80},
		{0.55, 0.76}, {0.56, 0.71}, {0.53, 0.68}, {0.50, 0.67},
		{0.55, 0.64}, {0.555, 0.52}, {0.56, 0.44}, {0.56, 0.37},
		{0.51, 0.63}, {0.51, 0.50}, {0.51, 0.41}, {0.51, 0.34},
		{0.47, 0.64}, {0.47, 0.52}, {0.47, 0.44}, {0.47, 0.37},
		{0.43, 0.66}, {0.43, 0.56}, {0.43, 0.50}, {0.43, 0.45},
	})
}

// LetterLLandmarks returns a fingerspelled "L": index finger up, thumb
// extended sideways, remaining fingers curled.
func LetterLLandmarks() HandLandmarks {
	return pose([NumLandmarks][2]float64{
		{0.50, 0.80},
		{0.56, 0.77}, {0.62, 0.74}, {0.68, 0.72}, {0.74, 0.71},
		{0.55, 0.64}, {0.55, 0.52}, {0.55, 0.44}, {0.55, 0.36},
		{0.51, 0.64}, {0.51, 0.59}, {0.51, 0.63}, {0.51, 0.67},
		{0.47, 0.65}, {0.47, 0.60}, {0.47, 0.64}, {0.47, 0.68},
		{0.43, 0.67}, {0.43, 0.63}, {0.43, 0.66}, {0.43, 0.69},
	})
}

// LetterYLandmarks returns a fingerspelled "Y": thumb and pinky extended,
// the three middle fingers curled.
func LetterYLandmarks() HandLandmarks {
	return pose([NumLandmarks][2]float64{
		{0.50, 0.80},
		{0.56, 0.77}, {0.62, 0.73}, {0.67, 0.69}, {0.72, 0.66},
		{0.55, 0.64}, {0.55, 0.59}, {0.55, 0.63}, {0.55, 0.67},
		{0.51, 0.64}, {0.51, 0.59}, {0.51, 0.63}, {0.51, 0.67},
		{0.47, 0.65}, {0.47, 0.60}, {0.47, 0.64}, {0.47, 0.68},
		{0.43, 0.67}, {0.40, 0.58}, {0.38, 0.51}, {0.36, 0.45},
	})
}

// StaticHandLandmarks returns a hand whose points all coincide with the
// wrist. It cannot be normalized.
func StaticHandLandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.5}
	for i := range h.Points {
		h.Points[i] = Point3D{X: 0.5, Y: 0.5}
	}
	return h
}
