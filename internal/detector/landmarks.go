// Package detector provides hand detection interfaces and landmark types.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Anchor is the landmark used as the origin when normalizing a hand.
const Anchor = Wrist

// Point3D is a landmark in normalized image space. X and Y are in [0, 1]
// relative to the frame; Z is relative depth and is not used for features.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is the ordered set of 21 landmarks for one detected hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// First returns the first hand of a detection result, or nil when no hand
// was found. The pipeline works on a single hand.
func First(hands []HandLandmarks) *HandLandmarks {
	if len(hands) == 0 {
		return nil
	}
	h := hands[0]
	return &h
}

// Shift returns a copy of the hand with every point moved by (dx, dy).
func (h HandLandmarks) Shift(dx, dy float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}

// Scale returns a copy of the hand with every point scaled by s around
// the image origin.
func (h HandLandmarks) Scale(s float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X *= s
		h.Points[i].Y *= s
		h.Points[i].Z *= s
	}
	return h
}
