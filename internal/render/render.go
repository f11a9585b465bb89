// Package render draws recognition results over camera frames and shows
// them in an OpenCV window.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingerspell/internal/detector"
	"github.com/ayusman/fingerspell/internal/inference"
)

var (
	accepted = color.RGBA{0, 255, 0, 0}
	rejected = color.RGBA{0, 165, 255, 0}
	bones    = color.RGBA{255, 255, 255, 0}
	joints   = color.RGBA{0, 0, 255, 0}
	muted    = color.RGBA{200, 200, 200, 0}
)

// Connections lists the landmark pairs drawn as the hand skeleton.
var Connections = [][2]int{
	{detector.Wrist, detector.ThumbCMC}, {detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP}, {detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP}, {detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP}, {detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP}, {detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP}, {detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP}, {detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP}, {detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP}, {detector.Wrist, detector.PinkyMCP},
	{detector.PinkyMCP, detector.PinkyPIP}, {detector.PinkyPIP, detector.PinkyDIP},
	{detector.PinkyDIP, detector.PinkyTip},
}

// Caption formats a decision the way it is shown on screen, e.g.
// "A (87.50%)".
func Caption(d *inference.Decision) string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("%s (%.2f%%)", d.Label, d.Confidence*100)
}

// toPixel maps a normalized image coordinate onto a frame of the given size.
func toPixel(p detector.Point3D, width, height int) image.Point {
	return image.Pt(int(p.X*float64(width)), int(p.Y*float64(height)))
}

// Draw paints the overlay onto frame in place.
func Draw(frame *gocv.Mat, o inference.Overlay) {
	w, h := frame.Cols(), frame.Rows()

	if o.Hand != nil {
		for _, c := range Connections {
			gocv.Line(frame, toPixel(o.Hand.Points[c[0]], w, h), toPixel(o.Hand.Points[c[1]], w, h), bones, 2)
		}
		for _, p := range o.Hand.Points {
			gocv.Circle(frame, toPixel(p, w, h), 4, joints, -1)
		}
	}

	switch {
	case o.Paused:
		gocv.PutText(frame, "paused", image.Pt(50, 50), gocv.FontHersheySimplex, 1, muted, 2)
	case o.Decision != nil:
		c := accepted
		if o.Decision.Rejected {
			c = rejected
		}
		gocv.PutText(frame, Caption(o.Decision), image.Pt(50, 50), gocv.FontHersheySimplex, 1, c, 2)
	}

	status := fmt.Sprintf("%.1f fps  %v", o.Stats.FPS, o.Stats.Latency)
	gocv.PutText(frame, status, image.Pt(10, h-10), gocv.FontHersheySimplex, 0.5, muted, 1)
}
