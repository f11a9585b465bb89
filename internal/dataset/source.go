package dataset

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/ayusman/fingerspell/internal/detector"
)

// ErrUnreadableInput is returned when a file cannot be decoded as an image.
var ErrUnreadableInput = errors.New("unreadable image")

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// IsImage reports whether path has an image extension the dataset accepts.
func IsImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// Source produces landmarks for one image file. It returns a nil hand
// when the image contains no hand, and ErrUnreadableInput when the file
// cannot be decoded.
type Source interface {
	Landmarks(path string) (*detector.HandLandmarks, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(path string) (*detector.HandLandmarks, error)

// Landmarks calls f(path).
func (f SourceFunc) Landmarks(path string) (*detector.HandLandmarks, error) {
	return f(path)
}

// ImageSource decodes images with OpenCV and runs them through a detector.
type ImageSource struct {
	Detector detector.Detector
}

// Landmarks implements Source.
func (s ImageSource) Landmarks(path string) (*detector.HandLandmarks, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()

	if img.Empty() {
		return nil, errors.Wrap(ErrUnreadableInput, path)
	}

	hands, err := s.Detector.Detect(&img)
	if err != nil {
		return nil, errors.Wrap(err, "detect")
	}
	return detector.First(hands), nil
}
