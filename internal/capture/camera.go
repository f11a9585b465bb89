// Package capture reads frames from a camera device or a video file using
// GoCV (OpenCV).
package capture

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEndOfStream is returned once a source has no more frames: the end
	// of a video file, or a device that stopped delivering.
	ErrEndOfStream = errors.New("end of stream")
)

// Camera defines the interface for frame sources.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Config selects and shapes a capture source.
type Config struct {
	// Source is a device index ("0") or a video file path.
	Source string
	// Mirror flips frames horizontally so the preview behaves like a mirror.
	Mirror bool
	FPS    int
}

// DefaultConfig returns the first camera, mirrored.
func DefaultConfig() Config {
	return Config{Source: "0", Mirror: true, FPS: DefaultFPS}
}

// cameraImpl manages video capture from a device or file using GoCV.
type cameraImpl struct {
	source  string
	mirror  bool
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
}

// NewCamera creates a Camera for cfg. Nothing is opened until Open.
func NewCamera(cfg Config) Camera {
	fps := cfg.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &cameraImpl{
		source: cfg.Source,
		mirror: cfg.Mirror,
		fps:    fps,
	}
}

// IsDevice reports whether source names a camera index rather than a file.
func IsDevice(source string) bool {
	_, err := strconv.Atoi(source)
	return err == nil
}

// Open opens the source. Devices are set to 640x480 at the configured FPS.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	var (
		capture *gocv.VideoCapture
		err     error
	)
	if id, convErr := strconv.Atoi(c.source); convErr == nil {
		capture, err = gocv.OpenVideoCapture(id)
		if err == nil {
			capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
			capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
			capture.Set(gocv.VideoCaptureFPS, float64(c.fps))
		}
	} else {
		capture, err = gocv.VideoCaptureFile(c.source)
	}
	if err != nil {
		return errors.Wrapf(err, "open capture source %q", c.source)
	}
	if !capture.IsOpened() {
		capture.Close()
		return errors.Errorf("capture source %q did not open", c.source)
	}

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads the next frame, mirrored when configured.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrEndOfStream
	}

	if c.mirror {
		gocv.Flip(mat, &mat, 1)
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
