package render

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/fingerspell/internal/inference"
)

// Keys that stop the loop.
const (
	keyQuit   = 'q'
	keyEscape = 27
)

// Window shows frames in a native window. It must be used from the
// goroutine that created it.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Render implements inference.Renderer. Pressing q or Esc, or closing the
// window, asks the loop to stop.
func (w *Window) Render(frame *gocv.Mat, o inference.Overlay) bool {
	Draw(frame, o)
	w.win.IMShow(*frame)

	key := w.win.WaitKey(1)
	if key == keyQuit || key == keyEscape {
		return true
	}
	return !w.win.IsOpen()
}

// Close closes the window.
func (w *Window) Close() error {
	return w.win.Close()
}
