// Package tray provides the system tray control surface for live
// recognition: pause, the last decision, practice progress and quit.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/fingerspell/internal/inference"
	"github.com/ayusman/fingerspell/internal/practice"
	"github.com/ayusman/fingerspell/internal/render"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle  func(enabled bool)
	onOpen    func()
	onRestart func()
	onQuit    func()
	enabled   bool
	last      string
	target    string
	mu        sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuLast     *systray.MenuItem
	menuPractice *systray.MenuItem
}

// New creates a new Tray instance with recognition enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when recognition is
// paused or resumed.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback for the dashboard menu item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnRestart sets the callback for the restart practice menu item.
func (t *Tray) OnRestart(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRestart = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Fingerspell")
	systray.SetTooltip("Fingerspell sign recognition")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume recognition")
	systray.AddSeparator()

	t.menuLast = systray.AddMenuItem(lastTitle(t.last), "Last recognized sign")
	t.menuLast.Disable()
	t.menuPractice = systray.AddMenuItem(practiceTitle(t.target), "Current practice target")
	t.menuPractice.Disable()
	t.mu.Unlock()
	menuRestart := systray.AddMenuItem("Restart Practice", "Start over from the first practice target")
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Dashboard...", "Open session history in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Stop recognition and quit")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.Toggle()
			case <-menuRestart.ClickedCh:
				t.Restart()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// Toggle flips between paused and enabled and notifies OnToggle.
func (t *Tray) Toggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// Restart notifies OnRestart.
func (t *Tray) Restart() {
	t.mu.RLock()
	callback := t.onRestart
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Report implements inference.Reporter by showing the decision in the menu.
func (t *Tray) Report(d inference.Decision) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = render.Caption(&d)
	if t.menuLast != nil {
		t.menuLast.SetTitle(lastTitle(t.last))
	}
}

// SetPractice shows practice progress in the menu.
func (t *Tray) SetPractice(p practice.Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case p.Total == 0:
		t.target = ""
	case p.Done:
		t.target = fmt.Sprintf("done (%d/%d)", p.Total, p.Total)
	default:
		t.target = fmt.Sprintf("%s (%d/%d)", p.Target, p.Index+1, p.Total)
	}
	if t.menuPractice != nil {
		t.menuPractice.SetTitle(practiceTitle(t.target))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Last returns the caption of the last reported decision.
func (t *Tray) Last() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// Practice returns the practice line shown in the menu.
func (t *Tray) Practice() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.target
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Recognizing"
	}
	return "○ Paused"
}

func lastTitle(caption string) string {
	if caption == "" {
		return "Last: none"
	}
	return "Last: " + caption
}

func practiceTitle(target string) string {
	if target == "" {
		return "Practice: off"
	}
	return "Practice: " + target
}
