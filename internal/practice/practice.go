// Package practice tracks fingerspelling practice: the user signs a
// sequence of target labels and each one counts once it has been held
// long enough.
package practice

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/fingerspell/internal/inference"
)

const (
	// DefaultHold is how long a target must be recognized continuously.
	DefaultHold = 800 * time.Millisecond
	// DefaultGap is the longest silence between matching decisions that
	// still counts as continuous.
	DefaultGap = 300 * time.Millisecond

	positionPrefix = "practice.position."
)

// Settings persists the practice position. store.SettingsRepository
// satisfies it.
type Settings interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Config configures a Tracker.
type Config struct {
	Targets []string
	// Nothing is the sentinel label; targets equal to it are skipped.
	Nothing  string
	Hold     time.Duration
	Gap      time.Duration
	Settings Settings
	Logger   logrus.FieldLogger
}

// Progress is a snapshot of a practice run.
type Progress struct {
	Target    string
	Index     int
	Total     int
	Completed []string
	Held      time.Duration
	Done      bool
}

// Tracker is an inference.Reporter that advances through the targets.
type Tracker struct {
	mu       sync.Mutex
	targets  []string
	hold     time.Duration
	gap      time.Duration
	settings Settings
	log      logrus.FieldLogger

	index     int
	start     time.Time
	last      time.Time
	onAdvance []func(p Progress)
}

// NewTracker creates a tracker. A saved position is restored from
// cfg.Settings when it fits the target list.
func NewTracker(cfg Config) *Tracker {
	if cfg.Hold <= 0 {
		cfg.Hold = DefaultHold
	}
	if cfg.Gap <= 0 {
		cfg.Gap = DefaultGap
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	var targets []string
	for _, t := range cfg.Targets {
		t = strings.TrimSpace(t)
		if t == "" || (cfg.Nothing != "" && strings.EqualFold(t, cfg.Nothing)) {
			continue
		}
		targets = append(targets, t)
	}

	tr := &Tracker{
		targets:  targets,
		hold:     cfg.Hold,
		gap:      cfg.Gap,
		settings: cfg.Settings,
		log:      cfg.Logger,
	}
	if tr.settings != nil {
		if raw, err := tr.settings.Get(PositionKey(targets)); err == nil {
			if n, err := strconv.Atoi(raw); err == nil && n >= 0 && n <= len(targets) {
				tr.index = n
			}
		}
	}
	return tr
}

// PositionKey is the settings key holding the saved position for one
// target list. Each list keeps its own position.
func PositionKey(targets []string) string {
	return positionPrefix + strings.ToUpper(strings.Join(targets, ","))
}

// Targets splits a word into one target per letter.
func Targets(word string) []string {
	var out []string
	for _, r := range strings.ToUpper(word) {
		if r == ' ' {
			continue
		}
		out = append(out, string(r))
	}
	return out
}

// OnAdvance registers f to be called after each completed target.
func (t *Tracker) OnAdvance(f func(p Progress)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAdvance = append(t.onAdvance, f)
}

// Report implements inference.Reporter.
func (t *Tracker) Report(d inference.Decision) {
	t.mu.Lock()

	if t.index >= len(t.targets) {
		t.mu.Unlock()
		return
	}
	target := t.targets[t.index]

	if !t.last.IsZero() && d.At.Sub(t.last) > t.gap {
		t.start = time.Time{}
	}
	t.last = d.At

	if !strings.EqualFold(d.Label, target) {
		t.start = time.Time{}
		t.mu.Unlock()
		return
	}
	if t.start.IsZero() {
		t.start = d.At
		t.mu.Unlock()
		return
	}
	if d.At.Sub(t.start) < t.hold {
		t.mu.Unlock()
		return
	}

	t.index++
	t.start = time.Time{}
	p := t.progress(d.At)
	callbacks := append([]func(Progress){}, t.onAdvance...)
	t.save()
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{"target": target, "index": p.Index, "total": p.Total}).Info("practice target completed")
	for _, f := range callbacks {
		f(p)
	}
}

// Progress returns the current state.
func (t *Tracker) Progress() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress(t.last)
}

// Reset starts over from the first target.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index = 0
	t.start = time.Time{}
	t.last = time.Time{}
	t.save()
}

func (t *Tracker) progress(now time.Time) Progress {
	p := Progress{
		Index:     t.index,
		Total:     len(t.targets),
		Completed: append([]string{}, t.targets[:t.index]...),
		Done:      t.index >= len(t.targets),
	}
	if !p.Done {
		p.Target = t.targets[t.index]
	}
	if !t.start.IsZero() {
		p.Held = now.Sub(t.start)
	}
	return p
}

func (t *Tracker) save() {
	if t.settings == nil {
		return
	}
	if err := t.settings.Set(PositionKey(t.targets), strconv.Itoa(t.index)); err != nil {
		t.log.WithError(err).Warn("failed to save practice position")
	}
}
