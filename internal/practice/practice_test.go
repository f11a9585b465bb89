package practice

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ayusman/fingerspell/internal/inference"
)

type memSettings map[string]string

func (m memSettings) Get(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m memSettings) Set(key, value string) error {
	m[key] = value
	return nil
}

var base = time.Unix(1700000000, 0)

func at(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }

func decide(tr *Tracker, label string, ms int) {
	tr.Report(inference.Decision{Label: label, Confidence: 0.9, At: at(ms)})
}

func newTracker(targets ...string) *Tracker {
	logger, _ := test.NewNullLogger()
	return NewTracker(Config{Targets: targets, Nothing: "nothing", Logger: logger})
}

func TestTracker_HoldToConfirm(t *testing.T) {
	tr := newTracker("A", "B")

	for ms := 0; ms < 800; ms += 100 {
		decide(tr, "a", ms)
	}
	if p := tr.Progress(); p.Index != 0 || p.Held != 700*time.Millisecond {
		t.Fatalf("target advanced early: %+v", p)
	}

	decide(tr, "A", 800)
	p := tr.Progress()
	if p.Index != 1 || p.Target != "B" {
		t.Fatalf("Progress() = %+v, want index 1 target B", p)
	}
	if diff := cmp.Diff([]string{"A"}, p.Completed); diff != "" {
		t.Errorf("Completed mismatch (-want +got):\n%s", diff)
	}
}

func TestTracker_Resets(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		times  []int
	}{
		{
			name:   "other label",
			labels: []string{"A", "A", "B", "A", "A"},
			times:  []int{0, 400, 500, 600, 1000},
		},
		{
			name:   "gap",
			labels: []string{"A", "A", "A"},
			times:  []int{0, 400, 1000},
		},
		{
			name:   "sentinel",
			labels: []string{"A", "nothing", "A"},
			times:  []int{0, 100, 900},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTracker("A")
			for i, l := range tt.labels {
				decide(tr, l, tt.times[i])
			}
			if p := tr.Progress(); p.Index != 0 {
				t.Errorf("Progress() = %+v, want no advance", p)
			}
		})
	}
}

func TestTracker_SkipsSentinelTargets(t *testing.T) {
	tr := newTracker("Nothing", "A", " ", "nothing")
	if p := tr.Progress(); p.Total != 1 || p.Target != "A" {
		t.Fatalf("Progress() = %+v, want single target A", p)
	}
}

func TestTracker_CompletesAndCallsBack(t *testing.T) {
	tr := newTracker(Targets("hi")...)
	var got []Progress
	tr.OnAdvance(func(p Progress) { got = append(got, p) })

	ms := 0
	for _, l := range []string{"H", "I"} {
		for i := 0; i < 10; i++ {
			decide(tr, l, ms)
			ms += 100
		}
	}

	if len(got) != 2 {
		t.Fatalf("got %d callbacks, want 2", len(got))
	}
	last := tr.Progress()
	if !last.Done || last.Target != "" || last.Index != 2 {
		t.Errorf("Progress() = %+v, want done", last)
	}

	// Further decisions are ignored once done.
	decide(tr, "H", ms)
	if len(got) != 2 {
		t.Error("done tracker should not advance")
	}

	tr.Reset()
	if p := tr.Progress(); p.Index != 0 || p.Target != "H" {
		t.Errorf("after Reset() = %+v", p)
	}
}

func TestTracker_PersistsPosition(t *testing.T) {
	settings := memSettings{}
	logger, _ := test.NewNullLogger()
	cfg := Config{Targets: []string{"A", "B", "C"}, Settings: settings, Logger: logger}

	tr := NewTracker(cfg)
	for ms := 0; ms <= 800; ms += 200 {
		decide(tr, "A", ms)
	}
	key := PositionKey(cfg.Targets)
	if settings[key] != "1" {
		t.Fatalf("saved position = %q, want 1", settings[key])
	}

	restored := NewTracker(cfg)
	if p := restored.Progress(); p.Target != "B" {
		t.Errorf("restored target = %q, want B", p.Target)
	}

	settings[key] = "9"
	if p := NewTracker(cfg).Progress(); p.Index != 0 {
		t.Errorf("out of range position should be ignored, got %+v", p)
	}
}

func TestTracker_PositionBelongsToTargetList(t *testing.T) {
	settings := memSettings{}
	logger, _ := test.NewNullLogger()

	cat := NewTracker(Config{Targets: Targets("cat"), Settings: settings, Logger: logger})
	for ms := 0; ms <= 800; ms += 200 {
		decide(cat, "C", ms)
	}
	for ms := 1000; ms <= 1800; ms += 200 {
		decide(cat, "A", ms)
	}
	if p := cat.Progress(); p.Index != 2 {
		t.Fatalf("Progress() = %+v, want index 2", p)
	}

	dogs := NewTracker(Config{Targets: Targets("dogs"), Settings: settings, Logger: logger})
	if p := dogs.Progress(); p.Index != 0 || p.Target != "D" {
		t.Errorf("new list Progress() = %+v, want index 0 target D", p)
	}

	again := NewTracker(Config{Targets: Targets("cat"), Settings: settings, Logger: logger})
	if p := again.Progress(); p.Index != 2 || p.Target != "T" {
		t.Errorf("original list Progress() = %+v, want index 2 target T", p)
	}
}

func TestPositionKey(t *testing.T) {
	if got, want := PositionKey([]string{"c", "A", "T"}), "practice.position.C,A,T"; got != want {
		t.Errorf("PositionKey() = %q, want %q", got, want)
	}
	if PositionKey(Targets("cat")) == PositionKey(Targets("dogs")) {
		t.Error("different target lists share a key")
	}
}

func TestTargets(t *testing.T) {
	if diff := cmp.Diff([]string{"H", "I", "Y", "O", "U"}, Targets("hi you")); diff != "" {
		t.Errorf("Targets() mismatch (-want +got):\n%s", diff)
	}
}
