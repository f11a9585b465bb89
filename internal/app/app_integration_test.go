package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gocv.io/x/gocv"

	"github.com/ayusman/fingerspell/internal/capture"
	"github.com/ayusman/fingerspell/internal/classifier"
	"github.com/ayusman/fingerspell/internal/config"
	"github.com/ayusman/fingerspell/internal/dataset"
	"github.com/ayusman/fingerspell/internal/detector"
	"github.com/ayusman/fingerspell/internal/features"
	"github.com/ayusman/fingerspell/internal/practice"
	"github.com/ayusman/fingerspell/internal/store"
	"github.com/ayusman/fingerspell/internal/tray"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:    t.TempDir(),
		Dataset:    config.Dataset{NothingLabel: "nothing", Workers: 2},
		Classifier: config.Classifier{Kind: config.KindCentroid},
		Inference:  config.Inference{Source: "mock", Window: 10},
	}
}

type liveFixture struct {
	app      *App
	camera   *capture.MockCamera
	detector *detector.MockDetector
	model    *classifier.Mock
}

func newLiveFixture(t *testing.T, cfg *config.Config, frames int, opts Options) *liveFixture {
	t.Helper()

	mats := capture.BlankFrames(frames)
	t.Cleanup(func() {
		for _, m := range mats {
			m.Close()
		}
	})

	labels, err := classifier.NewLabels("A", "B")
	if err != nil {
		t.Fatal(err)
	}

	f := &liveFixture{
		camera:   capture.NewMockCamera(mats, false),
		detector: detector.NewMockDetector(),
		model:    classifier.NewMock(labels, classifier.Distribution{0.9, 0.1}),
	}
	f.detector.SetHands([]detector.HandLandmarks{detector.LetterALandmarks()})

	if opts.Logger == nil {
		opts.Logger, _ = test.NewNullLogger()
	}
	opts.Camera = f.camera
	opts.Detector = f.detector
	opts.Classifier = f.model

	a, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	f.app = a
	return f
}

func TestApp_RunRecordsSession(t *testing.T) {
	cfg := testConfig(t)
	f := newLiveFixture(t, cfg, 4, Options{})

	if err := f.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	sessions, err := f.app.Store().Sessions().List(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	sess := sessions[0]
	if sess.Source != "mock" || sess.Frames != 4 || sess.Decisions != 4 || sess.EndedAt.IsZero() {
		t.Errorf("unexpected session %+v", sess)
	}

	decisions, err := f.app.Store().Decisions().ListBySession(sess.ID, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(decisions) != 4 {
		t.Fatalf("stored %d decisions, want 4", len(decisions))
	}
	for i, d := range decisions {
		if d.Label != "A" || d.Frame != int64(i+1) {
			t.Errorf("decision %d = %+v", i, d)
		}
	}

	if s := f.app.Stats(); s.Frames != 4 || s.Decisions != 4 {
		t.Errorf("Stats() = %+v", s)
	}
	if _, err := os.Stat(cfg.DBPath()); err != nil {
		t.Errorf("database not created at %s: %v", cfg.DBPath(), err)
	}
}

func TestApp_Paused(t *testing.T) {
	f := newLiveFixture(t, testConfig(t), 3, Options{})
	f.app.SetEnabled(false)

	if err := f.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if f.detector.Calls() != 0 || f.model.Calls() != 0 {
		t.Error("paused app should not detect or classify")
	}
	if s := f.app.Stats(); s.Frames != 3 || s.Decisions != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestApp_TrayToggle(t *testing.T) {
	tr := tray.New()
	f := newLiveFixture(t, testConfig(t), 1, Options{Tray: tr})

	tr.Toggle()
	if f.app.IsEnabled() {
		t.Error("tray toggle should pause the app")
	}
	tr.Toggle()
	if !f.app.IsEnabled() {
		t.Error("second toggle should resume the app")
	}

	if err := f.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if tr.Last() != "A (90.00%)" {
		t.Errorf("tray Last() = %q", tr.Last())
	}
}

func TestApp_Practice(t *testing.T) {
	cfg := testConfig(t)
	cfg.Practice = config.Practice{Hold: time.Nanosecond, Targets: []string{"ab"}}

	tr := tray.New()
	f := newLiveFixture(t, cfg, 3, Options{Tray: tr})

	tracker := f.app.Tracker()
	if tracker == nil {
		t.Fatal("Tracker() = nil, want a tracker")
	}
	if p := tracker.Progress(); p.Total != 2 || p.Target != "A" {
		t.Fatalf("Progress() = %+v", p)
	}

	if err := f.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if p := tracker.Progress(); p.Target != "B" {
		t.Errorf("Progress() = %+v, want target B", p)
	}
	if tr.Practice() != "B (2/2)" {
		t.Errorf("tray Practice() = %q", tr.Practice())
	}
	key := practice.PositionKey([]string{"A", "B"})
	pos, err := f.app.Store().Settings().Get(key)
	if err != nil || pos != "1" {
		t.Errorf("saved position = %q, %v; want 1", pos, err)
	}

	tr.Restart()
	if p := tracker.Progress(); p.Index != 0 || p.Target != "A" {
		t.Errorf("after restart Progress() = %+v, want target A", p)
	}
	if tr.Practice() != "A (1/2)" {
		t.Errorf("tray Practice() after restart = %q", tr.Practice())
	}
	if pos, _ := f.app.Store().Settings().Get(key); pos != "0" {
		t.Errorf("saved position after restart = %q, want 0", pos)
	}
}

func TestApp_PracticeWarnsOnUnknownTarget(t *testing.T) {
	cfg := testConfig(t)
	cfg.Practice = config.Practice{Targets: []string{"A", "Q"}}

	logger, hook := test.NewNullLogger()
	newLiveFixture(t, cfg, 1, Options{Logger: logger})

	var warned []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "practice target is not a classifier label" {
			warned = append(warned, e.Data["target"].(string))
		}
	}
	if len(warned) != 1 || warned[0] != "Q" {
		t.Errorf("warned targets = %v, want [Q]", warned)
	}
}

func TestApp_CanceledContext(t *testing.T) {
	f := newLiveFixture(t, testConfig(t), 5, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.app.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if f.camera.Reads() != 0 {
		t.Errorf("read %d frames, want 0", f.camera.Reads())
	}
}

func TestOpenClassifier(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "landmarks.csv")
	out, err := os.Create(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	w, err := dataset.NewWriter(out)
	if err != nil {
		t.Fatal(err)
	}
	examples := []struct {
		label string
		hand  detector.HandLandmarks
	}{
		{"A", detector.LetterALandmarks()},
		{"B", detector.LetterBLandmarks()},
	}
	for _, ex := range examples {
		v, err := features.Extract(&ex.hand)
		if err != nil {
			t.Fatal(err)
		}
		if err := w.Write(dataset.Row{Label: ex.label, Features: v}); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	out.Close()

	cfg := testConfig(t)
	cfg.Classifier = config.Classifier{Kind: config.KindCentroid, Model: csvPath, Temperature: 0.1}
	c, err := OpenClassifier(cfg, logger)
	if err != nil {
		t.Fatalf("OpenClassifier() error = %v", err)
	}
	defer c.Close()
	if got := c.Labels().Names(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("labels = %v, want [A B]", got)
	}

	t.Run("missing model", func(t *testing.T) {
		cfg := testConfig(t)
		if _, err := OpenClassifier(cfg, logger); err == nil {
			t.Error("OpenClassifier() expected error")
		}
	})

	t.Run("tflite without labels", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Classifier = config.Classifier{Kind: config.KindTFLite, Model: "model.tflite"}
		if _, err := OpenClassifier(cfg, logger); err == nil {
			t.Error("OpenClassifier() expected error")
		}
	})
}

func TestBuildDataset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	root := t.TempDir()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 32, 32, gocv.MatTypeCV8UC3)
	defer img.Close()
	for _, rel := range []string{"A/1.png", "A/2.png", "nothing/1.png"} {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if !gocv.IMWrite(p, img) {
			t.Fatalf("IMWrite(%s) failed", p)
		}
	}

	det := detector.NewMockDetector()
	det.SetSequence([][]detector.HandLandmarks{
		{detector.LetterALandmarks()},
		{detector.LetterALandmarks()},
		nil,
	})

	cfg := testConfig(t)
	cfg.Dataset.Workers = 1
	s, err := store.New(cfg.DBPath())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	logger, _ := test.NewNullLogger()
	out := filepath.Join(t.TempDir(), "out", "landmarks.csv")
	var progress []dataset.Progress
	stats, run, err := BuildDataset(context.Background(), cfg, s, DatasetJob{
		Root:       root,
		Out:        out,
		Detector:   det,
		OnProgress: func(p dataset.Progress) { progress = append(progress, p) },
	}, logger)
	if err != nil {
		t.Fatalf("BuildDataset() error = %v", err)
	}

	if stats.Rows != 3 || stats.ZeroFilled != 1 || stats.PerLabel["A"] != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if len(progress) != 3 {
		t.Errorf("got %d progress reports, want 3", len(progress))
	}
	if run == nil {
		t.Fatal("run was not recorded")
	}
	stored, err := s.Runs().GetByID(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Rows != 3 || stored.PerLabel["nothing"] != 1 || stored.Output != out {
		t.Errorf("unexpected stored run %+v", stored)
	}

	rows, err := dataset.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[2].Label != "nothing" {
		t.Errorf("unexpected rows %+v", rows)
	}
}
