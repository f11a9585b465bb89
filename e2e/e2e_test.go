package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ayusman/fingerspell/internal/app"
	"github.com/ayusman/fingerspell/internal/capture"
	"github.com/ayusman/fingerspell/internal/classifier"
	"github.com/ayusman/fingerspell/internal/config"
	"github.com/ayusman/fingerspell/internal/dataset"
	"github.com/ayusman/fingerspell/internal/detector"
	"github.com/ayusman/fingerspell/internal/features"
	"github.com/ayusman/fingerspell/internal/server"
	"github.com/ayusman/fingerspell/internal/store"
)

var poses = map[string]func() detector.HandLandmarks{
	"A": detector.LetterALandmarks,
	"B": detector.LetterBLandmarks,
	"L": detector.LetterLLandmarks,
	"Y": detector.LetterYLandmarks,
}

// writeImageTree creates empty placeholder files named <label>/<n>.jpg.
// The landmark source below answers from the file name, so the files are
// never decoded.
func writeImageTree(t *testing.T, perLabel int) string {
	t.Helper()
	root := t.TempDir()
	for _, label := range []string{"A", "B", "L", "Y", "nothing"} {
		dir := filepath.Join(root, label)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < perLabel; i++ {
			name := filepath.Join(dir, string(rune('a'+i))+".jpg")
			if err := os.WriteFile(name, nil, 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return root
}

// poseSource returns a shifted and scaled copy of the pose named by the
// image's directory. Images of "nothing" have no hand.
func poseSource(root string) dataset.Source {
	return dataset.SourceFunc(func(path string) (*detector.HandLandmarks, error) {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, err
		}
		label := strings.Split(filepath.ToSlash(rel), "/")[0]
		pose, ok := poses[label]
		if !ok {
			return nil, nil
		}
		n := float64(filepath.Base(path)[0] - 'a')
		h := pose().Scale(1 + 0.1*n).Shift(0.01*n, -0.01*n)
		return &h, nil
	})
}

func TestE2E_DatasetToLiveSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	logger, _ := test.NewNullLogger()
	root := writeImageTree(t, 4)
	out := filepath.Join(t.TempDir(), "landmarks.csv")

	// Build the dataset.
	b := &dataset.Builder{
		Source:  poseSource(root),
		Policy:  features.Policy{},
		Workers: 4,
		Logger:  logger,
	}
	stats, err := b.BuildFile(context.Background(), root, out)
	if err != nil {
		t.Fatalf("BuildFile() error = %v", err)
	}
	if stats.Rows != 20 || stats.ZeroFilled != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	// Fit a classifier on it.
	model, err := classifier.FitCentroidFile(out, classifier.DefaultTemperature)
	if err != nil {
		t.Fatalf("FitCentroidFile() error = %v", err)
	}

	// Play back a short session.
	want := []string{"B", "L", "Y", "A"}
	seq := make([][]detector.HandLandmarks, 0, len(want)+1)
	for _, l := range want {
		seq = append(seq, []detector.HandLandmarks{poses[l]().Shift(0.05, 0.02)})
	}
	seq = append(seq, nil)

	det := detector.NewMockDetector()
	det.SetSequence(seq)

	frames := capture.BlankFrames(len(seq))
	defer func() {
		for _, f := range frames {
			f.Close()
		}
	}()

	dataDir := t.TempDir()
	s, err := store.New(filepath.Join(dataDir, "fingerspell.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}

	cfg := &config.Config{
		DataDir:   dataDir,
		Dataset:   config.Dataset{NothingLabel: "nothing"},
		Inference: config.Inference{Source: "playback"},
	}
	a, err := app.New(cfg, app.Options{
		Store:      s,
		Detector:   det,
		Classifier: model,
		Camera:     capture.NewMockCamera(frames, false),
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer a.Close()

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if st := a.Stats(); st.Frames != 5 || st.Decisions != 4 || st.NoHand != 1 {
		t.Errorf("unexpected loop stats %+v", st)
	}

	// Read the session back over HTTP.
	ts := httptest.NewServer(server.New(server.Config{Store: s, Logger: logger}))
	defer ts.Close()

	var sessions struct {
		Sessions []struct {
			ID string `json:"id"`
		} `json:"sessions"`
	}
	getJSON(t, ts.URL+"/api/sessions", &sessions)
	if len(sessions.Sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions.Sessions))
	}

	var decisions struct {
		Decisions []struct {
			Label string `json:"label"`
		} `json:"decisions"`
	}
	getJSON(t, ts.URL+"/api/sessions/"+sessions.Sessions[0].ID+"/decisions", &decisions)
	var got []string
	for _, d := range decisions.Decisions {
		got = append(got, d.Label)
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("decisions = %v, want %v", got, want)
	}
}

func getJSON(t *testing.T, url string, out interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}
