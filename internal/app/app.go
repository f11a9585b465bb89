// Package app owns the process-lifetime resources of a live recognition
// session and wires them into the inference loop.
package app

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/fingerspell/internal/capture"
	"github.com/ayusman/fingerspell/internal/classifier"
	"github.com/ayusman/fingerspell/internal/config"
	"github.com/ayusman/fingerspell/internal/detector"
	"github.com/ayusman/fingerspell/internal/inference"
	"github.com/ayusman/fingerspell/internal/practice"
	"github.com/ayusman/fingerspell/internal/render"
	"github.com/ayusman/fingerspell/internal/server"
	"github.com/ayusman/fingerspell/internal/store"
	"github.com/ayusman/fingerspell/internal/tray"
)

// Options supplies ready-made resources. Anything left nil is created
// from the configuration. The App takes ownership of everything it is
// given and releases it in Close.
type Options struct {
	Store      *store.Store
	Detector   detector.Detector
	Classifier classifier.Classifier
	Camera     capture.Camera
	Renderer   inference.Renderer
	Tray       *tray.Tray
	Logger     logrus.FieldLogger

	// ServeAddr, when set, serves the HTTP API next to the loop.
	ServeAddr string
}

// App is a live recognition session.
type App struct {
	cfg        *config.Config
	log        logrus.FieldLogger
	store      *store.Store
	detector   detector.Detector
	classifier classifier.Classifier
	camera     capture.Camera
	renderer   inference.Renderer
	hub        *server.DecisionHub
	tray       *tray.Tray
	tracker    *practice.Tracker
	serveAddr  string

	enabled atomic.Bool
	stats   atomic.Pointer[inference.Stats]
}

// New acquires every resource the session needs. On failure whatever was
// already acquired is released.
func New(cfg *config.Config, opts Options) (a *App, err error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	a = &App{
		cfg:        cfg,
		log:        log,
		store:      opts.Store,
		detector:   opts.Detector,
		classifier: opts.Classifier,
		camera:     opts.Camera,
		renderer:   opts.Renderer,
		tray:       opts.Tray,
		serveAddr:  opts.ServeAddr,
	}
	a.enabled.Store(true)
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
			a = nil
		}
	}()

	if a.store == nil {
		if a.store, err = store.New(cfg.DBPath()); err != nil {
			return a, errors.Wrap(err, "open store")
		}
	}
	if a.classifier == nil {
		if a.classifier, err = OpenClassifier(cfg, log); err != nil {
			return a, err
		}
	}
	if a.detector == nil {
		if a.detector, err = OpenDetector(cfg, false, log); err != nil {
			return a, err
		}
	}
	if a.camera == nil {
		a.camera = capture.NewCamera(capture.Config{
			Source: cfg.Inference.Source,
			Mirror: cfg.Inference.Mirror,
			FPS:    cfg.Inference.FPS,
		})
	}

	a.hub = server.NewDecisionHub(log)

	if targets := practiceTargets(cfg.Practice.Targets); len(targets) > 0 {
		labels := a.classifier.Labels()
		for _, t := range targets {
			if _, ok := labels.Index(t); !ok {
				log.WithField("target", t).Warn("practice target is not a classifier label")
			}
		}
		a.tracker = practice.NewTracker(practice.Config{
			Targets:  targets,
			Nothing:  cfg.Dataset.NothingLabel,
			Hold:     cfg.Practice.Hold,
			Settings: a.store.Settings(),
			Logger:   log,
		})
	}

	if a.tray != nil {
		a.tray.OnToggle(a.SetEnabled)
		if a.tracker != nil {
			a.tray.SetPractice(a.tracker.Progress())
			a.tracker.OnAdvance(a.tray.SetPractice)
			a.tray.OnRestart(a.RestartPractice)
		}
	}

	return a, nil
}

// practiceTargets treats a single multi-letter entry as a word to spell.
func practiceTargets(targets []string) []string {
	if len(targets) == 1 && len(strings.TrimSpace(targets[0])) > 1 {
		return practice.Targets(targets[0])
	}
	return targets
}

// OpenClassifier loads the classifier selected by cfg.Classifier.Kind.
func OpenClassifier(cfg *config.Config, log logrus.FieldLogger) (classifier.Classifier, error) {
	c := cfg.Classifier
	if c.Model == "" {
		return nil, errors.New("classifier.model is not set")
	}

	switch c.Kind {
	case config.KindCentroid:
		m, err := classifier.FitCentroidFile(c.Model, c.Temperature)
		if err != nil {
			return nil, errors.Wrap(err, "fit centroid classifier")
		}
		log.WithFields(logrus.Fields{"dataset": c.Model, "labels": m.Labels().Len()}).Info("centroid classifier ready")
		return m, nil
	default:
		if c.Labels == "" {
			return nil, errors.New("classifier.labels is not set")
		}
		labels, err := classifier.LoadLabels(c.Labels)
		if err != nil {
			return nil, err
		}
		m, err := classifier.NewTFLite(classifier.TFLiteConfig{
			ModelPath: c.Model,
			Labels:    labels,
			Threads:   c.Threads,
			Logger:    log,
		})
		if err != nil {
			return nil, errors.Wrap(err, "load tflite model")
		}
		log.WithFields(logrus.Fields{"model": c.Model, "labels": labels.Len()}).Info("tflite classifier ready")
		return m, nil
	}
}

// OpenDetector starts the MediaPipe landmark service. Static mode treats
// every frame as unrelated to the previous one.
func OpenDetector(cfg *config.Config, static bool, log logrus.FieldLogger) (detector.Detector, error) {
	dc := detector.DefaultConfig()
	if cfg.Detector.MinConfidence > 0 {
		dc.MinConfidence = cfg.Detector.MinConfidence
	}
	dc.StaticImages = static
	dc.Script = cfg.Detector.Script
	dc.Python = cfg.Detector.Python

	d, err := detector.NewMediaPipeDetector(dc, log)
	if err != nil {
		return nil, errors.Wrap(err, "start hand detector")
	}
	return d, nil
}

// SetEnabled pauses or resumes recognition.
func (a *App) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
	a.log.WithField("enabled", enabled).Info("recognition toggled")
}

// IsEnabled reports whether recognition is running.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// Store returns the session store.
func (a *App) Store() *store.Store { return a.store }

// Hub returns the live decision feed.
func (a *App) Hub() *server.DecisionHub { return a.hub }

// RestartPractice starts practice over from the first target.
func (a *App) RestartPractice() {
	if a.tracker == nil {
		return
	}
	a.tracker.Reset()
	if a.tray != nil {
		a.tray.SetPractice(a.tracker.Progress())
	}
	a.log.Info("practice restarted")
}

// Tracker returns the practice tracker, or nil when practice is off.
func (a *App) Tracker() *practice.Tracker { return a.tracker }

// Stats returns the counters of the running or last session.
func (a *App) Stats() inference.Snapshot {
	if st := a.stats.Load(); st != nil {
		return st.Snapshot()
	}
	return inference.Snapshot{}
}

// Run opens the camera and recognizes signs until ctx is canceled, the
// preview asks to stop or the source runs out. The session and its
// decisions are recorded in the store.
func (a *App) Run(ctx context.Context) error {
	if err := a.camera.Open(); err != nil {
		return errors.Wrap(err, "open capture source")
	}
	defer func() {
		if err := a.camera.Close(); err != nil {
			a.log.WithError(err).Warn("failed to close capture source")
		}
	}()

	renderer := a.renderer
	if renderer == nil && a.cfg.Inference.Preview {
		w := render.NewWindow("fingerspell")
		defer w.Close()
		renderer = w
	}

	sess, err := a.store.Sessions().Start(a.cfg.Inference.Source)
	if err != nil {
		return errors.Wrap(err, "start session")
	}
	log := a.log.WithField("session", sess.ID)

	reporters := inference.Reporters{
		inference.LogReporter(log),
		&sessionRecorder{decisions: a.store.Decisions(), sessionID: sess.ID, log: log},
		a.hub,
	}
	if a.tray != nil {
		reporters = append(reporters, a.tray)
	}
	if a.tracker != nil {
		reporters = append(reporters, a.tracker)
	}

	loop := &inference.Loop{
		Source:     a.camera,
		Detector:   a.detector,
		Classifier: a.classifier,
		Renderer:   renderer,
		Reporter:   reporters,
		Config: inference.Config{
			MinConfidence: a.cfg.Inference.MinConfidence,
			Window:        a.cfg.Inference.Window,
		},
		Logger:  log,
		Enabled: a.IsEnabled,
	}
	a.stats.Store(loop.Stats())

	g, gctx := errgroup.WithContext(ctx)
	loopCtx, stop := context.WithCancel(gctx)
	defer stop()

	if a.serveAddr != "" {
		srv := server.New(server.Config{
			StaticDir: a.cfg.Server.StaticDir,
			Store:     a.store,
			Hub:       a.hub,
			Logger:    log,
		})
		g.Go(func() error { return srv.ListenAndServe(loopCtx, a.serveAddr) })
	}
	g.Go(func() error {
		// The server follows the loop down.
		defer stop()
		return loop.Run(loopCtx)
	})
	runErr := g.Wait()

	s := loop.Stats().Snapshot()
	if err := a.store.Sessions().End(sess.ID, s.Frames, s.Decisions); err != nil {
		runErr = multierr.Append(runErr, errors.Wrap(err, "end session"))
	}
	log.WithFields(logrus.Fields{
		"frames":           s.Frames,
		"decisions":        s.Decisions,
		"no_hand":          s.NoHand,
		"adapter_failures": s.AdapterFailures,
		"dropped_messages": a.hub.Dropped(),
	}).Info("session ended")

	return runErr
}

// Close releases every resource the App owns.
func (a *App) Close() error {
	var err error
	if a.camera != nil {
		err = multierr.Append(err, a.camera.Close())
	}
	if a.detector != nil {
		err = multierr.Append(err, a.detector.Close())
	}
	if a.classifier != nil {
		err = multierr.Append(err, a.classifier.Close())
	}
	if a.store != nil {
		err = multierr.Append(err, a.store.Close())
	}
	return err
}
