// Package inference runs the live recognition loop: capture a frame, find
// the hand, classify it and render the result.
package inference

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/fingerspell/internal/capture"
	"github.com/ayusman/fingerspell/internal/classifier"
	"github.com/ayusman/fingerspell/internal/detector"
	"github.com/ayusman/fingerspell/internal/features"
)

// FrameSource delivers frames in capture order. capture.Camera satisfies it.
// ReadFrame returns capture.ErrEndOfStream when the source is exhausted.
type FrameSource interface {
	ReadFrame() (*gocv.Mat, error)
}

// Overlay is what the renderer draws on top of a frame.
type Overlay struct {
	Frame int64
	// Hand is nil when no usable hand was found.
	Hand *detector.HandLandmarks
	// Decision is nil when the frame was not classified.
	Decision *Decision
	Paused   bool
	Stats    Snapshot
}

// Renderer shows a frame. It returns true when the user asked to stop.
type Renderer interface {
	Render(frame *gocv.Mat, o Overlay) (quit bool)
}

// Config tunes the loop.
type Config struct {
	// MinConfidence marks decisions below it as rejected. Zero reports every
	// arg-max decision.
	MinConfidence float64
	// Window is the number of frames used for the FPS and latency figures.
	Window int
}

// Loop processes one source sequentially. It holds no model or device of
// its own; the caller opens and closes them around Run.
type Loop struct {
	Source     FrameSource
	Detector   detector.Detector
	Classifier classifier.Classifier
	Renderer   Renderer
	Reporter   Reporter
	Config     Config
	Logger     logrus.FieldLogger

	// Enabled, when set and returning false, pauses recognition. Frames
	// are still read and rendered.
	Enabled func() bool

	stats *Stats
}

// Stats returns the loop's counters.
func (l *Loop) Stats() *Stats {
	if l.stats == nil {
		l.stats = NewStats(l.Config.Window)
	}
	return l.stats
}

func (l *Loop) logger() logrus.FieldLogger {
	if l.Logger != nil {
		return l.Logger
	}
	return logrus.StandardLogger()
}

// Run processes frames until ctx is canceled, the renderer asks to quit or
// the source is exhausted. All three end the loop with a nil error. Errors
// on a single frame are logged and the loop moves on.
func (l *Loop) Run(ctx context.Context) error {
	log := l.logger()
	log.WithField("min_confidence", l.Config.MinConfidence).Info("inference loop started")

	for {
		if ctx.Err() != nil {
			log.Info("inference loop stopped")
			return nil
		}

		quit, err := l.Step(ctx)
		switch {
		case errors.Is(err, capture.ErrEndOfStream):
			log.Info("capture source exhausted")
			return nil
		case err != nil:
			return err
		case quit:
			log.Info("stop requested")
			return nil
		}
	}
}

// Step reads and handles exactly one frame. Only frame source errors are
// returned. A frame in progress is always finished: cancellation of ctx is
// observed by Run between frames.
func (l *Loop) Step(ctx context.Context) (quit bool, err error) {
	frame, err := l.Source.ReadFrame()
	if err != nil {
		return false, err
	}
	defer frame.Close()

	ctx = context.WithoutCancel(ctx)
	stats := l.Stats()
	n := stats.frame(time.Now())
	o := Overlay{Frame: n}

	if l.Enabled != nil && !l.Enabled() {
		o.Paused = true
		return l.render(frame, o), nil
	}

	log := l.logger().WithField("frame", n)

	hands, err := l.Detector.Detect(frame)
	if err != nil {
		stats.add(func(s *Snapshot) { s.DetectorErrors++ })
		log.WithError(err).Warn("hand detection failed")
		return l.render(frame, o), nil
	}

	hand := detector.First(hands)
	v, err := features.Extract(hand)
	switch {
	case errors.Is(err, features.ErrNoDetection):
		stats.add(func(s *Snapshot) { s.NoHand++ })
		return l.render(frame, o), nil
	case errors.Is(err, features.ErrDegenerateGeometry):
		stats.add(func(s *Snapshot) { s.Hands++; s.Degenerate++ })
		log.Debug("degenerate hand geometry")
		return l.render(frame, o), nil
	case err != nil:
		stats.add(func(s *Snapshot) { s.DetectorErrors++ })
		log.WithError(err).Warn("bad landmarks")
		return l.render(frame, o), nil
	}
	stats.add(func(s *Snapshot) { s.Hands++ })
	o.Hand = hand

	start := time.Now()
	p, err := classifier.Predict(ctx, l.Classifier, v)
	latency := time.Since(start)
	if err != nil {
		stats.add(func(s *Snapshot) { s.AdapterFailures++ })
		log.WithError(err).Warn("classification failed")
		return l.render(frame, o), nil
	}

	d := Decision{
		Frame:        n,
		Label:        p.Label,
		Index:        p.Index,
		Confidence:   p.Confidence,
		Distribution: p.Distribution,
		Rejected:     p.Confidence < l.Config.MinConfidence,
		Latency:      latency,
		At:           time.Now(),
	}
	stats.classified(latency, d.Rejected)
	o.Decision = &d

	if d.Rejected {
		log.WithFields(logrus.Fields{"label": d.Label, "confidence": d.Confidence}).Debug("below confidence floor")
	} else if l.Reporter != nil {
		l.Reporter.Report(d)
	}

	return l.render(frame, o), nil
}

func (l *Loop) render(frame *gocv.Mat, o Overlay) bool {
	if l.Renderer == nil {
		return false
	}
	o.Stats = l.Stats().Snapshot()
	return l.Renderer.Render(frame, o)
}
