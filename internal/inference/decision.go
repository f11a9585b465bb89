package inference

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/fingerspell/internal/classifier"
)

// Decision is the classification of one frame.
type Decision struct {
	Frame        int64
	Label        string
	Index        int
	Confidence   float64
	Distribution classifier.Distribution
	// Rejected is set when Confidence is below the configured floor.
	// Rejected decisions are rendered but not reported.
	Rejected bool
	Latency  time.Duration
	At       time.Time
}

// Reporter receives accepted decisions in frame order. Report is called
// from the loop goroutine and should not block for long.
type Reporter interface {
	Report(d Decision)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(d Decision)

// Report calls f(d).
func (f ReporterFunc) Report(d Decision) { f(d) }

// Reporters fans a decision out to every non-nil reporter, in order.
type Reporters []Reporter

// Report implements Reporter.
func (rs Reporters) Report(d Decision) {
	for _, r := range rs {
		if r != nil {
			r.Report(d)
		}
	}
}

// LogReporter logs every decision at info level.
func LogReporter(log logrus.FieldLogger) Reporter {
	return ReporterFunc(func(d Decision) {
		log.WithFields(logrus.Fields{
			"frame":      d.Frame,
			"label":      d.Label,
			"confidence": d.Confidence,
			"latency":    d.Latency,
		}).Info("sign recognized")
	})
}
