package app

import (
	"github.com/sirupsen/logrus"

	"github.com/ayusman/fingerspell/internal/inference"
	"github.com/ayusman/fingerspell/internal/store"
)

// sessionRecorder stores every accepted decision under one session.
type sessionRecorder struct {
	decisions *store.DecisionRepository
	sessionID string
	log       logrus.FieldLogger
}

func (r *sessionRecorder) Report(d inference.Decision) {
	err := r.decisions.Create(&store.Decision{
		SessionID:  r.sessionID,
		Frame:      d.Frame,
		Label:      d.Label,
		Confidence: d.Confidence,
		CreatedAt:  d.At,
	})
	if err != nil {
		r.log.WithError(err).WithField("frame", d.Frame).Warn("failed to record decision")
	}
}
