package app

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/fingerspell/internal/config"
	"github.com/ayusman/fingerspell/internal/dataset"
	"github.com/ayusman/fingerspell/internal/detector"
	"github.com/ayusman/fingerspell/internal/features"
	"github.com/ayusman/fingerspell/internal/store"
)

// DatasetJob describes one dataset build.
type DatasetJob struct {
	Root string
	Out  string
	// Detector is used instead of starting a static-mode landmark service.
	// It is not closed.
	Detector   detector.Detector
	OnProgress func(dataset.Progress)
}

// BuildDataset writes the landmark dataset for job.Root and, when st is
// not nil, records the run in the store. A failed build is not recorded.
func BuildDataset(ctx context.Context, cfg *config.Config, st *store.Store, job DatasetJob, log logrus.FieldLogger) (dataset.Stats, *store.Run, error) {
	det := job.Detector
	if det == nil {
		d, err := OpenDetector(cfg, true, log)
		if err != nil {
			return dataset.Stats{}, nil, err
		}
		defer d.Close()
		det = d
	}

	b := &dataset.Builder{
		Source:     dataset.ImageSource{Detector: det},
		Policy:     features.Policy{NothingLabel: cfg.Dataset.NothingLabel},
		Workers:    cfg.Dataset.Workers,
		Logger:     log,
		OnProgress: job.OnProgress,
	}
	stats, err := b.BuildFile(ctx, job.Root, job.Out)
	if err != nil {
		return stats, nil, err
	}
	if st == nil {
		return stats, nil, nil
	}

	run := &store.Run{
		Root:           job.Root,
		Output:         job.Out,
		Files:          stats.Files,
		Rows:           stats.Rows,
		ZeroFilled:     stats.ZeroFilled,
		NoHand:         stats.NoHand,
		Degenerate:     stats.Degenerate,
		Unreadable:     stats.Unreadable,
		DetectorErrors: stats.DetectorErrors,
		PerLabel:       stats.PerLabel,
		StartedAt:      stats.Started,
		FinishedAt:     stats.Finished,
	}
	if err := st.Runs().Create(run); err != nil {
		log.WithError(err).Warn("failed to record dataset run")
		return stats, nil, nil
	}
	return stats, run, nil
}
