package dataset

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/fingerspell/internal/features"
)

// Stats summarizes one dataset build.
type Stats struct {
	Files          int
	Rows           int
	ZeroFilled     int
	NoHand         int
	Degenerate     int
	Unreadable     int
	DetectorErrors int
	PerLabel       map[string]int
	Started        time.Time
	Finished       time.Time
}

// Skipped returns the number of images that produced no row.
func (s Stats) Skipped() int {
	return s.Files - s.Rows
}

// Progress is reported after each image is accounted for.
type Progress struct {
	Label string
	Done  int // images of this label handled so far
	Total int // images of this label
}

// Builder turns a directory of labeled images into dataset rows.
//
// root/<label>/.../<image> is read as one example of <label>. Files placed
// directly under root have no label and are ignored.
type Builder struct {
	Source  Source
	Policy  features.Policy
	Workers int
	Logger  logrus.FieldLogger

	// OnProgress, when set, is called from the single writer goroutine.
	OnProgress func(Progress)
}

type job struct {
	seq   int
	path  string
	label string
}

type result struct {
	job
	row     *Row
	outcome features.Outcome
	err     error
}

func (b *Builder) workers() int {
	if b.Workers > 0 {
		return b.Workers
	}
	return runtime.NumCPU()
}

func (b *Builder) logger() logrus.FieldLogger {
	if b.Logger != nil {
		return b.Logger
	}
	return logrus.StandardLogger()
}

// BuildFile builds the dataset for root into the file at out.
func (b *Builder) BuildFile(ctx context.Context, root, out string) (stats Stats, err error) {
	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return stats, errors.Wrap(err, "create output directory")
		}
	}

	f, err := os.Create(out)
	if err != nil {
		return stats, errors.Wrap(err, "create dataset file")
	}
	defer func() {
		err = multierr.Append(err, f.Close())
		if err != nil {
			// An aborted build must not leave a truncated file behind.
			os.Remove(out)
		}
	}()

	w, err := NewWriter(f)
	if err != nil {
		return stats, err
	}
	stats, err = b.Build(ctx, root, w)
	if err != nil {
		return stats, err
	}
	return stats, w.Flush()
}

// Build walks root and appends one row per usable image to w, in
// traversal order. Images are processed concurrently; only w is shared.
//
// Unreadable images and detector failures are logged and counted. A
// schema violation stops the build and is returned.
func (b *Builder) Build(ctx context.Context, root string, w *Writer) (Stats, error) {
	stats := Stats{PerLabel: make(map[string]int), Started: time.Now()}

	jobs, totals, err := b.collect(root)
	if err != nil {
		return stats, err
	}
	stats.Files = len(jobs)

	log := b.logger().WithField("root", root)
	log.WithFields(logrus.Fields{
		"images": len(jobs),
		"labels": len(totals),
	}).Info("building dataset")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan result)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())

	producerErr := make(chan error, 1)
	go func() {
		for _, j := range jobs {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				r := b.process(j)
				select {
				case results <- r:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		producerErr <- g.Wait()
		close(results)
	}()

	pending := make(map[int]result)
	next := 0
	done := make(map[string]int)

	var writeErr error
	for r := range results {
		if writeErr != nil {
			continue
		}
		pending[r.seq] = r
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			if err := b.account(&stats, w, r, log); err != nil {
				writeErr = err
				cancel()
				break
			}
			done[r.label]++
			if b.OnProgress != nil {
				b.OnProgress(Progress{Label: r.label, Done: done[r.label], Total: totals[r.label]})
			}
		}
	}

	stats.Finished = time.Now()
	if writeErr != nil {
		return stats, writeErr
	}
	if err := <-producerErr; err != nil {
		return stats, err
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	log.WithFields(logrus.Fields{
		"rows":        stats.Rows,
		"zero_filled": stats.ZeroFilled,
		"skipped":     stats.Skipped(),
		"took":        stats.Finished.Sub(stats.Started).Round(time.Millisecond),
	}).Info("dataset built")

	return stats, nil
}

// collect lists the images under root in walk order with their labels.
func (b *Builder) collect(root string) ([]job, map[string]int, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, errors.Wrap(err, "dataset root")
	}
	if !info.IsDir() {
		return nil, nil, errors.Errorf("dataset root %s is not a directory", root)
	}

	var jobs []job
	totals := make(map[string]int)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			b.logger().WithError(err).WithField("path", path).Warn("skipping unreadable entry")
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsImage(path) {
			return nil
		}

		label := labelFor(root, path)
		if label == "" {
			return nil
		}
		jobs = append(jobs, job{seq: len(jobs), path: path, label: label})
		totals[label]++
		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "walk dataset root")
	}
	return jobs, totals, nil
}

// labelFor returns the name of the directory directly under root that
// contains path, or "" when path sits in root itself.
func labelFor(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

func (b *Builder) process(j job) result {
	r := result{job: j}

	hand, err := b.Source.Landmarks(j.path)
	if err != nil {
		r.outcome = features.OutcomeSkip
		r.err = err
		return r
	}

	v, outcome, err := b.Policy.Apply(j.label, hand)
	r.outcome = outcome
	r.err = err
	if outcome != features.OutcomeSkip {
		r.row = &Row{Label: j.label, Features: v}
	}
	return r
}

// account writes r and updates stats. Only schema violations and write
// failures are returned.
func (b *Builder) account(stats *Stats, w *Writer, r result, log logrus.FieldLogger) error {
	entry := log.WithFields(logrus.Fields{"path": r.path, "label": r.label})

	switch {
	case errors.Is(r.err, ErrUnreadableInput):
		stats.Unreadable++
		entry.WithError(r.err).Warn("skipping unreadable image")
	case errors.Is(r.err, features.ErrNoDetection):
		stats.NoHand++
		entry.Debug("no hand detected")
	case errors.Is(r.err, features.ErrDegenerateGeometry):
		stats.Degenerate++
		entry.Debug("degenerate hand geometry")
	case r.err != nil:
		stats.DetectorErrors++
		entry.WithError(r.err).Warn("landmark detection failed")
	}

	if r.row == nil {
		return nil
	}
	if err := w.Write(*r.row); err != nil {
		return errors.Wrapf(err, "write %s", r.path)
	}
	stats.Rows++
	stats.PerLabel[r.label]++
	if r.outcome == features.OutcomeZeroFill {
		stats.ZeroFilled++
	}
	return nil
}
