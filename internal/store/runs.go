package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Run records one dataset build.
type Run struct {
	ID             string
	Root           string
	Output         string
	Files          int
	Rows           int
	ZeroFilled     int
	NoHand         int
	Degenerate     int
	Unreadable     int
	DetectorErrors int
	PerLabel       map[string]int
	StartedAt      time.Time
	FinishedAt     time.Time
}

// RunRepository stores dataset runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the dataset run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a run and its per-label counts. An empty ID is filled
// with a new UUID.
func (r *RunRepository) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO dataset_runs (id, root, output, files, rows, zero_filled, no_hand, degenerate,
		 unreadable, detector_errors, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Root, run.Output, run.Files, run.Rows, run.ZeroFilled, run.NoHand, run.Degenerate,
		run.Unreadable, run.DetectorErrors, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert dataset run")
	}

	for label, rows := range run.PerLabel {
		if _, err := tx.Exec(
			`INSERT INTO dataset_run_labels (run_id, label, rows) VALUES (?, ?, ?)`,
			run.ID, label, rows,
		); err != nil {
			return errors.Wrapf(err, "insert label %q", label)
		}
	}

	return tx.Commit()
}

const runColumns = `id, root, output, files, rows, zero_filled, no_hand, degenerate,
	unreadable, detector_errors, started_at, finished_at`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	run := &Run{}
	err := row.Scan(&run.ID, &run.Root, &run.Output, &run.Files, &run.Rows, &run.ZeroFilled,
		&run.NoHand, &run.Degenerate, &run.Unreadable, &run.DetectorErrors, &run.StartedAt, &run.FinishedAt)
	return run, err
}

// GetByID retrieves a run with its per-label counts.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(`SELECT `+runColumns+` FROM dataset_runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if run.PerLabel, err = r.labels(run.ID); err != nil {
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs first, at most limit of them.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	rows, err := r.db.Query(
		`SELECT `+runColumns+` FROM dataset_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, run := range runs {
		if run.PerLabel, err = r.labels(run.ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Delete removes a run and its label counts.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM dataset_runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}

func (r *RunRepository) labels(runID string) (map[string]int, error) {
	rows, err := r.db.Query(`SELECT label, rows FROM dataset_run_labels WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labels := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		labels[label] = n
	}
	return labels, rows.Err()
}
