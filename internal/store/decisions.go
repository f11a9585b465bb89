package store

import (
	"database/sql"
	"time"
)

// Decision is one recognized sign within a session.
type Decision struct {
	ID         int64
	SessionID  string
	Frame      int64
	Label      string
	Confidence float64
	CreatedAt  time.Time
}

// DecisionRepository stores session decisions.
type DecisionRepository struct {
	db *sql.DB
}

// Decisions returns the decision repository for this store.
func (s *Store) Decisions() *DecisionRepository {
	return &DecisionRepository{db: s.db}
}

// Create inserts a decision and sets its ID.
func (r *DecisionRepository) Create(d *Decision) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	result, err := r.db.Exec(
		`INSERT INTO decisions (session_id, frame, label, confidence, created_at) VALUES (?, ?, ?, ?, ?)`,
		d.SessionID, d.Frame, d.Label, d.Confidence, d.CreatedAt,
	)
	if err != nil {
		return err
	}
	d.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns a session's decisions in frame order, at most limit.
func (r *DecisionRepository) ListBySession(sessionID string, limit int) ([]*Decision, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, frame, label, confidence, created_at
		 FROM decisions WHERE session_id = ? ORDER BY frame ASC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []*Decision
	for rows.Next() {
		d := &Decision{}
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Frame, &d.Label, &d.Confidence, &d.CreatedAt); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// CountByLabel returns how often each label was decided in a session.
func (r *DecisionRepository) CountByLabel(sessionID string) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT label, COUNT(*) FROM decisions WHERE session_id = ? GROUP BY label`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}
	return counts, rows.Err()
}
