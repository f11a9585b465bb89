package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Session records one run of the live recognition loop.
type Session struct {
	ID        string
	Source    string
	StartedAt time.Time
	// EndedAt is zero while the session is running.
	EndedAt   time.Time
	Frames    int64
	Decisions int64
}

// SessionRepository stores live sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Start inserts a new running session for source.
func (r *SessionRepository) Start(source string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: time.Now(),
	}
	_, err := r.db.Exec(
		`INSERT INTO sessions (id, source, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Source, sess.StartedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "insert session")
	}
	return sess, nil
}

// End marks a session finished with its final counters.
func (r *SessionRepository) End(id string, frames, decisions int64) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, frames = ?, decisions = ? WHERE id = ?`,
		time.Now(), frames, decisions, id,
	)
	if err != nil {
		return err
	}
	return affected(result)
}

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime
	err := row.Scan(&sess.ID, &sess.Source, &sess.StartedAt, &ended, &sess.Frames, &sess.Decisions)
	if ended.Valid {
		sess.EndedAt = ended.Time
	}
	return sess, err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess, err := scanSession(r.db.QueryRow(
		`SELECT id, source, started_at, ended_at, frames, decisions FROM sessions WHERE id = ?`,
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns the most recent sessions first, at most limit of them.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, source, started_at, ended_at, frames, decisions
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
