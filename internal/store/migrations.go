package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Dataset runs - one row per dataset build
		`CREATE TABLE IF NOT EXISTS dataset_runs (
			id TEXT PRIMARY KEY,
			root TEXT NOT NULL,
			output TEXT NOT NULL,
			files INTEGER NOT NULL DEFAULT 0,
			rows INTEGER NOT NULL DEFAULT 0,
			zero_filled INTEGER NOT NULL DEFAULT 0,
			no_hand INTEGER NOT NULL DEFAULT 0,
			degenerate INTEGER NOT NULL DEFAULT 0,
			unreadable INTEGER NOT NULL DEFAULT 0,
			detector_errors INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL
		)`,

		// Rows written per label in a dataset run
		`CREATE TABLE IF NOT EXISTS dataset_run_labels (
			run_id TEXT NOT NULL REFERENCES dataset_runs(id) ON DELETE CASCADE,
			label TEXT NOT NULL,
			rows INTEGER NOT NULL,
			PRIMARY KEY (run_id, label)
		)`,

		// Live sessions - one row per inference loop run
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			frames INTEGER NOT NULL DEFAULT 0,
			decisions INTEGER NOT NULL DEFAULT 0
		)`,

		// Decisions reported during a session
		`CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			frame INTEGER NOT NULL,
			label TEXT NOT NULL,
			confidence REAL NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_decisions_session_id ON decisions(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_dataset_runs_started_at ON dataset_runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
