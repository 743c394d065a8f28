package repository

import "context"

// runMigrations executes all database migrations.
func (s *Store) runMigrations(ctx context.Context) error {
	migrations := []string{
		// One row per monitoring session. Times are unix milliseconds.
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			driver_id TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL,
			ended_at INTEGER,
			end_reason TEXT NOT NULL DEFAULT '',
			frames INTEGER NOT NULL DEFAULT 0,
			alerts INTEGER NOT NULL DEFAULT 0,
			max_score INTEGER NOT NULL DEFAULT 0
		)`,

		// Alert starts produced by the session monitors.
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			alert_type TEXT NOT NULL,
			alert_level TEXT NOT NULL,
			action TEXT NOT NULL,
			score INTEGER NOT NULL,
			ear REAL NOT NULL DEFAULT 0,
			mar REAL NOT NULL DEFAULT 0,
			pitch REAL NOT NULL DEFAULT 0,
			yaw REAL NOT NULL DEFAULT 0,
			perclos REAL NOT NULL DEFAULT 0,
			duration REAL NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_alerts_session_id ON alerts(session_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return err
		}
	}
	return nil
}
