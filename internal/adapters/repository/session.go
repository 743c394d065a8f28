package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Session is one monitoring session.
type Session struct {
	ID        string     `json:"id"`
	DriverID  string     `json:"driver_id,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	EndReason string     `json:"end_reason,omitempty"`
	Frames    int64      `json:"frames"`
	Alerts    int64      `json:"alerts"`
	MaxScore  int        `json:"max_score"`
}

// Active reports whether the session has not ended.
func (s *Session) Active() bool { return s.EndedAt == nil }

// SessionRepository provides lifecycle operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, driver_id, started_at, ended_at, end_reason, frames, alerts, max_score`

// Create inserts a new session. StartedAt defaults to now.
func (r *SessionRepository) Create(ctx context.Context, sess *Session) error {
	defer observe("session_create", time.Now())

	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, driver_id, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.DriverID, toMillis(sess.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("create session %s: %w", sess.ID, err)
	}
	return nil
}

// End marks a session finished and stores its final counters.
func (r *SessionRepository) End(ctx context.Context, id, reason string, endedAt time.Time, frames, alerts int64, maxScore int) error {
	defer observe("session_end", time.Now())

	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions
		 SET ended_at = ?, end_reason = ?, frames = ?, alerts = ?, max_score = MAX(max_score, ?)
		 WHERE id = ? AND ended_at IS NULL`,
		toMillis(endedAt), reason, frames, alerts, maxScore, id,
	)
	if err != nil {
		return fmt.Errorf("end session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		sess, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		if !sess.Active() {
			return ErrSessionEnded
		}
	}
	return nil
}

// IncrementCounts adds to the frame and alert counters and raises max_score.
func (r *SessionRepository) IncrementCounts(ctx context.Context, id string, frames, alerts int64, maxScore int) error {
	defer observe("session_increment", time.Now())

	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions
		 SET frames = frames + ?, alerts = alerts + ?, max_score = MAX(max_score, ?)
		 WHERE id = ?`,
		frames, alerts, maxScore, id,
	)
	if err != nil {
		return fmt.Errorf("increment session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get retrieves a session by its ID.
func (r *SessionRepository) Get(ctx context.Context, id string) (*Session, error) {
	defer observe("session_get", time.Now())

	sess, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns the most recently started sessions, newest first.
func (r *SessionRepository) List(ctx context.Context, limit int, activeOnly bool) ([]*Session, error) {
	defer observe("session_list", time.Now())

	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if activeOnly {
		query += ` WHERE ended_at IS NULL`
	}
	query += ` ORDER BY started_at DESC, id LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var started int64
	var ended sql.NullInt64
	err := row.Scan(&sess.ID, &sess.DriverID, &started, &ended, &sess.EndReason,
		&sess.Frames, &sess.Alerts, &sess.MaxScore)
	if err != nil {
		return nil, err
	}
	sess.StartedAt = fromMillis(started)
	if ended.Valid {
		t := fromMillis(ended.Int64)
		sess.EndedAt = &t
	}
	return sess, nil
}
