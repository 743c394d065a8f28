package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vigil/internal/domain/model"
)

// Alert is a persisted alert start.
type Alert struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Type      model.AlertType  `json:"alert_type"`
	Level     model.AlertLevel `json:"alert_level"`
	Action    model.Action     `json:"action"`
	Score     int              `json:"score"`
	EAR       float64          `json:"ear"`
	MAR       float64          `json:"mar"`
	Pitch     float64          `json:"pitch"`
	Yaw       float64          `json:"yaw"`
	PERCLOS   float64          `json:"perclos"`
	Duration  float64          `json:"duration"`
	CreatedAt time.Time        `json:"created_at"`
}

// AlertFromDecision builds the history record for an alert-start decision.
func AlertFromDecision(d *model.Decision) *Alert {
	duration := d.DistractionDuration
	if d.GazeDuration > duration {
		duration = d.GazeDuration
	}
	return &Alert{
		SessionID: d.SessionID,
		Type:      d.AlertType,
		Level:     d.AlertLevel,
		Action:    d.Action,
		Score:     d.Score,
		EAR:       d.EAR,
		MAR:       d.MAR,
		Pitch:     d.Pitch,
		Yaw:       d.Yaw,
		PERCLOS:   d.PERCLOS,
		Duration:  duration,
	}
}

// Summary aggregates the alerts of one session.
type Summary struct {
	SessionID string         `json:"session_id"`
	Total     int            `json:"total"`
	ByType    map[string]int `json:"by_type"`
	ByLevel   map[string]int `json:"by_level"`
	MaxScore  int            `json:"max_score"`
}

// AlertRepository records and queries alerts.
type AlertRepository struct {
	db *sql.DB
}

// Alerts returns the alert repository for this store.
func (s *Store) Alerts() *AlertRepository {
	return &AlertRepository{db: s.db}
}

// Log inserts an alert. ID and CreatedAt are filled in when empty.
func (r *AlertRepository) Log(ctx context.Context, a *Alert) error {
	defer observe("alert_log", time.Now())

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alerts (id, session_id, alert_type, alert_level, action, score,
		                     ear, mar, pitch, yaw, perclos, duration, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, a.Type.String(), a.Level.String(), a.Action.String(), a.Score,
		a.EAR, a.MAR, a.Pitch, a.Yaw, a.PERCLOS, a.Duration, toMillis(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("log alert for session %s: %w", a.SessionID, err)
	}
	return nil
}

// ListBySession returns a session's alerts, oldest first.
func (r *AlertRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*Alert, error) {
	defer observe("alert_list", time.Now())

	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, alert_type, alert_level, action, score,
		        ear, mar, pitch, yaw, perclos, duration, created_at
		 FROM alerts WHERE session_id = ? ORDER BY created_at, rowid LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		a := &Alert{}
		var alertType, level, action string
		var created int64
		err := rows.Scan(&a.ID, &a.SessionID, &alertType, &level, &action, &a.Score,
			&a.EAR, &a.MAR, &a.Pitch, &a.Yaw, &a.PERCLOS, &a.Duration, &created)
		if err != nil {
			return nil, err
		}
		if a.Type, err = model.ParseAlertType(alertType); err != nil {
			return nil, err
		}
		if a.Level, err = model.ParseAlertLevel(level); err != nil {
			return nil, err
		}
		if err := a.Action.UnmarshalText([]byte(action)); err != nil {
			return nil, err
		}
		a.CreatedAt = fromMillis(created)
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return alerts, nil
}

// Summary counts a session's alerts by type and level.
func (r *AlertRepository) Summary(ctx context.Context, sessionID string) (Summary, error) {
	defer observe("alert_summary", time.Now())

	sum := Summary{
		SessionID: sessionID,
		ByType:    make(map[string]int),
		ByLevel:   make(map[string]int),
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT alert_type, alert_level, COUNT(*), MAX(score)
		 FROM alerts WHERE session_id = ? GROUP BY alert_type, alert_level`,
		sessionID,
	)
	if err != nil {
		return sum, err
	}
	defer rows.Close()

	for rows.Next() {
		var alertType, level string
		var count, maxScore int
		if err := rows.Scan(&alertType, &level, &count, &maxScore); err != nil {
			return sum, err
		}
		sum.Total += count
		sum.ByType[alertType] += count
		sum.ByLevel[level] += count
		if maxScore > sum.MaxScore {
			sum.MaxScore = maxScore
		}
	}
	return sum, rows.Err()
}
