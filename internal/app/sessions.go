package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/monitor"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// ErrNotStarted is returned by operations that need a started service.
var ErrNotStarted = errors.New("service not started")

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// CreateSession persists a new session and starts monitoring it.
func (s *Service) CreateSession(ctx context.Context, driverID string) (*repository.Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	sess := &repository.Session{ID: uuid.NewString(), DriverID: driverID}
	mon, err := monitor.New(sess.ID, s.monitorCfg, monitor.WithLogger(s.logger.Named("monitor")))
	if err != nil {
		return nil, fmt.Errorf("create monitor: %w", err)
	}
	if err := s.store.Sessions().Create(ctx, sess); err != nil {
		return nil, err
	}

	ls := &liveSession{id: sess.ID, monitor: mon}
	ls.touch(time.Now())
	s.sessions.add(ls)

	metrics.RecordSessionStarted()
	metrics.UpdateSessionsActive(s.sessions.len())
	s.logger.Info(ctx, "session started",
		logger.String("session_id", sess.ID),
		logger.String("driver_id", driverID),
	)
	return sess, nil
}

// GetSession returns the stored session record.
func (s *Service) GetSession(ctx context.Context, id string) (*repository.Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.Sessions().Get(ctx, id)
}

// ListSessions returns the most recent sessions.
func (s *Service) ListSessions(ctx context.Context, limit int, activeOnly bool) ([]*repository.Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.Sessions().List(ctx, limit, activeOnly)
}

// Snapshot returns the live view of a running session.
func (s *Service) Snapshot(ctx context.Context, id string) (monitor.Snapshot, error) {
	ls, err := s.live(ctx, id)
	if err != nil {
		return monitor.Snapshot{}, err
	}
	return ls.monitor.Snapshot(), nil
}

// EndSession stops monitoring id and stores its final counters.
func (s *Service) EndSession(ctx context.Context, id, reason string) (*repository.Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.endSession(ctx, id, reason)
}

func (s *Service) endSession(ctx context.Context, id, reason string) (*repository.Session, error) {
	ls, ok := s.sessions.remove(id)
	if !ok {
		return nil, s.notLive(ctx, id)
	}

	ls.flushMu.Lock()
	ls.ended = true
	snap := ls.monitor.Snapshot()
	err := s.store.Sessions().End(ctx, id, reason, time.Now(),
		int64(snap.Frames), int64(snap.Alerts), snap.MaxScore) //nolint:gosec // counters fit in int64
	ls.flushMu.Unlock()

	s.deduper.Forget(ctx, id)
	s.hub.CloseSession(id, reason)
	metrics.RecordSessionEnded(reason)
	metrics.UpdateSessionsActive(s.sessions.len())
	if ls.inAlarm.Load() {
		metrics.RecordAlarmCleared()
	}

	if err != nil {
		return nil, fmt.Errorf("end session %s: %w", id, err)
	}
	s.logger.Info(ctx, "session ended",
		logger.String("session_id", id),
		logger.String("reason", reason),
		logger.Int("frames", int(snap.Frames)), //nolint:gosec // display only
		logger.Int("max_score", snap.MaxScore),
	)
	return s.store.Sessions().Get(ctx, id)
}

// ResetSession clears every detector history of a running session.
func (s *Service) ResetSession(ctx context.Context, id string) error {
	ls, err := s.live(ctx, id)
	if err != nil {
		return err
	}
	ls.monitor.Reset()
	s.logger.Info(ctx, "session reset", logger.String("session_id", id))
	return nil
}

// SetSunglasses sets or clears the manual sunglasses override.
func (s *Service) SetSunglasses(ctx context.Context, id string, on bool) error {
	ls, err := s.live(ctx, id)
	if err != nil {
		return err
	}
	ls.monitor.SetManualSunglasses(on)
	s.logger.Info(ctx, "sunglasses override changed",
		logger.String("session_id", id),
		logger.Bool("enabled", on),
	)
	return nil
}

// HasSession reports whether frames for id are accepted and marks the
// session as active.
func (s *Service) HasSession(id string) bool {
	ls, ok := s.sessions.get(id)
	if ok {
		ls.touch(time.Now())
	}
	return ok
}

// Enqueue submits a frame for asynchronous processing by the worker that
// owns its session.
func (s *Service) Enqueue(ctx context.Context, f model.Frame) error { //nolint:gocritic // hugeParam: Frame is copied onto the queue
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.queue.Enqueue(ctx, f); err != nil {
		return fmt.Errorf("enqueue frame %s/%d: %w", f.SessionID, f.Seq, err)
	}
	return nil
}

// ListAlerts returns a session's alert history, newest first.
func (s *Service) ListAlerts(ctx context.Context, id string, limit int) ([]*repository.Alert, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.Alerts().ListBySession(ctx, id, limit)
}

// AlertSummary aggregates a session's alert history.
func (s *Service) AlertSummary(ctx context.Context, id string) (repository.Summary, error) {
	if err := s.ready(); err != nil {
		return repository.Summary{}, err
	}
	return s.store.Alerts().Summary(ctx, id)
}

func (s *Service) live(ctx context.Context, id string) (*liveSession, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ls, ok := s.sessions.get(id)
	if !ok {
		return nil, s.notLive(ctx, id)
	}
	return ls, nil
}

// notLive tells an ended session apart from one that never existed.
func (s *Service) notLive(ctx context.Context, id string) error {
	sess, err := s.store.Sessions().Get(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", monitor.ErrSessionNotFound, id)
	case err != nil:
		return err
	case !sess.Active():
		return fmt.Errorf("%w: %s", monitor.ErrSessionClosed, id)
	}
	// Stored as active but not in memory: left over from a previous run.
	return fmt.Errorf("%w: %s", monitor.ErrSessionClosed, id)
}

// closeStale ends sessions a previous run left open. Their monitors did not
// survive the restart, so no more frames can be accepted for them.
func (s *Service) closeStale(ctx context.Context) error {
	const batch = 500
	for {
		stale, err := s.store.Sessions().List(ctx, batch, true)
		if err != nil {
			return fmt.Errorf("list stale sessions: %w", err)
		}
		for _, sess := range stale {
			err := s.store.Sessions().End(ctx, sess.ID, "restart", time.Now(), sess.Frames, sess.Alerts, sess.MaxScore)
			if err != nil && !errors.Is(err, repository.ErrSessionEnded) {
				return fmt.Errorf("close stale session %s: %w", sess.ID, err)
			}
			metrics.RecordSessionEnded("restart")
		}
		if len(stale) < batch {
			return nil
		}
	}
}
