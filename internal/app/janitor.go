package service

import (
	"context"
	"time"

	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// runJanitor periodically persists session counters and ends sessions that
// have been idle longer than the idle timeout. It returns when ctx is done.
func (s *Service) runJanitor(ctx context.Context) error {
	ticker := time.NewTicker(s.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.sweep(ctx, now)
		}
	}
}

// sweep runs one janitor pass.
func (s *Service) sweep(ctx context.Context, now time.Time) {
	for _, ls := range s.sessions.all() {
		if s.idleTimeout > 0 && ls.idleFor(now) > s.idleTimeout {
			if _, err := s.endSession(ctx, ls.id, "idle"); err != nil {
				s.logger.Warn(ctx, "failed to end idle session",
					logger.String("session_id", ls.id),
					logger.Error(err),
				)
			}
			continue
		}
		if err := s.flush(ctx, ls); err != nil {
			metrics.RecordErrorByComponent("janitor", "flush")
			s.logger.Warn(ctx, "failed to flush session counters",
				logger.String("session_id", ls.id),
				logger.Error(err),
			)
		}
	}
	metrics.UpdateSessionsActive(s.sessions.len())
}

// flush writes the counter increments accumulated since the last flush.
func (s *Service) flush(ctx context.Context, ls *liveSession) error {
	ls.flushMu.Lock()
	defer ls.flushMu.Unlock()

	if ls.ended {
		return nil
	}
	snap := ls.monitor.Snapshot()
	frames := snap.Frames - ls.flushedFrames
	alerts := snap.Alerts - ls.flushedAlerts
	if frames == 0 && alerts == 0 {
		return nil
	}
	if err := s.store.Sessions().IncrementCounts(ctx, ls.id,
		int64(frames), int64(alerts), snap.MaxScore); err != nil { //nolint:gosec // deltas fit in int64
		return err
	}
	ls.flushedFrames = snap.Frames
	ls.flushedAlerts = snap.Alerts
	return nil
}
