package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// Process runs one frame through its session monitor. It is called by the
// single worker owning the session's partition, so frames of a session are
// never processed concurrently.
func (s *Service) Process(ctx context.Context, f model.Frame) error { //nolint:gocritic // hugeParam: Frame is passed by value from the queue
	start := time.Now()

	ls, ok := s.sessions.get(f.SessionID)
	if !ok {
		// The session ended while the frame was queued.
		metrics.RecordFrameRejected("session_ended")
		s.logger.Debug(ctx, "dropping frame for ended session",
			logger.String("session_id", f.SessionID),
			logger.Int("seq", int(f.Seq)), //nolint:gosec // display only
		)
		return nil
	}

	d := ls.monitor.Process(f)

	metrics.RecordFrameProcessed()
	metrics.RecordDecision(d.Action.String(), d.Score, d.PERCLOS)
	wasInAlarm := ls.inAlarm.Swap(d.InAlarm)
	switch {
	case d.InAlarm && !wasInAlarm:
		metrics.RecordAlarmRaised()
		s.logger.Warn(ctx, "alarm raised",
			logger.String("session_id", d.SessionID),
			logger.Int("score", d.Score),
			logger.String("alert_type", d.AlertType.String()),
		)
	case !d.InAlarm && wasInAlarm:
		metrics.RecordAlarmCleared()
		s.logger.Info(ctx, "alarm cleared",
			logger.String("session_id", d.SessionID),
			logger.Int("score", d.Score),
		)
	}

	s.hub.Publish(&d)

	var err error
	if d.AlertStarted {
		metrics.RecordAlert(d.AlertType.String(), d.AlertLevel.String())
		if logErr := s.store.Alerts().Log(ctx, repository.AlertFromDecision(&d)); logErr != nil {
			err = fmt.Errorf("log alert: %w", logErr)
		}
	}
	metrics.RecordProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	return err
}
