package simulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/vigil/pkg/logger"
)

// Polling constants while waiting for the service to drain a session.
const (
	pollInterval = 50 * time.Millisecond
	drainTimeout = 30 * time.Second
	streamGrace  = 5 * time.Second
	driverIDLen  = 8
)

// ErrScenariosFailed is returned when at least one scenario missed its expectation.
var ErrScenariosFailed = errors.New("scenarios failed")

// Run drives every configured scenario against the service and verifies
// the outcome. Scenarios run concurrently up to cfg.Workers at a time.
// The returned results are in scenario order.
func Run(ctx context.Context, cfg Config) ([]Result, error) {
	cfg = cfg.withDefaults()
	log := logger.Get().Named("simulator")

	scenarios := make([]Scenario, 0, len(cfg.Scenarios))
	for _, name := range cfg.Scenarios {
		s, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}

	client := NewClient(cfg.BaseURL, cfg.Timeout, cfg.Verbose)

	log.Info(ctx, "checking service health", logger.String("baseURL", cfg.BaseURL))
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	log.Info(ctx, "starting simulation",
		logger.Any("scenarios", cfg.Scenarios),
		logger.Duration("duration", cfg.Duration),
		logger.Int("fps", cfg.FPS),
		logger.Int("batch", cfg.Batch),
		logger.Int("workers", cfg.Workers),
	)

	results := make([]Result, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, s := range scenarios {
		g.Go(func() error {
			results[i] = runScenario(gctx, client, &cfg, s)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		fields := []logger.Field{
			logger.String("scenario", r.Scenario),
			logger.String("session_id", r.SessionID),
			logger.Int("frames", r.Frames),
			logger.Int("accepted", r.Accepted),
			logger.Int("duplicates", r.Duplicates),
			logger.Int("retries", r.Retries),
			logger.Int("decisions", r.Decisions),
			logger.Int("alerts", r.Alerts),
			logger.Int("maxScore", r.MaxScore),
			logger.Duration("took", r.Duration),
		}
		if r.Passed() {
			log.Info(ctx, "scenario passed", fields...)
			continue
		}
		failed++
		log.Error(ctx, "scenario failed", append(fields, logger.Error(r.Err))...)
	}

	if failed > 0 {
		return results, fmt.Errorf("%w: %d of %d", ErrScenariosFailed, failed, len(results))
	}
	log.Info(ctx, "simulation completed", logger.Int("scenarios", len(results)))
	return results, nil
}

// runScenario runs one scenario from session creation to verification.
func runScenario(ctx context.Context, c *Client, cfg *Config, s Scenario) Result {
	start := time.Now()
	res := Result{Scenario: s.Name}

	res.Err = func() error {
		driver := fmt.Sprintf("sim-%s-%s", s.Name, uuid.NewString()[:driverIDLen])
		id, err := c.CreateSession(ctx, driver)
		if err != nil {
			return err
		}
		res.SessionID = id

		ended := false
		defer func() {
			if !ended {
				_ = c.EndSession(context.WithoutCancel(ctx), id)
			}
		}()

		if s.Sunglasses {
			if err := c.SetSunglasses(ctx, id, true); err != nil {
				return err
			}
		}

		sub, err := c.Subscribe(ctx, id)
		if err != nil {
			return err
		}
		defer sub.Close()

		frames := s.Frames(id, cfg.FPS, cfg.Duration, cfg.Seed)
		res.Frames = len(frames)
		for lo := 0; lo < len(frames); lo += cfg.Batch {
			hi := min(lo+cfg.Batch, len(frames))
			ack, retries, err := c.PostFrames(ctx, frames[lo:hi])
			res.Retries += retries
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", lo+1, hi, err)
			}
			res.Accepted += ack.Accepted
			res.Duplicates += ack.Duplicates
		}

		view, err := waitDrained(ctx, c, id, uint64(len(frames))) //nolint:gosec // len is non-negative
		if err != nil {
			return err
		}
		summary, err := c.Alerts(ctx, id)
		if err != nil {
			return err
		}

		if err := c.EndSession(ctx, id); err != nil {
			return err
		}
		ended = true

		waitCtx, cancel := context.WithTimeout(ctx, streamGrace)
		defer cancel()
		decisions, err := sub.Wait(waitCtx)
		if err != nil {
			return fmt.Errorf("stream: %w", err)
		}

		res.Decisions = len(decisions)
		res.Alerts = summary.Total
		res.MaxScore = view.Live.MaxScore
		return s.Verify(Observation{Live: *view.Live, Summary: summary, Decisions: decisions})
	}()
	res.Duration = time.Since(start)
	return res
}

// waitDrained polls the session until every frame has been processed.
func waitDrained(ctx context.Context, c *Client, id string, want uint64) (SessionView, error) {
	ctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		view, err := c.Session(ctx, id)
		if err != nil {
			return SessionView{}, err
		}
		if view.Live == nil {
			return SessionView{}, fmt.Errorf("session %s is no longer live", id)
		}
		if view.Live.Frames >= want {
			return view, nil
		}
		select {
		case <-ctx.Done():
			return SessionView{}, fmt.Errorf("waiting for %d frames, processed %d: %w", want, view.Live.Frames, ctx.Err())
		case <-ticker.C:
		}
	}
}
