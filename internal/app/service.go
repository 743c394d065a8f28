// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/vigil/internal/adapters/http/stream"
	"github.com/okian/vigil/internal/adapters/mq/queue"
	"github.com/okian/vigil/internal/adapters/mq/worker"
	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/domain/dedupe"
	"github.com/okian/vigil/internal/domain/monitor"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize          = 4096
	defaultDedupeSize         = 200_000
	defaultDBPath             = "vigil.db"
	defaultIdleSessionTimeout = 5 * time.Minute
	defaultJanitorInterval    = 10 * time.Second
	defaultStreamBuffer       = 64
)

// Service implements the API dependencies for the drowsiness monitor.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    *repository.Store
	deduper  dedupe.Deduper
	queue    *queue.Partitioned
	pool     *worker.Pool
	hub      *stream.Hub
	sessions *registry

	// Configuration
	partitions      int
	queueSize       int
	dedupeSize      int
	dbPath          string
	idleTimeout     time.Duration
	janitorInterval time.Duration
	streamBuffer    int
	monitorCfg      monitor.Config

	// State
	started bool
	cancel  context.CancelFunc
	group   *errgroup.Group

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithPartitions sets the number of queue partitions, one worker each.
func WithPartitions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.partitions = n
		}
	}
}

// WithQueueSize sets the total frame queue capacity across partitions.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDBPath sets the SQLite database path.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithIdleSessionTimeout sets how long a session may go without frames
// before the janitor ends it. Zero disables idle expiry.
func WithIdleSessionTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.idleTimeout = d
		}
	}
}

// WithJanitorInterval sets how often counters are flushed and idle
// sessions are expired.
func WithJanitorInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.janitorInterval = d
		}
	}
}

// WithStreamBuffer sets the per-client buffer of the decision stream.
func WithStreamBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.streamBuffer = n
		}
	}
}

// WithMonitorConfig sets the detection configuration for new sessions.
func WithMonitorConfig(cfg monitor.Config) Option {
	return func(s *Service) {
		s.monitorCfg = cfg
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		partitions:      runtime.NumCPU(),
		queueSize:       defaultQueueSize,
		dedupeSize:      defaultDedupeSize,
		dbPath:          defaultDBPath,
		idleTimeout:     defaultIdleSessionTimeout,
		janitorInterval: defaultJanitorInterval,
		streamBuffer:    defaultStreamBuffer,
		monitorCfg:      monitor.DefaultConfig(),
		sessions:        newRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store and starts the workers and the janitor. The
// background goroutines outlive ctx and are stopped by Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if err := s.monitorCfg.Validate(); err != nil {
		return fmt.Errorf("detection config: %w", err)
	}

	s.logger.Info(ctx, "starting vigil service...")

	store, err := repository.New(ctx, s.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	s.store = store
	if err := s.closeStale(ctx); err != nil {
		_ = store.Close()
		return err
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewPartitioned(s.partitions,
		queue.WithCapacity(max(1, s.queueSize/s.partitions)),
	)
	s.hub = stream.NewHub(
		stream.WithBuffer(s.streamBuffer),
		stream.WithSessionCheck(s.sessions.has),
		stream.WithLogger(s.logger.Named("stream")),
	)
	s.pool = worker.NewPool(s.queue, s, worker.WithLogger(s.logger.Named("worker")))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		s.pool.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return s.runJanitor(gctx)
	})
	s.cancel = cancel
	s.group = g

	s.started = true
	s.logger.Info(ctx, "vigil service started",
		logger.Int("partitions", s.queue.Partitions()),
		logger.Int("queueCapacity", s.queue.Capacity()),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("db", s.dbPath),
	)
	return nil
}

// Stop drains queued frames, ends every live session and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping vigil service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain workers: %w", err))
	}
	s.cancel()

	for _, id := range s.sessions.ids() {
		if _, err := s.endSession(context.WithoutCancel(ctx), id, "shutdown"); err != nil {
			errs = append(errs, err)
		}
	}
	s.hub.Close()

	if err := s.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "vigil service stopped")
	return errors.Join(errs...)
}

// Stream returns the WebSocket decision feed handler. Valid after Start.
func (s *Service) Stream() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub
}

// SeenAndRecord atomically checks if a frame key was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, key string) bool {
	return s.deduper.SeenAndRecord(ctx, key)
}

// Unrecord removes a frame key so the frame can be retried.
func (s *Service) Unrecord(ctx context.Context, key string) {
	s.deduper.Unrecord(ctx, key)
}

// Forget drops every recorded key of a session.
func (s *Service) Forget(ctx context.Context, sessionID string) {
	s.deduper.Forget(ctx, sessionID)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":    s.started,
		"partitions": s.partitions,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
	}
	if s.started {
		active := s.sessions.len()
		queueLen := s.queue.Len(context.Background())

		stats["sessionsActive"] = active
		stats["queueLength"] = queueLen
		stats["queueCapacity"] = s.queue.Capacity()
		stats["workers"] = s.pool.Size()
		stats["streamClients"] = s.hub.Clients()
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateSessionsActive(active)
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
