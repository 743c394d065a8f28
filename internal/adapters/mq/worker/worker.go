// Package worker drains frame partitions into session monitors.
//
// Each partition has exactly one worker, so frames of a session are never
// processed concurrently or out of order.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/vigil/internal/adapters/mq/queue"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// Processor turns one frame into a decision and delivers it.
type Processor interface {
	Process(ctx context.Context, f model.Frame) error
}

// Queue defines how a worker receives frames.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Item
}

// Source is a set of partitions, one worker per partition.
type Source interface {
	Partitions() int
	Partition(i int) queue.Queue
}

// Worker consumes a single queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining.
	Shutdown(ctx context.Context) error
}

// PartitionWorker consumes one partition and feeds its frames to a Processor.
type PartitionWorker struct {
	queue     Queue
	processor Processor
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewPartitionWorker creates a new worker with configuration options.
func NewPartitionWorker(q Queue, p Processor, opts ...Option) *PartitionWorker {
	w := &PartitionWorker{
		queue:     q,
		processor: p,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *PartitionWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case it, ok := <-items:
			if !ok {
				return
			}
			if err := w.process(ctx, it); err != nil {
				w.logger.Error(ctx, "error processing frame",
					logger.String("session_id", it.Frame.SessionID),
					logger.Any("seq", it.Frame.Seq),
					logger.Error(err),
				)
			}
		}
	}
}

// Done is closed once Run has returned.
func (w *PartitionWorker) Done() <-chan struct{} { return w.done }

// Shutdown gracefully stops the worker.
func (w *PartitionWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *PartitionWorker) process(ctx context.Context, it queue.Item) error { //nolint:gocritic // hugeParam: Item is passed by value for channel semantics
	start := time.Now()
	metrics.AddWorkerActive(1)
	defer func() {
		metrics.AddWorkerActive(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.processor.Process(ctx, it.Frame); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "process")
		return fmt.Errorf("frame %s/%d: %w", it.Frame.SessionID, it.Frame.Seq, err)
	}
	return nil
}

// Pool runs one worker per partition of a Source.
type Pool struct {
	workers []*PartitionWorker
	source  Source
	logger  logger.Logger
}

// NewPool creates a worker for every partition of src.
func NewPool(src Source, p Processor, opts ...Option) *Pool {
	pool := &Pool{
		workers: make([]*PartitionWorker, src.Partitions()),
		source:  src,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range pool.workers {
		wopts := append([]Option{WithName("partition-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewPartitionWorker(src.Partition(i), p, wopts...)
	}
	metrics.UpdateWorkerCount(len(pool.workers))
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Run starts all workers and blocks until every one of them has returned.
func (p *Pool) Run(ctx context.Context) {
	p.Start(ctx)
	for _, w := range p.workers {
		<-w.done
	}
}

// Shutdown closes the source so workers drain what is queued, then waits
// for them. Workers still running when ctx expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	var errs []error
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			errs = append(errs, w.Shutdown(stopCtx))
			cancel()
		}
	}
	metrics.UpdateWorkerCount(0)
	return errors.Join(errs...)
}
