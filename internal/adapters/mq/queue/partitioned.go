package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/metrics"
)

// Partitioned routes frames to one of a fixed set of InMemoryQueues by a
// hash of the session id.
type Partitioned struct {
	parts    []*InMemoryQueue
	capacity int
}

// NewPartitioned creates n partitions, each built with opts.
func NewPartitioned(n int, opts ...Option) *Partitioned {
	if n < 1 {
		n = 1
	}
	p := &Partitioned{parts: make([]*InMemoryQueue, n)}
	opts = append(opts, withReporter(p.updateGauges))
	for i := range p.parts {
		p.parts[i] = NewInMemoryQueue(opts...)
		p.capacity += p.parts[i].Capacity()
	}
	metrics.UpdateQueueCapacity(p.capacity)
	p.updateGauges()
	return p
}

// Partitions returns the number of partitions.
func (p *Partitioned) Partitions() int { return len(p.parts) }

// Partition returns the i-th partition.
func (p *Partitioned) Partition(i int) Queue { return p.parts[i] }

// PartitionFor returns the partition index owning sessionID.
func (p *Partitioned) PartitionFor(sessionID string) int {
	return int(xxhash.Sum64String(sessionID) % uint64(len(p.parts)))
}

// Enqueue places f on its session's partition. It never blocks.
func (p *Partitioned) Enqueue(ctx context.Context, f model.Frame) error { //nolint:gocritic // hugeParam: Frame is passed by value for channel semantics
	q := p.parts[p.PartitionFor(f.SessionID)]
	if q.IsClosed() {
		return ErrClosed
	}
	if !q.Enqueue(ctx, Item{Frame: f, EnqueuedAt: time.Now()}) {
		if q.IsClosed() {
			return ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("enqueue: %w", err)
		}
		return ErrFull
	}
	return nil
}

// Len returns the number of queued frames across all partitions.
func (p *Partitioned) Len(ctx context.Context) int {
	n := 0
	for _, q := range p.parts {
		n += q.Len(ctx)
	}
	return n
}

// Capacity returns the combined bound of all partitions.
func (p *Partitioned) Capacity() int { return p.capacity }

// Close closes every partition.
func (p *Partitioned) Close() error {
	for _, q := range p.parts {
		if err := q.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Partitioned) updateGauges() {
	size := 0
	for _, q := range p.parts {
		if q != nil {
			size += len(q.items)
		}
	}
	metrics.UpdateQueueSize(size)
	if p.capacity > 0 {
		metrics.UpdateQueueUtilization(float64(size) / float64(p.capacity))
	}
}
