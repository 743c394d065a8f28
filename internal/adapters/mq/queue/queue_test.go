package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/vigil/internal/domain/model"
)

func item(session string, seq uint64) Item {
	return Item{Frame: model.Frame{SessionID: session, Seq: seq, Face: true, EAR: 0.3}}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, item("s1", 1)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.Frame.Seq != 1 || got.Frame.SessionID != "s1" {
		t.Errorf("expected s1/1, got %s/%d", got.Frame.SessionID, got.Frame.Seq)
	}
	if got.EnqueuedAt.IsZero() {
		t.Error("expected enqueue time to be stamped")
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, item("s1", 1)) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, item("s1", 2)) {
		t.Error("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, item("s1", 3)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()

	for i := uint64(1); i <= 50; i++ {
		if !q.Enqueue(ctx, item("s1", i)) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	_ = q.Close()

	want := uint64(1)
	for it := range q.Dequeue(ctx) {
		if it.Frame.Seq != want {
			t.Fatalf("expected seq %d, got %d", want, it.Frame.Seq)
		}
		want++
	}
	if want != 51 {
		t.Errorf("expected 50 items, got %d", want-1)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, item("s1", 1)) {
		t.Error("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, item("s1", 2)) {
		t.Error("expected enqueue to fail after closing")
	}

	ch := q.Dequeue(ctx)
	drained := 0
	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if drained != 1 {
					t.Errorf("expected to drain 1 item, got %d", drained)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			drained++
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}

func TestPartitioned_RoutesSessionToOnePartition(t *testing.T) {
	p := NewPartitioned(4, WithCapacity(100))
	ctx := context.Background()

	for s := 0; s < 20; s++ {
		id := fmt.Sprintf("session-%d", s)
		want := p.PartitionFor(id)
		if want < 0 || want >= 4 {
			t.Fatalf("partition %d out of range", want)
		}
		if got := p.PartitionFor(id); got != want {
			t.Fatalf("routing not stable for %s: %d vs %d", id, got, want)
		}
		if err := p.Enqueue(ctx, model.Frame{SessionID: id, Seq: 1}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		if p.Partition(want).Len(ctx) == 0 {
			t.Fatalf("frame for %s not on partition %d", id, want)
		}
	}
	if l := p.Len(ctx); l != 20 {
		t.Errorf("expected 20 queued frames, got %d", l)
	}
	if c := p.Capacity(); c != 400 {
		t.Errorf("expected capacity 400, got %d", c)
	}
}

func TestPartitioned_Backpressure(t *testing.T) {
	p := NewPartitioned(1, WithCapacity(2))
	ctx := context.Background()

	for i := uint64(1); i <= 2; i++ {
		if err := p.Enqueue(ctx, model.Frame{SessionID: "s", Seq: i}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := p.Enqueue(ctx, model.Frame{SessionID: "s", Seq: 3}); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}

	_ = p.Close()
	if err := p.Enqueue(ctx, model.Frame{SessionID: "s", Seq: 4}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
