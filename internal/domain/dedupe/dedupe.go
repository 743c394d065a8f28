// Package dedupe tracks frame identities so a resubmitted frame is
// processed at most once.
package dedupe

import (
	"context"
	"strconv"
	"sync"
)

const defaultMaxSize = 50000

// Deduper records seen frame keys to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so the frame can be retried. Used when a recorded
	// frame could not be enqueued.
	Unrecord(ctx context.Context, key string)

	// Forget drops every key recorded for a session.
	Forget(ctx context.Context, sessionID string)

	Size() int64
}

// Key builds the idempotency key of a frame.
func Key(sessionID string, seq uint64) string {
	return sessionID + ":" + strconv.FormatUint(seq, 10)
}

type entry struct {
	key     string
	session string
	gen     uint64
}

type record struct {
	session string
	gen     uint64
}

// inMemoryDeduper keeps up to maxSize keys and evicts the oldest first.
// Unrecorded keys leave a stale queue entry behind that is skipped on
// eviction by comparing generations.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]record
	queue   []entry
	head    int
	gen     uint64
	maxSize int
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]record)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	for d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.gen++
	session := sessionOf(key)
	d.seen[key] = record{session: session, gen: d.gen}
	d.queue = append(d.queue, entry{key: key, session: session, gen: d.gen})
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
}

func (d *inMemoryDeduper) Forget(_ context.Context, sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, r := range d.seen {
		if r.session == sessionID {
			delete(d.seen, k)
		}
	}
}

// evictOldest pops queue entries until a live one is removed.
// Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	for d.head < len(d.queue) {
		e := d.queue[d.head]
		d.queue[d.head] = entry{}
		d.head++
		if r, ok := d.seen[e.key]; ok && r.gen == e.gen {
			delete(d.seen, e.key)
			break
		}
	}
	if d.head > len(d.queue)/2 {
		d.queue = append(d.queue[:0], d.queue[d.head:]...)
		d.head = 0
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

func sessionOf(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}
