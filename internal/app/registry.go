package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/vigil/internal/domain/monitor"
)

// liveSession is the in-memory state of one running session.
type liveSession struct {
	id      string
	monitor *monitor.Monitor

	// lastSeen is the unix-nano time of the last accepted frame.
	lastSeen atomic.Int64

	// inAlarm is written only by the partition worker owning the session.
	inAlarm atomic.Bool

	// flushMu guards the persisted counter watermark and the ended flag.
	flushMu       sync.Mutex
	flushedFrames uint64
	flushedAlerts uint64
	ended         bool
}

func (ls *liveSession) touch(now time.Time) { ls.lastSeen.Store(now.UnixNano()) }

func (ls *liveSession) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, ls.lastSeen.Load()))
}

// registry indexes live sessions by id.
type registry struct {
	mu       sync.RWMutex
	sessions map[string]*liveSession
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*liveSession)}
}

func (r *registry) add(ls *liveSession) {
	r.mu.Lock()
	r.sessions[ls.id] = ls
	r.mu.Unlock()
}

func (r *registry) get(id string) (*liveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ls, ok := r.sessions[id]
	return ls, ok
}

func (r *registry) has(id string) bool {
	_, ok := r.get(id)
	return ok
}

// remove deletes id and returns the entry that was registered, if any.
func (r *registry) remove(id string) (*liveSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return ls, ok
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *registry) ids() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}

func (r *registry) all() []*liveSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*liveSession, 0, len(r.sessions))
	for _, ls := range r.sessions {
		out = append(out, ls)
	}
	return out
}
