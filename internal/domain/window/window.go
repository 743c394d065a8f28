// Package window provides the bounded histories shared by the detectors:
// a timestamped sliding window and a fixed-size ring.
package window

// Sample is a value observed at a point in time (seconds).
type Sample[T any] struct {
	T float64
	V T
}

// Timed keeps samples no older than span seconds relative to the newest
// push, optionally capped at max entries. Callers push non-decreasing
// timestamps.
type Timed[T any] struct {
	buf  []Sample[T]
	span float64
	max  int
}

// NewTimed creates a window covering span seconds. max <= 0 means no cap.
func NewTimed[T any](span float64, max int) *Timed[T] {
	return &Timed[T]{span: span, max: max}
}

// Push appends a sample and evicts everything older than t-span.
func (w *Timed[T]) Push(t float64, v T) {
	w.buf = append(w.buf, Sample[T]{T: t, V: v})
	if w.max > 0 && len(w.buf) > w.max {
		w.drop(len(w.buf) - w.max)
	}
	if w.span > 0 {
		w.PurgeBefore(t - w.span)
	}
}

// PurgeBefore drops samples with a timestamp strictly below cutoff.
func (w *Timed[T]) PurgeBefore(cutoff float64) {
	n := 0
	for n < len(w.buf) && w.buf[n].T < cutoff {
		n++
	}
	w.drop(n)
}

func (w *Timed[T]) drop(n int) {
	if n <= 0 {
		return
	}
	var zero Sample[T]
	for i := 0; i < n; i++ {
		w.buf[i] = zero
	}
	w.buf = append(w.buf[:0], w.buf[n:]...)
}

// Len returns the number of buffered samples.
func (w *Timed[T]) Len() int { return len(w.buf) }

// Samples returns the buffered samples, oldest first. The slice is only
// valid until the next mutation.
func (w *Timed[T]) Samples() []Sample[T] { return w.buf }

// Last returns up to n of the newest samples, oldest first.
func (w *Timed[T]) Last(n int) []Sample[T] {
	if n >= len(w.buf) {
		return w.buf
	}
	return w.buf[len(w.buf)-n:]
}

// Clear removes every sample.
func (w *Timed[T]) Clear() {
	w.drop(len(w.buf))
}

// Ring is a fixed-capacity FIFO that overwrites its oldest entry once full.
type Ring[T any] struct {
	buf  []T
	head int
	size int
}

// NewRing creates a ring holding at most capacity entries (minimum 1).
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest entry when full.
func (r *Ring[T]) Push(v T) {
	idx := (r.head + r.size) % len(r.buf)
	if r.size == len(r.buf) {
		r.buf[r.head] = v
		r.head = (r.head + 1) % len(r.buf)
		return
	}
	r.buf[idx] = v
	r.size++
}

// Len returns the number of entries held.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Each visits entries oldest first.
func (r *Ring[T]) Each(fn func(T)) {
	for i := 0; i < r.size; i++ {
		fn(r.buf[(r.head+i)%len(r.buf)])
	}
}

// Values copies the entries oldest first.
func (r *Ring[T]) Values() []T {
	out := make([]T, 0, r.size)
	r.Each(func(v T) { out = append(out, v) })
	return out
}

// Reset empties the ring.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head, r.size = 0, 0
}

// Mean averages a float ring. An empty ring yields 0.
func Mean(r *Ring[float64]) float64 {
	if r.size == 0 {
		return 0
	}
	var sum float64
	r.Each(func(v float64) { sum += v })
	return sum / float64(r.size)
}
