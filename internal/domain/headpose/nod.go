package headpose

import "github.com/okian/vigil/internal/domain/window"

// Default nod detector configuration constants.
const (
	defaultNodDepth    = 6.0
	defaultNodWindow   = 2.0
	defaultNodCooldown = 1.0
	minNodSamples      = 3
)

// NodDetector recognises a nod as a pitch minimum with a recovery of at
// least the nod depth on both sides within a short window.
type NodDetector struct {
	depth    float64
	span     float64
	cooldown float64

	history *window.Timed[float64]
	lastNod float64
	nodded  bool
	count   int
}

// NewNodDetector creates a detector with a 6° depth, 2s window and 1s cooldown.
func NewNodDetector(opts ...NodOption) *NodDetector {
	n := &NodDetector{
		depth:    defaultNodDepth,
		span:     defaultNodWindow,
		cooldown: defaultNodCooldown,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.history = window.NewTimed[float64](n.span, 0)
	return n
}

// Update records a pitch sample and reports whether it completes a nod.
func (n *NodDetector) Update(pitch, ts float64) bool {
	n.history.Push(ts, pitch)

	if n.nodded && ts-n.lastNod < n.cooldown {
		return false
	}
	samples := n.history.Samples()
	if len(samples) < minNodSamples {
		return false
	}

	lowest := samples[0]
	for _, s := range samples[1:] {
		if s.V < lowest.V {
			lowest = s
		}
	}

	var before, after []float64
	for _, s := range samples {
		switch {
		case s.T < lowest.T:
			before = append(before, s.V)
		case s.T > lowest.T:
			after = append(after, s.V)
		}
	}
	if len(before) == 0 || len(after) == 0 {
		return false
	}
	if maxOf(before)-lowest.V < n.depth || maxOf(after)-lowest.V < n.depth {
		return false
	}

	n.lastNod = ts
	n.nodded = true
	n.count++
	n.history.Clear()
	return true
}

// Count returns the number of nods detected since the last reset.
func (n *NodDetector) Count() int { return n.count }

// Reset clears the pitch window and cooldown.
func (n *NodDetector) Reset() {
	n.history.Clear()
	n.lastNod = 0
	n.nodded = false
	n.count = 0
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
