package headpose

// TrackerOption applies a configuration option to the Tracker.
type TrackerOption func(*Tracker)

// WithPitchLimit sets the head-down angle in degrees (as a positive value).
func WithPitchLimit(deg float64) TrackerOption {
	return func(t *Tracker) {
		if deg > 0 {
			t.pitchLimit = deg
		}
	}
}

// WithYawLimit sets the safe yaw half-angle in degrees.
func WithYawLimit(deg float64) TrackerOption {
	return func(t *Tracker) {
		if deg > 0 {
			t.yawLimit = deg
		}
	}
}

// WithSunglassesPitchLimit sets the tighter head-down angle used while
// sunglasses are worn.
func WithSunglassesPitchLimit(deg float64) TrackerOption {
	return func(t *Tracker) {
		if deg > 0 {
			t.sunglassesPitchLimit = deg
		}
	}
}

// WithDistractionThreshold sets how long a bad pose must last, in seconds.
func WithDistractionThreshold(seconds float64) TrackerOption {
	return func(t *Tracker) {
		if seconds > 0 {
			t.threshold = seconds
		}
	}
}

// NodOption applies a configuration option to the NodDetector.
type NodOption func(*NodDetector)

// WithNodDepth sets the minimum pitch recovery on each side of a nod.
func WithNodDepth(deg float64) NodOption {
	return func(n *NodDetector) {
		if deg > 0 {
			n.depth = deg
		}
	}
}

// WithNodWindow sets the pitch history length in seconds.
func WithNodWindow(seconds float64) NodOption {
	return func(n *NodDetector) {
		if seconds > 0 {
			n.span = seconds
		}
	}
}

// WithNodCooldown sets the quiet period after a detected nod.
func WithNodCooldown(seconds float64) NodOption {
	return func(n *NodDetector) {
		if seconds >= 0 {
			n.cooldown = seconds
		}
	}
}
