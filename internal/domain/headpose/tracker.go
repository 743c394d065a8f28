// Package headpose confirms head-pose distraction over time and detects
// nodding from the pitch trace.
package headpose

import "math"

// Default tracker configuration constants.
const (
	defaultPitchLimit           = 35.0
	defaultYawLimit             = 40.0
	defaultSunglassesPitchLimit = 15.0
	defaultDistractionThreshold = 2.0
)

// Tracker confirms a bad head pose once it persists beyond the distraction
// threshold. Returning to a good pose clears it immediately.
type Tracker struct {
	pitchLimit           float64
	yawLimit             float64
	sunglassesPitchLimit float64
	threshold            float64

	tracking   bool
	start      float64
	distracted bool
	duration   float64
	headDown   bool
	lookAway   bool
}

// NewTracker creates a Tracker with a 35° pitch and 40° yaw limit.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		pitchLimit:           defaultPitchLimit,
		yawLimit:             defaultYawLimit,
		sunglassesPitchLimit: defaultSunglassesPitchLimit,
		threshold:            defaultDistractionThreshold,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// PitchThreshold returns the pitch below which the head counts as down.
// Sunglasses tighten it since the eye signal is unreliable.
func (t *Tracker) PitchThreshold(sunglasses bool) float64 {
	if sunglasses {
		return -t.sunglassesPitchLimit
	}
	return -t.pitchLimit
}

// Update evaluates one pose sample and returns whether distraction is
// confirmed and for how long the pose has been bad.
func (t *Tracker) Update(pitch, yaw, ts float64, sunglasses bool) (bool, float64) {
	t.headDown = pitch < t.PitchThreshold(sunglasses)
	t.lookAway = math.Abs(yaw) > t.yawLimit

	if !t.headDown && !t.lookAway {
		t.tracking = false
		t.distracted = false
		t.duration = 0
		return false, 0
	}
	if !t.tracking {
		t.tracking = true
		t.start = ts
	}
	t.duration = ts - t.start
	t.distracted = t.duration > t.threshold
	return t.distracted, t.duration
}

// Distracted reports the last confirmation result.
func (t *Tracker) Distracted() bool { return t.distracted }

// Duration returns how long the current bad pose has lasted.
func (t *Tracker) Duration() float64 { return t.duration }

// HeadDown reports whether the last sample had the head pitched down.
func (t *Tracker) HeadDown() bool { return t.headDown }

// LookingAway reports whether the last sample exceeded the yaw limit.
func (t *Tracker) LookingAway() bool { return t.lookAway }

// Reset forgets any bad-pose timer.
func (t *Tracker) Reset() {
	t.tracking = false
	t.start = 0
	t.distracted = false
	t.duration = 0
	t.headDown = false
	t.lookAway = false
}
