package gaze

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithDistractionThreshold sets how long the gaze must stay off road.
func WithDistractionThreshold(seconds float64) Option {
	return func(t *Tracker) {
		if seconds > 0 {
			t.threshold = seconds
		}
	}
}

// WithHorizontalThreshold sets the |x| ratio beyond which the gaze is LEFT or RIGHT.
func WithHorizontalThreshold(v float64) Option {
	return func(t *Tracker) {
		if v > 0 && v < 1 {
			t.horizontal = v
		}
	}
}

// WithVerticalThreshold sets the |y| ratio beyond which the gaze is UP or DOWN.
func WithVerticalThreshold(v float64) Option {
	return func(t *Tracker) {
		if v > 0 && v < 1 {
			t.vertical = v
		}
	}
}

// WithSmoothing sets how many frames are averaged.
func WithSmoothing(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.smoothing = n
		}
	}
}
