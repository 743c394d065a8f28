package perclos

import (
	"math"

	"github.com/okian/vigil/pkg/logger"
)

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithBlinkMaxDuration sets the longest closure still counted as a blink.
func WithBlinkMaxDuration(seconds float64) Option {
	return func(d *Detector) {
		if seconds > 0 {
			d.blinkMax = seconds
		}
	}
}

// WithMicrosleepDuration records the microsleep duration. Closures between
// the blink and drowsy cutoffs are always microsleeps regardless of it.
func WithMicrosleepDuration(seconds float64) Option {
	return func(d *Detector) {
		if seconds > 0 {
			d.microsleep = seconds
		}
	}
}

// WithDrowsyDuration sets the closure duration that counts as drowsy.
func WithDrowsyDuration(seconds float64) Option {
	return func(d *Detector) {
		if seconds > 0 {
			d.drowsy = seconds
		}
	}
}

// WithWindow sets the PERCLOS sliding window in seconds.
func WithWindow(seconds float64) Option {
	return func(d *Detector) {
		if seconds > 0 {
			d.span = seconds
		}
	}
}

// WithPERCLOSThreshold sets the PERCLOS fraction above which alerts start.
func WithPERCLOSThreshold(fraction float64) Option {
	return func(d *Detector) {
		if fraction > 0 && fraction < 1 {
			d.perclosMax = fraction
		}
	}
}

// WithCalibrationDuration sets how long EAR samples are collected before
// the threshold is frozen.
func WithCalibrationDuration(seconds float64) Option {
	return func(d *Detector) {
		if seconds > 0 {
			d.calDuration = seconds
		}
	}
}

// WithFixedThreshold disables calibration and uses 80% of the given
// open-eye EAR, never below 0.15.
func WithFixedThreshold(ear float64) Option {
	return func(d *Detector) {
		if ear > 0 {
			d.threshold = math.Max(minThreshold, ear*calibrationRatio)
			d.calibrating = false
		}
	}
}

// WithLogger sets the logger used for calibration warnings.
func WithLogger(l logger.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}
