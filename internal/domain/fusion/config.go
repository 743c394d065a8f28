package fusion

import (
	"fmt"
	"math"
)

// Config is the fusion engine configuration. Weights are integer score
// increments; thresholds are in the units of the signal they gate.
type Config struct {
	EARThreshold        float64
	MARThreshold        float64
	HeadPitchThreshold  float64 // degrees below level that count as head down
	HeadYawThreshold    float64 // degrees either side that count as looking away
	DistractionDuration float64 // seconds a bad pose must last

	DecayPerFrame int
	EyeWeight     int
	YawnWeight    int
	NodWeight     int
	HeadWeight    int
	GazeWeight    int

	SunglassesWindow    float64 // seconds of EAR history
	SunglassesThreshold float64 // EAR at or below which a sample counts as dark

	AlarmOn  int // score above which the alarm engages
	AlarmOff int // score below which an engaged alarm clears
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		EARThreshold:        0.22,
		MARThreshold:        0.70,
		HeadPitchThreshold:  35,
		HeadYawThreshold:    40,
		DistractionDuration: 2.0,
		DecayPerFrame:       1,
		EyeWeight:           1,
		YawnWeight:          3,
		NodWeight:           2,
		HeadWeight:          2,
		GazeWeight:          2,
		SunglassesWindow:    3.0,
		SunglassesThreshold: 0.20,
		AlarmOn:             30,
		AlarmOff:            15,
	}
}

// Validate checks ranges once so the per-frame path never has to.
func (c Config) Validate() error {
	switch {
	case !inRange(c.EARThreshold, 0, 1):
		return fmt.Errorf("%w: ear_threshold %v not in (0,1)", ErrInvalidConfig, c.EARThreshold)
	case !inRange(c.MARThreshold, 0, 5):
		return fmt.Errorf("%w: mar_threshold %v not in (0,5)", ErrInvalidConfig, c.MARThreshold)
	case !inRange(c.HeadPitchThreshold, 0, 90):
		return fmt.Errorf("%w: head_pitch_threshold %v not in (0,90)", ErrInvalidConfig, c.HeadPitchThreshold)
	case !inRange(c.HeadYawThreshold, 0, 90):
		return fmt.Errorf("%w: head_yaw_threshold %v not in (0,90)", ErrInvalidConfig, c.HeadYawThreshold)
	case !(c.DistractionDuration > 0):
		return fmt.Errorf("%w: distraction_duration must be positive", ErrInvalidConfig)
	case !(c.SunglassesWindow > 0):
		return fmt.Errorf("%w: sunglasses_window must be positive", ErrInvalidConfig)
	case !inRange(c.SunglassesThreshold, 0, 1):
		return fmt.Errorf("%w: sunglasses_threshold %v not in (0,1)", ErrInvalidConfig, c.SunglassesThreshold)
	case c.AlarmOff < 0 || c.AlarmOn < c.AlarmOff:
		return fmt.Errorf("%w: alarm thresholds on=%d off=%d", ErrInvalidConfig, c.AlarmOn, c.AlarmOff)
	}
	for name, w := range map[string]int{
		"decay_per_frame": c.DecayPerFrame,
		"eye_weight":      c.EyeWeight,
		"yawn_weight":     c.YawnWeight,
		"nod_weight":      c.NodWeight,
		"head_weight":     c.HeadWeight,
		"gaze_weight":     c.GazeWeight,
	} {
		if w < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, name)
		}
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v > lo && v < hi
}
