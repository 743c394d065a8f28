package fusion

import "github.com/okian/vigil/internal/domain/window"

const (
	sunglassesMinSamples = 60
	sunglassesEnter      = 0.70
	sunglassesStay       = 0.40
)

// Sunglasses flags sunglasses from the share of recent EAR samples that
// look closed. A manual override always wins.
type Sunglasses struct {
	history   *window.Timed[float64]
	threshold float64
	auto      bool
	manual    bool
	fraction  float64
}

// NewSunglasses creates a heuristic over span seconds of EAR history.
func NewSunglasses(span, threshold float64) *Sunglasses {
	return &Sunglasses{
		history:   window.NewTimed[float64](span, 0),
		threshold: threshold,
	}
}

// Update records an EAR sample and returns the effective flag.
func (s *Sunglasses) Update(ear, t float64) bool {
	s.history.Push(t, ear)
	if s.manual {
		return true
	}
	samples := s.history.Samples()
	if len(samples) < sunglassesMinSamples {
		return s.auto
	}
	dark := 0
	for _, v := range samples {
		if v.V <= s.threshold {
			dark++
		}
	}
	s.fraction = float64(dark) / float64(len(samples))
	if s.auto {
		s.auto = s.fraction >= sunglassesStay
	} else {
		s.auto = s.fraction >= sunglassesEnter
	}
	return s.auto
}

// SetManual sets or clears the user override.
func (s *Sunglasses) SetManual(on bool) { s.manual = on }

// Manual reports the user override.
func (s *Sunglasses) Manual() bool { return s.manual }

// Active reports the effective flag.
func (s *Sunglasses) Active() bool { return s.manual || s.auto }

// Fraction returns the last computed dark-sample share.
func (s *Sunglasses) Fraction() float64 { return s.fraction }

// Reset drops the EAR history and the automatic flag. The manual override
// is a user setting and survives.
func (s *Sunglasses) Reset() {
	s.history.Clear()
	s.auto = false
	s.fraction = 0
}
