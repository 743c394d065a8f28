package perclos

import (
	"context"
	"math"
	"sort"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/window"
	"github.com/okian/vigil/pkg/logger"
)

// Default detector configuration constants.
const (
	defaultBlinkMaxDuration    = 0.4
	defaultMicrosleepDuration  = 0.8
	defaultDrowsyDuration      = 2.0
	defaultWindow              = 60.0
	defaultPERCLOSThreshold    = 0.20
	defaultCalibrationDuration = 15.0
	defaultInitialThreshold    = 0.19

	maxHistory      = 1800 // 60s at 30fps
	maxEvents       = 100
	minPERCLOSCount = 30

	calibrationOpenEAR    = 0.20
	calibrationMinSamples = 30
	calibrationMinMean    = 0.15
	calibrationMaxMean    = 0.40
	calibrationMaxStd     = 0.08
	calibrationRatio      = 0.80
	calibrationFallback   = 0.22
	minThreshold          = 0.15
	maxThreshold          = 0.30

	noiseSpan     = 3
	noiseMinDelta = 0.05
	noiseRelDelta = 0.35

	perclosAlarm    = 0.25
	perclosCritical = 0.35
	recentSpan      = 60.0
)

// Detector is the eye closure state machine for one session. It is driven
// by a single goroutine and never blocks.
type Detector struct {
	blinkMax   float64
	microsleep float64 // configurable, but not a classification boundary
	drowsy     float64
	span       float64
	perclosMax float64

	calibrating bool
	calDuration float64
	calStart    float64
	calStarted  bool
	calSamples  []float64
	threshold   float64

	history *window.Timed[float64]
	state   EyeState
	prev    EyeState
	current *ClosureEvent
	events  *window.Ring[ClosureEvent]

	blinks      int
	microsleeps int
	drowsyCount int
	perclos     float64
	now         float64

	logger logger.Logger
}

// New creates a detector that self-calibrates its EAR threshold during the
// first 15 seconds of frames unless WithFixedThreshold is given.
func New(opts ...Option) *Detector {
	d := &Detector{
		blinkMax:    defaultBlinkMaxDuration,
		microsleep:  defaultMicrosleepDuration,
		drowsy:      defaultDrowsyDuration,
		span:        defaultWindow,
		perclosMax:  defaultPERCLOSThreshold,
		calibrating: true,
		calDuration: defaultCalibrationDuration,
		threshold:   defaultInitialThreshold,
		events:      window.NewRing[ClosureEvent](maxEvents),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.history = window.NewTimed[float64](d.span, maxHistory)
	return d
}

// Update feeds one EAR sample and returns the resulting state and PERCLOS.
// ear must already be finite.
func (d *Detector) Update(ear, t float64) (EyeState, float64) {
	d.now = t
	if d.calibrating {
		d.calibrate(ear, t)
	}

	ear = d.filter(ear)
	d.history.Push(t, ear)
	d.step(ear, t)
	d.updatePERCLOS()
	return d.state, d.perclos
}

func (d *Detector) calibrate(ear, t float64) {
	if !d.calStarted {
		d.calStart = t
		d.calStarted = true
	}
	if ear > calibrationOpenEAR {
		d.calSamples = append(d.calSamples, ear)
	}
	if t-d.calStart <= d.calDuration {
		return
	}

	d.calibrating = false
	samples := d.calSamples
	d.calSamples = nil

	if len(samples) < calibrationMinSamples {
		d.threshold = calibrationFallback
		d.warn("not enough calibration data; using default EAR threshold",
			logger.Int("samples", len(samples)),
			logger.Float64("threshold", d.threshold))
		return
	}

	sort.Float64s(samples)
	top := samples[len(samples)/4:]
	mean, std := meanStd(top)
	if mean > calibrationMinMean && mean < calibrationMaxMean && std < calibrationMaxStd {
		d.threshold = clamp(mean*calibrationRatio, minThreshold, maxThreshold)
		return
	}
	d.threshold = calibrationFallback
	d.warn("unstable calibration data; using default EAR threshold",
		logger.Float64("mean", mean),
		logger.Float64("std", std),
		logger.Float64("threshold", d.threshold))
}

// filter clamps an outlier to the median of the last three accepted values.
func (d *Detector) filter(ear float64) float64 {
	if d.history.Len() < noiseSpan {
		return ear
	}
	last := d.history.Last(noiseSpan)
	vals := [noiseSpan]float64{last[0].V, last[1].V, last[2].V}
	sort.Float64s(vals[:])
	median := vals[1]
	if math.Abs(ear-median) > math.Max(noiseMinDelta, noiseRelDelta*median) {
		return median
	}
	return ear
}

func (d *Detector) step(ear, t float64) {
	d.prev = d.state

	if ear >= d.threshold {
		if d.state != Open {
			if d.current != nil && !d.current.Complete {
				d.current.close(t)
				d.archive(*d.current)
			}
			d.current = nil
			d.state = Open
		}
		return
	}

	switch d.state {
	case Open:
		d.state = Closing
		d.current = &ClosureEvent{Start: t, MinEAR: ear}
	case Closing, Blink, Microsleep, Drowsy:
		if d.current == nil {
			return
		}
		d.current.MinEAR = math.Min(d.current.MinEAR, ear)
		d.state = d.classify(t - d.current.Start)
	}
}

func (d *Detector) classify(duration float64) EyeState {
	switch {
	case duration < d.blinkMax:
		return Blink
	case duration < d.drowsy:
		return Microsleep
	default:
		return Drowsy
	}
}

func (d *Detector) archive(e ClosureEvent) {
	switch d.classify(e.Duration) {
	case Blink:
		d.blinks++
	case Microsleep:
		d.microsleeps++
		e.Drowsy = true
	case Drowsy:
		d.drowsyCount++
		e.Drowsy = true
	}
	d.events.Push(e)
}

func (d *Detector) updatePERCLOS() {
	n := d.history.Len()
	if n < minPERCLOSCount {
		d.perclos = 0
		return
	}
	closed := 0
	for _, s := range d.history.Samples() {
		if s.V < d.threshold {
			closed++
		}
	}
	d.perclos = float64(closed) / float64(n)
}

// AlertLevel grades the current closure state, most severe first.
func (d *Detector) AlertLevel() model.AlertLevel {
	switch d.state {
	case Drowsy:
		return model.AlertCritical
	case Microsleep:
		return model.AlertAlarm
	case Open, Closing, Blink:
	}
	if d.perclos > d.perclosMax {
		switch {
		case d.perclos > perclosCritical:
			return model.AlertCritical
		case d.perclos > perclosAlarm:
			return model.AlertAlarm
		default:
			return model.AlertWarning
		}
	}
	return model.AlertNone
}

// State returns the current eye state.
func (d *Detector) State() EyeState { return d.state }

// PreviousState returns the state before the last update.
func (d *Detector) PreviousState() EyeState { return d.prev }

// PERCLOS returns the last computed closed-frame fraction in [0, 1].
func (d *Detector) PERCLOS() float64 { return d.perclos }

// Threshold returns the EAR threshold in use.
func (d *Detector) Threshold() float64 { return d.threshold }

// Calibrated reports whether the threshold has been frozen.
func (d *Detector) Calibrated() bool { return !d.calibrating }

// IsDrowsy reports a sustained closure or an elevated PERCLOS.
func (d *Detector) IsDrowsy() bool {
	return d.state == Microsleep || d.state == Drowsy || d.perclos > d.perclosMax
}

// IsJustBlinking reports an ordinary blink with a normal PERCLOS.
func (d *Detector) IsJustBlinking() bool {
	return d.state == Blink && d.perclos < d.perclosMax
}

// CurrentClosure returns the elapsed duration of an ongoing closure.
func (d *Detector) CurrentClosure() float64 {
	if d.current == nil {
		return 0
	}
	return d.now - d.current.Start
}

// Events returns the archived closures, oldest first.
func (d *Detector) Events() []ClosureEvent { return d.events.Values() }

// Stats is a snapshot of the detector counters.
type Stats struct {
	State             string  `json:"state"`
	PERCLOS           float64 `json:"perclos"`
	Threshold         float64 `json:"ear_threshold"`
	Calibrated        bool    `json:"calibrated"`
	TotalBlinks       int     `json:"total_blinks"`
	TotalMicrosleeps  int     `json:"total_microsleeps"`
	TotalDrowsy       int     `json:"total_drowsy"`
	BlinksRecent      int     `json:"blinks_last_60s"`
	MicrosleepsRecent int     `json:"microsleeps_last_60s"`
	DrowsyRecent      int     `json:"drowsy_last_60s"`
	CurrentClosure    float64 `json:"current_closure"`
	AlertLevel        string  `json:"alert_level"`
}

// Stats summarizes the detector relative to the last update time.
func (d *Detector) Stats() Stats {
	s := Stats{
		State:            d.state.String(),
		PERCLOS:          d.perclos,
		Threshold:        d.threshold,
		Calibrated:       !d.calibrating,
		TotalBlinks:      d.blinks,
		TotalMicrosleeps: d.microsleeps,
		TotalDrowsy:      d.drowsyCount,
		CurrentClosure:   d.CurrentClosure(),
		AlertLevel:       d.AlertLevel().String(),
	}
	cutoff := d.now - recentSpan
	d.events.Each(func(e ClosureEvent) {
		if e.Start < cutoff {
			return
		}
		switch {
		case !e.Drowsy:
			s.BlinksRecent++
		case e.Duration < d.drowsy:
			s.MicrosleepsRecent++
		default:
			s.DrowsyRecent++
		}
	})
	return s
}

// Reset clears histories, events and counters. Calibration is left alone:
// it runs once per detector, and an unfinished one keeps its start time
// and samples.
func (d *Detector) Reset() {
	d.history.Clear()
	d.events.Reset()
	d.state, d.prev = Open, Open
	d.current = nil
	d.blinks, d.microsleeps, d.drowsyCount = 0, 0, 0
	d.perclos = 0
}

func (d *Detector) warn(msg string, fields ...logger.Field) {
	if d.logger == nil {
		return
	}
	d.logger.Warn(context.Background(), msg, fields...)
}

func meanStd(v []float64) (mean, std float64) {
	for _, x := range v {
		mean += x
	}
	mean /= float64(len(v))
	for _, x := range v {
		std += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(std / float64(len(v)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
