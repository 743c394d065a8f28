// Package fusion combines the eye, mouth, head and gaze signals of one
// session into a single drowsiness score and an alarm decision.
package fusion

import (
	"math"

	"github.com/okian/vigil/internal/domain/headpose"
	"github.com/okian/vigil/internal/domain/model"
)

// sunglassesConfirmPitch is the head pitch below which a low EAR is trusted
// at full weight even with sunglasses on.
const sunglassesConfirmPitch = -10.0

// Input is the per-frame signal record consumed by the engine.
type Input struct {
	Timestamp      float64
	EAR            float64
	MAR            float64
	Pitch          float64
	Yaw            float64
	Yawning        bool
	Smiling        bool
	GazeDistracted bool
	GazeDuration   float64
}

// Result is the per-frame engine output.
type Result struct {
	Score               int
	Sunglasses          bool
	Nod                 bool
	Distracted          bool
	DistractionDuration float64
	HeadDown            bool
	GazeDistracted      bool
	GazeDuration        float64
	Action              model.Action
	InAlarm             bool
}

// Engine is the fusion state machine for one session. Not safe for
// concurrent use.
type Engine struct {
	cfg        Config
	score      int
	sunglasses *Sunglasses
	nod        *headpose.NodDetector
	head       *headpose.Tracker
	trigger    *Trigger
}

// New validates cfg and creates an engine with a zero score.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:        cfg,
		sunglasses: NewSunglasses(cfg.SunglassesWindow, cfg.SunglassesThreshold),
		nod:        headpose.NewNodDetector(),
		head: headpose.NewTracker(
			headpose.WithPitchLimit(cfg.HeadPitchThreshold),
			headpose.WithYawLimit(cfg.HeadYawThreshold),
			headpose.WithDistractionThreshold(cfg.DistractionDuration),
		),
		trigger: NewTrigger(cfg.AlarmOn, cfg.AlarmOff),
	}, nil
}

// Update advances the engine by one frame.
func (e *Engine) Update(in Input) Result {
	ear := finite(in.EAR)
	pitch := finite(in.Pitch)
	yaw := finite(in.Yaw)

	sunglasses := e.sunglasses.Update(ear, in.Timestamp)
	nod := e.nod.Update(pitch, in.Timestamp)
	distracted, distractedFor := e.head.Update(pitch, yaw, in.Timestamp, sunglasses)

	eye := e.eyeContribution(ear, pitch, sunglasses)
	if in.Smiling {
		eye = 0
	}

	e.score += eye
	if in.Yawning {
		e.score += e.cfg.YawnWeight
	}
	if nod {
		e.score += e.cfg.NodWeight
	}
	if distracted {
		if sunglasses {
			e.score += 2 * e.cfg.HeadWeight
		} else {
			e.score += e.cfg.HeadWeight
		}
	}
	if in.GazeDistracted {
		e.score += e.cfg.GazeWeight
	}

	quiet := eye == 0 && !in.Yawning && !nod && !distracted && !in.GazeDistracted
	if quiet || in.Smiling {
		decay := e.cfg.DecayPerFrame
		if in.Smiling {
			decay *= 3
		}
		e.score = max(0, e.score-decay)
	}

	action := e.trigger.Evaluate(e.score)
	return Result{
		Score:               e.score,
		Sunglasses:          sunglasses,
		Nod:                 nod,
		Distracted:          distracted,
		DistractionDuration: distractedFor,
		HeadDown:            e.head.HeadDown(),
		GazeDistracted:      in.GazeDistracted,
		GazeDuration:        in.GazeDuration,
		Action:              action,
		InAlarm:             e.trigger.Active(),
	}
}

// Idle advances the engine by a frame that carried no face. Nothing is
// added, the score decays and the alarm is re-evaluated.
func (e *Engine) Idle() Result {
	e.score = max(0, e.score-e.cfg.DecayPerFrame)
	action := e.trigger.Evaluate(e.score)
	return Result{
		Score:      e.score,
		Sunglasses: e.sunglasses.Active(),
		Action:     action,
		InAlarm:    e.trigger.Active(),
	}
}

// eyeContribution weighs a low EAR. With sunglasses the eye signal is
// distrusted unless the head is also pitched down; the half weight is
// truncated to an integer.
func (e *Engine) eyeContribution(ear, pitch float64, sunglasses bool) int {
	if ear <= 0 || ear >= e.cfg.EARThreshold {
		return 0
	}
	if !sunglasses || pitch < sunglassesConfirmPitch {
		return e.cfg.EyeWeight
	}
	return int(float64(e.cfg.EyeWeight) * 0.5)
}

// SetManualSunglasses sets or clears the sunglasses override.
func (e *Engine) SetManualSunglasses(on bool) { e.sunglasses.SetManual(on) }

// ManualSunglasses reports the sunglasses override.
func (e *Engine) ManualSunglasses() bool { return e.sunglasses.Manual() }

// Score returns the current score.
func (e *Engine) Score() int { return e.score }

// InAlarm reports whether the alarm is engaged.
func (e *Engine) InAlarm() bool { return e.trigger.Active() }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Reset zeroes the score, disengages the alarm and clears every history.
// The manual sunglasses override is kept.
func (e *Engine) Reset() {
	e.score = 0
	e.trigger.Reset()
	e.sunglasses.Reset()
	e.nod.Reset()
	e.head.Reset()
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
