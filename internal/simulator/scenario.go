package simulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/okian/vigil/internal/domain/model"
)

// Scenario generation constants.
const (
	warmup = 1.0 // seconds of attentive driving before the scenario's signal

	openEAR    = 0.30
	closedEAR  = 0.10
	tintedEAR  = 0.12
	squintEAR  = 0.22
	restMAR    = 0.10
	restRatio  = 4.0
	yawnMAR    = 0.80
	yawnRatio  = 1.2
	smileMAR   = 0.30
	smileRatio = 3.0
	lapGazeY   = 0.6

	yawnPeriod = 3.0 // seconds per yawn cycle
	yawnLength = 1.5 // seconds of each cycle spent yawning

	nodPeriod = 1.5  // seconds per nod
	nodDip    = 0.3  // seconds to reach the bottom of a nod
	nodDepth  = 15.0 // degrees

	earNoise   = 0.01
	poseNoise  = 1.0
	minNods    = 2
)

// Errors reported by scenario verification.
var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrExpectation     = errors.New("expectation not met")
)

// Scenario is a named synthetic driving pattern and its expected outcome.
type Scenario struct {
	Name        string
	Description string

	// Sunglasses turns on the manual override before any frame is sent.
	Sunglasses bool

	frame  func(t float64, rng *rand.Rand) Frame
	verify func(o Observation) error
}

// Frames synthesizes the scenario's frame stream for sessionID.
func (s Scenario) Frames(sessionID string, fps int, d time.Duration, seed uint64) []Frame {
	rng := rand.New(rand.NewPCG(seed, uint64(len(s.Name)))) //nolint:gosec // reproducible noise, not security
	n := int(d.Seconds() * float64(fps))
	frames := make([]Frame, n)
	for i := range frames {
		t := float64(i) / float64(fps)
		f := s.frame(t, rng)
		f.SessionID = sessionID
		f.Seq = uint64(i + 1) //nolint:gosec // i is non-negative
		f.TS = t
		f.Face = true
		frames[i] = f
	}
	return frames
}

// Verify checks an observation against the scenario's expectation.
func (s Scenario) Verify(o Observation) error {
	if err := s.verify(o); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExpectation, s.Name, err)
	}
	return nil
}

func attentive(rng *rand.Rand) Frame {
	return Frame{
		EAR:        openEAR + noise(rng, earNoise),
		MAR:        restMAR,
		MouthRatio: restRatio,
		Pitch:      noise(rng, poseNoise),
		Yaw:        noise(rng, poseNoise),
	}
}

func noise(rng *rand.Rand, amp float64) float64 {
	return (rng.Float64()*2 - 1) * amp
}

var scenarios = map[string]Scenario{
	"alert": {
		Name:        "alert",
		Description: "attentive driver, eyes open and head forward",
		frame: func(_ float64, rng *rand.Rand) Frame {
			return attentive(rng)
		},
		verify: func(o Observation) error {
			if o.Summary.Total != 0 {
				return fmt.Errorf("expected no alerts, got %d", o.Summary.Total)
			}
			return expectQuiet(o)
		},
	},
	"drowsy": {
		Name:        "drowsy",
		Description: "eyes close after a second and stay closed",
		frame: func(t float64, rng *rand.Rand) Frame {
			f := attentive(rng)
			if t >= warmup {
				f.EAR = closedEAR + noise(rng, earNoise)
			}
			return f
		},
		verify: func(o Observation) error {
			if err := expectAlert(o, model.AlertTypeDrowsy); err != nil {
				return err
			}
			if !o.Live.Last.InAlarm {
				return errors.New("expected the alarm to be active at the end")
			}
			return nil
		},
	},
	"yawning": {
		Name:        "yawning",
		Description: "repeated wide yawns with open eyes",
		frame: func(t float64, rng *rand.Rand) Frame {
			f := attentive(rng)
			if t >= warmup && math.Mod(t-warmup, yawnPeriod) < yawnLength {
				f.MAR = yawnMAR
				f.MouthRatio = yawnRatio
			}
			return f
		},
		verify: func(o Observation) error {
			return expectAlert(o, model.AlertTypeYawn)
		},
	},
	"smiling": {
		Name:        "smiling",
		Description: "smile narrows the eyes without drowsiness",
		frame: func(_ float64, rng *rand.Rand) Frame {
			f := attentive(rng)
			f.EAR, f.LeftEAR, f.RightEAR = squintEAR, squintEAR, squintEAR
			f.MAR = smileMAR
			f.MouthRatio = smileRatio
			return f
		},
		verify: func(o Observation) error {
			if o.Summary.ByType[model.AlertTypeDrowsy.String()] != 0 {
				return errors.New("smile was reported as drowsiness")
			}
			if o.Live.Last.MouthState != "SMILING" {
				return fmt.Errorf("expected mouth state SMILING, got %s", o.Live.Last.MouthState)
			}
			return expectQuiet(o)
		},
	},
	"sunglasses": {
		Name:        "sunglasses",
		Description: "dark lenses read as low EAR with the override on",
		Sunglasses:  true,
		frame: func(_ float64, rng *rand.Rand) Frame {
			f := attentive(rng)
			f.EAR = tintedEAR + noise(rng, earNoise)
			return f
		},
		verify: func(o Observation) error {
			if !o.Live.Last.Sunglasses || !o.Live.ManualSunglasses {
				return errors.New("expected sunglasses to be in effect")
			}
			if o.Summary.Total != 0 {
				return fmt.Errorf("expected tinted lenses to raise no alert, got %d", o.Summary.Total)
			}
			return expectQuiet(o)
		},
	},
	"distracted": {
		Name:        "distracted",
		Description: "gaze drops to the lap and stays there",
		frame: func(t float64, rng *rand.Rand) Frame {
			f := attentive(rng)
			if t >= warmup {
				f.Gaze = &model.Gaze{X: noise(rng, 0.05), Y: lapGazeY}
			} else {
				f.Gaze = &model.Gaze{X: noise(rng, 0.05), Y: noise(rng, 0.05)}
			}
			return f
		},
		verify: func(o Observation) error {
			return expectAlert(o, model.AlertTypeDistracted)
		},
	},
	"nodding": {
		Name:        "nodding",
		Description: "head bobs down and up in short nods",
		frame: func(t float64, rng *rand.Rand) Frame {
			f := attentive(rng)
			if t >= warmup {
				f.Pitch = nodPitch(math.Mod(t-warmup, nodPeriod))
			}
			return f
		},
		verify: func(o Observation) error {
			nods := 0
			for _, d := range o.Decisions {
				if d.Nod {
					nods++
				}
			}
			if nods < minNods {
				return fmt.Errorf("expected at least %d nods, saw %d", minNods, nods)
			}
			if o.Summary.ByType[model.AlertTypeHeadDown.String()] != 0 {
				return errors.New("short nods were reported as head down")
			}
			return nil
		},
	},
}

// nodPitch is a triangular dip of nodDepth degrees at the start of a cycle.
func nodPitch(phase float64) float64 {
	switch {
	case phase < nodDip:
		return -nodDepth * phase / nodDip
	case phase < 2*nodDip:
		return -nodDepth * (2*nodDip - phase) / nodDip
	}
	return 0
}

func expectAlert(o Observation, want model.AlertType) error {
	if o.Summary.ByType[want.String()] < 1 {
		return fmt.Errorf("expected a %s alert, got %v", want, o.Summary.ByType)
	}
	return nil
}

func expectQuiet(o Observation) error {
	if o.Live.Last.InAlarm || o.Live.Last.Action != model.ActionNone {
		return fmt.Errorf("expected no action, got %s at score %d", o.Live.Last.Action, o.Live.Last.Score)
	}
	return nil
}

// Lookup returns the named scenario.
func Lookup(name string) (Scenario, error) {
	s, ok := scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	return s, nil
}

// Names returns every scenario name in sorted order.
func Names() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
