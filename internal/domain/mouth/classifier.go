// Package mouth classifies mouth geometry into neutral, smiling, speaking
// and yawning, smoothed by a majority vote over recent frames.
package mouth

import (
	"fmt"
	"math"

	"github.com/okian/vigil/internal/domain/window"
)

// Default classifier configuration constants.
const (
	defaultSmileMARMin         = 0.10
	defaultSmileMARMax         = 0.60
	defaultSmileWidthRatio     = 2.2
	defaultSpeakingMARMin      = 0.30
	defaultSpeakingMARMax      = 0.55
	defaultYawnMARMin          = 0.65
	defaultEARDifferenceMax    = 0.15
	defaultConfidenceThreshold = 0.45
	defaultWindow              = 10

	yawnMaxRatio      = 1.5
	yawnSpan          = 0.3
	smileEARMin       = 0.05
	smileEARMax       = 0.30
	smileEARSweetLow  = 0.20
	smileEARSweetHigh = 0.28
	speakRatioMin     = 1.5
	speakRatioMax     = 2.5
	speakConfidence   = 0.6
	neutralMARStart   = 0.20
	neutralMARSpan    = 0.5

	minVotes        = 5
	minSmileSeconds = 0.3
	maxEvents       = 100
	recentSpan      = 60.0
)

// State is a mouth classification.
type State uint8

const (
	Neutral State = iota
	Smiling
	Speaking
	Yawning
	Unknown
)

func (s State) String() string {
	switch s {
	case Neutral:
		return "NEUTRAL"
	case Smiling:
		return "SMILING"
	case Speaking:
		return "SPEAKING"
	case Yawning:
		return "YAWNING"
	case Unknown:
		return "UNKNOWN"
	}
	return fmt.Sprintf("MOUTH_STATE(%d)", uint8(s))
}

// Input is the per-frame mouth and eye geometry.
type Input struct {
	Ratio    float64 // mouth width / height
	MAR      float64
	LeftEAR  float64
	RightEAR float64
}

func (in Input) valid() bool {
	for _, v := range [...]float64{in.Ratio, in.MAR, in.LeftEAR, in.RightEAR} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

// SmileEvent is one sustained smile.
type SmileEvent struct {
	Start         float64
	End           float64
	Duration      float64
	AvgConfidence float64
}

type vote struct {
	state      State
	confidence float64
}

// Classifier tracks the mouth state of one session. Not safe for concurrent use.
type Classifier struct {
	smileMARMin     float64
	smileMARMax     float64
	smileWidthRatio float64
	speakingMARMin  float64
	speakingMARMax  float64
	yawnMARMin      float64
	earDiffMax      float64
	confThreshold   float64
	windowSize      int

	votes   *window.Ring[vote]
	current State
	conf    float64

	smileActive bool
	smile       SmileEvent
	smileConf   float64
	smileFrames int
	events      *window.Ring[SmileEvent]
	totalSmiles int
	lastSmile   float64
	now         float64
}

// New creates a Classifier with default thresholds.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		smileMARMin:     defaultSmileMARMin,
		smileMARMax:     defaultSmileMARMax,
		smileWidthRatio: defaultSmileWidthRatio,
		speakingMARMin:  defaultSpeakingMARMin,
		speakingMARMax:  defaultSpeakingMARMax,
		yawnMARMin:      defaultYawnMARMin,
		earDiffMax:      defaultEARDifferenceMax,
		confThreshold:   defaultConfidenceThreshold,
		windowSize:      defaultWindow,
		events:          window.NewRing[SmileEvent](maxEvents),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.votes = window.NewRing[vote](c.windowSize)
	return c
}

// Classify applies the decision table to a single frame, first match wins:
//
//	YAWNING   mar > yawn_min and ratio < 1.5
//	SMILING   smile band mar, wide mouth, squinted symmetric eyes
//	SPEAKING  speaking band mar and 1.5 < ratio < 2.5
//	NEUTRAL   otherwise
func (c *Classifier) Classify(in Input) (State, float64) {
	if !in.valid() {
		return Unknown, 0
	}
	earAvg := (in.LeftEAR + in.RightEAR) / 2
	earDiff := math.Abs(in.LeftEAR - in.RightEAR)

	switch {
	case in.MAR > c.yawnMARMin && in.Ratio < yawnMaxRatio:
		return Yawning, math.Min(1, (in.MAR-c.yawnMARMin)/yawnSpan)

	case in.MAR > c.smileMARMin && in.MAR < c.smileMARMax &&
		in.Ratio > c.smileWidthRatio &&
		earAvg > smileEARMin && earAvg < smileEARMax &&
		earDiff < c.earDiffMax:
		marScore := 1.0
		ratioScore := math.Min(1, in.Ratio-c.smileWidthRatio)
		earScore := 0.7
		if earAvg > smileEARSweetLow && earAvg < smileEARSweetHigh {
			earScore = 1
		}
		symScore := 1.0
		return Smiling, (marScore + ratioScore + earScore + symScore) / 4

	case in.MAR > c.speakingMARMin && in.MAR < c.speakingMARMax &&
		in.Ratio > speakRatioMin && in.Ratio < speakRatioMax:
		return Speaking, speakConfidence

	default:
		conf := 1 - math.Max(0, (in.MAR-neutralMARStart)/neutralMARSpan)
		return Neutral, math.Max(0, conf)
	}
}

// Update classifies a frame, smooths it against the recent window and
// tracks smile events. It returns the smoothed state and confidence.
// Malformed input yields Unknown and leaves the history untouched.
func (c *Classifier) Update(in Input, t float64) (State, float64) {
	c.now = t
	state, conf := c.Classify(in)
	if state == Unknown {
		return Unknown, 0
	}
	c.votes.Push(vote{state: state, confidence: conf})

	smoothed := state
	if c.votes.Len() >= minVotes {
		smoothed = c.majority()
	}
	var sum float64
	c.votes.Each(func(v vote) { sum += v.confidence })
	mean := sum / float64(c.votes.Len())

	c.current, c.conf = smoothed, mean
	c.track(t)
	return smoothed, mean
}

// majority returns the most frequent state; ties go to the state seen first.
func (c *Classifier) majority() State {
	var counts [Unknown + 1]int
	var order []State
	c.votes.Each(func(v vote) {
		if counts[v.state] == 0 {
			order = append(order, v.state)
		}
		counts[v.state]++
	})
	best := order[0]
	for _, s := range order[1:] {
		if counts[s] > counts[best] {
			best = s
		}
	}
	return best
}

func (c *Classifier) track(t float64) {
	if c.current == Smiling && c.conf > c.confThreshold {
		if !c.smileActive {
			c.smileActive = true
			c.smile = SmileEvent{Start: t}
			c.smileConf, c.smileFrames = 0, 0
			c.lastSmile = t
		}
		c.smileConf += c.conf
		c.smileFrames++
		return
	}
	if !c.smileActive {
		return
	}
	c.smileActive = false
	c.smile.End = t
	c.smile.Duration = t - c.smile.Start
	if c.smileFrames > 0 {
		c.smile.AvgConfidence = c.smileConf / float64(c.smileFrames)
	}
	if c.smile.Duration > minSmileSeconds {
		c.events.Push(c.smile)
		c.totalSmiles++
	}
}

// State returns the last smoothed state.
func (c *Classifier) State() State { return c.current }

// Confidence returns the last smoothed confidence.
func (c *Classifier) Confidence() float64 { return c.conf }

// IsSmiling reports an active smile event.
func (c *Classifier) IsSmiling() bool { return c.smileActive }

// IsSpeaking reports a smoothed SPEAKING state.
func (c *Classifier) IsSpeaking() bool { return c.current == Speaking }

// IsYawning reports a smoothed YAWNING state.
func (c *Classifier) IsYawning() bool { return c.current == Yawning }

// ShouldIgnoreEARDrop reports whether a low EAR is explained by smiling.
func (c *Classifier) ShouldIgnoreEARDrop(earAvg float64) bool {
	return c.current == Smiling && earAvg > smileEARMin && earAvg < smileEARMax
}

// Events returns archived smile events, oldest first.
func (c *Classifier) Events() []SmileEvent { return c.events.Values() }

// Stats is a snapshot of smile activity.
type Stats struct {
	State               string  `json:"state"`
	Confidence          float64 `json:"confidence"`
	Smiling             bool    `json:"smiling"`
	TotalSmiles         int     `json:"total_smiles"`
	SmilesRecent        int     `json:"smiles_last_60s"`
	SmileDurationRecent float64 `json:"smile_duration_last_60s"`
	SinceLastSmile      float64 `json:"since_last_smile,omitempty"`
}

// Stats summarizes smile activity relative to the last update time.
func (c *Classifier) Stats() Stats {
	s := Stats{
		State:       c.current.String(),
		Confidence:  c.conf,
		Smiling:     c.smileActive,
		TotalSmiles: c.totalSmiles,
	}
	cutoff := c.now - recentSpan
	c.events.Each(func(e SmileEvent) {
		if e.Start >= cutoff {
			s.SmilesRecent++
			s.SmileDurationRecent += e.Duration
		}
	})
	if c.lastSmile > 0 {
		s.SinceLastSmile = c.now - c.lastSmile
	}
	return s
}

// Reset clears the vote window and any open smile. Archived events and
// totals are dropped as well.
func (c *Classifier) Reset() {
	c.votes.Reset()
	c.events.Reset()
	c.current, c.conf = Neutral, 0
	c.smileActive = false
	c.smile = SmileEvent{}
	c.smileConf, c.smileFrames = 0, 0
	c.totalSmiles = 0
	c.lastSmile = 0
}
