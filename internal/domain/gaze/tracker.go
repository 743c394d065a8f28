// Package gaze estimates where the driver is looking from the iris
// position inside each eye and confirms sustained off-road gaze.
package gaze

import (
	"fmt"
	"math"

	"github.com/okian/vigil/internal/domain/features"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/window"
)

// Default tracker configuration constants.
const (
	defaultDistractionThreshold = 2.0
	defaultHorizontalThreshold  = 0.25
	defaultVerticalThreshold    = 0.30
	defaultSmoothing            = 5
)

// Direction is a discrete gaze direction.
type Direction uint8

const (
	Center Direction = iota
	Left
	Right
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Center:
		return "CENTER"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	}
	return fmt.Sprintf("DIRECTION(%d)", uint8(d))
}

// OnRoad reports whether the direction counts as looking at the road.
func (d Direction) OnRoad() bool { return d == Center }

// Ratio is the iris offset from the eye centre, each axis in [-1, 1].
// Negative X is left, negative Y is up.
type Ratio struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Tracker smooths gaze ratios and times off-road glances. Not safe for
// concurrent use.
type Tracker struct {
	threshold  float64
	horizontal float64
	vertical   float64
	smoothing  int

	xs *window.Ring[float64]
	ys *window.Ring[float64]

	left, right, avg Ratio
	direction        Direction

	tracking   bool
	start      float64
	distracted bool
	duration   float64
}

// New creates a Tracker confirming distraction after two seconds off road.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		threshold:  defaultDistractionThreshold,
		horizontal: defaultHorizontalThreshold,
		vertical:   defaultVerticalThreshold,
		smoothing:  defaultSmoothing,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.xs = window.NewRing[float64](t.smoothing)
	t.ys = window.NewRing[float64](t.smoothing)
	return t
}

// Ratios computes the per-eye iris ratios from a full 478-point mesh,
// averages both eyes and returns the smoothed value. ok is false when the
// mesh carries no iris landmarks; the history is left untouched then.
func (t *Tracker) Ratios(lm []model.Point) (Ratio, bool) {
	if len(lm) < features.NumIrisLandmarks {
		return Ratio{}, false
	}
	t.left = eyeRatio(lm, features.LeftIris[0], features.LeftEye[:])
	t.right = eyeRatio(lm, features.RightIris[0], features.RightEye[:])
	return t.Smooth(Ratio{
		X: (t.left.X + t.right.X) / 2,
		Y: (t.left.Y + t.right.Y) / 2,
	}), true
}

// Smooth pushes an averaged ratio into the history and returns the mean of
// the recent frames.
func (t *Tracker) Smooth(r Ratio) Ratio {
	t.xs.Push(clampUnit(r.X))
	t.ys.Push(clampUnit(r.Y))
	t.avg = Ratio{X: window.Mean(t.xs), Y: window.Mean(t.ys)}
	return t.avg
}

func eyeRatio(lm []model.Point, iris int, contour []int) Ratio {
	pts, ok := features.Pick(lm, contour...)
	if !ok {
		return Ratio{}
	}
	minX, maxX := pts[0].X, pts[0].X
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	w, h := maxX-minX, maxY-minY
	if w == 0 || h == 0 {
		return Ratio{}
	}
	c := lm[iris]
	return Ratio{
		X: clampUnit((c.X - (minX+maxX)/2) / (w / 2)),
		Y: clampUnit((c.Y - (minY+maxY)/2) / (h / 2)),
	}
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}

// Classify maps a ratio to a direction. The vertical axis is checked first
// so a downward glance at a phone is never reported as LEFT or RIGHT.
func (t *Tracker) Classify(r Ratio) Direction {
	switch {
	case r.Y > t.vertical:
		return Down
	case r.Y < -t.vertical:
		return Up
	case r.X < -t.horizontal:
		return Left
	case r.X > t.horizontal:
		return Right
	}
	return Center
}

// Update classifies the ratio and advances the off-road timer. It returns
// whether distraction is confirmed, the off-road duration and the direction.
func (t *Tracker) Update(r Ratio, ts float64) (bool, float64, Direction) {
	t.direction = t.Classify(r)
	if t.direction.OnRoad() {
		t.tracking = false
		t.distracted = false
		t.duration = 0
		return false, 0, t.direction
	}
	if !t.tracking {
		t.tracking = true
		t.start = ts
	}
	t.duration = ts - t.start
	t.distracted = t.duration > t.threshold
	return t.distracted, t.duration, t.direction
}

// Info is a snapshot of the tracker state.
type Info struct {
	Left        Ratio   `json:"left"`
	Right       Ratio   `json:"right"`
	Average     Ratio   `json:"average"`
	Direction   string  `json:"direction"`
	Distracted  bool    `json:"distracted"`
	OffRoadTime float64 `json:"off_road_duration"`
}

// Info returns the last computed ratios and distraction state.
func (t *Tracker) Info() Info {
	return Info{
		Left:        t.left,
		Right:       t.right,
		Average:     t.avg,
		Direction:   t.direction.String(),
		Distracted:  t.distracted,
		OffRoadTime: t.duration,
	}
}

// Direction returns the last classified direction.
func (t *Tracker) Direction() Direction { return t.direction }

// Reset clears the smoothing history and the off-road timer.
func (t *Tracker) Reset() {
	t.xs.Reset()
	t.ys.Reset()
	t.left, t.right, t.avg = Ratio{}, Ratio{}, Ratio{}
	t.direction = Center
	t.tracking = false
	t.start = 0
	t.distracted = false
	t.duration = 0
}
