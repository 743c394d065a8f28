package features

import (
	"math"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/window"
)

const (
	defaultSmoothingWindow = 5
	minMouthHeight         = 1e-6
)

// Sanitize maps NaN and ±Inf to 0 so they never reach a detector history.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// EAR computes the eye aspect ratio (|p2-p6| + |p3-p5|) / (2|p1-p4|) from a
// six-point eye contour. Wrong point counts and a zero-length horizontal
// axis yield 0.
func EAR(pts []model.Point) float64 {
	if len(pts) != 6 {
		return 0
	}
	h := Distance(pts[0], pts[3])
	if h == 0 {
		return 0
	}
	return Sanitize((Distance(pts[1], pts[5]) + Distance(pts[2], pts[4])) / (2 * h))
}

// MAR computes the mouth aspect ratio as the sum of three vertical lip
// distances over twice the mouth width.
func MAR(lm []model.Point) float64 {
	corners, ok := Pick(lm, MouthLeft, MouthRight)
	if !ok {
		return 0
	}
	h := Distance(corners[0], corners[1])
	if h == 0 {
		return 0
	}
	var sum float64
	for _, pair := range MouthVerticalPairs {
		p, ok := Pick(lm, pair[0], pair[1])
		if !ok {
			return 0
		}
		sum += Distance(p[0], p[1])
	}
	return Sanitize(sum / (2 * h))
}

// MouthRatio returns mouth width over height. A closed mouth (height below
// 1e-6) yields 0.
func MouthRatio(lm []model.Point) float64 {
	corners, ok := Pick(lm, MouthLeft, MouthRight)
	if !ok {
		return 0
	}
	lips, ok := Pick(lm, MouthTop, MouthBottom)
	if !ok {
		if lips, ok = Pick(lm, MouthOuterTop, MouthOuterBottom); !ok {
			return 0
		}
	}
	height := Distance(lips[0], lips[1])
	if height < minMouthHeight {
		return 0
	}
	return Sanitize(Distance(corners[0], corners[1]) / height)
}

// Features is the per-frame output of an Extractor.
type Features struct {
	EAR        float64 // smoothed average of both eyes
	LeftEAR    float64
	RightEAR   float64
	EARDiff    float64 // |left - right|
	MAR        float64 // smoothed
	MouthRatio float64
	RawEAR     float64
	RawMAR     float64
}

// Extractor computes smoothed features for one session. Not safe for
// concurrent use.
type Extractor struct {
	window int
	ears   *window.Ring[float64]
	mars   *window.Ring[float64]
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSmoothingWindow sets the moving-average length in frames.
func WithSmoothingWindow(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.window = n
		}
	}
}

// NewExtractor creates an Extractor with a 5-frame moving average by default.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{window: defaultSmoothingWindow}
	for _, opt := range opts {
		opt(e)
	}
	e.ears = window.NewRing[float64](e.window)
	e.mars = window.NewRing[float64](e.window)
	return e
}

// Extract derives features from a full face mesh.
func (e *Extractor) Extract(lm []model.Point) Features {
	var f Features
	if pts, ok := Pick(lm, LeftEye[:]...); ok {
		f.LeftEAR = EAR(pts)
	}
	if pts, ok := Pick(lm, RightEye[:]...); ok {
		f.RightEAR = EAR(pts)
	}
	f.RawEAR = (f.LeftEAR + f.RightEAR) / 2
	f.EARDiff = math.Abs(f.LeftEAR - f.RightEAR)
	f.RawMAR = MAR(lm)
	f.MouthRatio = MouthRatio(lm)

	e.ears.Push(f.RawEAR)
	e.mars.Push(f.RawMAR)
	f.EAR = window.Mean(e.ears)
	f.MAR = window.Mean(e.mars)
	return f
}

// Reset clears the smoothing history. Call it when the face is lost.
func (e *Extractor) Reset() {
	e.ears.Reset()
	e.mars.Reset()
}
