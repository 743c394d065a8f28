// Package features turns facial landmarks into the scalar ratios consumed
// by the detectors: eye aspect ratio, mouth aspect ratio and mouth shape.
package features

import (
	"math"

	"github.com/okian/vigil/internal/domain/model"
)

// Face mesh landmark indices following the MediaPipe 468/478-point convention.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	MouthLeft   = 61
	MouthRight  = 291
	MouthTop    = 13
	MouthBottom = 14

	// Outer lip fallback used when the inner lip points are unavailable.
	MouthOuterTop    = 0
	MouthOuterBottom = 17

	NoseTip       = 1
	Chin          = 152
	LeftEyeOuter  = 263
	RightEyeOuter = 33

	NumFaceLandmarks = 468
	NumIrisLandmarks = 478
)

// Six-point eye contours ordered p1..p6 for the EAR formula.
var (
	LeftEye  = [6]int{362, 385, 387, 263, 373, 380}
	RightEye = [6]int{33, 160, 158, 133, 153, 144}
)

// Iris landmarks. The first index of each set is the iris centre.
var (
	LeftIris  = [5]int{468, 469, 470, 471, 472}
	RightIris = [5]int{473, 474, 475, 476, 477}
)

// MouthVerticalPairs are the upper/lower lip pairs averaged into MAR.
var MouthVerticalPairs = [3][2]int{{81, 178}, {13, 14}, {311, 402}}

// Distance is the planar distance between two landmarks.
func Distance(a, b model.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Pick gathers the landmarks at idx. ok is false if any index is out of range.
func Pick(lm []model.Point, idx ...int) (pts []model.Point, ok bool) {
	pts = make([]model.Point, len(idx))
	for i, j := range idx {
		if j < 0 || j >= len(lm) {
			return nil, false
		}
		pts[i] = lm[j]
	}
	return pts, true
}
