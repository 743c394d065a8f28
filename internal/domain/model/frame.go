// Package model contains domain models passed between layers.
package model

// Point is a single facial landmark in image coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// Gaze is a normalized iris offset. Both axes are in [-1, 1].
type Gaze struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Frame is the per-frame feature record handed to a session monitor.
//
// When Landmarks holds a full face mesh the monitor derives EAR, MAR, mouth
// ratio and gaze from it; otherwise the scalar fields are used as supplied.
type Frame struct {
	SessionID string  // owning monitoring session
	Seq       uint64  // per-session sequence number, used for idempotency
	Timestamp float64 // seconds, monotonically non-decreasing within a session
	Face      bool    // false when the landmark boundary lost the face

	EAR      float64 // average eye aspect ratio
	LeftEAR  float64
	RightEAR float64
	MAR      float64 // mouth aspect ratio

	// MouthRatio is mouth width over height. Zero means "not supplied".
	MouthRatio float64

	Pitch float64 // degrees, negative is head down
	Yaw   float64 // degrees
	Roll  float64 // degrees

	Gaze      *Gaze   // optional pre-computed gaze ratio
	Landmarks []Point // optional full face mesh (468 or 478 points)
}
