// Package perclos classifies eye closures into blinks, microsleeps and
// drowsy episodes and tracks PERCLOS, the fraction of recent frames with the
// eyes closed.
package perclos

import "fmt"

// EyeState is the closure state machine position.
type EyeState uint8

const (
	Open EyeState = iota
	Closing
	Blink
	Microsleep
	Drowsy
)

func (s EyeState) String() string {
	switch s {
	case Open:
		return "OPEN"
	case Closing:
		return "CLOSING"
	case Blink:
		return "BLINK"
	case Microsleep:
		return "MICROSLEEP"
	case Drowsy:
		return "DROWSY"
	}
	return fmt.Sprintf("EYE_STATE(%d)", uint8(s))
}

// ClosureEvent is one continuous eye closure. Events are immutable once
// archived.
type ClosureEvent struct {
	Start    float64
	End      float64 // zero while the closure is ongoing
	Duration float64
	MinEAR   float64
	Drowsy   bool // true for microsleep and drowsy closures
	Complete bool
}

func (e *ClosureEvent) close(t float64) {
	e.End = t
	e.Duration = t - e.Start
	e.Complete = true
}
