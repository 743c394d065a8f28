package fusion

import "github.com/okian/vigil/internal/domain/model"

// Trigger is a Schmitt trigger over the fusion score. It engages above on,
// beeps in (off, on] while idle, and once engaged holds until the score
// falls below off.
type Trigger struct {
	on, off int
	active  bool
}

// NewTrigger creates a trigger with the given thresholds.
func NewTrigger(on, off int) *Trigger {
	return &Trigger{on: on, off: off}
}

// Evaluate returns the action for score and updates the alarm state.
func (t *Trigger) Evaluate(score int) model.Action {
	if t.active {
		if score >= t.off {
			return model.ActionAlarm
		}
		t.active = false
		return model.ActionNone
	}
	switch {
	case score > t.on:
		t.active = true
		return model.ActionAlarm
	case score > t.off:
		return model.ActionBeep
	}
	return model.ActionNone
}

// Active reports whether the alarm is engaged.
func (t *Trigger) Active() bool { return t.active }

// Reset disengages the alarm.
func (t *Trigger) Reset() { t.active = false }
