package model

import (
	"fmt"
	"strings"
)

// Action is the alert action emitted by the fusion engine each frame.
type Action uint8

const (
	ActionNone Action = iota
	ActionBeep
	ActionAlarm
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionBeep:
		return "beep"
	case ActionAlarm:
		return "alarm"
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// MarshalText encodes the action by name.
func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText decodes an action name.
func (a *Action) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "none", "":
		*a = ActionNone
	case "beep":
		*a = ActionBeep
	case "alarm":
		*a = ActionAlarm
	default:
		return fmt.Errorf("unknown action %q", string(b))
	}
	return nil
}

// AlertLevel grades how urgent an alert is.
type AlertLevel int

const (
	AlertNone AlertLevel = iota
	AlertWarning
	AlertAlarm
	AlertCritical
)

func (l AlertLevel) String() string {
	switch l {
	case AlertNone:
		return "NONE"
	case AlertWarning:
		return "WARNING"
	case AlertAlarm:
		return "ALARM"
	case AlertCritical:
		return "CRITICAL"
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// MarshalText encodes the level by name.
func (l AlertLevel) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText decodes a level name.
func (l *AlertLevel) UnmarshalText(b []byte) error {
	v, err := ParseAlertLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// ParseAlertLevel is the inverse of AlertLevel.String.
func ParseAlertLevel(s string) (AlertLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE", "":
		return AlertNone, nil
	case "WARNING":
		return AlertWarning, nil
	case "ALARM":
		return AlertAlarm, nil
	case "CRITICAL":
		return AlertCritical, nil
	}
	return AlertNone, fmt.Errorf("unknown alert level %q", s)
}

// AlertType classifies what caused an alert.
type AlertType uint8

const (
	AlertTypeNone AlertType = iota
	AlertTypeDrowsy
	AlertTypeYawn
	AlertTypeHeadDown
	AlertTypeDistracted
)

func (t AlertType) String() string {
	switch t {
	case AlertTypeNone:
		return "NONE"
	case AlertTypeDrowsy:
		return "DROWSY"
	case AlertTypeYawn:
		return "YAWN"
	case AlertTypeHeadDown:
		return "HEAD_DOWN"
	case AlertTypeDistracted:
		return "DISTRACTED"
	}
	return fmt.Sprintf("TYPE(%d)", uint8(t))
}

// MarshalText encodes the alert type by name.
func (t AlertType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText decodes an alert type name.
func (t *AlertType) UnmarshalText(b []byte) error {
	v, err := ParseAlertType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseAlertType is the inverse of AlertType.String.
func ParseAlertType(s string) (AlertType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE", "":
		return AlertTypeNone, nil
	case "DROWSY":
		return AlertTypeDrowsy, nil
	case "YAWN":
		return AlertTypeYawn, nil
	case "HEAD_DOWN":
		return AlertTypeHeadDown, nil
	case "DISTRACTED":
		return AlertTypeDistracted, nil
	}
	return AlertTypeNone, fmt.Errorf("unknown alert type %q", s)
}
