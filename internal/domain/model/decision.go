package model

// Decision is the per-frame output of a session monitor.
type Decision struct {
	SessionID string  `json:"session_id"`
	Seq       uint64  `json:"seq"`
	Timestamp float64 `json:"ts"`

	Score               int     `json:"score"`
	Sunglasses          bool    `json:"sunglasses"`
	Nod                 bool    `json:"nod"`
	Distracted          bool    `json:"distracted"`
	DistractionDuration float64 `json:"distraction_duration"`
	HeadDown            bool    `json:"head_down"`
	GazeDistracted      bool    `json:"gaze_distracted"`
	GazeDuration        float64 `json:"gaze_duration"`
	Action              Action  `json:"action"`
	InAlarm             bool    `json:"in_alarm"`

	EyeState      string     `json:"eye_state"`
	PERCLOS       float64    `json:"perclos"`
	EyeAlert      AlertLevel `json:"eye_alert"`
	MouthState    string     `json:"mouth_state"`
	GazeDirection string     `json:"gaze_direction"`

	AlertType    AlertType  `json:"alert_type"`
	AlertLevel   AlertLevel `json:"alert_level"`
	AlertStarted bool       `json:"alert_started"`

	EAR   float64 `json:"ear"`
	MAR   float64 `json:"mar"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}
