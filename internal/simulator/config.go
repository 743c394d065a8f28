package simulator

import (
	"time"

	"github.com/okian/vigil/internal/domain/model"
)

// Default run configuration constants.
const (
	defaultBaseURL  = "http://localhost:9080"
	defaultDuration = 10 * time.Second
	defaultFPS      = 30
	defaultBatch    = 30
	defaultWorkers  = 4
	defaultTimeout  = 30 * time.Second
	defaultSeed     = 42
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Scenarios []string      // Scenario names; empty runs all of them
	Duration  time.Duration // Length of every synthetic stream
	FPS       int           // Frames per second of the synthetic stream
	Batch     int           // Frames per POST /frames request
	Workers   int           // Scenarios driven concurrently
	Timeout   time.Duration // HTTP request timeout
	Seed      uint64        // Noise seed, fixed for reproducible runs
	Verbose   bool          // Log every request
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if len(c.Scenarios) == 0 {
		c.Scenarios = Names()
	}
	if c.Duration <= 0 {
		c.Duration = defaultDuration
	}
	if c.FPS <= 0 {
		c.FPS = defaultFPS
	}
	if c.Batch <= 0 {
		c.Batch = defaultBatch
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Seed == 0 {
		c.Seed = defaultSeed
	}
	return c
}

// Frame is the wire shape of POST /frames.
type Frame struct {
	SessionID  string      `json:"session_id"`
	Seq        uint64      `json:"seq"`
	TS         float64     `json:"ts"`
	Face       bool        `json:"face"`
	EAR        float64     `json:"ear"`
	LeftEAR    float64     `json:"left_ear,omitempty"`
	RightEAR   float64     `json:"right_ear,omitempty"`
	MAR        float64     `json:"mar"`
	MouthRatio float64     `json:"mouth_ratio,omitempty"`
	Pitch      float64     `json:"pitch"`
	Yaw        float64     `json:"yaw"`
	Gaze       *model.Gaze `json:"gaze,omitempty"`
}

// AckResponse represents the response from frame submission.
type AckResponse struct {
	Status     string `json:"status"`
	Duplicate  bool   `json:"duplicate"`
	Accepted   int    `json:"accepted"`
	Duplicates int    `json:"duplicates"`
}

// Live is the subset of a session snapshot the simulator verifies.
type Live struct {
	Frames           uint64         `json:"frames"`
	Alerts           uint64         `json:"alerts"`
	MaxScore         int            `json:"max_score"`
	ManualSunglasses bool           `json:"manual_sunglasses"`
	Last             model.Decision `json:"last"`
}

// SessionView is the response of GET /sessions/{id}.
type SessionView struct {
	Session struct {
		ID        string `json:"id"`
		EndReason string `json:"end_reason"`
		Frames    int64  `json:"frames"`
	} `json:"session"`
	Live *Live `json:"live"`
}

// AlertSummary is the summary part of GET /sessions/{id}/alerts.
type AlertSummary struct {
	Total    int            `json:"total"`
	ByType   map[string]int `json:"by_type"`
	ByLevel  map[string]int `json:"by_level"`
	MaxScore int            `json:"max_score"`
}

// Observation is everything collected about one scenario run.
type Observation struct {
	Live      Live
	Summary   AlertSummary
	Decisions []model.Decision
}

// Result is the outcome of one scenario.
type Result struct {
	Scenario   string
	SessionID  string
	Frames     int
	Accepted   int
	Duplicates int
	Retries    int
	Decisions  int
	Alerts     int
	MaxScore   int
	Duration   time.Duration
	Err        error
}

// Passed reports whether the scenario met its expectation.
func (r Result) Passed() bool { return r.Err == nil }
