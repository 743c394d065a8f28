// Package monitor owns one instance of every detector for a single
// monitoring session and turns frames into decisions in arrival order.
package monitor

import (
	"context"
	"sync"

	"github.com/okian/vigil/internal/domain/features"
	"github.com/okian/vigil/internal/domain/fusion"
	"github.com/okian/vigil/internal/domain/gaze"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/mouth"
	"github.com/okian/vigil/internal/domain/perclos"
	"github.com/okian/vigil/pkg/logger"
)

// Option applies a configuration option to the Monitor.
type Option func(*Monitor)

// WithLogger sets the logger passed down to the detectors.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// Monitor processes the frames of one session. Process must be called from
// a single goroutine; Snapshot and the control methods may be called
// concurrently with it.
type Monitor struct {
	mu        sync.Mutex
	sessionID string
	cfg       Config
	logger    logger.Logger

	extractor *features.Extractor
	eyes      *perclos.Detector
	mouth     *mouth.Classifier
	gaze      *gaze.Tracker
	engine    *fusion.Engine

	started   bool
	lastTS    float64
	faceLost  bool
	lostSince float64
	resetDone bool

	lastAlert model.AlertType
	last      model.Decision
	frames    uint64
	alerts    uint64
	maxScore  int
}

// New creates a monitor for sessionID.
func New(sessionID string, cfg Config, opts ...Option) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Monitor{sessionID: sessionID, cfg: cfg}
	for _, opt := range opts {
		opt(m)
	}

	engine, err := fusion.New(cfg.Fusion)
	if err != nil {
		return nil, err
	}
	eyeOpts := []perclos.Option{
		perclos.WithPERCLOSThreshold(cfg.PERCLOSThreshold),
		perclos.WithCalibrationDuration(cfg.CalibrationDuration),
	}
	if cfg.FixedEARThreshold > 0 {
		eyeOpts = append(eyeOpts, perclos.WithFixedThreshold(cfg.FixedEARThreshold))
	}
	if m.logger != nil {
		eyeOpts = append(eyeOpts, perclos.WithLogger(m.logger.Named("perclos")))
	}

	m.extractor = features.NewExtractor()
	m.eyes = perclos.New(eyeOpts...)
	m.mouth = mouth.New(mouth.WithConfidenceThreshold(cfg.SmileConfidenceThreshold))
	m.gaze = gaze.New(gaze.WithDistractionThreshold(cfg.GazeDistractionThreshold))
	m.engine = engine
	return m, nil
}

// SessionID returns the owning session.
func (m *Monitor) SessionID() string { return m.sessionID }

// Process turns one frame into a decision. Timestamps that go backwards are
// clamped to the last seen timestamp.
func (m *Monitor) Process(f model.Frame) model.Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := features.Sanitize(f.Timestamp)
	if m.started && ts < m.lastTS {
		ts = m.lastTS
	}
	m.started = true
	m.lastTS = ts
	m.frames++

	var d model.Decision
	if faceMissing(f) {
		d = m.absent(ts)
	} else {
		m.faceLost = false
		m.resetDone = false
		d = m.present(f, ts)
	}
	d.SessionID = m.sessionID
	d.Seq = f.Seq
	d.Timestamp = ts

	d.AlertType, d.AlertLevel = m.classify(d)
	if d.AlertType != model.AlertTypeNone && d.AlertType != m.lastAlert {
		d.AlertStarted = true
		m.alerts++
	}
	m.lastAlert = d.AlertType
	m.maxScore = max(m.maxScore, d.Score)
	m.last = d
	return d
}

func faceMissing(f model.Frame) bool {
	return !f.Face && len(f.Landmarks) == 0 && f.EAR == 0 && f.MAR == 0
}

// absent handles a frame without a face: detectors keep their state, the
// score decays, and after FaceLostReset seconds everything is reset once.
func (m *Monitor) absent(ts float64) model.Decision {
	if !m.faceLost {
		m.faceLost = true
		m.lostSince = ts
	}
	if !m.resetDone && ts-m.lostSince >= m.cfg.FaceLostReset {
		m.resetDetectors()
		m.resetDone = true
		if m.logger != nil {
			m.logger.Info(context.Background(), "face lost, detectors reset",
				logger.String("session_id", m.sessionID),
				logger.Float64("absent_for", ts-m.lostSince))
		}
	}
	r := m.engine.Idle()
	return model.Decision{
		Score:      r.Score,
		Sunglasses: r.Sunglasses,
		Action:     r.Action,
		InAlarm:    r.InAlarm,
		EyeState:   m.eyes.State().String(),
		PERCLOS:    m.eyes.PERCLOS(),
		EyeAlert:   m.eyes.AlertLevel(),
		MouthState: m.mouth.State().String(),
	}
}

func (m *Monitor) present(f model.Frame, ts float64) model.Decision {
	sig := m.signals(f)

	eyeState, perc := m.eyes.Update(sig.ear, ts)
	mouthState, _ := m.mouth.Update(mouth.Input{
		Ratio:    sig.ratio,
		MAR:      sig.mar,
		LeftEAR:  sig.left,
		RightEAR: sig.right,
	}, ts)

	var gazeOff bool
	var gazeFor float64
	var direction string
	if sig.hasGaze {
		var dir gaze.Direction
		gazeOff, gazeFor, dir = m.gaze.Update(sig.gaze, ts)
		direction = dir.String()
	}

	pitch := features.Sanitize(f.Pitch)
	yaw := features.Sanitize(f.Yaw)
	r := m.engine.Update(fusion.Input{
		Timestamp:      ts,
		EAR:            sig.ear,
		MAR:            sig.mar,
		Pitch:          pitch,
		Yaw:            yaw,
		Yawning:        mouthState == mouth.Yawning || sig.mar > m.cfg.Fusion.MARThreshold,
		Smiling:        mouthState == mouth.Smiling,
		GazeDistracted: gazeOff,
		GazeDuration:   gazeFor,
	})

	return model.Decision{
		Score:               r.Score,
		Sunglasses:          r.Sunglasses,
		Nod:                 r.Nod,
		Distracted:          r.Distracted,
		DistractionDuration: r.DistractionDuration,
		HeadDown:            r.HeadDown,
		GazeDistracted:      r.GazeDistracted,
		GazeDuration:        r.GazeDuration,
		Action:              r.Action,
		InAlarm:             r.InAlarm,
		EyeState:            eyeState.String(),
		PERCLOS:             perc,
		EyeAlert:            m.eyes.AlertLevel(),
		MouthState:          mouthState.String(),
		GazeDirection:       direction,
		EAR:                 sig.ear,
		MAR:                 sig.mar,
		Pitch:               pitch,
		Yaw:                 yaw,
	}
}

type signals struct {
	ear, left, right float64
	mar, ratio       float64
	gaze             gaze.Ratio
	hasGaze          bool
}

// signals derives the per-frame ratios, preferring the face mesh over the
// scalar fields when a full mesh is present.
func (m *Monitor) signals(f model.Frame) signals {
	var s signals
	if len(f.Landmarks) >= features.NumFaceLandmarks {
		ft := m.extractor.Extract(f.Landmarks)
		s.ear, s.left, s.right = ft.EAR, ft.LeftEAR, ft.RightEAR
		s.mar, s.ratio = ft.MAR, ft.MouthRatio
		if r, ok := m.gaze.Ratios(f.Landmarks); ok {
			s.gaze, s.hasGaze = r, true
		}
	} else {
		s.ear = nonNegative(f.EAR)
		s.left, s.right = nonNegative(f.LeftEAR), nonNegative(f.RightEAR)
		if s.left == 0 && s.right == 0 {
			s.left, s.right = s.ear, s.ear
		}
		s.mar = nonNegative(f.MAR)
		s.ratio = nonNegative(f.MouthRatio)
	}
	if !s.hasGaze && f.Gaze != nil {
		s.gaze = m.gaze.Smooth(gaze.Ratio{
			X: features.Sanitize(f.Gaze.X),
			Y: features.Sanitize(f.Gaze.Y),
		})
		s.hasGaze = true
	}
	return s
}

func nonNegative(v float64) float64 {
	return max(0, features.Sanitize(v))
}

// classify derives the alert cause and grade. Only frames with an action
// carry an alert; the cause is picked in priority order eyes, head down,
// looking away, yawning. A score left over from an earlier cause keeps
// that cause.
func (m *Monitor) classify(d model.Decision) (model.AlertType, model.AlertLevel) {
	if d.Action == model.ActionNone {
		return model.AlertTypeNone, model.AlertNone
	}

	level := model.AlertWarning
	if d.Action == model.ActionAlarm {
		level = model.AlertAlarm
		if d.EyeAlert == model.AlertCritical {
			level = model.AlertCritical
		}
	}

	eyes := m.eyes.State()
	switch {
	case eyes == perclos.Microsleep || eyes == perclos.Drowsy || d.EyeAlert >= model.AlertAlarm:
		return model.AlertTypeDrowsy, level
	case d.Distracted && d.HeadDown:
		return model.AlertTypeHeadDown, level
	case d.Distracted || d.GazeDistracted:
		return model.AlertTypeDistracted, level
	case d.MouthState == mouth.Yawning.String() || d.MAR > m.cfg.Fusion.MARThreshold:
		return model.AlertTypeYawn, level
	case m.lastAlert != model.AlertTypeNone:
		return m.lastAlert, level
	}
	return model.AlertTypeDrowsy, level
}

func (m *Monitor) resetDetectors() {
	m.extractor.Reset()
	m.eyes.Reset()
	m.mouth.Reset()
	m.gaze.Reset()
	m.engine.Reset()
	m.lastAlert = model.AlertTypeNone
}

// Reset clears every detector history. The learned EAR threshold and the
// manual sunglasses override survive. Session counters are kept.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDetectors()
	m.faceLost = false
	m.resetDone = false
}

// SetManualSunglasses sets or clears the sunglasses override.
func (m *Monitor) SetManualSunglasses(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.SetManualSunglasses(on)
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	SessionID        string         `json:"session_id"`
	Frames           uint64         `json:"frames"`
	Alerts           uint64         `json:"alerts"`
	MaxScore         int            `json:"max_score"`
	FaceLost         bool           `json:"face_lost"`
	ManualSunglasses bool           `json:"manual_sunglasses"`
	Last             model.Decision `json:"last"`
	Eyes             perclos.Stats  `json:"eyes"`
	Mouth            mouth.Stats    `json:"mouth"`
	Gaze             gaze.Info      `json:"gaze"`
}

// Snapshot returns the last decision together with detector statistics.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		SessionID:        m.sessionID,
		Frames:           m.frames,
		Alerts:           m.alerts,
		MaxScore:         m.maxScore,
		FaceLost:         m.faceLost,
		ManualSunglasses: m.engine.ManualSunglasses(),
		Last:             m.last,
		Eyes:             m.eyes.Stats(),
		Mouth:            m.mouth.Stats(),
		Gaze:             m.gaze.Info(),
	}
}
