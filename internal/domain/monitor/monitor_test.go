package monitor

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/vigil/internal/domain/fusion"
	"github.com/okian/vigil/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const dt = 1.0 / 30

type stream struct {
	m   *Monitor
	ts  float64
	seq uint64
}

func (s *stream) send(f model.Frame, n int) model.Decision {
	var d model.Decision
	for i := 0; i < n; i++ {
		s.seq++
		f.Seq = s.seq
		f.Timestamp = s.ts
		d = s.m.Process(f)
		s.ts += dt
	}
	return d
}

func (s *stream) starts(f model.Frame, n int) int {
	count := 0
	for i := 0; i < n; i++ {
		if s.send(f, 1).AlertStarted {
			count++
		}
	}
	return count
}

func newStream() *stream {
	m, err := New("s1", DefaultConfig())
	So(err, ShouldBeNil)
	return &stream{m: m}
}

var (
	open   = model.Frame{Face: true, EAR: 0.30, MAR: 0.1, MouthRatio: 4}
	closed = model.Frame{Face: true, EAR: 0.10, MAR: 0.1, MouthRatio: 4}
	yawn   = model.Frame{Face: true, EAR: 0.30, MAR: 0.8, MouthRatio: 1.2}
	gone   = model.Frame{}
)

func TestMonitorAlerts(t *testing.T) {
	Convey("Given a session monitor", t, func() {
		s := newStream()
		s.send(open, 30)

		Convey("When the eyes stay closed", func() {
			started := s.starts(closed, 45)
			d := s.m.Snapshot().Last

			Convey("Then a single drowsy alarm is raised", func() {
				So(d.Action, ShouldEqual, model.ActionAlarm)
				So(d.InAlarm, ShouldBeTrue)
				So(d.AlertType, ShouldEqual, model.AlertTypeDrowsy)
				So(d.AlertLevel, ShouldBeGreaterThanOrEqualTo, model.AlertAlarm)
				So(started, ShouldEqual, 1)
				So(s.m.Snapshot().Alerts, ShouldEqual, 1)
			})
		})

		Convey("When the driver keeps yawning", func() {
			d := s.send(yawn, 6)

			Convey("Then a yawn warning is raised", func() {
				So(d.Score, ShouldEqual, 18)
				So(d.Action, ShouldEqual, model.ActionBeep)
				So(d.AlertType, ShouldEqual, model.AlertTypeYawn)
				So(d.AlertLevel, ShouldEqual, model.AlertWarning)
			})
		})

		Convey("When the head stays down", func() {
			d := s.send(model.Frame{Face: true, EAR: 0.30, MAR: 0.1, MouthRatio: 4, Pitch: -40}, 70)

			Convey("Then a head-down alert is raised", func() {
				So(d.Distracted, ShouldBeTrue)
				So(d.HeadDown, ShouldBeTrue)
				So(d.AlertType, ShouldEqual, model.AlertTypeHeadDown)
			})
		})

		Convey("When the gaze stays on the lap", func() {
			f := open
			f.Gaze = &model.Gaze{Y: 0.6}
			d := s.send(f, 70)

			Convey("Then a distraction alert is raised", func() {
				So(d.GazeDistracted, ShouldBeTrue)
				So(d.GazeDirection, ShouldEqual, "DOWN")
				So(d.AlertType, ShouldEqual, model.AlertTypeDistracted)
			})
		})

		Convey("When nothing is wrong", func() {
			d := s.send(open, 30)
			So(d.Action, ShouldEqual, model.ActionNone)
			So(d.AlertType, ShouldEqual, model.AlertTypeNone)
			So(d.Score, ShouldEqual, 0)
		})
	})
}

func TestMonitorFaceLost(t *testing.T) {
	Convey("Given a session with a raised score", t, func() {
		s := newStream()
		s.send(open, 30)
		s.send(yawn, 6)

		Convey("When the face disappears briefly", func() {
			d := s.send(gone, 3)

			Convey("Then the score decays without a reset", func() {
				So(d.Score, ShouldEqual, 15)
				So(s.m.Snapshot().FaceLost, ShouldBeTrue)
			})
		})

		Convey("When the face stays away past the reset delay", func() {
			d := s.send(gone, 95)

			Convey("Then every detector is reset", func() {
				So(d.Score, ShouldEqual, 0)
				So(d.AlertType, ShouldEqual, model.AlertTypeNone)
				snap := s.m.Snapshot()
				So(snap.Mouth.State, ShouldEqual, "NEUTRAL")
				So(snap.Frames, ShouldEqual, 131)
			})

			Convey("And the face coming back clears the lost flag", func() {
				s.send(open, 1)
				So(s.m.Snapshot().FaceLost, ShouldBeFalse)
			})
		})
	})
}

func TestMonitorControls(t *testing.T) {
	Convey("Given a session monitor", t, func() {
		s := newStream()

		Convey("When timestamps go backwards", func() {
			s.m.Process(model.Frame{Face: true, EAR: 0.3, Timestamp: 1.0})
			d := s.m.Process(model.Frame{Face: true, EAR: 0.3, Timestamp: 0.5})

			Convey("Then they are clamped", func() {
				So(d.Timestamp, ShouldEqual, 1.0)
			})
		})

		Convey("When the sunglasses override is set", func() {
			s.m.SetManualSunglasses(true)
			d := s.send(open, 1)
			So(d.Sunglasses, ShouldBeTrue)
			So(s.m.Snapshot().ManualSunglasses, ShouldBeTrue)
		})

		Convey("When the session is reset after an alarm", func() {
			s.send(open, 30)
			s.send(closed, 60)
			s.m.Reset()
			d := s.send(open, 1)

			Convey("Then the score restarts but counters survive", func() {
				So(d.Score, ShouldEqual, 0)
				So(d.InAlarm, ShouldBeFalse)
				So(s.m.Snapshot().Frames, ShouldEqual, 91)
				So(s.m.Snapshot().MaxScore, ShouldBeGreaterThan, 30)
			})
		})

		Convey("When a frame carries NaN values", func() {
			nan := math.NaN()
			d := s.m.Process(model.Frame{Face: true, EAR: nan, MAR: nan, Pitch: nan})
			So(d.EAR, ShouldEqual, 0)
			So(d.Pitch, ShouldEqual, 0)
		})
	})
}

func TestConfig(t *testing.T) {
	Convey("Given the default monitor config", t, func() {
		cfg := DefaultConfig()
		So(cfg.Validate(), ShouldBeNil)

		Convey("Then an invalid fusion config is rejected", func() {
			cfg.Fusion.EARThreshold = 0
			_, err := New("s", cfg)
			So(errors.Is(err, fusion.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("Then an invalid face lost delay is rejected", func() {
			cfg.FaceLostReset = 0
			So(errors.Is(cfg.Validate(), fusion.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestMonitorPERCLOSAlert(t *testing.T) {
	Convey("Given a monitor with a fixed open-eye EAR of 0.30", t, func() {
		cfg := DefaultConfig()
		cfg.FixedEARThreshold = 0.30
		m, err := New("s1", cfg)
		So(err, ShouldBeNil)
		s := &stream{m: m}
		blink := model.Frame{Face: true, EAR: 0.20, MAR: 0.1, MouthRatio: 4}

		So(cfg.PERCLOSThreshold, ShouldEqual, 0.20)

		Convey("When 18 of 100 frames are closed", func() {
			var d model.Decision
			for i := 0; i < 100; i++ {
				if i%5 == 2 && i < 90 {
					d = s.send(blink, 1)
					continue
				}
				d = s.send(open, 1)
			}

			Convey("Then PERCLOS stays below the alert threshold", func() {
				So(d.PERCLOS, ShouldAlmostEqual, 0.18, 1e-9)
				So(d.EyeAlert, ShouldEqual, model.AlertNone)
				So(m.eyes.IsDrowsy(), ShouldBeFalse)
			})
		})

		Convey("When 25 of 100 frames are closed", func() {
			var d model.Decision
			for i := 0; i < 100; i++ {
				if i%4 == 2 {
					d = s.send(blink, 1)
					continue
				}
				d = s.send(open, 1)
			}

			Convey("Then a warning is raised", func() {
				So(d.PERCLOS, ShouldAlmostEqual, 0.25, 1e-9)
				So(d.EyeAlert, ShouldEqual, model.AlertWarning)
			})
		})
	})
}
