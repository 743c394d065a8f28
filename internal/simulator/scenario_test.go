package simulator

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vigil/internal/domain/model"
)

func TestScenarioFrames(t *testing.T) {
	Convey("Given the drowsy scenario", t, func() {
		s, err := Lookup("drowsy")
		So(err, ShouldBeNil)

		Convey("When frames are generated", func() {
			frames := s.Frames("sess-1", 30, 2*time.Second, 7)

			Convey("Then the stream is sequential and stamped", func() {
				So(len(frames), ShouldEqual, 60)
				for i, f := range frames {
					So(f.SessionID, ShouldEqual, "sess-1")
					So(f.Seq, ShouldEqual, uint64(i+1))
					So(f.Face, ShouldBeTrue)
					So(f.TS, ShouldAlmostEqual, float64(i)/30, 1e-9)
				}
			})

			Convey("Then the eyes are open before the warmup ends and closed after", func() {
				So(frames[0].EAR, ShouldBeGreaterThan, 0.28)
				So(frames[59].EAR, ShouldBeLessThan, 0.12)
			})

			Convey("Then the same seed reproduces the same stream", func() {
				So(s.Frames("sess-1", 30, 2*time.Second, 7), ShouldResemble, frames)
				So(s.Frames("sess-1", 30, 2*time.Second, 8), ShouldNotResemble, frames)
			})
		})
	})

	Convey("Given the yawning scenario", t, func() {
		s, _ := Lookup("yawning")
		frames := s.Frames("sess-1", 10, 5*time.Second, 1)

		Convey("Then yawns alternate with rest", func() {
			So(frames[5].MAR, ShouldEqual, restMAR)
			So(frames[10].MAR, ShouldEqual, yawnMAR)
			So(frames[10].MouthRatio, ShouldEqual, yawnRatio)
			So(frames[30].MAR, ShouldEqual, restMAR)
			So(frames[40].MAR, ShouldEqual, yawnMAR)
		})
	})

	Convey("Given the distracted scenario", t, func() {
		s, _ := Lookup("distracted")
		frames := s.Frames("sess-1", 10, 2*time.Second, 1)

		Convey("Then gaze is always present and drops after the warmup", func() {
			So(frames[0].Gaze, ShouldNotBeNil)
			So(frames[0].Gaze.Y, ShouldBeLessThan, 0.1)
			So(frames[15].Gaze.Y, ShouldEqual, lapGazeY)
		})
	})
}

func TestNodPitch(t *testing.T) {
	Convey("Given a nod cycle", t, func() {
		Convey("Then the pitch dips to the full depth and recovers", func() {
			So(nodPitch(0), ShouldAlmostEqual, 0, 1e-9)
			So(nodPitch(nodDip), ShouldAlmostEqual, -nodDepth, 1e-9)
			So(nodPitch(nodDip/2), ShouldAlmostEqual, -nodDepth/2, 1e-9)
			So(nodPitch(2*nodDip), ShouldAlmostEqual, 0, 1e-9)
			So(nodPitch(nodPeriod-0.1), ShouldAlmostEqual, 0, 1e-9)
		})
	})
}

func TestScenarioVerify(t *testing.T) {
	Convey("Given observations", t, func() {
		quiet := Observation{
			Live:    Live{Last: model.Decision{MouthState: "NEUTRAL"}},
			Summary: AlertSummary{ByType: map[string]int{}},
		}

		Convey("When the alert scenario sees no alerts", func() {
			s, _ := Lookup("alert")
			So(s.Verify(quiet), ShouldBeNil)
		})

		Convey("When the alert scenario sees an alert", func() {
			s, _ := Lookup("alert")
			o := quiet
			o.Summary = AlertSummary{Total: 1, ByType: map[string]int{"DROWSY": 1}}
			err := s.Verify(o)
			So(errors.Is(err, ErrExpectation), ShouldBeTrue)
		})

		Convey("When the drowsy scenario sees a drowsy alarm", func() {
			s, _ := Lookup("drowsy")
			o := quiet
			o.Summary = AlertSummary{Total: 1, ByType: map[string]int{"DROWSY": 1}}
			o.Live.Last.InAlarm = true
			So(s.Verify(o), ShouldBeNil)
		})

		Convey("When the smiling scenario never sees a smile", func() {
			s, _ := Lookup("smiling")
			So(errors.Is(s.Verify(quiet), ErrExpectation), ShouldBeTrue)
		})

		Convey("When the nodding scenario counts nods", func() {
			s, _ := Lookup("nodding")
			o := quiet
			o.Decisions = []model.Decision{{Nod: true}, {}, {Nod: true}}
			So(s.Verify(o), ShouldBeNil)
			o.Decisions = o.Decisions[:2]
			So(errors.Is(s.Verify(o), ErrExpectation), ShouldBeTrue)
		})
	})
}

func TestLookup(t *testing.T) {
	Convey("Given the scenario catalogue", t, func() {
		Convey("Then names are sorted and all resolvable", func() {
			names := Names()
			So(names, ShouldResemble, []string{"alert", "distracted", "drowsy", "nodding", "smiling", "sunglasses", "yawning"})
			for _, name := range names {
				s, err := Lookup(name)
				So(err, ShouldBeNil)
				So(s.Name, ShouldEqual, name)
				So(s.Description, ShouldNotBeEmpty)
			}
		})

		Convey("Then an unknown name is rejected", func() {
			_, err := Lookup("sleepwalking")
			So(errors.Is(err, ErrUnknownScenario), ShouldBeTrue)
		})

		Convey("Then a scenario list is parsed and validated", func() {
			names, err := ParseScenarios(" drowsy, yawning ,")
			So(err, ShouldBeNil)
			So(names, ShouldResemble, []string{"drowsy", "yawning"})

			names, err = ParseScenarios("")
			So(err, ShouldBeNil)
			So(names, ShouldResemble, Names())

			_, err = ParseScenarios("drowsy,bogus")
			So(errors.Is(err, ErrUnknownScenario), ShouldBeTrue)
		})
	})
}

func TestConfigDefaults(t *testing.T) {
	Convey("Given an empty config", t, func() {
		cfg := Config{}.withDefaults()

		Convey("Then every field has its default", func() {
			So(cfg.BaseURL, ShouldEqual, defaultBaseURL)
			So(cfg.Scenarios, ShouldResemble, Names())
			So(cfg.Duration, ShouldEqual, defaultDuration)
			So(cfg.FPS, ShouldEqual, defaultFPS)
			So(cfg.Batch, ShouldEqual, defaultBatch)
			So(cfg.Workers, ShouldEqual, defaultWorkers)
			So(cfg.Timeout, ShouldEqual, defaultTimeout)
			So(cfg.Seed, ShouldEqual, uint64(defaultSeed))
		})
	})
}
