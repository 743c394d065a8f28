package api

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vigil/internal/domain/model"
)

func TestFrameRequestValidate(t *testing.T) {
	ts := 1.5
	neg := -0.1
	Convey("Given frame requests", t, func() {
		valid := frameRequest{SessionID: "s1", Seq: 1, TS: &ts}

		Convey("A minimal frame is valid", func() {
			So(valid.validate(), ShouldBeNil)
		})

		Convey("Missing identity and timing fields are rejected", func() {
			f := valid
			f.SessionID = "  "
			So(f.validate(), ShouldNotBeNil)

			f = valid
			f.Seq = 0
			So(f.validate(), ShouldNotBeNil)

			f = valid
			f.TS = nil
			So(f.validate(), ShouldNotBeNil)

			f = valid
			f.TS = &neg
			So(f.validate(), ShouldNotBeNil)
		})

		Convey("Landmarks must be a full mesh", func() {
			f := valid
			f.Landmarks = make([]model.Point, 10)
			So(f.validate(), ShouldNotBeNil)
			f.Landmarks = make([]model.Point, meshPoints)
			So(f.validate(), ShouldBeNil)
			f.Landmarks = make([]model.Point, meshPointsIrises)
			So(f.validate(), ShouldBeNil)
		})

		Convey("Gaze must stay in range", func() {
			f := valid
			f.Gaze = &model.Gaze{X: 1.2}
			So(f.validate(), ShouldNotBeNil)
			f.Gaze = &model.Gaze{X: -0.4, Y: 0.9}
			So(f.validate(), ShouldBeNil)
		})

		Convey("Face defaults to present when omitted", func() {
			So(valid.toFrame().Face, ShouldBeTrue)
			absent := false
			f := valid
			f.Face = &absent
			So(f.toFrame().Face, ShouldBeFalse)
		})
	})
}
