package gaze

import (
	"testing"

	"github.com/okian/vigil/internal/domain/features"
	"github.com/okian/vigil/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// mesh builds a 478-point face whose eyes are 40x20 boxes and whose iris
// centres sit at the given offset (in box half-widths) from the eye centre.
func mesh(dx, dy float64) []model.Point {
	lm := make([]model.Point, features.NumIrisLandmarks)
	place := func(contour [6]int, iris int, cx, cy float64) {
		box := [6]model.Point{
			{X: cx - 20, Y: cy}, {X: cx - 7, Y: cy - 10}, {X: cx + 7, Y: cy - 10},
			{X: cx + 20, Y: cy}, {X: cx + 7, Y: cy + 10}, {X: cx - 7, Y: cy + 10},
		}
		for i, idx := range contour {
			lm[idx] = box[i]
		}
		lm[iris] = model.Point{X: cx + dx*20, Y: cy + dy*10}
	}
	place(features.LeftEye, features.LeftIris[0], 300, 200)
	place(features.RightEye, features.RightIris[0], 200, 200)
	return lm
}

func TestRatios(t *testing.T) {
	Convey("Given a gaze tracker", t, func() {
		g := New()

		Convey("When the irises are centred", func() {
			r, ok := g.Ratios(mesh(0, 0))
			So(ok, ShouldBeTrue)
			So(r.X, ShouldAlmostEqual, 0, 1e-9)
			So(r.Y, ShouldAlmostEqual, 0, 1e-9)
		})

		Convey("When the irises sit halfway right", func() {
			r, _ := g.Ratios(mesh(0.5, 0))
			So(r.X, ShouldAlmostEqual, 0.5, 1e-9)
			So(g.Info().Left.X, ShouldAlmostEqual, 0.5, 1e-9)
			So(g.Info().Right.X, ShouldAlmostEqual, 0.5, 1e-9)
		})

		Convey("When the irises leave the eye box", func() {
			r, _ := g.Ratios(mesh(0, 3))
			So(r.Y, ShouldEqual, 1.0)
		})

		Convey("When the mesh has no iris points", func() {
			_, ok := g.Ratios(make([]model.Point, features.NumFaceLandmarks))
			So(ok, ShouldBeFalse)
		})

		Convey("When ratios change the smoothed value lags", func() {
			for i := 0; i < 4; i++ {
				g.Ratios(mesh(0, 0))
			}
			r, _ := g.Ratios(mesh(1, 0))
			So(r.X, ShouldAlmostEqual, 0.2, 1e-9)
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given a gaze tracker", t, func() {
		g := New()

		So(g.Classify(Ratio{}), ShouldEqual, Center)
		So(g.Classify(Ratio{X: -0.3}), ShouldEqual, Left)
		So(g.Classify(Ratio{X: 0.3}), ShouldEqual, Right)
		So(g.Classify(Ratio{Y: -0.35}), ShouldEqual, Up)
		So(g.Classify(Ratio{Y: 0.35}), ShouldEqual, Down)

		Convey("Then vertical wins over horizontal", func() {
			So(g.Classify(Ratio{X: 0.9, Y: 0.5}), ShouldEqual, Down)
		})

		Convey("Then only centre is on road", func() {
			So(Center.OnRoad(), ShouldBeTrue)
			So(Down.OnRoad(), ShouldBeFalse)
			So(Left.String(), ShouldEqual, "LEFT")
		})
	})
}

func TestDistraction(t *testing.T) {
	Convey("Given a gaze tracker", t, func() {
		g := New()

		Convey("When the driver looks down for over two seconds", func() {
			var confirmed bool
			var dur float64
			var dir Direction
			for i := 0; i <= 66; i++ {
				confirmed, dur, dir = g.Update(Ratio{Y: 0.6}, float64(i)/30)
			}
			So(confirmed, ShouldBeTrue)
			So(dur, ShouldBeGreaterThan, 2.0)
			So(dir, ShouldEqual, Down)
			So(g.Info().Distracted, ShouldBeTrue)

			Convey("Then looking back at the road resets it", func() {
				confirmed, dur, dir = g.Update(Ratio{}, 2.3)
				So(confirmed, ShouldBeFalse)
				So(dur, ShouldEqual, 0)
				So(dir, ShouldEqual, Center)
			})
		})

		Convey("When the glance is short", func() {
			g.Update(Ratio{X: -0.5}, 0)
			confirmed, dur, _ := g.Update(Ratio{X: -0.5}, 1.0)
			So(confirmed, ShouldBeFalse)
			So(dur, ShouldEqual, 1.0)
		})

		Convey("When reset", func() {
			g.Update(Ratio{X: -0.5}, 0)
			g.Reset()
			So(g.Direction(), ShouldEqual, Center)
			So(g.Info().OffRoadTime, ShouldEqual, 0)
		})
	})
}
