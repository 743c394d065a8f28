package model_test

import (
	"encoding/json"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	model "github.com/okian/vigil/internal/domain/model"
)

func TestAlertEnums(t *testing.T) {
	convey.Convey("Given the alert enums", t, func() {
		convey.Convey("When a decision is encoded", func() {
			d := model.Decision{
				SessionID:  "s1",
				Seq:        7,
				Action:     model.ActionAlarm,
				AlertType:  model.AlertTypeHeadDown,
				AlertLevel: model.AlertCritical,
				EyeAlert:   model.AlertWarning,
			}
			b, err := json.Marshal(d)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the enums are written by name", func() {
				s := string(b)
				convey.So(s, convey.ShouldContainSubstring, `"action":"alarm"`)
				convey.So(s, convey.ShouldContainSubstring, `"alert_type":"HEAD_DOWN"`)
				convey.So(s, convey.ShouldContainSubstring, `"alert_level":"CRITICAL"`)
				convey.So(s, convey.ShouldContainSubstring, `"eye_alert":"WARNING"`)
			})

			convey.Convey("Then decoding restores them", func() {
				var back model.Decision
				convey.So(json.Unmarshal(b, &back), convey.ShouldBeNil)
				convey.So(back, convey.ShouldResemble, d)
			})
		})

		convey.Convey("When parsing names", func() {
			lvl, err := model.ParseAlertLevel(" alarm ")
			convey.So(err, convey.ShouldBeNil)
			convey.So(lvl, convey.ShouldEqual, model.AlertAlarm)

			typ, err := model.ParseAlertType("distracted")
			convey.So(err, convey.ShouldBeNil)
			convey.So(typ, convey.ShouldEqual, model.AlertTypeDistracted)

			_, err = model.ParseAlertType("sleepy")
			convey.So(err, convey.ShouldNotBeNil)
			_, err = model.ParseAlertLevel("LOUD")
			convey.So(err, convey.ShouldNotBeNil)

			var a model.Action
			convey.So(a.UnmarshalText([]byte("honk")), convey.ShouldNotBeNil)
		})

		convey.Convey("When levels are compared", func() {
			convey.So(model.AlertCritical, convey.ShouldBeGreaterThan, model.AlertAlarm)
			convey.So(model.AlertAlarm, convey.ShouldBeGreaterThan, model.AlertWarning)
			convey.So(model.AlertWarning, convey.ShouldBeGreaterThan, model.AlertNone)
		})
	})
}
