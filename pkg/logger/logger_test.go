package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given an initialized global logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf)), ShouldBeNil)
		defer func() { So(Sync(), ShouldBeNil) }()

		Convey("When logging through Get", func() {
			Get().Info(context.Background(), "hello", String("k", "v"))

			Convey("Then the line carries the fields and a source", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "msg=hello")
				So(out, ShouldContainSubstring, "k=v")
				So(out, ShouldContainSubstring, "source=")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(context.Background(), "quiet")
			Get().Warn(context.Background(), "loud")
			So(buf.String(), ShouldNotContainSubstring, "quiet")
			So(buf.String(), ShouldContainSubstring, "loud")
			So(SetLevelString("info"), ShouldBeNil)
		})

		Convey("When an unknown level is given", func() {
			So(SetLevelString("verbose"), ShouldNotBeNil)
		})

		Convey("When a named logger is used", func() {
			Named("worker").Info(context.Background(), "named", Int("partition", 3))
			So(buf.String(), ShouldContainSubstring, "worker.partition=3")
		})
	})
}

func TestLoggerJSON(t *testing.T) {
	Convey("Given a standalone json logger", t, func() {
		var buf bytes.Buffer
		l := New(WithFormat("JSON"), WithWriter(&buf))

		Convey("When every field kind is logged", func() {
			l.Debug(context.Background(), "fields",
				Bool("ok", true),
				Float64("score", 1.5),
				Duration("took", time.Second),
				Any("list", []int{1, 2}),
				Error(errors.New("boom")),
			)

			Convey("Then the output is one json object", func() {
				var rec map[string]any
				So(json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "fields")
				So(rec["level"], ShouldEqual, "DEBUG")
				So(rec["ok"], ShouldEqual, true)
				So(rec["score"], ShouldEqual, 1.5)
				So(rec["error"], ShouldEqual, "boom")
			})
		})
	})
}
