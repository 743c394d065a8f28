package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/vigil/internal/app"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/monitor"
	"github.com/okian/vigil/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func newService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	base := []service.Option{
		service.WithDBPath(filepath.Join(t.TempDir(), "vigil.db")),
		service.WithPartitions(2),
		service.WithQueueSize(1000),
		service.WithDedupeSize(500),
	}
	return service.New(append(base, opts...)...)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["queueSize"], ShouldEqual, 4096)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithPartitions(4),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
			service.WithIdleSessionTimeout(time.Minute),
			service.WithJanitorInterval(time.Second),
			service.WithStreamBuffer(8),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["partitions"], ShouldEqual, 4)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := newService(t)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			err := svc.Start(ctx)
			defer func() { _ = svc.Stop(ctx) }()

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
			})

			Convey("And it should report its components", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["workers"], ShouldEqual, 2)
				So(stats["queueCapacity"], ShouldEqual, 1000)
				So(stats["sessionsActive"], ShouldEqual, 0)
			})

			Convey("And starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And the stream handler is available", func() {
				So(svc.Stream(), ShouldNotBeNil)
			})
		})

		Convey("When the detection config is invalid", func() {
			cfg := monitor.DefaultConfig()
			cfg.FaceLostReset = -1
			bad := newService(t, service.WithMonitorConfig(cfg))

			Convey("Then start fails", func() {
				So(bad.Start(ctx), ShouldNotBeNil)
			})
		})
	})
}

func TestService_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := newService(t)
		ctx := context.Background()

		Convey("Then session operations report it", func() {
			_, err := svc.CreateSession(ctx, "d1")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			err = svc.Enqueue(ctx, model.Frame{SessionID: "s", Seq: 1})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			So(svc.HasSession("s"), ShouldBeFalse)
			So(svc.Size(), ShouldEqual, 0)
		})

		Convey("Then stopping is a no-op", func() {
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})
}
