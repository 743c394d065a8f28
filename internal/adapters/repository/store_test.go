package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func newStore(t *testing.T) *repository.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "vigil.db")
	s, err := repository.New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_New(t *testing.T) {
	Convey("Given a fresh database path", t, func() {
		dbPath := filepath.Join(t.TempDir(), "vigil.db")
		_, statErr := os.Stat(dbPath)
		So(os.IsNotExist(statErr), ShouldBeTrue)

		s, err := repository.New(context.Background(), dbPath, repository.WithBusyTimeout(time.Second))
		So(err, ShouldBeNil)
		defer s.Close()

		Convey("Then the file and both tables exist", func() {
			_, statErr := os.Stat(dbPath)
			So(statErr, ShouldBeNil)
			for _, table := range []string{"sessions", "alerts"} {
				var name string
				err := s.DB().QueryRow(
					"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
				).Scan(&name)
				So(err, ShouldBeNil)
			}
			So(s.Ping(context.Background()), ShouldBeNil)
		})

		Convey("Then reopening runs migrations idempotently", func() {
			So(s.Close(), ShouldBeNil)
			again, err := repository.New(context.Background(), dbPath)
			So(err, ShouldBeNil)
			So(again.Close(), ShouldBeNil)
		})
	})
}

func TestSessionRepository(t *testing.T) {
	Convey("Given a session repository", t, func() {
		ctx := context.Background()
		sessions := newStore(t).Sessions()
		start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

		So(sessions.Create(ctx, &repository.Session{ID: "s1", DriverID: "d1", StartedAt: start}), ShouldBeNil)

		Convey("When getting it back", func() {
			got, err := sessions.Get(ctx, "s1")

			Convey("Then the fields round-trip", func() {
				So(err, ShouldBeNil)
				So(got.DriverID, ShouldEqual, "d1")
				So(got.StartedAt.Equal(start), ShouldBeTrue)
				So(got.Active(), ShouldBeTrue)
			})
		})

		Convey("When the id is unknown", func() {
			_, err := sessions.Get(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(sessions.IncrementCounts(ctx, "nope", 1, 0, 0), repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(sessions.End(ctx, "nope", "api", start, 0, 0, 0), repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When counts are incremented", func() {
			So(sessions.IncrementCounts(ctx, "s1", 30, 1, 12), ShouldBeNil)
			So(sessions.IncrementCounts(ctx, "s1", 30, 0, 8), ShouldBeNil)
			got, err := sessions.Get(ctx, "s1")

			Convey("Then counters add up and max score only rises", func() {
				So(err, ShouldBeNil)
				So(got.Frames, ShouldEqual, 60)
				So(got.Alerts, ShouldEqual, 1)
				So(got.MaxScore, ShouldEqual, 12)
			})
		})

		Convey("When the session ends", func() {
			end := start.Add(10 * time.Minute)
			So(sessions.End(ctx, "s1", "idle", end, 900, 3, 40), ShouldBeNil)
			got, err := sessions.Get(ctx, "s1")

			Convey("Then it is closed with its final counters", func() {
				So(err, ShouldBeNil)
				So(got.Active(), ShouldBeFalse)
				So(got.EndedAt.Equal(end), ShouldBeTrue)
				So(got.EndReason, ShouldEqual, "idle")
				So(got.Frames, ShouldEqual, 900)
				So(got.MaxScore, ShouldEqual, 40)
			})

			Convey("Then ending it twice fails", func() {
				err := sessions.End(ctx, "s1", "api", end, 0, 0, 0)
				So(errors.Is(err, repository.ErrSessionEnded), ShouldBeTrue)
			})
		})

		Convey("When listing", func() {
			So(sessions.Create(ctx, &repository.Session{ID: "s2", StartedAt: start.Add(time.Minute)}), ShouldBeNil)
			So(sessions.Create(ctx, &repository.Session{ID: "s3", StartedAt: start.Add(2 * time.Minute)}), ShouldBeNil)
			So(sessions.End(ctx, "s3", "api", start.Add(3*time.Minute), 0, 0, 0), ShouldBeNil)

			all, err := sessions.List(ctx, 10, false)
			So(err, ShouldBeNil)
			active, err := sessions.List(ctx, 10, true)
			So(err, ShouldBeNil)

			Convey("Then newest come first and the active filter applies", func() {
				So(len(all), ShouldEqual, 3)
				So(all[0].ID, ShouldEqual, "s3")
				So(all[2].ID, ShouldEqual, "s1")
				So(len(active), ShouldEqual, 2)
			})

			Convey("Then a non-positive limit is rejected", func() {
				_, err := sessions.List(ctx, 0, false)
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			})
		})
	})
}

func TestAlertRepository(t *testing.T) {
	Convey("Given a session with alerts", t, func() {
		ctx := context.Background()
		store := newStore(t)
		So(store.Sessions().Create(ctx, &repository.Session{ID: "s1"}), ShouldBeNil)
		alerts := store.Alerts()
		base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

		decision := &model.Decision{
			SessionID:  "s1",
			Score:      31,
			Action:     model.ActionAlarm,
			AlertType:  model.AlertTypeDrowsy,
			AlertLevel: model.AlertAlarm,
			EAR:        0.08,
			PERCLOS:    0.4,
		}
		first := repository.AlertFromDecision(decision)
		first.CreatedAt = base
		So(alerts.Log(ctx, first), ShouldBeNil)

		second := &repository.Alert{
			SessionID: "s1",
			Type:      model.AlertTypeYawn,
			Level:     model.AlertWarning,
			Action:    model.ActionBeep,
			Score:     18,
			CreatedAt: base.Add(time.Second),
		}
		So(alerts.Log(ctx, second), ShouldBeNil)

		Convey("When listing by session", func() {
			got, err := alerts.ListBySession(ctx, "s1", 10)

			Convey("Then alerts come back oldest first with decoded enums", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].ID, ShouldNotBeEmpty)
				So(got[0].Type, ShouldEqual, model.AlertTypeDrowsy)
				So(got[0].Level, ShouldEqual, model.AlertAlarm)
				So(got[0].Action, ShouldEqual, model.ActionAlarm)
				So(got[0].PERCLOS, ShouldAlmostEqual, 0.4)
				So(got[1].Type, ShouldEqual, model.AlertTypeYawn)
				So(got[1].CreatedAt.Equal(base.Add(time.Second)), ShouldBeTrue)
			})
		})

		Convey("When summarising", func() {
			sum, err := alerts.Summary(ctx, "s1")

			Convey("Then counts are grouped by type and level", func() {
				So(err, ShouldBeNil)
				So(sum.Total, ShouldEqual, 2)
				So(sum.ByType["DROWSY"], ShouldEqual, 1)
				So(sum.ByType["YAWN"], ShouldEqual, 1)
				So(sum.ByLevel["WARNING"], ShouldEqual, 1)
				So(sum.MaxScore, ShouldEqual, 31)
			})
		})

		Convey("When logging against an unknown session", func() {
			err := alerts.Log(ctx, &repository.Alert{SessionID: "ghost"})

			Convey("Then the foreign key rejects it", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the session has no alerts", func() {
			So(store.Sessions().Create(ctx, &repository.Session{ID: "quiet"}), ShouldBeNil)
			got, err := alerts.ListBySession(ctx, "quiet", 10)
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
			sum, err := alerts.Summary(ctx, "quiet")
			So(err, ShouldBeNil)
			So(sum.Total, ShouldEqual, 0)
		})
	})
}
