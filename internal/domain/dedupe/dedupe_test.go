package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/vigil/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("When a frame key is new", func() {
			seen := d.SeenAndRecord(ctx, dedupe.Key("s1", 1))

			Convey("Then it is recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And a resubmission is reported as seen", func() {
				So(d.SeenAndRecord(ctx, dedupe.Key("s1", 1)), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And the same seq in another session is distinct", func() {
				So(d.SeenAndRecord(ctx, dedupe.Key("s2", 1)), ShouldBeFalse)
			})
		})

		Convey("When a key is unrecorded", func() {
			key := dedupe.Key("s1", 7)
			d.SeenAndRecord(ctx, key)
			d.Unrecord(ctx, key)

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, key), ShouldBeFalse)
			})
		})

		Convey("When a session is forgotten", func() {
			for i := uint64(0); i < 5; i++ {
				d.SeenAndRecord(ctx, dedupe.Key("gone", i))
				d.SeenAndRecord(ctx, dedupe.Key("kept", i))
			}
			d.Forget(ctx, "gone")

			Convey("Then only its keys are dropped", func() {
				So(d.Size(), ShouldEqual, 5)
				So(d.SeenAndRecord(ctx, dedupe.Key("gone", 0)), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, dedupe.Key("kept", 0)), ShouldBeTrue)
			})
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When more keys arrive than fit", func() {
			for i := uint64(1); i <= 4; i++ {
				d.SeenAndRecord(ctx, dedupe.Key("s", i))
			}

			Convey("Then the oldest key is evicted first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, dedupe.Key("s", 4)), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, dedupe.Key("s", 2)), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, dedupe.Key("s", 1)), ShouldBeFalse)
			})
		})

		Convey("When an unrecorded key leaves a stale slot", func() {
			d.SeenAndRecord(ctx, "s:1")
			d.Unrecord(ctx, "s:1")
			d.SeenAndRecord(ctx, "s:1")
			d.SeenAndRecord(ctx, "s:2")
			d.SeenAndRecord(ctx, "s:3")
			d.SeenAndRecord(ctx, "s:4")

			Convey("Then eviction skips the stale slot", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "s:2"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "s:1"), ShouldBeFalse)
			})
		})
	})

	Convey("Given concurrent submitters", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0

		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("s:%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then every key is recorded exactly once", func() {
			So(fresh, ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
