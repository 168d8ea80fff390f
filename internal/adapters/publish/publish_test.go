package publish_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/roster/internal/adapters/publish"
	"github.com/okian/roster/internal/domain/model"
	"github.com/okian/roster/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type failing struct{ err error }

func (f failing) Publish(context.Context, publish.Publication) error { return f.err }

func TestFeed(t *testing.T) {
	Convey("Given an empty feed", t, func() {
		ctx := context.Background()
		feed := publish.NewFeed()

		Convey("Then nothing should be published yet", func() {
			_, ok := feed.Latest("#CLAN")
			So(ok, ShouldBeFalse)
			So(feed.Len(), ShouldEqual, 0)
		})

		Convey("When two snapshots are published for a roster", func() {
			So(feed.Publish(ctx, publish.Publication{RosterID: "#CLAN", Signature: "a"}), ShouldBeNil)
			So(feed.Publish(ctx, publish.Publication{RosterID: "#CLAN", Signature: "b"}), ShouldBeNil)

			Convey("Then only the latest should be kept", func() {
				p, ok := feed.Latest("#CLAN")
				So(ok, ShouldBeTrue)
				So(p.Signature, ShouldEqual, "b")
				So(feed.Len(), ShouldEqual, 1)
			})

			Convey("And removing the roster should drop it", func() {
				feed.Remove("#CLAN")
				_, ok := feed.Latest("#CLAN")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the publication has no roster", func() {
			err := feed.Publish(ctx, publish.Publication{})

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, publish.ErrMissingRoster), ShouldBeTrue)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then publishing should fail", func() {
				So(feed.Publish(cctx, publish.Publication{RosterID: "#X"}), ShouldEqual, context.Canceled)
			})
		})
	})
}

func TestLogPublisherAndFanout(t *testing.T) {
	Convey("Given a log publisher behind a fanout", t, func() {
		var buf bytes.Buffer
		So(logger.Init(logger.WithFormat("json"), logger.WithOutput(&buf)), ShouldBeNil)

		feed := publish.NewFeed()
		boom := errors.New("boom")
		fan := publish.Fanout{feed, publish.NewLogPublisher(), failing{err: boom}}

		p := publish.Publication{
			RosterID:    "#CLAN",
			Algorithm:   "optimal",
			Assignments: []model.SlotAssignment{{Slot: 1, Name: "Alpha"}},
			PublishedAt: time.Now(),
		}
		err := fan.Publish(context.Background(), p)

		Convey("Then every publisher should run and errors should be joined", func() {
			So(errors.Is(err, boom), ShouldBeTrue)
			_, ok := feed.Latest("#CLAN")
			So(ok, ShouldBeTrue)
			So(buf.String(), ShouldContainSubstring, "snapshot published")
			So(buf.String(), ShouldContainSubstring, "Alpha")
		})
	})
}
