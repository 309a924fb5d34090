package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reelcore/reelcore/media"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManualPrimitive(t *testing.T) {
	Convey("Given a manual primitive", t, func() {
		journal := NewJournal()
		p := New(Config{Name: "a", Manual: true, Duration: 10, Bandwidth: 2, Journal: journal})
		defer p.Close()

		Convey("A load resolved before it starts still completes", func() {
			p.Resolve("u1", media.Metadata{Duration: 10})
			meta, err := p.Load(context.Background(), "u1")
			So(err, ShouldBeNil)
			So(meta.Duration, ShouldEqual, 10)
		})

		Convey("A rejected load returns the cause", func() {
			p.Reject("u1", ErrInjected)
			_, err := p.Load(context.Background(), "u1")
			So(errors.Is(err, ErrInjected), ShouldBeTrue)
		})

		Convey("A cancelled load returns the context error", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := p.Load(ctx, "u1")
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("Side effects are journaled in order", func() {
			So(p.Play(), ShouldBeNil)
			So(p.SetRate(2), ShouldBeNil)
			So(p.Pause(), ShouldBeNil)
			So(journal.Ops(), ShouldResemble, []string{"a:play", "a:rate=2.00", "a:pause"})
			So(journal.Index("a:pause"), ShouldEqual, 2)
		})

		Convey("Subscribers receive emitted events until they cancel", func() {
			var got []media.EventKind
			cancel := p.Subscribe(func(ev media.Event) { got = append(got, ev.Kind) })
			p.Emit(media.Event{Kind: media.EventStalled})
			cancel()
			p.Emit(media.Event{Kind: media.EventReachedEnd})
			So(got, ShouldResemble, []media.EventKind{media.EventStalled})
		})

		Convey("Close is idempotent and rejects further calls", func() {
			So(p.Close(), ShouldBeNil)
			So(p.Close(), ShouldBeNil)
			So(errors.Is(p.Play(), media.ErrClosed), ShouldBeTrue)
			So(p.Closed(), ShouldBeTrue)
		})
	})
}

func TestStepModel(t *testing.T) {
	Convey("Given a loaded primitive buffering at 1s per second", t, func() {
		p := New(Config{Name: "a", Manual: true, Duration: 4, Bandwidth: 1})
		defer p.Close()

		p.Resolve("u", media.Metadata{Duration: 4})
		_, err := p.Load(context.Background(), "u")
		So(err, ShouldBeNil)

		var events []media.Event
		p.Subscribe(func(ev media.Event) { events = append(events, ev) })

		Convey("Buffer grows while paused", func() {
			p.Step(1)
			last := events[len(events)-1]
			So(last.Kind, ShouldEqual, media.EventBufferChanged)
			So(last.Buffer.Ranges[0].End, ShouldEqual, 1)
			So(last.Buffer.Position, ShouldEqual, 0)
		})

		Convey("Playing at 2x outruns the buffer and stalls", func() {
			So(p.SetRate(2), ShouldBeNil)
			So(p.Play(), ShouldBeNil)
			p.Step(1)
			So(events[0].Kind, ShouldEqual, media.EventStalled)
			So(events[1].Buffer.Empty, ShouldBeTrue)
			So(events[1].Buffer.LikelyToKeepUp, ShouldBeFalse)
		})

		Convey("Playing to the end reports it", func() {
			p.Step(4)
			So(p.Play(), ShouldBeNil)
			events = nil
			p.Step(4)
			So(events[0].Kind, ShouldEqual, media.EventReachedEnd)
			So(p.Playing(), ShouldBeFalse)
		})
	})
}

func TestAutoPrimitive(t *testing.T) {
	Convey("Given an auto primitive without a ticker", t, func() {
		p := New(Config{Name: "a", LoadLatency: time.Millisecond, Duration: 5, FailPattern: "broken"})
		defer p.Close()

		Convey("Loads resolve with the configured duration", func() {
			meta, err := p.Load(context.Background(), "https://cdn.test/ok.mp4")
			So(err, ShouldBeNil)
			So(meta.Duration, ShouldEqual, 5)
		})

		Convey("URLs matching the fail pattern are rejected", func() {
			_, err := p.Load(context.Background(), "https://cdn.test/broken.mp4")
			So(errors.Is(err, ErrInjected), ShouldBeTrue)
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool", t, func() {
		pool := NewPool(Config{Manual: true})

		Convey("Primitives are named and remembered by id", func() {
			prim, err := pool.Factory("v1")
			So(err, ShouldBeNil)
			got, ok := pool.Get("v1")
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, prim)
			So(pool.Created(), ShouldEqual, 1)
			So(prim.Close(), ShouldBeNil)
		})
	})
}
