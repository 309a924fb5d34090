package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reelcore/reelcore/audio"
	"github.com/reelcore/reelcore/media"
	"github.com/reelcore/reelcore/media/sim"
	"github.com/reelcore/reelcore/rate"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	feed    *Feed
	pool    *sim.Pool
	journal *sim.Journal
	session *audio.StubSession
	cancel  context.CancelFunc
}

func start(opts Options) *harness {
	h := &harness{journal: sim.NewJournal(), session: &audio.StubSession{}}
	h.pool = sim.NewPool(sim.Config{Manual: true, Duration: 10, Journal: h.journal})

	opts.Factory = h.pool.Factory
	opts.Session = h.session
	h.feed = New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { _ = h.feed.Run(ctx) }()
	return h
}

func (h *harness) stop() {
	h.cancel()
	<-h.feed.Done()
}

func url(id media.VideoID) string {
	return "https://cdn.test/" + string(id) + ".mp4"
}

func (h *harness) register(id media.VideoID) {
	So(h.feed.Register(id, url(id)), ShouldBeNil)
}

func (h *harness) resolve(id media.VideoID) {
	prim, ok := h.pool.Get(id)
	So(ok, ShouldBeTrue)
	prim.Resolve(url(id), media.Metadata{Duration: 10, Title: string(id)})
	So(eventually(func() bool { return h.state(id) != "loading" }), ShouldBeTrue)
}

func (h *harness) buffered(id media.VideoID, end float64) {
	prim, _ := h.pool.Get(id)
	prim.Emit(media.Event{Kind: media.EventBufferChanged, Buffer: media.BufferState{
		Ranges:         []media.TimeRange{{Start: 0, End: end}},
		LikelyToKeepUp: true,
	}})
}

func (h *harness) state(id media.VideoID) string {
	card, ok := h.feed.Card(id)
	if !ok {
		return ""
	}
	return card.State
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestScrollBetweenCards(t *testing.T) {
	Convey("Given a feed with cards a and b ready", t, func() {
		h := start(Options{})
		defer h.stop()

		h.register("a")
		h.register("b")
		h.resolve("a")
		h.resolve("b")

		Convey("Showing a fully plays it", func() {
			So(h.feed.SetVisibility("a", 1.0), ShouldBeNil)
			So(h.feed.IsPlaying("a"), ShouldBeTrue)
			So(h.feed.IsPlaying("b"), ShouldBeFalse)

			Convey("Scrolling to b pauses a before b plays", func() {
				h.journal.Reset()
				So(h.feed.SetVisibility("b", 0.6), ShouldBeNil)
				So(h.feed.SetVisibility("a", 0.4), ShouldBeNil)

				So(h.journal.Ops(), ShouldResemble, []string{"a:pause", "b:play"})
				So(h.feed.IsPlaying("a"), ShouldBeFalse)
				So(h.feed.IsPlaying("b"), ShouldBeTrue)

				id, ok := h.feed.Active()
				So(ok, ShouldBeTrue)
				So(id, ShouldEqual, media.VideoID("b"))
			})

			Convey("Hiding a pauses it", func() {
				So(h.feed.SetVisibility("a", 0.2), ShouldBeNil)
				So(h.feed.IsPlaying("a"), ShouldBeFalse)
			})
		})

		Convey("A card under half visible never plays", func() {
			So(h.feed.SetVisibility("a", 0.49999), ShouldBeNil)
			So(h.feed.IsPlaying("a"), ShouldBeFalse)
		})
	})
}

func TestPlayOnceLoaded(t *testing.T) {
	Convey("Given a card that becomes visible while loading", t, func() {
		h := start(Options{})
		defer h.stop()

		h.register("a")
		So(h.feed.SetVisibility("a", 1), ShouldBeNil)

		card, _ := h.feed.Card("a")
		So(card.Pending, ShouldBeTrue)
		So(h.feed.IsPlaying("a"), ShouldBeFalse)

		Convey("It starts playing when the load completes", func() {
			h.resolve("a")
			So(h.feed.IsPlaying("a"), ShouldBeTrue)
		})

		Convey("A stale load of an earlier URL is ignored", func() {
			So(h.feed.Register("a", "https://cdn.test/other.mp4"), ShouldBeNil)
			prim, _ := h.pool.Get("a")
			prim.Resolve(url("a"), media.Metadata{Duration: 3})

			time.Sleep(20 * time.Millisecond)
			So(h.state("a"), ShouldEqual, "loading")

			prim.Resolve("https://cdn.test/other.mp4", media.Metadata{Duration: 7})
			So(eventually(func() bool { return h.feed.IsPlaying("a") }), ShouldBeTrue)

			card, _ := h.feed.Card("a")
			So(card.Duration, ShouldEqual, 7)
			So(card.URL, ShouldEqual, "https://cdn.test/other.mp4")
		})
	})
}

func TestFastForward(t *testing.T) {
	Convey("Given card a playing with two seconds buffered", t, func() {
		h := start(Options{})
		defer h.stop()

		h.register("a")
		h.resolve("a")
		So(h.feed.SetVisibility("a", 1), ShouldBeNil)
		h.buffered("a", 2)
		So(eventually(func() bool {
			card, _ := h.feed.Card("a")
			return card.BufferedAhead == 2
		}), ShouldBeTrue)

		Convey("A press plays at 2x", func() {
			So(h.feed.HandlePressGesture("a", rate.Began, 500), ShouldBeNil)
			So(h.feed.CurrentSpeedLevel("a"), ShouldEqual, 2)
			So(h.feed.EffectiveRate("a"), ShouldEqual, float32(2.0))

			Convey("Dragging to level 4 is throttled to the level 2 rate", func() {
				So(h.feed.HandlePressGesture("a", rate.Changed, 300), ShouldBeNil)
				So(h.feed.CurrentSpeedLevel("a"), ShouldEqual, 4)
				So(h.feed.EffectiveRate("a"), ShouldEqual, float32(2.0))

				Convey("More buffer lifts it to 2.5x", func() {
					h.buffered("a", 9)
					So(eventually(func() bool { return h.feed.EffectiveRate("a") == 2.5 }), ShouldBeTrue)

					card, _ := h.feed.Card("a")
					So(card.SpeedLabel, ShouldEqual, "4x")
				})

				Convey("Releasing returns to 1x", func() {
					So(h.feed.HandlePressGesture("a", rate.Ended, 300), ShouldBeNil)
					So(h.feed.CurrentSpeedLevel("a"), ShouldEqual, 1)
					So(h.feed.EffectiveRate("a"), ShouldEqual, float32(1.0))
				})

				Convey("Scrolling away ends the press", func() {
					So(h.feed.SetVisibility("a", 0.1), ShouldBeNil)
					So(h.feed.CurrentSpeedLevel("a"), ShouldEqual, 1)
					So(h.feed.EffectiveRate("a"), ShouldEqual, float32(1.0))
				})
			})
		})

		Convey("A press on a card that is not playing is ignored", func() {
			h.register("b")
			So(h.feed.HandlePressGesture("b", rate.Began, 500), ShouldBeNil)
			So(h.feed.CurrentSpeedLevel("b"), ShouldEqual, 1)
			So(h.feed.HandlePressGesture("zzz", rate.Began, 500), ShouldBeNil)
		})
	})
}

func TestTeardown(t *testing.T) {
	Convey("Given a playing card", t, func() {
		h := start(Options{})
		defer h.stop()

		h.register("a")
		h.resolve("a")
		So(h.feed.SetVisibility("a", 1), ShouldBeNil)

		Convey("Tearing it down twice closes it once", func() {
			So(h.feed.Teardown("a"), ShouldBeNil)
			So(h.feed.Teardown("a"), ShouldBeNil)

			closes := 0
			for _, op := range h.journal.Ops() {
				if op == "a:close" {
					closes++
				}
			}
			So(closes, ShouldEqual, 1)
			So(h.feed.Snapshot(), ShouldBeEmpty)

			_, deactivated := h.session.Counts()
			So(deactivated, ShouldEqual, 1)
		})

		Convey("Refresh tears everything down", func() {
			h.register("b")
			So(h.feed.Refresh(), ShouldBeNil)
			So(h.feed.Snapshot(), ShouldBeEmpty)
			_, ok := h.feed.Active()
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Commands after the feed stopped fail", t, func() {
		h := start(Options{})
		h.register("a")
		h.stop()

		So(h.feed.Register("b", url("b")), ShouldEqual, ErrStopped)
		So(h.feed.IsPlaying("a"), ShouldBeFalse)
		So(h.feed.Snapshot(), ShouldBeNil)

		prim, _ := h.pool.Get("a")
		So(prim.Closed(), ShouldBeTrue)
	})

	Convey("Run cannot be started twice", t, func() {
		h := start(Options{})
		defer h.stop()
		h.register("a")
		So(h.feed.Run(context.Background()), ShouldEqual, ErrRunning)
	})
}

func TestSuspendResume(t *testing.T) {
	Convey("Given a playing card", t, func() {
		h := start(Options{})
		defer h.stop()

		h.register("a")
		h.register("b")
		h.resolve("a")
		h.resolve("b")
		So(h.feed.SetVisibility("a", 1), ShouldBeNil)

		Convey("Suspend pauses it and Resume plays the most visible card", func() {
			So(h.feed.Suspend(), ShouldBeNil)
			So(h.feed.IsPlaying("a"), ShouldBeFalse)

			So(h.feed.SetVisibility("b", 0.9), ShouldBeNil)
			So(h.feed.SetVisibility("a", 0.1), ShouldBeNil)
			So(h.feed.IsPlaying("b"), ShouldBeFalse)

			So(h.feed.Resume(), ShouldBeNil)
			So(h.feed.IsPlaying("b"), ShouldBeTrue)
			So(h.feed.IsPlaying("a"), ShouldBeFalse)
		})

		Convey("PauseAll stops playback without suspending", func() {
			So(h.feed.PauseAll(), ShouldBeNil)
			So(h.feed.IsPlaying("a"), ShouldBeFalse)
			So(h.feed.SetVisibility("b", 0.8), ShouldBeNil)
			So(h.feed.IsPlaying("b"), ShouldBeTrue)
		})
	})
}

func TestFailureAndRetry(t *testing.T) {
	Convey("Given a visible card whose load fails", t, func() {
		h := start(Options{})
		defer h.stop()

		h.register("a")
		So(h.feed.SetVisibility("a", 1), ShouldBeNil)
		prim, _ := h.pool.Get("a")
		prim.Reject(url("a"), errors.New("404"))
		So(eventually(func() bool { return h.state("a") == "failed" }), ShouldBeTrue)

		card, _ := h.feed.Card("a")
		So(card.Failure, ShouldContainSubstring, "404")

		Convey("Retry loads it again and it plays", func() {
			So(h.feed.Retry("a"), ShouldBeNil)
			h.resolve("a")
			So(eventually(func() bool { return h.feed.IsPlaying("a") }), ShouldBeTrue)
		})

		Convey("Retry of a healthy card is refused", func() {
			h.register("b")
			So(h.feed.Retry("b"), ShouldEqual, ErrNotRetryable)
		})
	})
}

func TestAudioContention(t *testing.T) {
	Convey("When the audio session is refused the card plays muted", t, func() {
		h := start(Options{})
		defer h.stop()
		h.session.Deny(errors.New("call in progress"))

		h.register("a")
		h.resolve("a")
		So(h.feed.SetVisibility("a", 1), ShouldBeNil)

		card, _ := h.feed.Card("a")
		So(card.State, ShouldEqual, "playing")
		So(card.Muted, ShouldBeTrue)
		So(card.AudioDenied, ShouldBeTrue)
	})
}

func TestCardJSON(t *testing.T) {
	Convey("A card encodes with snake case keys", t, func() {
		raw, err := json.Marshal(Card{ID: "a", State: "playing", SpeedLevel: 1, SpeedLabel: "1x", Rate: 1})
		So(err, ShouldBeNil)
		So(string(raw), ShouldContainSubstring, `"speed_label":"1x"`)
		So(string(raw), ShouldNotContainSubstring, `"failure"`)
	})
}

// chattyPrimitive pushes a buffer sample every millisecond and joins that emitter on Close,
// like a decoder whose poller must finish before the process goes away.
type chattyPrimitive struct {
	*sim.Primitive
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func newChatty(inner *sim.Primitive) *chattyPrimitive {
	c := &chattyPrimitive{Primitive: inner, stop: make(chan struct{})}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()

		end := 0.0
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				end += 0.01
				c.Emit(media.Event{Kind: media.EventBufferChanged, Buffer: media.BufferState{
					Ranges:         []media.TimeRange{{Start: 0, End: end}},
					LikelyToKeepUp: true,
				}})
			}
		}
	}()
	return c
}

func (c *chattyPrimitive) Close() error {
	c.once.Do(func() {
		time.Sleep(50 * time.Millisecond)
		close(c.stop)
		c.wg.Wait()
	})
	return c.Primitive.Close()
}

func TestChattyDecoders(t *testing.T) {
	Convey("Given cards whose decoders keep sending while they close", t, func() {
		pool := sim.NewPool(sim.Config{Manual: true, Duration: 10})
		factory := func(id media.VideoID) (media.Primitive, error) {
			prim, err := pool.Factory(id)
			if err != nil {
				return nil, err
			}
			return newChatty(prim.(*sim.Primitive)), nil
		}

		f := New(Options{Factory: factory})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = f.Run(ctx) }()

		for _, id := range []media.VideoID{"a", "b", "c"} {
			So(f.Register(id, url(id)), ShouldBeNil)
			prim, ok := pool.Get(id)
			So(ok, ShouldBeTrue)
			prim.Resolve(url(id), media.Metadata{Duration: 10})
		}
		So(f.SetVisibility("a", 1), ShouldBeNil)
		So(eventually(func() bool { return f.IsPlaying("a") }), ShouldBeTrue)

		Convey("Teardown returns while the decoder is still sending", func() {
			So(f.Teardown("b"), ShouldBeNil)
			_, ok := f.Card("b")
			So(ok, ShouldBeFalse)
		})

		Convey("Cancelling stops the feed and closes every decoder", func() {
			cancel()

			stopped := false
			select {
			case <-f.Done():
				stopped = true
			case <-time.After(3 * time.Second):
			}
			So(stopped, ShouldBeTrue)
			So(f.Register("d", url("d")), ShouldEqual, ErrStopped)

			for _, id := range []media.VideoID{"a", "b", "c"} {
				prim, _ := pool.Get(id)
				So(prim.Closed(), ShouldBeTrue)
			}
		})

		Reset(func() {
			cancel()
			select {
			case <-f.Done():
			case <-time.After(3 * time.Second):
			}
		})
	})
}
