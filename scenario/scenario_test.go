package scenario

import (
	"bytes"
	"context"
	"testing"

	"github.com/reelcore/reelcore/audio"
	"github.com/reelcore/reelcore/feed"
	"github.com/reelcore/reelcore/filesystem"
	"github.com/reelcore/reelcore/media/sim"
	. "github.com/smartystreets/goconvey/convey"
)

func newRunner() (*Runner, *bytes.Buffer, func()) {
	journal := sim.NewJournal()
	session := &audio.StubSession{}
	pool := sim.NewPool(sim.Config{Manual: true, Duration: 10, Journal: journal})

	f := feed.New(feed.Options{Factory: pool.Factory, Session: session})
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = f.Run(ctx) }()

	out := &bytes.Buffer{}
	r := New(f, Options{Pool: pool, Journal: journal, Session: session, Out: out})

	return r, out, func() {
		cancel()
		<-f.Done()
	}
}

const switchScript = `
local feed = require("feed")

feed.register("a", "https://cdn.test/a.mp4")
feed.register("b", "https://cdn.test/b.mp4")
feed.resolve("a")
feed.resolve("b")

feed.visibility("a", 1.0)
assert(feed.playing("a"), "a should play")

feed.clear_journal()
feed.visibility("b", 0.6)
feed.visibility("a", 0.4)

local ops = feed.journal()
assert(ops[1] == "a:pause", "first op was " .. tostring(ops[1]))
assert(ops[2] == "b:play", "second op was " .. tostring(ops[2]))
assert(feed.active() == "b")
feed.log("active", feed.active())
`

const pressScript = `
local feed = require("feed")

feed.register("a", "https://cdn.test/a.mp4")
feed.resolve("a", 10)
feed.visibility("a", 1)
feed.buffer("a", 2)

feed.press("a", "began", 500)
feed.press("a", "changed", 300)
assert(feed.speed("a") == 4, "speed " .. feed.speed("a"))
assert(feed.rate("a") == 2, "rate " .. feed.rate("a"))

feed.buffer("a", 9)
assert(feed.rate("a") == 2.5, "rate after buffering " .. feed.rate("a"))

feed.press("a", "ended", 300)
assert(feed.rate("a") == 1)

feed.teardown("a")
feed.teardown("a")
assert(feed.state("a") == nil)
`

func TestRun(t *testing.T) {
	Convey("Given a runner over a fresh feed", t, func() {
		r, out, stop := newRunner()
		defer stop()

		Convey("The A/B switch scenario passes", func() {
			So(r.Run(context.Background(), "switch", switchScript), ShouldBeNil)
			So(out.String(), ShouldEqual, "active b\n")
		})

		Convey("The throttled press scenario passes", func() {
			So(r.Run(context.Background(), "press", pressScript), ShouldBeNil)
		})

		Convey("A failing assertion is reported", func() {
			err := r.Run(context.Background(), "bad", `assert(require("feed").playing("zzz"), "nothing plays")`)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "nothing plays")
		})

		Convey("An unknown gesture phase is an error", func() {
			err := r.Run(context.Background(), "phase", `
				local feed = require("feed")
				feed.register("a", "https://cdn.test/a.mp4")
				feed.press("a", "wiggle", 0)
			`)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "wiggle")
		})

		Convey("Load failures surface on the card and retry works", func() {
			So(r.Run(context.Background(), "retry", `
				local feed = require("feed")
				feed.register("a", "https://cdn.test/a.mp4")
				feed.fail("a", "404")
				assert(feed.state("a") == "failed")
				assert(feed.cards()[1].failure ~= "")
				assert(feed.retry("a"))
				feed.resolve("a")
				assert(feed.state("a") == "ready")
			`), ShouldBeNil)
		})

		Convey("Audio denial plays muted", func() {
			So(r.Run(context.Background(), "audio", `
				local feed = require("feed")
				feed.deny_audio("busy")
				feed.register("a", "https://cdn.test/a.mp4")
				feed.resolve("a")
				feed.visibility("a", 1)
				assert(feed.playing("a"))
				assert(feed.cards()[1].muted)
			`), ShouldBeNil)
		})

		Convey("Syntax errors fail before running", func() {
			err := r.Run(context.Background(), "syntax", `this is not lua`)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "compile")
		})

		Convey("Scripts are read through the filesystem", func() {
			filesystem.SetMemMapFs()
			defer filesystem.SetOsFs()

			So(filesystem.API().WriteFile("/scenarios/switch.lua", []byte(switchScript), 0o644), ShouldBeNil)
			So(r.RunFile(context.Background(), "/scenarios/switch.lua"), ShouldBeNil)
		})
	})
}
