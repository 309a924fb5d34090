package rate

import (
	"testing"

	"github.com/reelcore/reelcore/handle"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeTarget struct {
	ahead   float64
	keepUp  bool
	applied []int
}

func (f *fakeTarget) SetSpeed(level int) float32 {
	f.applied = append(f.applied, level)
	return handle.RateFor(level)
}

func (f *fakeTarget) BufferedAhead() float64 { return f.ahead }
func (f *fakeTarget) LikelyToKeepUp() bool   { return f.keepUp }

func (f *fakeTarget) last() int {
	if len(f.applied) == 0 {
		return 0
	}
	return f.applied[len(f.applied)-1]
}

func TestGate(t *testing.T) {
	gate := DefaultGate()

	Convey("With plenty of buffer every level is allowed", t, func() {
		for level := 2; level <= 4; level++ {
			So(gate.Allowed(level, 10, true, true), ShouldEqual, level)
		}
	})

	Convey("Level 4 needs six seconds", t, func() {
		So(gate.Allowed(4, 6.0, true, true), ShouldEqual, 4)
		So(gate.Allowed(4, 5.99, true, true), ShouldEqual, 3)
		So(gate.Allowed(4, 3.49, true, true), ShouldEqual, 2)
	})

	Convey("Level 3 needs three and a half seconds", t, func() {
		So(gate.Allowed(3, 3.5, true, true), ShouldEqual, 3)
		So(gate.Allowed(3, 3.49, true, true), ShouldEqual, 2)
	})

	Convey("Doubtful buffering caps at level 2", t, func() {
		So(gate.Allowed(4, 20, false, true), ShouldEqual, 2)
		So(gate.Allowed(3, 20, false, true), ShouldEqual, 2)
		So(gate.Allowed(2, 0, false, true), ShouldEqual, 2)
	})

	Convey("Outside a press the level is always 1", t, func() {
		So(gate.Allowed(4, 20, true, false), ShouldEqual, 1)
	})
}

func TestController(t *testing.T) {
	Convey("Given a controller and a well buffered target", t, func() {
		c := NewController(DefaultGate(), 0)
		target := &fakeTarget{ahead: 30, keepUp: true}

		Convey("A press applies level 2", func() {
			c.Handle(Began, 500, target)
			So(c.Pressing(), ShouldBeTrue)
			So(c.Level(), ShouldEqual, 2)
			So(target.last(), ShouldEqual, 2)

			Convey("Dragging up one step short stays at 2", func() {
				c.Handle(Changed, 441, target)
				So(c.Level(), ShouldEqual, 2)
				So(target.applied, ShouldResemble, []int{2})
			})

			Convey("Dragging up a full step raises to 3", func() {
				c.Handle(Changed, 440, target)
				So(c.Level(), ShouldEqual, 3)
				So(target.last(), ShouldEqual, 3)
			})

			Convey("Dragging far up stops at 4", func() {
				c.Handle(Changed, 0, target)
				So(c.Level(), ShouldEqual, 4)
				So(c.Applied(), ShouldEqual, 4)
			})

			Convey("Dragging down never goes under 2", func() {
				c.Handle(Changed, 900, target)
				So(c.Level(), ShouldEqual, 2)
			})

			Convey("Releasing returns to normal speed", func() {
				c.Handle(Changed, 380, target)
				c.Handle(Ended, 380, target)
				So(c.Pressing(), ShouldBeFalse)
				So(c.Level(), ShouldEqual, 1)
				So(target.applied, ShouldResemble, []int{2, 4, 1})
			})

			Convey("Cancelling also returns to normal speed", func() {
				c.Handle(Cancelled, 500, target)
				So(target.last(), ShouldEqual, 1)
			})
		})

		Convey("A drag without a press is ignored", func() {
			c.Handle(Changed, 0, target)
			So(target.applied, ShouldBeEmpty)
			So(c.Level(), ShouldEqual, 1)
		})
	})

	Convey("Given a target with two seconds buffered", t, func() {
		c := NewController(DefaultGate(), DefaultStep)
		target := &fakeTarget{ahead: 2.0, keepUp: true}

		Convey("A drag to level 4 applies the level 2 rate", func() {
			c.Began(500, target)
			c.Changed(300, target)
			So(c.Level(), ShouldEqual, 4)
			So(c.Applied(), ShouldEqual, 2)
			So(handle.RateFor(c.Applied()), ShouldEqual, float32(2.0))

			Convey("Buffer growth lifts the throttle on re-evaluation", func() {
				target.ahead = 4
				c.Reevaluate(target)
				So(c.Applied(), ShouldEqual, 3)

				target.ahead = 8
				c.Reevaluate(target)
				So(c.Applied(), ShouldEqual, 4)
				So(target.applied, ShouldResemble, []int{2, 2, 3, 4})
			})

			Convey("Re-evaluation without change does not touch the rate", func() {
				c.Reevaluate(target)
				So(target.applied, ShouldResemble, []int{2, 2})
			})
		})

		Convey("Re-evaluation outside a press does nothing", func() {
			c.Reevaluate(target)
			So(target.applied, ShouldBeEmpty)
		})
	})
}

func TestParsePhase(t *testing.T) {
	Convey("Phase names round trip", t, func() {
		for _, p := range []Phase{Began, Changed, Ended, Cancelled} {
			parsed, err := ParsePhase(p.String())
			So(err, ShouldBeNil)
			So(parsed, ShouldEqual, p)
		}
	})

	Convey("Unknown names are rejected", t, func() {
		_, err := ParsePhase("wiggle")
		So(err, ShouldNotBeNil)
	})
}
