package visibility

import (
	"math"
	"testing"

	"github.com/reelcore/reelcore/media"
	. "github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	calls []string
}

func (r *recorder) PlayVideo(id media.VideoID)  { r.calls = append(r.calls, "play "+string(id)) }
func (r *recorder) PauseVideo(id media.VideoID) { r.calls = append(r.calls, "pause "+string(id)) }
func (r *recorder) PauseAllVideos()             { r.calls = append(r.calls, "pause all") }

func TestThreshold(t *testing.T) {
	Convey("Given a tracker with nothing active", t, func() {
		rec := &recorder{}
		tr := New(rec)

		Convey("Exactly half visible activates", func() {
			tr.Update("x", 0.5)
			So(tr.Active().OrEmpty(), ShouldEqual, media.VideoID("x"))
			So(rec.calls, ShouldResemble, []string{"play x"})
		})

		Convey("Just under half does not", func() {
			tr.Update("x", 0.49999)
			So(tr.Active().IsPresent(), ShouldBeFalse)
			So(rec.calls, ShouldBeEmpty)
		})

		Convey("Just over half does", func() {
			tr.Update("x", 0.50001)
			So(tr.Active().OrEmpty(), ShouldEqual, media.VideoID("x"))
		})

		Convey("Crossing upward then downward plays then pauses", func() {
			tr.Update("x", 0.49)
			tr.Update("x", 0.51)
			So(tr.Active().OrEmpty(), ShouldEqual, media.VideoID("x"))
			tr.Update("x", 0.49)
			So(tr.Active().IsPresent(), ShouldBeFalse)
			So(rec.calls, ShouldResemble, []string{"play x", "pause x"})
		})

		Convey("Staying over half only records the fraction", func() {
			tr.Update("x", 0.6)
			tr.Update("x", 0.9)
			So(rec.calls, ShouldResemble, []string{"play x"})
			pct, ok := tr.Percentage("x")
			So(ok, ShouldBeTrue)
			So(pct, ShouldEqual, 0.9)
		})

		Convey("Fractions outside 0..1 are clamped and NaN counts as hidden", func() {
			tr.Update("x", 7)
			pct, _ := tr.Percentage("x")
			So(pct, ShouldEqual, 1)
			tr.Update("x", math.NaN())
			So(tr.Active().IsPresent(), ShouldBeFalse)
		})
	})
}

func TestSwitching(t *testing.T) {
	Convey("Given card a active", t, func() {
		rec := &recorder{}
		tr := New(rec)
		tr.Update("a", 1)

		Convey("Scrolling b into dominance pauses a before playing b", func() {
			tr.Update("b", 0.55)
			So(tr.Active().OrEmpty(), ShouldEqual, media.VideoID("b"))
			So(rec.calls, ShouldResemble, []string{"play a", "pause a", "play b"})

			Convey("a dropping under half afterwards is not a pause of the active card", func() {
				tr.Update("a", 0.45)
				So(rec.calls, ShouldHaveLength, 3)
			})
		})

		Convey("Switching to the active card is a no-op", func() {
			tr.SwitchTo("a")
			So(rec.calls, ShouldResemble, []string{"play a"})
		})

		Convey("PauseAll clears the active card", func() {
			tr.PauseAll()
			So(tr.Active().IsPresent(), ShouldBeFalse)
			So(rec.calls, ShouldResemble, []string{"play a", "pause all"})
		})

		Convey("PauseCurrent twice pauses once", func() {
			tr.PauseCurrent()
			tr.PauseCurrent()
			So(rec.calls, ShouldResemble, []string{"play a", "pause a"})
		})

		Convey("Forgetting the active card clears it silently", func() {
			tr.Forget("a")
			So(tr.Active().IsPresent(), ShouldBeFalse)
			_, ok := tr.Percentage("a")
			So(ok, ShouldBeFalse)
			So(rec.calls, ShouldHaveLength, 1)
		})
	})
}

func TestObserve(t *testing.T) {
	Convey("Observing a fraction records it without playing", t, func() {
		rec := &recorder{}
		tr := New(rec)
		tr.Observe("a", 0.8)
		So(rec.calls, ShouldBeEmpty)
		So(tr.Active().IsPresent(), ShouldBeFalse)
		So(tr.Dominant().OrEmpty(), ShouldEqual, media.VideoID("a"))
	})
}

func TestDominant(t *testing.T) {
	Convey("Given several remembered fractions", t, func() {
		tr := New(&recorder{})
		tr.percentages = map[media.VideoID]float64{"a": 0.3, "b": 0.7, "c": 0.5}

		Convey("The most visible one over the threshold wins", func() {
			So(tr.Dominant().OrEmpty(), ShouldEqual, media.VideoID("b"))
		})

		Convey("Ties go to the smallest id", func() {
			tr.percentages["d"] = 0.7
			So(tr.Dominant().OrEmpty(), ShouldEqual, media.VideoID("b"))
		})

		Convey("Nothing over the threshold means none", func() {
			tr.percentages = map[media.VideoID]float64{"a": 0.2}
			So(tr.Dominant().IsPresent(), ShouldBeFalse)
		})
	})
}
