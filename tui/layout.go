package tui

import (
	"math"

	"github.com/reelcore/reelcore/util"
)

const (
	// prefetchAhead is how many cards below the current one get a player before they scroll in.
	prefetchAhead = 2

	// keepAround is how far from the current card a player survives before it is torn down.
	keepAround = 3
)

// viewport models the scrolling feed. Every card is one screen tall and offset is the
// position of the top edge of the screen, measured in cards.
type viewport struct {
	offset float64
	count  int
}

func (v viewport) last() float64 {
	return math.Max(0, float64(v.count-1))
}

// scroll moves the screen by delta cards, staying inside the feed.
func (v *viewport) scroll(delta float64) {
	v.offset = util.Clamp(v.offset+delta, 0, v.last())
}

// snap moves the screen by whole cards and aligns it on a card.
func (v *viewport) snap(delta int) {
	v.offset = util.Clamp(math.Round(v.offset)+float64(delta), 0, v.last())
}

// jump aligns the screen on card i.
func (v *viewport) jump(i int) {
	v.offset = util.Clamp(float64(i), 0, v.last())
}

// current is the card covering most of the screen.
func (v viewport) current() int {
	return int(math.Round(v.offset))
}

// visible is the fraction of card i on screen.
func (v viewport) visible(i int) float64 {
	if i < 0 || i >= v.count {
		return 0
	}
	top := math.Max(float64(i), v.offset)
	bottom := math.Min(float64(i+1), v.offset+1)
	return util.Clamp(bottom-top, 0, 1)
}

// onScreen returns the indexes of the cards the screen touches.
func (v viewport) onScreen() []int {
	if v.count == 0 {
		return nil
	}
	first := int(math.Floor(v.offset))
	indexes := []int{first}
	if float64(first) != v.offset && first+1 < v.count {
		indexes = append(indexes, first+1)
	}
	return indexes
}

// prepared reports whether card i should have a player.
func (v viewport) prepared(i int) bool {
	cur := v.current()
	return i >= cur-1 && i <= cur+prefetchAhead && i < v.count
}

// kept reports whether the player of card i may stay alive.
func (v viewport) kept(i int) bool {
	cur := v.current()
	return i >= cur-keepAround && i <= cur+keepAround
}
