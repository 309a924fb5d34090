// Package visibility turns per-card visible fractions into "this one should play" decisions.
package visibility

import (
	"math"
	"sort"

	"github.com/reelcore/reelcore/log"
	"github.com/reelcore/reelcore/media"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Threshold is the visible fraction at which a card becomes the active one. It is inclusive.
const Threshold = 0.5

// Orchestrator is what the tracker drives.
type Orchestrator interface {
	PlayVideo(id media.VideoID)
	PauseVideo(id media.VideoID)
	PauseAllVideos()
}

// Tracker remembers the active card and the last visible fraction of each card.
type Tracker struct {
	orch        Orchestrator
	active      mo.Option[media.VideoID]
	percentages map[media.VideoID]float64
}

// New returns a tracker with no active card.
func New(orch Orchestrator) *Tracker {
	return &Tracker{
		orch:        orch,
		active:      mo.None[media.VideoID](),
		percentages: make(map[media.VideoID]float64),
	}
}

// Active returns the card the tracker wants playing.
func (t *Tracker) Active() mo.Option[media.VideoID] {
	return t.active
}

// Percentage returns the last reported visible fraction of id.
func (t *Tracker) Percentage(id media.VideoID) (float64, bool) {
	pct, ok := t.percentages[id]
	return pct, ok
}

func (t *Tracker) isActive(id media.VideoID) bool {
	cur, ok := t.active.Get()
	return ok && cur == id
}

// Update records the visible fraction of id from the latest layout pass and switches
// or pauses when it crosses the threshold.
func (t *Tracker) Update(id media.VideoID, pct float64) {
	t.Observe(id, pct)
	pct = t.percentages[id]

	active := t.isActive(id)
	switch {
	case pct >= Threshold && !active:
		t.SwitchTo(id)
	case pct < Threshold && active:
		t.PauseCurrent()
	}
}

// Observe records the visible fraction of id without acting on it, used while the feed
// is in the background.
func (t *Tracker) Observe(id media.VideoID, pct float64) {
	if math.IsNaN(pct) {
		pct = 0
	}
	t.percentages[id] = lo.Clamp(pct, 0, 1)
}

// SwitchTo makes id the active card, pausing the previous one first.
func (t *Tracker) SwitchTo(id media.VideoID) {
	if t.isActive(id) {
		return
	}

	if cur, ok := t.active.Get(); ok {
		t.orch.PauseVideo(cur)
	}

	log.Debugf("visibility: %s is now dominant", id)
	t.active = mo.Some(id)
	t.orch.PlayVideo(id)
}

// PauseCurrent pauses the active card and clears it.
func (t *Tracker) PauseCurrent() {
	cur, ok := t.active.Get()
	if !ok {
		return
	}

	t.active = mo.None[media.VideoID]()
	t.orch.PauseVideo(cur)
}

// PauseAll clears the active card and pauses every card.
func (t *Tracker) PauseAll() {
	t.active = mo.None[media.VideoID]()
	t.orch.PauseAllVideos()
}

// Forget drops everything known about id, used when its card goes away.
func (t *Tracker) Forget(id media.VideoID) {
	delete(t.percentages, id)
	if t.isActive(id) {
		t.active = mo.None[media.VideoID]()
	}
}

// Reset forgets every card without touching playback.
func (t *Tracker) Reset() {
	t.active = mo.None[media.VideoID]()
	t.percentages = make(map[media.VideoID]float64)
}

// Dominant returns the most visible card at or over the threshold. Ties go to the
// smallest id so the answer is stable.
func (t *Tracker) Dominant() mo.Option[media.VideoID] {
	ids := lo.Keys(t.percentages)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	best := mo.None[media.VideoID]()
	bestPct := -1.0
	for _, id := range ids {
		pct := t.percentages[id]
		if pct >= Threshold && pct > bestPct {
			best, bestPct = mo.Some(id), pct
		}
	}
	return best
}
