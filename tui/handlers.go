package tui

import (
	"errors"
	"fmt"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/reelcore/reelcore/feed"
	"github.com/reelcore/reelcore/internal/ui"
	"github.com/reelcore/reelcore/log"
	"github.com/reelcore/reelcore/media"
	"github.com/reelcore/reelcore/rate"
	"github.com/samber/lo"
)

type (
	changedMsg struct{}
	stoppedMsg struct{}
)

// waitForChange delivers the next change notification of the feed.
func (b *statefulBubble) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.feed.Changes():
			return changedMsg{}
		case <-b.feed.Done():
			return stoppedMsg{}
		}
	}
}

func (b *statefulBubble) refreshCards() {
	b.cards = lo.SliceToMap(b.feed.Snapshot(), func(c feed.Card) (media.VideoID, feed.Card) {
		return c.ID, c
	})

	// the feed drops a press whose card stopped playing
	if b.state == pressingState {
		if c, ok := b.cards[b.pressed]; !ok || c.SpeedLevel == 1 {
			b.setState(browsingState)
		}
	}
}

// sync reconciles the feed with the viewport the way a layout pass would: cards about
// to scroll in get a player, every card whose visible fraction moved is reported, and
// cards far away are torn down.
func (b *statefulBubble) sync() error {
	for i, e := range b.catalogue {
		if !b.view.prepared(i) {
			continue
		}
		if _, ok := b.registered[e.ID]; ok {
			continue
		}
		if err := b.feed.Register(e.ID, e.URL); err != nil {
			return err
		}
		b.registered[e.ID] = struct{}{}
	}

	for _, i := range b.registeredIndexes() {
		e := b.catalogue[i]

		if !b.view.kept(i) {
			if err := b.feed.Teardown(e.ID); err != nil {
				return err
			}
			delete(b.registered, e.ID)
			delete(b.reported, e.ID)
			delete(b.cards, e.ID)
			continue
		}

		pct := b.view.visible(i)
		if last, ok := b.reported[e.ID]; ok && last == pct {
			continue
		}
		if err := b.feed.SetVisibility(e.ID, pct); err != nil {
			return err
		}
		b.reported[e.ID] = pct
	}

	return nil
}

func (b *statefulBubble) registeredIndexes() []int {
	var indexes []int
	for i, e := range b.catalogue {
		if _, ok := b.registered[e.ID]; ok {
			indexes = append(indexes, i)
		}
	}
	sort.Ints(indexes)
	return indexes
}

func (b *statefulBubble) scroll(delta float64) tea.Cmd {
	b.view.scroll(delta)
	return b.check(b.sync())
}

func (b *statefulBubble) snap(delta int) tea.Cmd {
	b.view.snap(delta)
	return b.check(b.sync())
}

func (b *statefulBubble) jump(i int) tea.Cmd {
	b.view.jump(i)
	return b.check(b.sync())
}

func (b *statefulBubble) current() (Entry, bool) {
	return b.entry(b.view.current())
}

func (b *statefulBubble) startPress() tea.Cmd {
	e, ok := b.current()
	if !ok {
		return nil
	}

	b.pressY = 0
	if err := b.feed.HandlePressGesture(e.ID, rate.Began, b.pressY); err != nil {
		return b.check(err)
	}

	// presses on a card that is not playing are ignored by the feed
	if b.feed.CurrentSpeedLevel(e.ID) == 1 {
		return ui.Notify(fmt.Sprintf("%s is not playing", e.ID))
	}

	b.pressed = e.ID
	b.setState(pressingState)
	return nil
}

func (b *statefulBubble) drag(dy float64) tea.Cmd {
	b.pressY += dy
	return b.check(b.feed.HandlePressGesture(b.pressed, rate.Changed, b.pressY))
}

func (b *statefulBubble) endPress(phase rate.Phase) tea.Cmd {
	b.setState(browsingState)
	return b.check(b.feed.HandlePressGesture(b.pressed, phase, b.pressY))
}

func (b *statefulBubble) retry() tea.Cmd {
	e, ok := b.current()
	if !ok {
		return nil
	}

	err := b.feed.Retry(e.ID)
	switch {
	case errors.Is(err, feed.ErrNotRetryable):
		return ui.Notify(fmt.Sprintf("%s has not failed", e.ID))
	case err != nil:
		return b.check(err)
	}

	log.Infof("tui: retrying %s", e.ID)
	return ui.Notify(fmt.Sprintf("retrying %s", e.ID))
}

func (b *statefulBubble) pauseAll() tea.Cmd {
	if err := b.feed.PauseAll(); err != nil {
		return b.check(err)
	}
	return ui.Notify("paused, scroll to play again")
}

func (b *statefulBubble) refresh() tea.Cmd {
	if err := b.feed.Refresh(); err != nil {
		return b.check(err)
	}

	b.registered = make(map[media.VideoID]struct{})
	b.reported = make(map[media.VideoID]float64)
	b.cards = make(map[media.VideoID]feed.Card)
	b.view.jump(0)

	return tea.Batch(b.check(b.sync()), ui.Notify("feed refreshed"))
}

func (b *statefulBubble) suspend() tea.Cmd {
	if err := b.feed.Suspend(); err != nil {
		return b.check(err)
	}
	b.setState(suspendedState)
	return nil
}

func (b *statefulBubble) resume() tea.Cmd {
	if err := b.feed.Resume(); err != nil {
		return b.check(err)
	}
	b.setState(browsingState)
	return nil
}

// check turns a failed feed command into the error view. The feed only fails once it stopped.
func (b *statefulBubble) check(err error) tea.Cmd {
	if err == nil {
		return nil
	}

	log.Error(err)
	b.raiseError(err)
	return nil
}
