// Package feed runs the playback core of one scrolling feed on a single owner goroutine.
//
// Every command from the host (layout passes, gestures, teardown) and every asynchronous
// result from a decoder is funnelled through Run, so the registry, the visibility tracker
// and the rate controller are only ever touched by that goroutine. The exported methods
// are safe to call from anywhere while Run is active.
package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reelcore/reelcore/audio"
	"github.com/reelcore/reelcore/handle"
	"github.com/reelcore/reelcore/log"
	"github.com/reelcore/reelcore/media"
	"github.com/reelcore/reelcore/rate"
	"github.com/reelcore/reelcore/registry"
	"github.com/reelcore/reelcore/visibility"
	"github.com/samber/mo"
)

var (
	// ErrStopped is returned by commands issued after Run has returned.
	ErrStopped = errors.New("feed is not running")

	// ErrRunning is returned by a second call to Run.
	ErrRunning = errors.New("feed is already running")

	// ErrNotRetryable is returned by Retry for cards that did not fail.
	ErrNotRetryable = errors.New("card has not failed")
)

// Options configures a feed.
type Options struct {
	Factory media.Factory

	// Session is the platform audio session, audio.NopSession when nil.
	Session audio.Session

	// Gate throttles fast-forward by buffer; the zero value means rate.DefaultGate.
	Gate     rate.Gate
	DragStep float64

	LoadTimeout time.Duration
	Loop        bool
}

type command struct {
	fn     func()
	done   chan struct{}
	silent bool
}

// Feed is the playback orchestration core of one feed screen.
type Feed struct {
	opts Options

	audio   *audio.Coordinator
	reg     *registry.Registry
	vis     *visibility.Tracker
	press   *rate.Controller
	pressed mo.Option[media.VideoID]

	suspended bool

	cmds    chan command
	changes chan struct{}

	// decoder events queue here without bound so posting never waits on the owner,
	// which may itself be waiting for a decoder to close
	inboxMu    sync.Mutex
	inbox      []handle.Event
	inboxReady chan struct{}

	done    chan struct{}
	running atomic.Bool
}

// New assembles a feed. Nothing happens until Run is started.
func New(opts Options) *Feed {
	if opts.Gate == (rate.Gate{}) {
		opts.Gate = rate.DefaultGate()
	}

	f := &Feed{
		opts:       opts,
		audio:      audio.NewCoordinator(opts.Session),
		press:      rate.NewController(opts.Gate, opts.DragStep),
		pressed:    mo.None[media.VideoID](),
		cmds:       make(chan command),
		inboxReady: make(chan struct{}, 1),
		changes:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	f.reg = registry.New(registry.Options{
		Factory:     opts.Factory,
		Post:        f.post,
		Audio:       f.audio,
		LoadTimeout: opts.LoadTimeout,
		Loop:        opts.Loop,
		OnBuffer:    f.reevaluate,
	})
	f.vis = visibility.New(f.reg)

	return f
}

// Run owns the feed until ctx is cancelled. On return every handle has been torn down.
func (f *Feed) Run(ctx context.Context) error {
	if !f.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(f.done)
	defer f.shutdown()

	log.Info("feed: started")
	for {
		select {
		case <-ctx.Done():
			log.Info("feed: stopping")
			return nil
		case c := <-f.cmds:
			c.fn()
			f.checkPress()
			close(c.done)
			if !c.silent {
				f.notify()
			}
		case <-f.inboxReady:
			for _, ev := range f.drain() {
				f.reg.Dispatch(ev)
			}
			f.checkPress()
			f.notify()
		}
	}
}

// Done is closed once Run has returned.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

// Changes receives a value, coalesced, whenever the observable state may have changed.
func (f *Feed) Changes() <-chan struct{} {
	return f.changes
}

func (f *Feed) shutdown() {
	f.endPress()
	f.reg.Close()
	f.vis.Reset()
}

func (f *Feed) notify() {
	select {
	case f.changes <- struct{}{}:
	default:
	}
}

// post is handed to every handle; it runs on decoder and loader goroutines and never blocks.
func (f *Feed) post(ev handle.Event) {
	select {
	case <-f.done:
		return
	default:
	}

	f.inboxMu.Lock()
	f.inbox = append(f.inbox, ev)
	f.inboxMu.Unlock()

	select {
	case f.inboxReady <- struct{}{}:
	default:
	}
}

func (f *Feed) drain() []handle.Event {
	f.inboxMu.Lock()
	defer f.inboxMu.Unlock()

	events := f.inbox
	f.inbox = nil
	return events
}

// do runs fn on the owner goroutine and waits for it.
func (f *Feed) do(fn func()) error {
	return f.send(command{fn: fn, done: make(chan struct{})})
}

// read is do for observers, which do not count as a change.
func (f *Feed) read(fn func()) error {
	return f.send(command{fn: fn, done: make(chan struct{}), silent: true})
}

func (f *Feed) send(c command) error {
	select {
	case f.cmds <- c:
	case <-f.done:
		return ErrStopped
	}

	<-c.done
	return nil
}

// Register creates the player of a card and starts loading url.
func (f *Feed) Register(id media.VideoID, url string) error {
	return f.do(func() {
		f.reg.Register(id, url)

		// a reused card that is already on screen plays as soon as it is ready
		if cur, ok := f.vis.Active().Get(); ok && cur == id && !f.suspended {
			f.reg.PlayVideo(id)
		}
	})
}

// SetVisibility reports the visible fraction of a card from a layout pass.
func (f *Feed) SetVisibility(id media.VideoID, pct float64) error {
	return f.do(func() {
		if f.suspended {
			f.vis.Observe(id, pct)
			return
		}
		f.vis.Update(id, pct)
	})
}

// HandlePressGesture feeds one long-press event of a card. y is the vertical touch
// location, growing downward. Presses on cards that are not playing are ignored.
func (f *Feed) HandlePressGesture(id media.VideoID, phase rate.Phase, y float64) error {
	return f.do(func() {
		h, ok := f.reg.Lookup(id)
		if !ok {
			log.Warnf("feed: press on unregistered %s ignored", id)
			return
		}

		if phase == rate.Began {
			if cur, ok := f.reg.Active().Get(); !ok || cur != id {
				log.Warnf("feed: press on inactive %s ignored", id)
				return
			}
			if prev, ok := f.pressed.Get(); ok && prev != id {
				f.endPress()
			}
			f.pressed = mo.Some(id)
			f.press.Began(y, h)
			return
		}

		if cur, ok := f.pressed.Get(); !ok || cur != id {
			log.Debugf("feed: %s gesture on unpressed %s ignored", phase, id)
			return
		}

		f.press.Handle(phase, y, h)
		if !f.press.Pressing() {
			f.pressed = mo.None[media.VideoID]()
		}
	})
}

// Teardown releases the player of a card that left the feed. It is idempotent.
func (f *Feed) Teardown(id media.VideoID) error {
	return f.do(func() {
		f.teardown(id)
	})
}

func (f *Feed) teardown(id media.VideoID) {
	if cur, ok := f.pressed.Get(); ok && cur == id {
		f.press.Reset()
		f.pressed = mo.None[media.VideoID]()
	}
	f.vis.Forget(id)
	f.reg.RemoveVideo(id)
}

// PauseAll pauses every card.
func (f *Feed) PauseAll() error {
	return f.do(func() {
		f.endPress()
		f.vis.PauseAll()
	})
}

// Refresh tears down every card, as when the feed is reloaded from the top.
func (f *Feed) Refresh() error {
	return f.do(func() {
		f.endPress()
		for _, id := range f.reg.IDs() {
			f.teardown(id)
		}
		f.vis.Reset()
		log.Info("feed: refreshed")
	})
}

// Suspend pauses everything when the host goes to the background. Visibility keeps being
// recorded but nothing plays until Resume.
func (f *Feed) Suspend() error {
	return f.do(func() {
		if f.suspended {
			return
		}
		f.suspended = true
		f.endPress()
		f.vis.PauseAll()
		log.Info("feed: suspended")
	})
}

// Resume plays the most visible card again after Suspend.
func (f *Feed) Resume() error {
	return f.do(func() {
		if !f.suspended {
			return
		}
		f.suspended = false
		if id, ok := f.vis.Dominant().Get(); ok {
			f.vis.SwitchTo(id)
		}
		log.Info("feed: resumed")
	})
}

// Retry reloads a card whose load failed.
func (f *Feed) Retry(id media.VideoID) error {
	var retried bool
	err := f.do(func() {
		retried = f.reg.Retry(id)
		if !retried {
			return
		}
		if cur, ok := f.vis.Active().Get(); ok && cur == id && !f.suspended {
			f.reg.PlayVideo(id)
		}
	})
	if err != nil {
		return err
	}
	if !retried {
		return ErrNotRetryable
	}
	return nil
}

// reevaluate re-gates the press after a buffer change of the pressed card.
func (f *Feed) reevaluate(id media.VideoID) {
	cur, ok := f.pressed.Get()
	if !ok || cur != id {
		return
	}
	if h, ok := f.reg.Lookup(id); ok {
		f.press.Reevaluate(h)
	}
}

// checkPress ends a press whose card stopped being the active one.
func (f *Feed) checkPress() {
	cur, ok := f.pressed.Get()
	if !ok {
		return
	}
	if active, ok := f.reg.Active().Get(); ok && active == cur {
		return
	}
	f.endPress()
}

func (f *Feed) endPress() {
	cur, ok := f.pressed.Get()
	if !ok {
		return
	}

	if h, ok := f.reg.Lookup(cur); ok {
		f.press.Ended(h)
	} else {
		f.press.Reset()
	}
	f.pressed = mo.None[media.VideoID]()
}
