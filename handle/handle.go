// Package handle owns one media item's decoder and its playback state machine.
//
// A Handle is not safe for concurrent use. Every method must be called from the
// goroutine that owns the registry; asynchronous results come back as Events posted
// through Options.Post and are applied with Apply on that same goroutine.
package handle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reelcore/reelcore/buffer"
	"github.com/reelcore/reelcore/log"
	"github.com/reelcore/reelcore/media"
	"github.com/samber/mo"
)

// ErrCannotMute is returned by SetMuted when the primitive has no mute control.
var ErrCannotMute = errors.New("primitive cannot mute")

// Event carries an asynchronous result back to the owner goroutine.
// Generation is the configure token current when the work was issued.
type Event struct {
	ID         media.VideoID
	Generation uint64

	// Loaded marks the completion of Prepare; Metadata and Err describe it.
	Loaded   bool
	Metadata media.Metadata
	Err      error

	// Media is a notification pushed by the primitive when Loaded is false.
	Media media.Event
}

// Options wires a handle to its environment.
type Options struct {
	// Factory builds the primitive on the first Prepare after creation or Cleanup.
	Factory media.Factory

	// Post delivers events to the owner goroutine. It is called from other goroutines
	// and must not block forever.
	Post func(Event)

	// LoadTimeout bounds Prepare; zero means no bound.
	LoadTimeout time.Duration
}

// Handle wraps one media primitive bound to one video.
type Handle struct {
	id   media.VideoID
	url  string
	opts Options

	state   State
	resume  State // Playing or Paused, restored when a stall clears
	failure error

	meta      mo.Option[media.Metadata]
	buf       buffer.Snapshot
	hasBuffer bool

	level int
	muted bool

	generation  uint64
	prim        media.Primitive
	cancel      context.CancelFunc
	unsubscribe func()
}

// New returns an idle handle.
func New(id media.VideoID, opts Options) *Handle {
	return &Handle{
		id:    id,
		opts:  opts,
		state: Idle,
		level: MinLevel,
	}
}

func (h *Handle) ID() media.VideoID                   { return h.id }
func (h *Handle) URL() string                         { return h.url }
func (h *Handle) State() State                        { return h.state }
func (h *Handle) Failure() error                      { return h.failure }
func (h *Handle) Metadata() mo.Option[media.Metadata] { return h.meta }
func (h *Handle) Buffer() buffer.Snapshot             { return h.buf }
func (h *Handle) BufferedAhead() float64              { return h.buf.Ahead() }
func (h *Handle) LikelyToKeepUp() bool                { return h.buf.LikelyToKeepUp }
func (h *Handle) SpeedLevel() int                     { return h.level }
func (h *Handle) Rate() float32                       { return RateFor(h.level) }
func (h *Handle) Generation() uint64                  { return h.generation }
func (h *Handle) Muted() bool                         { return h.muted }

// IsStalled reports a stall, or buffer telemetry that says playback is about to stall.
func (h *Handle) IsStalled() bool {
	if h.state == Stalled {
		return true
	}
	return h.state == Playing && h.hasBuffer && h.buf.Stalled()
}

// Intends reports whether the handle wants to be playing, which is the case while
// Playing and while stalled out of Playing.
func (h *Handle) Intends() bool {
	return h.state == Playing || (h.state == Stalled && h.resume == Playing)
}

// Prepare starts loading url and returns the new generation.
// Any earlier load is cancelled and its completion will be discarded.
func (h *Handle) Prepare(url string) uint64 {
	h.detach()
	h.generation++
	gen := h.generation

	h.url = url
	h.state = Loading
	h.resume = Idle
	h.failure = nil
	h.meta = mo.None[media.Metadata]()
	h.buf = buffer.Snapshot{}
	h.hasBuffer = false
	h.level = MinLevel

	if h.prim == nil {
		if h.opts.Factory == nil {
			h.fail(&media.LoadError{URL: url, Err: errors.New("no media factory")})
			return gen
		}

		prim, err := h.opts.Factory(h.id)
		if err != nil {
			h.fail(&media.LoadError{URL: url, Err: fmt.Errorf("create primitive: %w", err)})
			return gen
		}
		h.prim = prim
	}

	id, post := h.id, h.opts.Post
	h.unsubscribe = h.prim.Subscribe(func(ev media.Event) {
		if post != nil {
			post(Event{ID: id, Generation: gen, Media: ev})
		}
	})

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if h.opts.LoadTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), h.opts.LoadTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	h.cancel = cancel

	prim := h.prim
	go func() {
		meta, err := prim.Load(ctx, url)
		if post != nil {
			post(Event{ID: id, Generation: gen, Loaded: true, Metadata: meta, Err: err})
		}
	}()

	log.Debugf("handle %s: prepare gen=%d url=%s", h.id, gen, url)
	return gen
}

// Apply folds an event into the handle. Events of another generation are dropped.
func (h *Handle) Apply(ev Event) Notice {
	if ev.Generation != h.generation || h.state == Idle {
		log.Debugf("handle %s: dropped stale event gen=%d current=%d", h.id, ev.Generation, h.generation)
		return NoticeNone
	}

	if ev.Loaded {
		return h.applyLoad(ev)
	}

	switch ev.Media.Kind {
	case media.EventFailed:
		if h.state == Failed {
			return NoticeNone
		}
		if h.prim != nil {
			_ = h.prim.Pause()
		}
		h.fail(fmt.Errorf("playback of %s: %w", h.url, ev.Media.Err))
		return NoticeFailed
	case media.EventBufferChanged:
		return h.applyBuffer(buffer.FromState(ev.Media.Buffer))
	case media.EventStalled:
		if h.enterStall() {
			return NoticeStallChanged
		}
		return NoticeNone
	case media.EventReachedEnd:
		if h.state == Playing || h.state == Stalled {
			return NoticeReachedEnd
		}
		return NoticeNone
	default:
		// readiness is driven by the Load completion
		return NoticeNone
	}
}

func (h *Handle) applyLoad(ev Event) Notice {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}

	if h.state != Loading {
		return NoticeNone
	}

	if ev.Err != nil {
		h.fail(&media.LoadError{URL: h.url, Err: ev.Err})
		return NoticeFailed
	}

	h.meta = mo.Some(ev.Metadata)
	h.state = Ready
	log.Debugf("handle %s: ready (%.1fs)", h.id, ev.Metadata.Duration)
	return NoticeReady
}

func (h *Handle) applyBuffer(snap buffer.Snapshot) Notice {
	h.buf = snap
	h.hasBuffer = true

	switch {
	case h.state == Stalled && !snap.Stalled():
		h.state = h.resume
		log.Debugf("handle %s: recovered from stall, %s", h.id, h.state)
		return NoticeStallChanged
	case h.state == Playing && snap.Empty:
		if h.enterStall() {
			return NoticeStallChanged
		}
	}

	return NoticeBuffer
}

func (h *Handle) enterStall() bool {
	if h.state != Playing && h.state != Paused {
		return false
	}

	h.resume = h.state
	h.state = Stalled
	log.Debugf("handle %s: stalled, %s", h.id, h.buf)
	return true
}

func (h *Handle) fail(err error) {
	h.state = Failed
	h.failure = err
	log.Warnf("handle %s: %v", h.id, err)
}

// Play starts playback. It returns false, leaving the state untouched, unless the
// handle is Ready, Paused or Stalled.
func (h *Handle) Play() bool {
	if !h.state.Playable() || h.prim == nil {
		log.Debugf("handle %s: play ignored while %s", h.id, h.state)
		return false
	}

	if err := h.prim.Play(); err != nil {
		log.Warnf("handle %s: play: %v", h.id, err)
		return false
	}

	h.state = Playing
	h.resume = Playing
	return true
}

// Pause stops playback. It does nothing unless the handle is Playing or Stalled.
func (h *Handle) Pause() {
	if h.state != Playing && h.state != Stalled {
		return
	}

	if err := h.prim.Pause(); err != nil {
		log.Warnf("handle %s: pause: %v", h.id, err)
	}

	h.state = Paused
	h.resume = Paused
}

// Restart seeks to the start and plays, used to loop at the end of the media.
func (h *Handle) Restart() bool {
	if !h.state.Loaded() {
		log.Debugf("handle %s: restart ignored while %s", h.id, h.state)
		return false
	}

	if err := h.prim.Seek(0); err != nil {
		log.Warnf("handle %s: seek: %v", h.id, err)
	}

	if h.state == Playing {
		if err := h.prim.Play(); err != nil {
			log.Warnf("handle %s: play: %v", h.id, err)
			return false
		}
		return true
	}

	return h.Play()
}

// SetSpeed applies the effective rate of level and returns it.
func (h *Handle) SetSpeed(level int) float32 {
	h.level = ClampLevel(level)
	rate := RateFor(h.level)

	if h.prim != nil && h.state != Idle {
		if err := h.prim.SetRate(rate); err != nil {
			log.Warnf("handle %s: set rate %.1f: %v", h.id, rate, err)
		}
	}

	return rate
}

// SetMuted switches audio off or on while video keeps rendering.
func (h *Handle) SetMuted(muted bool) error {
	m, ok := h.prim.(media.Muter)
	if !ok {
		return ErrCannotMute
	}

	if err := m.SetMuted(muted); err != nil {
		return fmt.Errorf("mute %s: %w", h.id, err)
	}

	h.muted = muted
	return nil
}

// Cleanup releases the primitive and returns to Idle. It is safe to call repeatedly.
func (h *Handle) Cleanup() {
	h.detach()
	h.generation++

	if h.prim != nil {
		if err := h.prim.Close(); err != nil {
			log.Warnf("handle %s: close: %v", h.id, err)
		}
		h.prim = nil
	}

	h.state = Idle
	h.resume = Idle
	h.failure = nil
	h.meta = mo.None[media.Metadata]()
	h.buf = buffer.Snapshot{}
	h.hasBuffer = false
	h.level = MinLevel
	h.muted = false
}

// detach stops listening to the primitive and cancels an in-flight load.
func (h *Handle) detach() {
	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}
