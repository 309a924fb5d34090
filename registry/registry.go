// Package registry is the single source of truth mapping video ids to player handles.
//
// It enforces that at most one handle is playing: switching from a to b always pauses a
// before b is asked to play. A Registry is owned by one feed and, like the handles it
// holds, must only be used from that feed's goroutine.
package registry

import (
	"sort"
	"time"

	"github.com/reelcore/reelcore/audio"
	"github.com/reelcore/reelcore/handle"
	"github.com/reelcore/reelcore/log"
	"github.com/reelcore/reelcore/media"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Options configures a registry.
type Options struct {
	Factory     media.Factory
	Post        func(handle.Event)
	Audio       *audio.Coordinator
	LoadTimeout time.Duration

	// Loop restarts the active video when it reaches its end.
	Loop bool

	// OnBuffer is called after a buffer or stall change was applied to a handle.
	OnBuffer func(id media.VideoID)
}

// Registry owns every handle of a feed.
type Registry struct {
	opts Options

	handles map[media.VideoID]*handle.Handle
	active  mo.Option[media.VideoID]
	pending mo.Option[media.VideoID]

	audioHeld   map[media.VideoID]bool
	audioDenied map[media.VideoID]error
}

// New returns an empty registry. A nil Audio gets a coordinator over audio.NopSession.
func New(opts Options) *Registry {
	if opts.Audio == nil {
		opts.Audio = audio.NewCoordinator(nil)
	}

	return &Registry{
		opts:        opts,
		handles:     make(map[media.VideoID]*handle.Handle),
		active:      mo.None[media.VideoID](),
		pending:     mo.None[media.VideoID](),
		audioHeld:   make(map[media.VideoID]bool),
		audioDenied: make(map[media.VideoID]error),
	}
}

// Register creates and prepares the handle of id. Registering a known id with the same
// URL is a no-op; with another URL the handle is paused and re-prepared.
func (r *Registry) Register(id media.VideoID, url string) {
	if h, ok := r.handles[id]; ok {
		if h.URL() == url && h.State() != handle.Idle {
			return
		}
		r.PauseVideo(id)
		h.Prepare(url)
		return
	}

	h := handle.New(id, handle.Options{
		Factory:     r.opts.Factory,
		Post:        r.opts.Post,
		LoadTimeout: r.opts.LoadTimeout,
	})
	r.handles[id] = h
	h.Prepare(url)
	log.Debugf("registry: registered %s", id)
}

// Lookup returns the handle of id. Callers must not keep it past the current call.
func (r *Registry) Lookup(id media.VideoID) (*handle.Handle, bool) {
	h, ok := r.handles[id]
	return h, ok
}

// IDs returns the registered ids in order.
func (r *Registry) IDs() []media.VideoID {
	ids := lo.Keys(r.handles)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	return len(r.handles)
}

// Active returns the id of the playing handle.
func (r *Registry) Active() mo.Option[media.VideoID] {
	return r.active
}

// Pending returns the id waiting to become ready before it plays.
func (r *Registry) Pending() mo.Option[media.VideoID] {
	return r.pending
}

// Playing lists the handles currently in the Playing state.
func (r *Registry) Playing() []media.VideoID {
	return lo.Filter(r.IDs(), func(id media.VideoID, _ int) bool {
		return r.handles[id].State() == handle.Playing
	})
}

// AudioDenied returns the audio activation failure recorded for id, if any.
func (r *Registry) AudioDenied(id media.VideoID) error {
	return r.audioDenied[id]
}

func (r *Registry) is(opt mo.Option[media.VideoID], id media.VideoID) bool {
	cur, ok := opt.Get()
	return ok && cur == id
}

// PlayVideo makes id the playing video. The previous one is paused first. A handle still
// loading is remembered and played as soon as it is ready.
func (r *Registry) PlayVideo(id media.VideoID) {
	h, ok := r.handles[id]
	if !ok {
		log.Debugf("registry: play of unregistered %s ignored", id)
		return
	}

	if cur, ok := r.active.Get(); ok {
		if cur == id && h.Intends() {
			return
		}
		if cur != id {
			r.PauseVideo(cur)
		}
	}
	r.pending = mo.None[media.VideoID]()

	if !h.State().Playable() {
		if h.State() == handle.Loading {
			r.pending = mo.Some(id)
			log.Debugf("registry: %s will play once ready", id)
		} else {
			log.Debugf("registry: %s cannot play while %s", id, h.State())
		}
		return
	}

	acquired := r.acquireAudio(id, h)

	if h.Play() {
		r.active = mo.Some(id)
		log.Debugf("registry: playing %s", id)
		return
	}

	if acquired {
		delete(r.audioHeld, id)
		r.opts.Audio.Release()
	}
}

// acquireAudio takes the audio reference of id, reporting whether this call took it.
func (r *Registry) acquireAudio(id media.VideoID, h *handle.Handle) bool {
	if r.audioHeld[id] {
		return false
	}

	if err := r.opts.Audio.Acquire(); err != nil {
		r.audioDenied[id] = err
		if muteErr := h.SetMuted(true); muteErr != nil {
			log.Warnf("registry: %s plays without an audio session: %v", id, muteErr)
		}
		return false
	}

	r.audioHeld[id] = true
	delete(r.audioDenied, id)
	if h.Muted() {
		if err := h.SetMuted(false); err != nil {
			log.Warnf("registry: unmute %s: %v", id, err)
		}
	}
	return true
}

// PauseVideo pauses id and clears it as the active or pending video.
func (r *Registry) PauseVideo(id media.VideoID) {
	if r.is(r.pending, id) {
		r.pending = mo.None[media.VideoID]()
	}

	h, ok := r.handles[id]
	if !ok {
		return
	}

	h.Pause()
	if r.is(r.active, id) {
		r.active = mo.None[media.VideoID]()
	}
}

// PauseAllVideos pauses every handle, used on backgrounding and refresh.
func (r *Registry) PauseAllVideos() {
	for _, id := range r.IDs() {
		r.handles[id].Pause()
	}
	r.active = mo.None[media.VideoID]()
	r.pending = mo.None[media.VideoID]()
}

// RemoveVideo pauses, tears down and forgets id. Removing an unknown id does nothing.
// The audio session is deactivated once no handle holds it.
func (r *Registry) RemoveVideo(id media.VideoID) {
	h, ok := r.handles[id]
	if !ok {
		return
	}

	r.PauseVideo(id)
	h.Cleanup()
	delete(r.handles, id)
	delete(r.audioDenied, id)

	if r.audioHeld[id] {
		delete(r.audioHeld, id)
		r.opts.Audio.Release()
	}

	log.Debugf("registry: removed %s, %d left", id, len(r.handles))
}

// Retry prepares a failed handle again. It reports whether a retry was issued.
func (r *Registry) Retry(id media.VideoID) bool {
	h, ok := r.handles[id]
	if !ok || h.State() != handle.Failed {
		return false
	}

	h.Prepare(h.URL())
	return true
}

// Dispatch applies an asynchronous handle event and reacts to what it changed.
func (r *Registry) Dispatch(ev handle.Event) handle.Notice {
	h, ok := r.handles[ev.ID]
	if !ok {
		log.Debugf("registry: event for removed %s dropped", ev.ID)
		return handle.NoticeNone
	}

	notice := h.Apply(ev)

	switch notice {
	case handle.NoticeReady:
		if r.is(r.pending, ev.ID) {
			r.PlayVideo(ev.ID)
		}
	case handle.NoticeFailed:
		if r.is(r.active, ev.ID) {
			r.active = mo.None[media.VideoID]()
		}
		if r.is(r.pending, ev.ID) {
			r.pending = mo.None[media.VideoID]()
		}
	case handle.NoticeReachedEnd:
		if r.opts.Loop && r.is(r.active, ev.ID) {
			h.Restart()
		} else {
			r.PauseVideo(ev.ID)
		}
	case handle.NoticeBuffer, handle.NoticeStallChanged:
		if r.opts.OnBuffer != nil {
			r.opts.OnBuffer(ev.ID)
		}
	}

	return notice
}

// Close removes every handle.
func (r *Registry) Close() {
	for _, id := range r.IDs() {
		r.RemoveVideo(id)
	}
}
