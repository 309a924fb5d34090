// Package sim implements a deterministic media.Primitive used by tests, scenarios and the demo feed.
//
// In manual mode loads block until the caller resolves them and every event is pushed by hand.
// In auto mode loads resolve after a latency and a small model advances the buffer and the
// playback position on every Step, emitting the events a real decoder would.
package sim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/reelcore/reelcore/media"
	"github.com/samber/lo"
)

// keepUpAhead is the buffered-ahead seconds above which playback is likely to keep up.
// A stalled primitive waits for that much before resuming.
const keepUpAhead = 2.0

// ErrInjected is the failure returned for URLs matching Config.FailPattern.
var ErrInjected = errors.New("simulated load failure")

// Config tunes a simulated primitive.
type Config struct {
	// Name labels journal entries, usually the video id.
	Name string

	// Manual disables the automatic load and playback model.
	Manual bool

	LoadLatency time.Duration

	// Duration of every loaded item in seconds.
	Duration float64

	// Bandwidth is how many media seconds get buffered per second of Step time.
	Bandwidth float64

	// FailPattern makes loads of URLs containing it fail.
	FailPattern string

	// Tick drives Step automatically in auto mode when non-zero.
	Tick time.Duration

	Journal *Journal
}

// DefaultConfig is a 15 second clip over a connection three times faster than playback.
func DefaultConfig() Config {
	return Config{
		LoadLatency: 300 * time.Millisecond,
		Duration:    15,
		Bandwidth:   3,
		Tick:        250 * time.Millisecond,
	}
}

type loadResult struct {
	meta media.Metadata
	err  error
}

// Primitive is a simulated decoder.
type Primitive struct {
	cfg Config

	mu       sync.Mutex
	closed   bool
	url      string
	loaded   bool
	playing  bool
	muted    bool
	rate     float32
	position float64
	buffered float64
	stalled  bool

	subs    map[int]func(media.Event)
	nextSub int
	waiters map[string]chan loadResult

	stop chan struct{}
	done chan struct{}
}

// New creates a primitive. In auto mode with a Tick it starts its model goroutine, stopped by Close.
func New(cfg Config) *Primitive {
	p := &Primitive{
		cfg:     cfg,
		rate:    1,
		subs:    make(map[int]func(media.Event)),
		waiters: make(map[string]chan loadResult),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if !cfg.Manual && cfg.Tick > 0 {
		go p.run()
	} else {
		close(p.done)
	}

	return p
}

// Pool creates primitives on demand and remembers them by video id so a test or a
// scenario can drive the one behind a given card.
type Pool struct {
	cfg Config

	mu    sync.Mutex
	byID  map[media.VideoID]*Primitive
	count int
}

// NewPool returns a pool whose primitives all share cfg, including its journal.
func NewPool(cfg Config) *Pool {
	return &Pool{cfg: cfg, byID: make(map[media.VideoID]*Primitive)}
}

// Factory implements media.Factory.
func (pl *Pool) Factory(id media.VideoID) (media.Primitive, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	c := pl.cfg
	c.Name = string(id)
	if c.Name == "" {
		c.Name = fmt.Sprintf("sim%d", pl.count)
	}
	pl.count++

	p := New(c)
	pl.byID[id] = p
	return p, nil
}

// Get returns the latest primitive created for id.
func (pl *Pool) Get(id media.VideoID) (*Primitive, bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	p, ok := pl.byID[id]
	return p, ok
}

// Created returns how many primitives the pool made.
func (pl *Pool) Created() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.count
}

// Step advances every live primitive of the pool.
func (pl *Pool) Step(dt float64) {
	pl.mu.Lock()
	prims := lo.Values(pl.byID)
	pl.mu.Unlock()

	for _, p := range prims {
		p.Step(dt)
	}
}

func (p *Primitive) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.Step(p.cfg.Tick.Seconds())
		}
	}
}

// Load resolves url. Manual primitives wait for Resolve or Reject.
func (p *Primitive) Load(ctx context.Context, url string) (media.Metadata, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return media.Metadata{}, media.ErrClosed
	}
	p.url = url
	p.loaded = false
	p.playing = false
	p.stalled = false
	p.position = 0
	p.buffered = 0
	wait := p.waiter(url)
	p.mu.Unlock()

	var res loadResult
	if p.cfg.Manual {
		select {
		case <-ctx.Done():
			return media.Metadata{}, ctx.Err()
		case res = <-wait:
		}

		p.mu.Lock()
		if p.waiters[url] == wait {
			delete(p.waiters, url)
		}
		p.mu.Unlock()
	} else {
		timer := time.NewTimer(p.cfg.LoadLatency)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return media.Metadata{}, ctx.Err()
		case <-timer.C:
		}

		if p.cfg.FailPattern != "" && strings.Contains(url, p.cfg.FailPattern) {
			res.err = ErrInjected
		} else {
			res.meta = media.Metadata{Duration: p.cfg.Duration, Title: url}
		}
	}

	if res.err != nil {
		return media.Metadata{}, res.err
	}

	p.mu.Lock()
	if p.url == url {
		p.loaded = true
	}
	p.mu.Unlock()

	return res.meta, nil
}

// waiter must be called with mu held.
func (p *Primitive) waiter(url string) chan loadResult {
	ch, ok := p.waiters[url]
	if !ok {
		ch = make(chan loadResult, 1)
		p.waiters[url] = ch
	}
	return ch
}

// Resolve completes a pending or future manual load of url.
func (p *Primitive) Resolve(url string, meta media.Metadata) {
	p.complete(url, loadResult{meta: meta})
}

// Reject fails a pending or future manual load of url.
func (p *Primitive) Reject(url string, err error) {
	p.complete(url, loadResult{err: err})
}

func (p *Primitive) complete(url string, res loadResult) {
	p.mu.Lock()
	ch := p.waiter(url)
	p.mu.Unlock()

	select {
	case ch <- res:
	default:
	}
}

func (p *Primitive) Play() error {
	return p.mutate("play", 0, func() { p.playing = true })
}

func (p *Primitive) Pause() error {
	return p.mutate("pause", 0, func() { p.playing = false })
}

func (p *Primitive) Seek(seconds float64) error {
	return p.mutate("seek", seconds, func() {
		p.position = lo.Clamp(seconds, 0, lo.Max([]float64{p.buffered, 0}))
	})
}

func (p *Primitive) SetRate(rate float32) error {
	return p.mutate("rate", float64(rate), func() { p.rate = rate })
}

// SetMuted implements media.Muter.
func (p *Primitive) SetMuted(muted bool) error {
	op := "unmute"
	if muted {
		op = "mute"
	}
	return p.mutate(op, 0, func() { p.muted = muted })
}

func (p *Primitive) mutate(op string, value float64, apply func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return media.ErrClosed
	}

	apply()
	p.cfg.Journal.record(p.cfg.Name, op, value)
	return nil
}

// Subscribe registers fn for pushed events.
func (p *Primitive) Subscribe(fn func(media.Event)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

// Emit pushes ev to every subscriber.
func (p *Primitive) Emit(ev media.Event) {
	p.mu.Lock()
	subs := lo.Values(p.subs)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Close stops the model goroutine and rejects further calls.
func (p *Primitive) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.subs = make(map[int]func(media.Event))
	p.cfg.Journal.record(p.cfg.Name, "close", 0)
	p.mu.Unlock()

	close(p.stop)
	<-p.done
	return nil
}

// Step advances the model by dt seconds of wall time and emits the resulting events.
func (p *Primitive) Step(dt float64) {
	p.mu.Lock()
	if p.closed || !p.loaded {
		p.mu.Unlock()
		return
	}

	var events []media.Event

	p.buffered = lo.Min([]float64{p.cfg.Duration, p.buffered + p.cfg.Bandwidth*dt})

	if p.playing && !p.stalled {
		p.position = lo.Min([]float64{p.buffered, p.position + float64(p.rate)*dt})
	}

	complete := p.buffered >= p.cfg.Duration
	ahead := p.buffered - p.position

	switch {
	case p.playing && p.position >= p.cfg.Duration:
		p.playing = false
		events = append(events, media.Event{Kind: media.EventReachedEnd})
	case p.playing && !p.stalled && ahead <= 0 && !complete:
		p.stalled = true
		events = append(events, media.Event{Kind: media.EventStalled})
	case p.stalled && (ahead >= keepUpAhead || complete):
		p.stalled = false
	}

	events = append(events, media.Event{Kind: media.EventBufferChanged, Buffer: p.bufferState()})
	p.mu.Unlock()

	for _, ev := range events {
		p.Emit(ev)
	}
}

// bufferState must be called with mu held.
func (p *Primitive) bufferState() media.BufferState {
	ahead := p.buffered - p.position
	complete := p.buffered >= p.cfg.Duration

	return media.BufferState{
		Position:       p.position,
		Ranges:         []media.TimeRange{{Start: 0, End: p.buffered}},
		LikelyToKeepUp: complete || ahead >= keepUpAhead,
		Empty:          !complete && ahead <= 0,
	}
}

// Playing reports whether the primitive was last asked to play.
func (p *Primitive) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Rate returns the last applied physical rate.
func (p *Primitive) Rate() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// Muted reports whether audio was switched off.
func (p *Primitive) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

// Closed reports whether Close was called.
func (p *Primitive) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Subscribers returns the number of registered event listeners.
func (p *Primitive) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}
