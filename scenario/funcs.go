package scenario

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reelcore/reelcore/media"
	"github.com/reelcore/reelcore/rate"
	lua "github.com/yuin/gopher-lua"
)

func feedID(id string) media.VideoID {
	return media.VideoID(id)
}

// feed.register(id, url)
func (r *Runner) register(L *lua.LState) int {
	r.check(L, r.feed.Register(feedID(L.CheckString(1)), L.CheckString(2)))
	r.settle()
	return 0
}

// feed.visibility(id, fraction)
func (r *Runner) visibility(L *lua.LState) int {
	r.check(L, r.feed.SetVisibility(feedID(L.CheckString(1)), float64(L.CheckNumber(2))))
	r.settle()
	return 0
}

// feed.press(id, phase, y)
func (r *Runner) press(L *lua.LState) int {
	phase, err := rate.ParsePhase(L.CheckString(2))
	r.check(L, err)

	r.check(L, r.feed.HandlePressGesture(feedID(L.CheckString(1)), phase, float64(L.OptNumber(3, 0))))
	r.settle()
	return 0
}

// feed.teardown(id)
func (r *Runner) teardown(L *lua.LState) int {
	r.check(L, r.feed.Teardown(feedID(L.CheckString(1))))
	r.settle()
	return 0
}

// feed.retry(id) returns false when the card had not failed.
func (r *Runner) retry(L *lua.LState) int {
	err := r.feed.Retry(feedID(L.CheckString(1)))
	r.settle()
	L.Push(lua.LBool(err == nil))
	return 1
}

func (r *Runner) url(L *lua.LState, id string) string {
	if L.GetTop() >= 2 && L.Get(2).Type() == lua.LTString {
		return L.CheckString(2)
	}

	card, ok := r.feed.Card(feedID(id))
	if !ok {
		L.RaiseError("video %s is not registered", id)
	}
	return card.URL
}

// feed.resolve(id [, url] [, duration]) completes the pending load of id.
func (r *Runner) resolve(L *lua.LState) int {
	id := L.CheckString(1)
	prim := r.primitive(L, id)
	url := r.url(L, id)

	duration := 15.0
	if n, ok := L.Get(L.GetTop()).(lua.LNumber); ok && L.GetTop() >= 2 {
		duration = float64(n)
	}

	prim.Resolve(url, media.Metadata{Duration: duration, Title: id})
	r.settle()
	return 0
}

// feed.fail(id [, message]) fails the pending load of id.
func (r *Runner) fail(L *lua.LState) int {
	id := L.CheckString(1)
	prim := r.primitive(L, id)

	card, _ := r.feed.Card(feedID(id))
	prim.Reject(card.URL, errors.New(L.OptString(2, "simulated failure")))
	r.settle()
	return 0
}

// feed.buffer(id, seconds [, likely]) reports a buffer of [0, seconds] at the playhead 0.
func (r *Runner) buffer(L *lua.LState) int {
	prim := r.primitive(L, L.CheckString(1))
	end := float64(L.CheckNumber(2))
	likely := L.OptBool(3, true)

	prim.Emit(media.Event{Kind: media.EventBufferChanged, Buffer: media.BufferState{
		Ranges:         []media.TimeRange{{Start: 0, End: end}},
		LikelyToKeepUp: likely,
		Empty:          end <= 0,
	}})
	r.settle()
	return 0
}

// feed.stall(id)
func (r *Runner) stall(L *lua.LState) int {
	r.primitive(L, L.CheckString(1)).Emit(media.Event{Kind: media.EventStalled})
	r.settle()
	return 0
}

// feed.ended(id)
func (r *Runner) ended(L *lua.LState) int {
	r.primitive(L, L.CheckString(1)).Emit(media.Event{Kind: media.EventReachedEnd})
	r.settle()
	return 0
}

// feed.step(seconds) advances every simulated decoder.
func (r *Runner) step(L *lua.LState) int {
	if r.pool == nil {
		L.RaiseError("no simulated decoder is attached")
	}
	r.pool.Step(float64(L.CheckNumber(1)))
	r.settle()
	return 0
}

// feed.deny_audio([message]) makes audio activation fail; deny_audio(nil) allows it again.
func (r *Runner) denyAudio(L *lua.LState) int {
	if L.GetTop() == 0 || L.Get(1) == lua.LNil {
		r.session.Deny(nil)
		return 0
	}
	r.session.Deny(errors.New(L.CheckString(1)))
	return 0
}

// feed.wait(ms)
func (r *Runner) wait(L *lua.LState) int {
	d := time.Duration(float64(L.CheckNumber(1)) * float64(time.Millisecond))

	select {
	case <-time.After(d):
	case <-L.Context().Done():
		L.RaiseError("cancelled")
	}
	return 0
}

func (r *Runner) settleFn(*lua.LState) int {
	r.settle()
	return 0
}

// feed.state(id) returns the handle state name, nil when unregistered.
func (r *Runner) state(L *lua.LState) int {
	card, ok := r.feed.Card(feedID(L.CheckString(1)))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(card.State))
	return 1
}

func (r *Runner) playing(L *lua.LState) int {
	L.Push(lua.LBool(r.feed.IsPlaying(feedID(L.CheckString(1)))))
	return 1
}

func (r *Runner) stalled(L *lua.LState) int {
	L.Push(lua.LBool(r.feed.IsStalled(feedID(L.CheckString(1)))))
	return 1
}

func (r *Runner) speed(L *lua.LState) int {
	L.Push(lua.LNumber(r.feed.CurrentSpeedLevel(feedID(L.CheckString(1)))))
	return 1
}

func (r *Runner) rate(L *lua.LState) int {
	L.Push(lua.LNumber(r.feed.EffectiveRate(feedID(L.CheckString(1)))))
	return 1
}

func (r *Runner) active(L *lua.LState) int {
	id, ok := r.feed.Active()
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(id))
	return 1
}

// feed.cards() returns a list of {id, state, active, rate, ...} tables.
func (r *Runner) cards(L *lua.LState) int {
	list := L.NewTable()
	for _, c := range r.feed.Snapshot() {
		t := L.NewTable()
		t.RawSetString("id", lua.LString(c.ID))
		t.RawSetString("state", lua.LString(c.State))
		t.RawSetString("active", lua.LBool(c.Active))
		t.RawSetString("stalled", lua.LBool(c.Stalled))
		t.RawSetString("buffered_ahead", lua.LNumber(c.BufferedAhead))
		t.RawSetString("speed_level", lua.LNumber(c.SpeedLevel))
		t.RawSetString("rate", lua.LNumber(c.Rate))
		t.RawSetString("muted", lua.LBool(c.Muted))
		t.RawSetString("failure", lua.LString(c.Failure))
		list.Append(t)
	}
	L.Push(list)
	return 1
}

// feed.journal() returns the decoder side effects as "id:op" strings.
func (r *Runner) journalFn(L *lua.LState) int {
	list := L.NewTable()
	for _, op := range r.journal.Ops() {
		list.Append(lua.LString(op))
	}
	L.Push(list)
	return 1
}

func (r *Runner) clearJournal(*lua.LState) int {
	r.journal.Reset()
	return 0
}

// feed.log(...) prints its arguments to the scenario output.
func (r *Runner) log(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	_, _ = fmt.Fprintln(r.out, strings.Join(parts, " "))
	return 0
}
