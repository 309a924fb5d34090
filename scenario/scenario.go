// Package scenario drives a feed from Lua scripts against the simulated decoder.
//
// Scripts require the "feed" module, which exposes the host commands of a feed
// (register, visibility, press, teardown...) together with controls over the simulated
// network (resolve, fail, buffer, step) and observers to assert on.
package scenario

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	libs "github.com/metafates/mangal-lua-libs"
	"github.com/reelcore/reelcore/audio"
	"github.com/reelcore/reelcore/feed"
	"github.com/reelcore/reelcore/filesystem"
	"github.com/reelcore/reelcore/log"
	"github.com/reelcore/reelcore/media/sim"
	lua "github.com/yuin/gopher-lua"
)

const (
	// quiet is how long the feed must stay unchanged to count as settled.
	quiet = 25 * time.Millisecond

	// settleTimeout bounds a single settle so a chatty feed cannot hang a script.
	settleTimeout = 2 * time.Second
)

// Runner executes scenarios against one running feed.
type Runner struct {
	feed    *feed.Feed
	pool    *sim.Pool
	journal *sim.Journal
	session *audio.StubSession
	out     io.Writer
}

// Options are the pieces a runner steers besides the feed itself.
type Options struct {
	Pool    *sim.Pool
	Journal *sim.Journal
	Session *audio.StubSession
	Out     io.Writer
}

// New returns a runner for f. Pool must be the one behind f's factory.
func New(f *feed.Feed, opts Options) *Runner {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Journal == nil {
		opts.Journal = sim.NewJournal()
	}
	if opts.Session == nil {
		opts.Session = &audio.StubSession{}
	}

	return &Runner{
		feed:    f,
		pool:    opts.Pool,
		journal: opts.Journal,
		session: opts.Session,
		out:     opts.Out,
	}
}

// RunFile executes the script at path.
func (r *Runner) RunFile(ctx context.Context, path string) error {
	src, err := filesystem.API().ReadFile(path)
	if err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}
	return r.Run(ctx, path, string(src))
}

// Run executes src. name is only used in error messages.
func (r *Runner) Run(ctx context.Context, name, src string) error {
	state := lua.NewState()
	defer state.Close()

	libs.Preload(state)
	state.PreloadModule("feed", r.loader)
	state.SetContext(ctx)

	log.Infof("scenario: running %s", name)

	fn, err := state.Load(strings.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("compile %s: %w", name, err)
	}

	state.Push(fn)
	if err := state.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("scenario %s: %w", name, err)
	}

	r.settle()
	return nil
}

func (r *Runner) loader(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"register":   r.register,
		"visibility": r.visibility,
		"press":      r.press,
		"teardown":   r.teardown,
		"pause_all":  r.command(r.feed.PauseAll),
		"refresh":    r.command(r.feed.Refresh),
		"suspend":    r.command(r.feed.Suspend),
		"resume":     r.command(r.feed.Resume),
		"retry":      r.retry,

		"resolve":    r.resolve,
		"fail":       r.fail,
		"buffer":     r.buffer,
		"stall":      r.stall,
		"ended":      r.ended,
		"step":       r.step,
		"deny_audio": r.denyAudio,
		"wait":       r.wait,
		"settle":     r.settleFn,

		"state":         r.state,
		"playing":       r.playing,
		"stalled":       r.stalled,
		"speed":         r.speed,
		"rate":          r.rate,
		"active":        r.active,
		"cards":         r.cards,
		"journal":       r.journalFn,
		"clear_journal": r.clearJournal,
		"log":           r.log,
	})

	L.Push(mod)
	return 1
}

// settle waits until the feed has been quiet for a moment, so asynchronous loads and
// decoder events issued by the previous call have been applied.
func (r *Runner) settle() {
	deadline := time.NewTimer(settleTimeout)
	defer deadline.Stop()

	timer := time.NewTimer(quiet)
	defer timer.Stop()

	for {
		select {
		case <-r.feed.Changes():
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(quiet)
		case <-timer.C:
			return
		case <-deadline.C:
			log.Warn("scenario: feed did not settle")
			return
		case <-r.feed.Done():
			return
		}
	}
}

func (r *Runner) check(L *lua.LState, err error) {
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
}

func (r *Runner) primitive(L *lua.LState, id string) *sim.Primitive {
	if r.pool == nil {
		L.RaiseError("no simulated decoder is attached")
	}
	prim, ok := r.pool.Get(feedID(id))
	if !ok {
		L.RaiseError("video %s has no decoder yet", id)
	}
	return prim
}

func (r *Runner) command(fn func() error) lua.LGFunction {
	return func(L *lua.LState) int {
		r.check(L, fn())
		r.settle()
		return 0
	}
}
