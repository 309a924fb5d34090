package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/reelcore/reelcore/color"
	"github.com/reelcore/reelcore/style"
)

// statefulKeymap defines the keyboard interactions available in each state of the feed.
type statefulKeymap struct {
	state state

	quit, forceQuit,
	up, down, nextCard, prevCard, top,
	press, release, cancel, faster, slower,
	retry, pauseAll, refresh, suspend, resume,
	showHelp key.Binding
}

func (k *statefulKeymap) setState(newState state) {
	k.state = newState
}

func newStatefulKeymap() *statefulKeymap {
	return &statefulKeymap{
		quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit"),
		),
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		nextCard: key.NewBinding(
			key.WithKeys("pgdown", "J", "l"),
			key.WithHelp("J", "next card"),
		),
		prevCard: key.NewBinding(
			key.WithKeys("pgup", "K", "h"),
			key.WithHelp("K", "previous card"),
		),
		top: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "top"),
		),
		press: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp(style.Fg(color.Orange)("space"), style.Fg(color.Orange)("hold")),
		),
		release: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp(style.Fg(color.Orange)("space"), style.Fg(color.Orange)("release")),
		),
		cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		faster: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "drag up"),
		),
		slower: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "drag down"),
		),
		retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		pauseAll: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pause all"),
		),
		refresh: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "refresh"),
		),
		suspend: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "background"),
		),
		resume: key.NewBinding(
			key.WithKeys("s", "enter"),
			key.WithHelp("s", "foreground"),
		),
		showHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

func (k *statefulKeymap) help() ([]key.Binding, []key.Binding) {
	h := func(bindings ...key.Binding) []key.Binding {
		return bindings
	}

	to2 := func(a []key.Binding) ([]key.Binding, []key.Binding) {
		return a, a
	}

	switch k.state {
	case browsingState:
		return h(k.up, k.down, k.press, k.showHelp, k.quit),
			h(k.up, k.down, k.nextCard, k.prevCard, k.top, k.press, k.retry, k.pauseAll, k.refresh, k.suspend, k.quit)
	case pressingState:
		return to2(h(k.faster, k.slower, k.release, k.cancel))
	case suspendedState:
		return to2(h(k.resume, k.quit))
	case errorState:
		return to2(h(k.quit))
	default:
		return to2(h())
	}
}

func (k *statefulKeymap) ShortHelp() []key.Binding {
	short, _ := k.help()
	return short
}

func (k *statefulKeymap) FullHelp() [][]key.Binding {
	_, full := k.help()
	return [][]key.Binding{full}
}
