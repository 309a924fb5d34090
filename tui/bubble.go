package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/reelcore/reelcore/feed"
	"github.com/reelcore/reelcore/internal/ui"
	"github.com/reelcore/reelcore/log"
	"github.com/reelcore/reelcore/media"
	"github.com/reelcore/reelcore/session"
	"github.com/reelcore/reelcore/style"
	"github.com/reelcore/reelcore/util"
	"github.com/samber/lo"
)

// defaultDragStep is used when the options leave DragStep unset.
const defaultDragStep = 60

// statefulBubble is the model of the terminal feed.
type statefulBubble struct {
	state  state
	keymap *statefulKeymap

	feed      *feed.Feed
	catalogue []Entry
	view      viewport

	// registered holds the cards that currently have a player.
	registered map[media.VideoID]struct{}

	// reported is the last visible fraction sent for each card.
	reported map[media.VideoID]float64

	cards map[media.VideoID]feed.Card

	pressed  media.VideoID
	pressY   float64
	dragStep float64

	spinnerC  spinner.Model
	progressC progress.Model
	helpC     help.Model
	notifier  *ui.Model

	width, height int
	lastError     error

	options *Options
}

func (b *statefulBubble) raiseError(err error) {
	b.lastError = err
	b.setState(errorState)
}

func (b *statefulBubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

func (b *statefulBubble) resize(width, height int) {
	x, y := paddingStyle.GetFrameSize()
	b.width = width - x
	b.height = height - y
	b.helpC.Width = b.width
	b.progressC.Width = lo.Clamp(b.width/3, 10, 40)
}

func (b *statefulBubble) entry(i int) (Entry, bool) {
	if i < 0 || i >= len(b.catalogue) {
		return Entry{}, false
	}
	return b.catalogue[i], true
}

// restore moves the screen to the saved position, if the same card is still there.
func (b *statefulBubble) restore() {
	pos, err := session.Last()
	if err != nil {
		log.Warnf("tui: reading the last position: %v", err)
		return
	}
	if pos == nil {
		return
	}

	index := pos.Index
	if idx := lo.IndexOf(lo.Map(b.catalogue, func(e Entry, _ int) string { return string(e.ID) }), pos.ID); idx >= 0 {
		index = idx
	}
	b.view.jump(index)
}

func (b *statefulBubble) save() {
	e, ok := b.entry(b.view.current())
	if !ok {
		return
	}
	if err := session.Save(session.Position{Index: b.view.current(), ID: string(e.ID)}); err != nil {
		log.Warnf("tui: saving the position: %v", err)
	}
}

func newBubble(f *feed.Feed, options *Options) *statefulBubble {
	bubble := &statefulBubble{
		keymap:     newStatefulKeymap(),
		feed:       f,
		catalogue:  options.Catalogue,
		view:       viewport{count: len(options.Catalogue)},
		registered: make(map[media.VideoID]struct{}),
		reported:   make(map[media.VideoID]float64),
		cards:      make(map[media.VideoID]feed.Card),
		dragStep:   options.DragStep,
		notifier:   &ui.Model{},
		options:    options,
	}

	if bubble.dragStep <= 0 {
		bubble.dragStep = defaultDragStep
	}

	bubble.helpC = help.New()

	bubble.spinnerC = spinner.New()
	bubble.spinnerC.Spinner = spinner.Dot
	bubble.spinnerC.Style = lipgloss.NewStyle().Foreground(style.AccentColor)

	bubble.progressC = progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())

	bubble.setState(browsingState)
	bubble.resize(80, 24)
	if w, h, err := util.TerminalSize(); err == nil {
		bubble.resize(w, h)
	}

	return bubble
}
