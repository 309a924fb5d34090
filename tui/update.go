package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/reelcore/reelcore/rate"
)

// scrollStep is the share of a card one scroll key moves the screen.
const scrollStep = 0.25

func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := b.notifier.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
	case spinner.TickMsg:
		var tick tea.Cmd
		b.spinnerC, tick = b.spinnerC.Update(msg)
		return b, tea.Batch(cmd, tick)
	case changedMsg:
		b.refreshCards()
		return b, tea.Batch(cmd, b.waitForChange())
	case stoppedMsg:
		return b, tea.Quit
	case error:
		b.raiseError(msg)
	case tea.KeyMsg:
		if key.Matches(msg, b.keymap.forceQuit) {
			return b, tea.Quit
		}
		return b, tea.Batch(cmd, b.handleKey(msg))
	}

	return b, cmd
}

func (b *statefulBubble) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch b.state {
	case browsingState:
		return b.handleBrowsing(msg)
	case pressingState:
		return b.handlePressing(msg)
	case suspendedState:
		switch {
		case key.Matches(msg, b.keymap.resume):
			return b.resume()
		case key.Matches(msg, b.keymap.quit):
			return tea.Quit
		}
	case errorState:
		if key.Matches(msg, b.keymap.quit) {
			return tea.Quit
		}
	}
	return nil
}

func (b *statefulBubble) handleBrowsing(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, b.keymap.quit):
		return tea.Quit
	case key.Matches(msg, b.keymap.up):
		return b.scroll(-scrollStep)
	case key.Matches(msg, b.keymap.down):
		return b.scroll(scrollStep)
	case key.Matches(msg, b.keymap.nextCard):
		return b.snap(1)
	case key.Matches(msg, b.keymap.prevCard):
		return b.snap(-1)
	case key.Matches(msg, b.keymap.top):
		return b.jump(0)
	case key.Matches(msg, b.keymap.press):
		return b.startPress()
	case key.Matches(msg, b.keymap.retry):
		return b.retry()
	case key.Matches(msg, b.keymap.pauseAll):
		return b.pauseAll()
	case key.Matches(msg, b.keymap.refresh):
		return b.refresh()
	case key.Matches(msg, b.keymap.suspend):
		return b.suspend()
	case key.Matches(msg, b.keymap.showHelp):
		b.helpC.ShowAll = !b.helpC.ShowAll
	}
	return nil
}

func (b *statefulBubble) handlePressing(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, b.keymap.faster):
		return b.drag(-b.dragStep)
	case key.Matches(msg, b.keymap.slower):
		return b.drag(b.dragStep)
	case key.Matches(msg, b.keymap.release):
		return b.endPress(rate.Ended)
	case key.Matches(msg, b.keymap.cancel):
		return b.endPress(rate.Cancelled)
	}
	return nil
}
