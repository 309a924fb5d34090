package tui

import tea "github.com/charmbracelet/bubbletea"

// Init reports the first layout pass and starts listening to the feed.
func (b *statefulBubble) Init() tea.Cmd {
	return tea.Batch(b.check(b.sync()), b.spinnerC.Tick, b.waitForChange())
}
