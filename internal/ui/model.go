// Package ui provides short-lived notifications appended to the bottom line of a view.
package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/reelcore/reelcore/style"
)

// lifetime is how long a notification stays on screen.
const lifetime = 3 * time.Second

// Model holds the notification currently shown, if any.
type Model struct {
	notification string
	err          bool
	shownAt      time.Time
}

// NotificationMsg asks the model to show Text.
type NotificationMsg struct {
	Text string
	Err  bool
}

// ClearNotificationMsg hides the notification shown at At, unless a newer one replaced it.
type ClearNotificationMsg struct {
	At time.Time
}

// Notify returns a command showing text.
func Notify(text string) tea.Cmd {
	return func() tea.Msg {
		return NotificationMsg{Text: text}
	}
}

// NotifyError returns a command showing err in the error color.
func NotifyError(err error) tea.Cmd {
	return func() tea.Msg {
		return NotificationMsg{Text: err.Error(), Err: true}
	}
}

// Update consumes notification messages and returns the command that clears them.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case NotificationMsg:
		m.notification = msg.Text
		m.err = msg.Err
		m.shownAt = time.Now()

		at := m.shownAt
		return tea.Tick(lifetime, func(time.Time) tea.Msg {
			return ClearNotificationMsg{At: at}
		})
	case ClearNotificationMsg:
		if msg.At.Equal(m.shownAt) {
			m.notification = ""
		}
	}
	return nil
}

// Current returns the text on screen, empty when nothing is shown.
func (m *Model) Current() string {
	return m.notification
}

// View appends the notification to the last line of content.
func (m *Model) View(content string) string {
	if m.notification == "" {
		return content
	}

	render := style.Faint
	if m.err {
		render = style.Fg(style.ErrorColor)
	}

	lines := strings.Split(content, "\n")
	lines[len(lines)-1] += "  " + render(m.notification)
	return strings.Join(lines, "\n")
}
