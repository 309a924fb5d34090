package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wrap"
	"github.com/reelcore/reelcore/color"
	"github.com/reelcore/reelcore/feed"
	"github.com/reelcore/reelcore/icon"
	"github.com/reelcore/reelcore/style"
)

var (
	paddingStyle    = lipgloss.NewStyle().Padding(1, 2)
	cardStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(style.BorderColor).Padding(0, 1)
	activeCardStyle = cardStyle.BorderForeground(style.ActiveBorderColor)
)

// cardsAround is how many cards are drawn above and below the current one.
const cardsAround = 1

func (b *statefulBubble) View() string {
	var output string

	switch b.state {
	case errorState:
		output = b.viewError()
	default:
		output = b.viewFeed()
	}

	return b.notifier.View(output)
}

func (b *statefulBubble) viewFeed() string {
	title := style.Title("reelcore")
	switch b.state {
	case pressingState:
		title += " " + style.Tag(style.Base, style.Peach)("fast-forward")
	case suspendedState:
		title += " " + style.Tag(style.Base, style.Yellow)("background")
	}

	lines := []string{
		title,
		style.Faint(fmt.Sprintf("position %.2f of %d", b.view.offset, b.view.count)),
		"",
	}

	if b.view.count == 0 {
		lines = append(lines, "The feed is empty.")
		return b.renderLines(true, lines)
	}

	cur := b.view.current()
	for i := cur - cardsAround; i <= cur+cardsAround; i++ {
		if e, ok := b.entry(i); ok {
			lines = append(lines, b.viewCard(i, e))
		}
	}

	return b.renderLines(true, lines)
}

func (b *statefulBubble) viewCard(i int, e Entry) string {
	c, ok := b.cards[e.ID]
	if !ok {
		c = feed.Card{ID: e.ID, URL: e.URL, State: "idle", SpeedLevel: 1, SpeedLabel: "1x"}
	}

	width := b.width - cardStyle.GetHorizontalFrameSize()

	name := string(c.ID)
	if c.Title != "" && c.Title != name {
		name += " " + style.Faint(c.Title)
	}

	header := fmt.Sprintf("%s %s  %s", b.stateIcon(c), style.Bold(name), style.Faint(fmt.Sprintf("%3.0f%% visible", b.view.visible(i)*100)))
	lines := []string{truncate.StringWithTail(header, uint(max(width, 0)), "…")}

	switch c.State {
	case "failed":
		lines = append(lines, wrap.String(style.Fg(style.ErrorColor)(c.Failure), max(width, 1)))
	case "idle", "loading":
		lines = append(lines, style.Faint(truncate.StringWithTail(c.URL, uint(max(width, 0)), "…")))
	default:
		lines = append(lines, b.viewPlayback(c))
	}

	if c.Active {
		return activeCardStyle.Width(b.width).Render(strings.Join(lines, "\n"))
	}
	return cardStyle.Width(b.width).Render(strings.Join(lines, "\n"))
}

func (b *statefulBubble) viewPlayback(c feed.Card) string {
	var ratio float64
	if c.Duration > 0 {
		ratio = c.BufferedAhead / c.Duration
	}

	parts := []string{
		b.progressC.ViewAs(min(ratio, 1)),
		fmt.Sprintf("%4.1fs ahead", c.BufferedAhead),
	}

	if c.SpeedLevel > 1 {
		speed := fmt.Sprintf("%s %s", icon.Get(icon.Fast), c.SpeedLabel)
		if float64(c.Rate) < float64(c.SpeedLevel) {
			speed += style.Faint(fmt.Sprintf(" (%.1fx)", c.Rate))
		}
		parts = append(parts, style.Fg(color.Orange)(speed))
	}

	if c.Muted {
		parts = append(parts, icon.Get(icon.Muted))
	}

	return strings.Join(parts, "  ")
}

func (b *statefulBubble) stateIcon(c feed.Card) string {
	switch {
	case c.Stalled:
		return style.Fg(style.WarningColor)(icon.Get(icon.Stalled))
	case c.State == "playing":
		return style.Fg(style.SuccessColor)(icon.Get(icon.Playing))
	case c.State == "loading":
		return b.spinnerC.View()
	case c.State == "failed":
		return style.Fg(style.ErrorColor)(icon.Get(icon.Fail))
	case c.State == "ready":
		return icon.Get(icon.Ready)
	case c.State == "paused":
		return style.Faint(icon.Get(icon.Paused))
	default:
		return style.Faint(icon.Get(icon.Loading))
	}
}

func (b *statefulBubble) viewError() string {
	return b.renderLines(
		true,
		[]string{
			style.ErrorTitle("Error"),
			"",
			icon.Get(icon.Fail) + " The feed stopped:",
			"",
			wrap.String(style.Fg(style.ErrorColor)(b.lastError.Error()), max(b.width, 1)),
		},
	)
}

func (b *statefulBubble) renderLines(addHelp bool, lines []string) string {
	l := strings.Join(lines, "\n")
	if addHelp {
		if h := lipgloss.Height(l); b.height > h+1 {
			l += strings.Repeat("\n", b.height-h-1)
		}
		l += "\n" + b.helpC.View(b.keymap)
	}

	return paddingStyle.Render(l)
}
