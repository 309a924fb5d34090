// Package color names the terminal colors used by the command line and the feed.
package color

import "github.com/charmbracelet/lipgloss"

// New initializes a lipgloss.Color from an ANSI index or a hex value.
func New(value string) lipgloss.Color {
	return lipgloss.Color(value)
}

// ANSI colors, so output follows the terminal theme.
var (
	Red    = New("1")
	Green  = New("2")
	Yellow = New("3")
	Blue   = New("4")
	Purple = New("5")
	Cyan   = New("6")

	HiRed    = New("9")
	HiPurple = New("13")
)

// Orange marks the fast-forward controls.
var Orange = New("#ffb703")
