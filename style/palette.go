package style

import "github.com/charmbracelet/lipgloss"

// Palette of the terminal feed.
var (
	Base = lipgloss.Color("#1e1e2e")
	Text = lipgloss.Color("#cdd6f4")

	Surface = lipgloss.Color("#313244")
	Mauve   = lipgloss.Color("#cba6f7")
	Red     = lipgloss.Color("#f38ba8")
	Peach   = lipgloss.Color("#fab387")
	Yellow  = lipgloss.Color("#f9e2af")
	Green   = lipgloss.Color("#a6e3a1")

	AccentColor  = Mauve
	SuccessColor = Green
	WarningColor = Yellow
	ErrorColor   = Red
	HiRed        = Red

	// a card's border turns to the accent while it is the one allowed to play
	BorderColor       = Surface
	ActiveBorderColor = AccentColor
)
