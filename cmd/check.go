package cmd

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/reelcore/reelcore/constant"
	"github.com/reelcore/reelcore/icon"
	"github.com/reelcore/reelcore/style"
)

// checkDependency makes sure the mpv executable can be started before any card needs it.
func checkDependency(path string) error {
	if _, err := exec.LookPath(path); err != nil {
		printMissingDependencyError(path)
		return fmt.Errorf("%s not found: %w", path, err)
	}
	return nil
}

func installHint() string {
	switch runtime.GOOS {
	case constant.Darwin:
		return "brew install mpv"
	case constant.Linux:
		return "sudo apt install mpv"
	case constant.Windows:
		return "scoop install mpv"
	case constant.Android:
		return "pkg install mpv"
	default:
		return ""
	}
}

func printMissingDependencyError(dep string) {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(style.HiRed).Render(fmt.Sprintf("%s Missing dependency", icon.Get(icon.Fail)))
	body := style.New().Foreground(style.Text).Render(fmt.Sprintf("The mpv backend needs '%s', which was not found in your PATH.", dep))

	var suggestion string
	if hint := installHint(); hint != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(hint))
	}
	suggestion += fmt.Sprintf("\n\nOr switch back to the simulated decoder:\n  %s", style.Faint("reelcore config set player.backend sim"))

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
