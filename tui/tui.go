// Package tui is a terminal host for a feed: every card is one screen tall, scrolling
// produces the visibility reports a layout pass would, and the space bar stands in for
// the long press.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/reelcore/reelcore/feed"
	"github.com/reelcore/reelcore/media"
)

// Entry is one card of the catalogue shown by the terminal feed.
type Entry struct {
	ID  media.VideoID
	URL string
}

// Options encapsulates the runtime configuration for the terminal user interface.
type Options struct {
	// Continue reopens the feed at the saved position.
	Continue bool

	// DragStep is the distance one drag key press moves the finger.
	DragStep float64

	Catalogue []Entry
}

// Demo returns n simulated cards. Every seventh one points at a URL the simulated
// backend fails to load, so retry can be tried out.
func Demo(n int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		id := fmt.Sprintf("clip-%02d", i+1)
		url := fmt.Sprintf("sim://reelcore/%s.mp4", id)
		if (i+1)%7 == 0 {
			url = fmt.Sprintf("sim://reelcore/%s-broken.mp4", id)
		}
		entries[i] = Entry{ID: media.VideoID(id), URL: url}
	}
	return entries
}

// FromURLs names one card per url.
func FromURLs(urls []string) []Entry {
	entries := make([]Entry, len(urls))
	for i, url := range urls {
		entries[i] = Entry{ID: media.VideoID(fmt.Sprintf("video-%02d", i+1)), URL: url}
	}
	return entries
}

// Run drives f from the terminal until the user quits. f must already be running.
func Run(f *feed.Feed, options *Options) error {
	bubble := newBubble(f, options)
	if options.Continue {
		bubble.restore()
	}

	_, err := tea.NewProgram(bubble, tea.WithAltScreen()).Run()
	bubble.save()
	return err
}
