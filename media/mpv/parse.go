package mpv

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/reelcore/reelcore/buffer"
	"github.com/reelcore/reelcore/media"
)

// keepUpAhead is the buffered-ahead seconds from which mpv is expected to keep playing.
const keepUpAhead = 2.0

// parseCacheState converts the demuxer-cache-state property into buffer telemetry.
func parseCacheState(data interface{}, position float64, pausedForCache bool) media.BufferState {
	state := media.BufferState{Position: position}

	cache, ok := data.(map[string]interface{})
	if !ok {
		state.Empty = true
		return state
	}

	if ranges, ok := cache["seekable-ranges"].([]interface{}); ok {
		for _, raw := range ranges {
			r, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			start, okStart := r["start"].(float64)
			end, okEnd := r["end"].(float64)
			if okStart && okEnd && end >= start {
				state.Ranges = append(state.Ranges, media.TimeRange{Start: start, End: end})
			}
		}
	}

	if len(state.Ranges) == 0 {
		if end, ok := cache["cache-end"].(float64); ok && end > position {
			state.Ranges = []media.TimeRange{{Start: position, End: end}}
		}
	}

	underrun, _ := cache["underrun"].(bool)
	eof, _ := cache["eof"].(bool)
	ahead := buffer.AheadOf(position, state.Ranges)

	state.Empty = ahead <= 0 && !eof
	state.LikelyToKeepUp = !underrun && !pausedForCache && (eof || ahead >= keepUpAhead)
	return state
}

// translate maps an mpv event line to a primitive event. ok is false for lines the
// core does not care about.
func translate(msg ipcMessage) (ev media.Event, ok bool) {
	switch msg.Event {
	case "property-change":
		switch msg.Name {
		case "paused-for-cache":
			if paused, _ := msg.Data.(bool); paused {
				return media.Event{Kind: media.EventStalled}, true
			}
		case "eof-reached":
			if eof, _ := msg.Data.(bool); eof {
				return media.Event{Kind: media.EventReachedEnd}, true
			}
		}
	case "end-file":
		switch msg.Reason {
		case "error":
			return media.Event{Kind: media.EventFailed, Err: endFileError(msg)}, true
		case "eof":
			return media.Event{Kind: media.EventReachedEnd}, true
		}
	}

	return media.Event{}, false
}

func endFileError(msg ipcMessage) error {
	if msg.FileError != "" {
		return fmt.Errorf("mpv: %s", msg.FileError)
	}
	return fmt.Errorf("mpv: playback ended with an error")
}

// sanitizeMediaTarget validates that a URL is safe to pass to mpv.
// Scenario scripts are untrusted, so anything looking like a flag is refused.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

// sanitizeTitle flattens a title to one line for --force-media-title.
func sanitizeTitle(title string) string {
	t := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "\x00", "").Replace(title)
	return strings.TrimSpace(t)
}
