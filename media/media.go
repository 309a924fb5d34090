// Package media defines the boundary between the playback core and the platform decoder.
//
// A Primitive is an opaque per-item decoder/renderer. The core never looks inside it:
// it loads a URL, toggles playback, seeks, changes the rate and listens to the events
// the primitive pushes back.
package media

import (
	"context"
	"errors"
	"fmt"
)

// VideoID is the stable key of a feed item, e.g. a post id plus a suffix.
type VideoID string

// Metadata is what a successful load resolves to.
type Metadata struct {
	// Duration of the media in seconds, 0 when unknown (live streams).
	Duration float64
	Title    string
}

// TimeRange is a contiguous span of loaded media, in seconds.
type TimeRange struct {
	Start float64
	End   float64
}

// Contains reports whether t falls inside the range, bounds included.
func (r TimeRange) Contains(t float64) bool {
	return t >= r.Start && t <= r.End
}

// BufferState is the buffer telemetry a primitive reports.
type BufferState struct {
	Position       float64
	Ranges         []TimeRange
	LikelyToKeepUp bool
	Empty          bool
}

// EventKind enumerates the notifications a primitive pushes.
type EventKind int

const (
	EventReadyToPlay EventKind = iota + 1
	EventFailed
	EventBufferChanged
	EventStalled
	EventReachedEnd
)

func (k EventKind) String() string {
	switch k {
	case EventReadyToPlay:
		return "ready"
	case EventFailed:
		return "failed"
	case EventBufferChanged:
		return "buffer"
	case EventStalled:
		return "stalled"
	case EventReachedEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is a single notification from a primitive.
type Event struct {
	Kind   EventKind
	Err    error
	Buffer BufferState
}

// Primitive is the platform media playback capability bound to one item at a time.
type Primitive interface {
	// Load resolves the media metadata. It is the only blocking call and must honour ctx.
	Load(ctx context.Context, url string) (Metadata, error)

	Play() error
	Pause() error

	// Seek moves to an absolute position in seconds.
	Seek(seconds float64) error

	// SetRate sets the physical playback rate.
	SetRate(rate float32) error

	// Subscribe registers fn for pushed events. The returned function removes it.
	// fn is called from the primitive's own goroutines.
	Subscribe(fn func(Event)) (cancel func())

	// Close releases the decoder. Calling it twice is allowed.
	Close() error
}

// Muter is implemented by primitives that can keep rendering video without audio.
type Muter interface {
	SetMuted(muted bool) error
}

// Factory creates a fresh primitive for the handle of id.
type Factory func(id VideoID) (Primitive, error)

// ErrClosed is returned by primitives used after Close.
var ErrClosed = errors.New("media primitive closed")

// LoadError reports a failed metadata load for a URL.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
