// Package buffer estimates how much media is loaded ahead of the playhead.
//
// It only reads telemetry; it never changes playback state.
package buffer

import (
	"fmt"

	"github.com/reelcore/reelcore/media"
)

// Snapshot is the buffer telemetry of one handle at one instant.
type Snapshot struct {
	Position       float64
	Ranges         []media.TimeRange
	LikelyToKeepUp bool
	Empty          bool
}

// FromState converts what a primitive reported.
func FromState(s media.BufferState) Snapshot {
	ranges := make([]media.TimeRange, len(s.Ranges))
	copy(ranges, s.Ranges)

	return Snapshot{
		Position:       s.Position,
		Ranges:         ranges,
		LikelyToKeepUp: s.LikelyToKeepUp,
		Empty:          s.Empty,
	}
}

// Ahead returns the seconds between the playhead and the end of the loaded range it sits in.
// A playhead in a gap between ranges has nothing ahead of it.
func (s Snapshot) Ahead() float64 {
	return AheadOf(s.Position, s.Ranges)
}

// Stalled reports whether playback cannot be expected to continue uninterrupted.
func (s Snapshot) Stalled() bool {
	return !s.LikelyToKeepUp || s.Empty
}

func (s Snapshot) String() string {
	return fmt.Sprintf("pos=%.2fs ahead=%.2fs keepUp=%t empty=%t", s.Position, s.Ahead(), s.LikelyToKeepUp, s.Empty)
}

// AheadOf computes buffered-ahead seconds for position over ranges.
// When ranges overlap the position, the one reaching furthest wins.
func AheadOf(position float64, ranges []media.TimeRange) float64 {
	var ahead float64
	for _, r := range ranges {
		if !r.Contains(position) {
			continue
		}
		if d := r.End - position; d > ahead {
			ahead = d
		}
	}
	return ahead
}
