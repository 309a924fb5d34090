package rate

// Gate caps a requested speed level by what the buffer can sustain.
type Gate struct {
	// Level4MinAhead is the buffered-ahead seconds needed for level 4.
	Level4MinAhead float64

	// Level3MinAhead is the buffered-ahead seconds needed for level 3.
	Level3MinAhead float64
}

// DefaultGate needs 6s of buffer for level 4 and 3.5s for level 3.
func DefaultGate() Gate {
	return Gate{Level4MinAhead: 6.0, Level3MinAhead: 3.5}
}

// Allowed returns the level to apply for desired given the buffer state.
// Outside a press the answer is always normal speed.
func (g Gate) Allowed(desired int, ahead float64, likelyToKeepUp, pressing bool) int {
	allowed := desired

	if desired >= 4 && ahead < g.Level4MinAhead {
		allowed = 3
		if ahead < g.Level3MinAhead {
			allowed = 2
		}
	} else if desired >= 3 && ahead < g.Level3MinAhead {
		allowed = 2
	}

	if allowed >= 3 && !likelyToKeepUp {
		allowed = 2
	}

	if !pressing {
		allowed = 1
	}

	return allowed
}
