package handle

// State is the lifecycle state of a handle.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Playing
	Paused
	Stalled
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stalled:
		return "stalled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Playable reports whether Play is allowed from s.
func (s State) Playable() bool {
	return s == Ready || s == Paused || s == Stalled
}

// Loaded reports whether the primitive holds a loaded item in s.
func (s State) Loaded() bool {
	return s == Ready || s == Playing || s == Paused || s == Stalled
}

// Notice tells the owner what an applied event changed.
type Notice int

const (
	NoticeNone Notice = iota
	NoticeReady
	NoticeFailed
	NoticeBuffer
	NoticeStallChanged
	NoticeReachedEnd
)

func (n Notice) String() string {
	switch n {
	case NoticeReady:
		return "ready"
	case NoticeFailed:
		return "failed"
	case NoticeBuffer:
		return "buffer"
	case NoticeStallChanged:
		return "stall"
	case NoticeReachedEnd:
		return "end"
	default:
		return "none"
	}
}
