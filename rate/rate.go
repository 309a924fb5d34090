// Package rate implements the long-press fast-forward gesture.
//
// Pressing a card plays it at level 2; dragging upward by one step per level raises it up
// to level 4; releasing returns to normal speed. The level actually applied is gated by
// the buffer so that the requested speed never outruns what has been downloaded.
package rate

import (
	"fmt"
	"math"
	"strings"

	"github.com/reelcore/reelcore/handle"
	"github.com/reelcore/reelcore/log"
)

// DefaultStep is the upward drag distance, in points, that adds one level.
const DefaultStep = 60.0

// pressLevel is the level a press starts at.
const pressLevel = 2

// Phase is a gesture phase.
type Phase int

const (
	Began Phase = iota + 1
	Changed
	Ended
	Cancelled
)

func (p Phase) String() string {
	switch p {
	case Began:
		return "began"
	case Changed:
		return "changed"
	case Ended:
		return "ended"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParsePhase reads a phase name as produced by Phase.String.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "began", "begin":
		return Began, nil
	case "changed", "change", "move":
		return Changed, nil
	case "ended", "end":
		return Ended, nil
	case "cancelled", "canceled", "cancel":
		return Cancelled, nil
	default:
		return 0, fmt.Errorf("unknown gesture phase %q", s)
	}
}

// Target is what the controller speeds up, normally a *handle.Handle.
type Target interface {
	SetSpeed(level int) float32
	BufferedAhead() float64
	LikelyToKeepUp() bool
}

// Controller tracks one press gesture. It keeps no reference to its target; callers pass
// the current one on every call.
type Controller struct {
	gate Gate
	step float64

	pressing bool
	startY   float64
	desired  int
	applied  int
}

// NewController returns an idle controller. A non-positive step falls back to DefaultStep.
func NewController(gate Gate, step float64) *Controller {
	if step <= 0 {
		step = DefaultStep
	}

	return &Controller{
		gate:    gate,
		step:    step,
		desired: handle.MinLevel,
		applied: handle.MinLevel,
	}
}

// Pressing reports whether a press is in progress.
func (c *Controller) Pressing() bool { return c.pressing }

// Level is the level shown to the user, which may exceed the applied one.
func (c *Controller) Level() int { return c.desired }

// Applied is the level whose rate was last applied.
func (c *Controller) Applied() int { return c.applied }

// Handle dispatches one gesture event. y is the vertical touch location, growing downward.
func (c *Controller) Handle(phase Phase, y float64, t Target) {
	switch phase {
	case Began:
		c.Began(y, t)
	case Changed:
		c.Changed(y, t)
	case Ended, Cancelled:
		c.Ended(t)
	default:
		log.Warnf("rate: ignoring gesture phase %d", phase)
	}
}

// Began starts a press at level 2.
func (c *Controller) Began(y float64, t Target) {
	c.pressing = true
	c.startY = y
	c.desired = pressLevel
	c.apply(t, true)
}

// Changed follows the drag: every step upward adds a level, between 2 and 4.
func (c *Controller) Changed(y float64, t Target) {
	if !c.pressing {
		log.Debug("rate: drag without a press")
		return
	}

	delta := c.startY - y
	additional := int(math.Floor(delta / c.step))
	desired := max(pressLevel, min(pressLevel+additional, handle.MaxLevel))

	if desired == c.desired {
		return
	}

	c.desired = desired
	c.apply(t, true)
}

// Ended releases the press and returns to normal speed.
func (c *Controller) Ended(t Target) {
	if !c.pressing {
		return
	}

	c.pressing = false
	c.desired = handle.MinLevel
	c.apply(t, true)
}

// Reevaluate re-applies the gate after a buffer change. The rate is only touched
// when the allowed level moved.
func (c *Controller) Reevaluate(t Target) {
	if !c.pressing {
		return
	}
	c.apply(t, false)
}

// Reset forgets the press without touching any target, used when the pressed card goes away.
func (c *Controller) Reset() {
	c.pressing = false
	c.desired = handle.MinLevel
	c.applied = handle.MinLevel
}

func (c *Controller) apply(t Target, force bool) {
	if t == nil {
		return
	}

	allowed := c.gate.Allowed(c.desired, t.BufferedAhead(), t.LikelyToKeepUp(), c.pressing)
	if allowed == c.applied && !force {
		return
	}

	if allowed != c.desired {
		log.Debugf("rate: level %d throttled to %d (ahead=%.2fs keepUp=%t)",
			c.desired, allowed, t.BufferedAhead(), t.LikelyToKeepUp())
	}

	c.applied = allowed
	t.SetSpeed(allowed)
}
