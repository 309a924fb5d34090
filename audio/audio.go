// Package audio arbitrates the single exclusive audio output of the device.
package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/reelcore/reelcore/log"
)

// ErrDenied marks a platform refusal to activate the audio session.
var ErrDenied = errors.New("audio session denied")

// Session is the platform audio output switch.
type Session interface {
	Activate() error
	Deactivate() error
}

// Coordinator reference-counts the handles that use audio and keeps the session
// active while at least one of them does.
type Coordinator struct {
	session Session

	mu      sync.Mutex
	refs    int
	active  bool
	lastErr error
}

// NewCoordinator wraps session. A nil session behaves like NopSession.
func NewCoordinator(session Session) *Coordinator {
	if session == nil {
		session = NopSession{}
	}
	return &Coordinator{session: session}
}

// Acquire takes one reference, activating the session on the first one.
// When the platform refuses, no reference is taken and the returned error wraps ErrDenied.
func (c *Coordinator) Acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		if err := c.session.Activate(); err != nil {
			c.lastErr = fmt.Errorf("%w: %v", ErrDenied, err)
			log.Warnf("audio: %v", c.lastErr)
			return c.lastErr
		}
		c.active = true
		log.Debug("audio: session activated")
	}

	c.refs++
	c.lastErr = nil
	return nil
}

// Release drops one reference and deactivates the session after the last one.
// Extra releases are ignored.
func (c *Coordinator) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refs == 0 {
		return
	}

	c.refs--
	if c.refs > 0 || !c.active {
		return
	}

	if err := c.session.Deactivate(); err != nil {
		log.Warnf("audio: deactivate: %v", err)
	}
	c.active = false
	log.Debug("audio: session deactivated")
}

// Refs returns the number of references held.
func (c *Coordinator) Refs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs
}

// Active reports whether the session is currently activated.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// LastError returns the last activation failure, cleared by a successful Acquire.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
