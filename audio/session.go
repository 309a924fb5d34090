package audio

import (
	"sync"

	"github.com/reelcore/reelcore/log"
)

// NopSession is used on hosts without an exclusive audio route.
type NopSession struct{}

func (NopSession) Activate() error   { return nil }
func (NopSession) Deactivate() error { return nil }

// LogSession records activations in the log and nothing else.
type LogSession struct{}

func (LogSession) Activate() error {
	log.Info("audio session: activate")
	return nil
}

func (LogSession) Deactivate() error {
	log.Info("audio session: deactivate")
	return nil
}

// StubSession is a controllable session for tests and scenarios.
type StubSession struct {
	mu          sync.Mutex
	DenyWith    error
	Activations int
	Deactivated int
}

func (s *StubSession) Activate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.DenyWith != nil {
		return s.DenyWith
	}
	s.Activations++
	return nil
}

func (s *StubSession) Deactivate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deactivated++
	return nil
}

// Deny makes the next activations fail with err, nil allows them again.
func (s *StubSession) Deny(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DenyWith = err
}

// Counts returns how many times the session was activated and deactivated.
func (s *StubSession) Counts() (activated, deactivated int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Activations, s.Deactivated
}
