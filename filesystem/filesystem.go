// Package filesystem is the swappable backend every file access goes through, so tests
// can run against memory.
package filesystem

import (
	"sync/atomic"

	"github.com/spf13/afero"
)

var backend atomic.Pointer[afero.Afero]

func init() {
	SetOsFs()
}

// API returns the active backend.
func API() afero.Afero {
	return *backend.Load()
}

// SetOsFs switches to the real filesystem.
func SetOsFs() {
	backend.Store(&afero.Afero{Fs: afero.NewOsFs()})
}

// SetMemMapFs switches to a fresh in-memory filesystem.
func SetMemMapFs() {
	backend.Store(&afero.Afero{Fs: afero.NewMemMapFs()})
}
