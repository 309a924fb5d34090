// Package session remembers where the terminal feed was left so it can be reopened there.
package session

import (
	"sync"
	"time"

	"github.com/metafates/gache"
	"github.com/reelcore/reelcore/filesystem"
	"github.com/reelcore/reelcore/where"
)

// Position is the last card the user was watching.
type Position struct {
	Index   int       `json:"index"`
	ID      string    `json:"id"`
	SavedAt time.Time `json:"saved_at"`
}

var cacher = sync.OnceValue(func() *gache.Cache[*Position] {
	return gache.New[*Position](&gache.Options{
		Path:       where.Session(),
		Lifetime:   time.Hour * 24 * 7,
		FileSystem: &filesystem.GacheFs{},
	})
})

// Last returns the saved position, or nil when there is none or it expired.
func Last() (*Position, error) {
	pos, expired, err := cacher().Get()
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, nil
	}
	return pos, nil
}

// Save remembers pos, stamping it with the current time.
func Save(pos Position) error {
	pos.SavedAt = time.Now()
	return cacher().Set(&pos)
}

// Forget drops the saved position.
func Forget() error {
	return cacher().Set(nil)
}
