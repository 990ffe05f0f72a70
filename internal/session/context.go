package session

import (
	"sync"

	"github.com/demoghost/replay/pkg/ghost"
)

// Context holds the track currently being processed and the demo dump path
// it came from
type Context struct {
	mu     sync.RWMutex
	Track  *ghost.Track
	Source string
	loaded bool
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		Track: &ghost.Track{Name: "no track loaded"},
	}
}

// GetTrack returns the current track
func (sc *Context) GetTrack() *ghost.Track {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Track
}

// Loaded reports whether a real track has been set. The placeholder the
// Context starts with does not count.
func (sc *Context) Loaded() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.loaded
}

// GetSource returns the demo dump path behind the current track
func (sc *Context) GetSource() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Source
}

// SetTrack sets the current track and its source path
func (sc *Context) SetTrack(track *ghost.Track, source string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Track = track
	sc.Source = source
	sc.loaded = true
}
