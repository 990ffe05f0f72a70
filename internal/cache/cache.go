package cache

import (
	"sync"

	"github.com/demoghost/replay/internal/reconstruct"
	"github.com/demoghost/replay/pkg/ghost"
)

// TrackCache caches reconstructed tracks and their reports by track name so
// commands that run after demo:reconstruct avoid a storage round trip.
type TrackCache struct {
	m       sync.Mutex
	Tracks  map[string]*ghost.Track
	Reports map[string]reconstruct.Report
}

func NewTrackCache() *TrackCache {
	return &TrackCache{
		m:       sync.Mutex{},
		Tracks:  make(map[string]*ghost.Track),
		Reports: make(map[string]reconstruct.Report),
	}
}

func (c *TrackCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Tracks = make(map[string]*ghost.Track)
	c.Reports = make(map[string]reconstruct.Report)
}

func (c *TrackCache) Lock() {
	c.m.Lock()
}

func (c *TrackCache) Unlock() {
	c.m.Unlock()
}

func (c *TrackCache) GetTrack(name string) (*ghost.Track, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if t, ok := c.Tracks[name]; ok {
		return t, true
	}
	return nil, false
}

func (c *TrackCache) GetReport(name string) (reconstruct.Report, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if r, ok := c.Reports[name]; ok {
		return r, true
	}
	return reconstruct.Report{}, false
}

// AddTrack stores a track under its own name.
func (c *TrackCache) AddTrack(t *ghost.Track) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Tracks[t.Name] = t
}

func (c *TrackCache) AddReport(name string, r reconstruct.Report) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Reports[name] = r
}

// SafeCounter is a thread-safe counter. The session's processed and
// failed demo totals are SafeCounters shared between workers and the
// monitor loop.
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
