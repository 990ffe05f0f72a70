package cache

import "sync"

// RecordCache maps track names to their storage row IDs for the current session
type RecordCache struct {
	mu  sync.RWMutex
	ids map[string]uint
}

// NewRecordCache creates a new RecordCache
func NewRecordCache() *RecordCache {
	return &RecordCache{
		ids: make(map[string]uint),
	}
}

// Get retrieves a storage row ID by track name
func (c *RecordCache) Get(name string) (uint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[name]
	return id, ok
}

// Set stores a row ID by track name
func (c *RecordCache) Set(name string, id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[name] = id
}

// Delete removes a track's row ID by name
func (c *RecordCache) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, name)
}

// Reset clears all entries from the cache
func (c *RecordCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[string]uint)
}
