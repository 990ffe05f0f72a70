package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCache_NewRecordCache(t *testing.T) {
	cache := NewRecordCache()

	require.NotNil(t, cache)
	assert.NotNil(t, cache.ids)
}

func TestRecordCache_SetAndGet(t *testing.T) {
	cache := NewRecordCache()

	cache.Set("inferno-run.dem", 42)

	id, ok := cache.Get("inferno-run.dem")
	require.True(t, ok, "expected to find inferno-run.dem")
	assert.Equal(t, uint(42), id)
}

func TestRecordCache_Get_NotFound(t *testing.T) {
	cache := NewRecordCache()

	_, ok := cache.Get("nonexistent.dem")
	assert.False(t, ok, "expected not to find nonexistent track")
}

func TestRecordCache_Delete(t *testing.T) {
	cache := NewRecordCache()

	cache.Set("first.dem", 1)
	cache.Set("second.dem", 2)

	// Verify entry exists
	_, ok := cache.Get("first.dem")
	require.True(t, ok, "expected to find first.dem before delete")

	// Delete entry
	cache.Delete("first.dem")

	// Verify entry is deleted
	_, ok = cache.Get("first.dem")
	assert.False(t, ok, "expected not to find first.dem after delete")

	// Verify other entry still exists
	_, ok = cache.Get("second.dem")
	assert.True(t, ok, "expected second.dem to still exist")
}

func TestRecordCache_Delete_NonExistent(t *testing.T) {
	cache := NewRecordCache()

	// Should not panic when deleting non-existent entry
	cache.Delete("nonexistent.dem")
}

func TestRecordCache_Reset(t *testing.T) {
	cache := NewRecordCache()

	cache.Set("first.dem", 1)
	cache.Set("second.dem", 2)
	cache.Set("third.dem", 3)

	cache.Reset()

	// Verify all entries are cleared
	for _, name := range []string{"first.dem", "second.dem", "third.dem"} {
		_, ok := cache.Get(name)
		assert.False(t, ok, "expected %s to be cleared after reset", name)
	}

	// Verify we can still add entries after reset
	cache.Set("fourth.dem", 4)
	_, ok := cache.Get("fourth.dem")
	assert.True(t, ok, "expected to find fourth.dem after reset")
}

func TestRecordCache_OverwriteExisting(t *testing.T) {
	cache := NewRecordCache()

	cache.Set("inferno-run.dem", 1)
	cache.Set("inferno-run.dem", 100)

	id, ok := cache.Get("inferno-run.dem")
	require.True(t, ok, "expected to find inferno-run.dem")
	assert.Equal(t, uint(100), id)
}

func TestRecordCache_ConcurrentReadWrite(t *testing.T) {
	cache := NewRecordCache()
	var wg sync.WaitGroup

	// Mixed concurrent operations
	for i := 0; i < 100; i++ {
		wg.Add(3)
		name := fmt.Sprintf("track-%02d.dem", i%10)

		go func(name string, id int) {
			defer wg.Done()
			cache.Set(name, uint(id))
		}(name, i)

		go func(name string) {
			defer wg.Done()
			cache.Get(name)
		}(name)

		go func(name string) {
			defer wg.Done()
			cache.Delete(name)
		}(name)
	}

	wg.Wait()
}
