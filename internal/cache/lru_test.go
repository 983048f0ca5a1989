package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	s := c.Stats()
	assert.Equal(t, int64(1), s.Evictions)
	assert.Equal(t, 2, s.Size)
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Second)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("k2", "v2")
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUZeroTTLNeverExpires(t *testing.T) {
	now := time.Now()
	c := NewLRUCache[string](10, 0)
	c.now = func() time.Time { return now }
	c.Set("k", "v")
	now = now.Add(24 * time.Hour)
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestLRUPurgeAndDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("GET /accounts/list", 1)
	c.Set("GET /accounts/total-income", 2)
	c.Set("GET /category/list", 3)

	assert.Equal(t, 2, c.DeletePrefix("GET /accounts/"))
	assert.Equal(t, 1, c.Size())

	c.Purge()
	assert.Equal(t, 0, c.Size())
	c.Set("x", 1)
	assert.Equal(t, 1, c.Size())
}

func TestLRUConcurrentAccess(t *testing.T) {
	c := NewLRUCache[int](50, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", (i*j)%80)
				c.Set(key, j)
				c.Get(key)
				if j%50 == 0 {
					c.Purge()
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Size(), 50)
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	now := time.Now()
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(time.Minute)

	m := NewManager(nil)
	m.Register(c)
	assert.Equal(t, 1, m.CleanNow())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
