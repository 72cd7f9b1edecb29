package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	_, ok := c.Get("missing")
	require.False(t, ok)

	c.Set("analysis:141", []byte("guidance beat"), 0)
	got, ok := c.Get("analysis:141")
	require.True(t, ok)
	require.Equal(t, []byte("guidance beat"), got)
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	c.Set("k", []byte("v"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	require.False(t, ok)
	require.Equal(t, 0, c.size())
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache(2, time.Minute)

	c.Set("a", []byte("1"), 0)
	c.Set("b", []byte("2"), 0)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", []byte("3"), 0)
	require.Equal(t, 2, c.size())

	_, ok = c.Get("b")
	require.False(t, ok)
	_, ok = c.Get("a")
	require.True(t, ok)
}

func TestLRUCacheInvalidate(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("analysis:%d", i), []byte("x"), 0)
	}
	c.Set("other", []byte("y"), 0)

	require.Equal(t, 1, c.Invalidate("analysis:1"))
	require.Equal(t, 2, c.Invalidate("analysis:*"))
	require.Equal(t, 1, c.size())
}
