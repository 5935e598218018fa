package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache_SetGet(t *testing.T) {
	c := New[string, bool](time.Minute, time.Minute)
	defer c.Close()

	_, ok := c.Get("b1")
	assert.False(t, ok)

	c.Set("b1", true)
	v, ok := c.Get("b1")
	assert.True(t, ok)
	assert.True(t, v)

	c.Delete("b1")
	_, ok = c.Get("b1")
	assert.False(t, ok)
}

func TestTTLCache_Expiry(t *testing.T) {
	c := New[string, int](10*time.Millisecond, time.Hour)
	defer c.Close()

	c.Set("k", 1)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len(), "not swept yet")

	c.evictExpired()
	assert.Equal(t, 0, c.Len())
}

func TestTTLCache_CloseTwice(t *testing.T) {
	c := New[int, int](time.Second, time.Second)
	c.Close()
	assert.NotPanics(t, c.Close)
}
