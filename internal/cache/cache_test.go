package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetAndGet(t *testing.T) {
	c := New()

	c.Set("key", "value", time.Minute)

	got, ok := c.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "value", got)
}

func TestGetMissing(t *testing.T) {
	c := New()

	got, ok := c.Get("nope")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestExpiry(t *testing.T) {
	c := New()

	c.Set("key", "value", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("key")
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	c := New()

	c.Set("key", 42, time.Minute)
	c.Delete("key")

	_, ok := c.Get("key")
	assert.False(t, ok)
}

func TestIncrement(t *testing.T) {
	c := New()

	assert.Equal(t, 1, c.Increment("counter", time.Minute))
	assert.Equal(t, 2, c.Increment("counter", time.Minute))
	assert.Equal(t, 3, c.Increment("counter", time.Minute))
}

func TestIncrementResetsAfterExpiry(t *testing.T) {
	c := New()

	assert.Equal(t, 1, c.Increment("counter", 10*time.Millisecond))
	assert.Equal(t, 2, c.Increment("counter", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, c.Increment("counter", 10*time.Millisecond))
}

func TestIncrementReplacesNonCounter(t *testing.T) {
	c := New()

	c.Set("key", "not a number", time.Minute)
	assert.Equal(t, 1, c.Increment("key", time.Minute))
}

func TestClearAndSize(t *testing.T) {
	c := New()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	assert.Equal(t, 2, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}
