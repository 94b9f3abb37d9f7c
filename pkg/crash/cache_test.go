package crash

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupCache_HitWithinTTL(t *testing.T) {
	c := newDedupCache(time.Hour)
	now := time.Now()
	key := cacheKey{userID: "u1", logMD5: "abc"}
	c.set(key, Result{SessionID: "s1"}, now)

	got, ok := c.get(key, now.Add(30*time.Minute))
	require.True(t, ok)
	assert.Equal(t, "s1", got.SessionID)
}

func TestDedupCache_MissAfterTTLExpires(t *testing.T) {
	c := newDedupCache(time.Hour)
	now := time.Now()
	key := cacheKey{userID: "u1", logMD5: "abc"}
	c.set(key, Result{SessionID: "s1"}, now)

	_, ok := c.get(key, now.Add(2*time.Hour))
	assert.False(t, ok)
}

func TestDedupCache_DifferentUserSameHashIsSeparateEntry(t *testing.T) {
	c := newDedupCache(time.Hour)
	now := time.Now()
	c.set(cacheKey{userID: "u1", logMD5: "abc"}, Result{SessionID: "s1"}, now)

	_, ok := c.get(cacheKey{userID: "u2", logMD5: "abc"}, now)
	assert.False(t, ok)
}

func TestDedupCache_EvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c := newDedupCache(time.Hour)
	c.capacity = 2
	now := time.Now()

	c.set(cacheKey{userID: "u1", logMD5: "a"}, Result{SessionID: "s1"}, now)
	c.set(cacheKey{userID: "u1", logMD5: "b"}, Result{SessionID: "s2"}, now)
	// touch "a" so "b" becomes the least-recently-used entry.
	c.get(cacheKey{userID: "u1", logMD5: "a"}, now)
	c.set(cacheKey{userID: "u1", logMD5: "c"}, Result{SessionID: "s3"}, now)

	_, bOK := c.get(cacheKey{userID: "u1", logMD5: "b"}, now)
	assert.False(t, bOK, "least-recently-used entry should be evicted")

	_, aOK := c.get(cacheKey{userID: "u1", logMD5: "a"}, now)
	assert.True(t, aOK)
	_, cOK := c.get(cacheKey{userID: "u1", logMD5: "c"}, now)
	assert.True(t, cOK)
}
