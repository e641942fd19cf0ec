package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestStatCacheSuppressesUnchanged(t *testing.T) {

	assert := assert.New(t)

	cache := NewMemoryStatCache(zap.NewNop())

	assert.True(cache.Update("battery", "90"), "first value always publishes")
	assert.False(cache.Update("battery", "90"), "unchanged value suppressed")
	assert.True(cache.Update("battery", "89"), "changed value publishes")
	assert.False(cache.Update("battery", "89"))
}

func TestStatCacheKeysIndependent(t *testing.T) {

	assert := assert.New(t)

	cache := NewMemoryStatCache(zap.NewNop())
	cache.Update("battery", "90")

	assert.True(cache.Update("state", "MOWING"))
	assert.Equal(2, cache.Len())

	last, ok := cache.Last("state")
	assert.True(ok)
	assert.Equal("MOWING", last)

	_, ok = cache.Last("missing")
	assert.False(ok)
}

func TestStatCacheCompactKeepsValues(t *testing.T) {

	assert := assert.New(t)

	cache := NewMemoryStatCache(zap.NewNop())
	cache.Update("battery", "90")
	cache.Update("state", "STANDBY")

	cache.Compact()

	assert.Equal(2, cache.Len())
	assert.False(cache.Update("battery", "90"), "compaction preserves suppression")
}
