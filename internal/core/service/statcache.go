package service

import (
	"moebot2mqtt/internal/core/port"

	"go.uber.org/zap"
)

// MemoryStatCache suppresses republication of unchanged stat values. The
// cache outlives device reconnects, so a value that did not change across a
// reconnect is not republished.
type MemoryStatCache struct {
	Logger *zap.Logger
	values map[string]string
}

func NewMemoryStatCache(logger *zap.Logger) *MemoryStatCache {
	return &MemoryStatCache{
		Logger: logger,
		values: make(map[string]string),
	}
}

// Update stores value under key. Last writer wins per key.
func (c *MemoryStatCache) Update(key, value string) bool {
	prev, ok := c.values[key]
	if ok && prev == value {
		return false
	}
	c.values[key] = value
	return true
}

func (c *MemoryStatCache) Last(key string) (string, bool) {
	value, ok := c.values[key]
	return value, ok
}

func (c *MemoryStatCache) Len() int {
	return len(c.values)
}

// Compact copies live entries into a fresh map so overwritten buckets are
// released.
func (c *MemoryStatCache) Compact() {
	rebuilt := make(map[string]string, len(c.values))
	for key, value := range c.values {
		rebuilt[key] = value
	}
	c.values = rebuilt
	c.Logger.Debug("stat cache compacted", zap.Int("size", len(rebuilt)))
}

var _ port.StatStore = (*MemoryStatCache)(nil)
