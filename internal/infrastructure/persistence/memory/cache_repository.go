// Package memory provides in-memory implementations of the outbound
// repository interfaces, used as test doubles in place of the GORM/Redis
// adapters.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aetim/core/internal/ports/outbound"
)

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// CacheRepository is an in-memory outbound.CacheRepository, with no
// external dependency, for use in tests.
type CacheRepository struct {
	mu   sync.Mutex
	data map[string]cacheItem
}

func NewCacheRepository() outbound.CacheRepository {
	return &CacheRepository{data: make(map[string]cacheItem)}
}

func (c *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.data[key]
	if !ok {
		return nil, nil
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		delete(c.data, key)
		return nil, nil
	}
	return item.value, nil
}

func (c *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	c.data[key] = cacheItem{value: value, expiresAt: expiresAt}
	return nil
}

func (c *CacheRepository) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

func (c *CacheRepository) Increment(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.data[key]
	var count int64
	if ok && (item.expiresAt.IsZero() || time.Now().Before(item.expiresAt)) {
		count = bytesToInt64(item.value)
	}
	count++

	c.data[key] = cacheItem{value: int64ToBytes(count), expiresAt: item.expiresAt}
	return count, nil
}

func (c *CacheRepository) Expire(ctx context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.data[key]
	if !ok {
		return nil
	}
	item.expiresAt = time.Now().Add(ttl)
	c.data[key] = item
	return nil
}

func int64ToBytes(v int64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func bytesToInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	var v int64
	for _, x := range b {
		v = v<<8 | int64(x)
	}
	return v
}
