package aigateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TipCache stores the daily tip per calendar day.
type TipCache interface {
	Get(ctx context.Context, day string) (string, bool, error)
	Set(ctx context.Context, day, tip string) error
}

// MemoryTipCache keeps tips in process.
type MemoryTipCache struct {
	mu   sync.RWMutex
	tips map[string]string
}

// NewMemoryTipCache creates an empty in-process cache.
func NewMemoryTipCache() *MemoryTipCache {
	return &MemoryTipCache{tips: make(map[string]string)}
}

func (c *MemoryTipCache) Get(_ context.Context, day string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tip, ok := c.tips[day]
	return tip, ok, nil
}

// Set stores the tip for day and forgets every other day.
func (c *MemoryTipCache) Set(_ context.Context, day, tip string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tips = map[string]string{day: tip}
	return nil
}

const tipKeyPrefix = "portal:tip:"

// RedisTipCache shares the daily tip between server instances.
type RedisTipCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTipCache creates a cache whose entries expire after ttl.
func NewRedisTipCache(client *redis.Client, ttl time.Duration) *RedisTipCache {
	return &RedisTipCache{client: client, ttl: ttl}
}

func (c *RedisTipCache) Get(ctx context.Context, day string) (string, bool, error) {
	tip, err := c.client.Get(ctx, tipKeyPrefix+day).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return tip, true, nil
}

func (c *RedisTipCache) Set(ctx context.Context, day, tip string) error {
	return c.client.Set(ctx, tipKeyPrefix+day, tip, c.ttl).Err()
}
