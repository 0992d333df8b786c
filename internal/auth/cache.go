package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache remembers revoked refresh tokens until they would expire anyway.
type TokenCache interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type RedisTokenCache struct {
	client *redis.Client
}

func NewRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{client: client}
}

func (c *RedisTokenCache) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, "revoked_token:"+jti, 1, ttl).Err()
}

func (c *RedisTokenCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := c.client.Get(ctx, "revoked_token:"+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MemoryTokenCache is the single-process fallback when Redis is not configured.
type MemoryTokenCache struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{revoked: make(map[string]time.Time), now: time.Now}
}

func (c *MemoryTokenCache) Revoke(ctx context.Context, jti string, until time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, exp := range c.revoked {
		if !exp.After(now) {
			delete(c.revoked, k)
		}
	}
	if until.After(now) {
		c.revoked[jti] = until
	}
	return nil
}

func (c *MemoryTokenCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp, ok := c.revoked[jti]
	return ok && exp.After(c.now()), nil
}
