// Package ratelimit bounds how often a caller may retry an operation.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter counts failed attempts per key inside a fixed window.
type AttemptLimiter interface {
	// Allow reports whether another attempt may be made for key.
	Allow(ctx context.Context, key string) (bool, error)
	// Fail records a failed attempt. The window starts with the first failure.
	Fail(ctx context.Context, key string) error
	// Reset forgets all failures for key.
	Reset(ctx context.Context, key string) error
}

// NormalizeKey lower-cases and trims key so "A@x.io " and "a@x.io" share a counter.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

type redisLimiter struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

// NewRedisLimiter stores counters in Redis so they are shared between replicas.
func NewRedisLimiter(client *redis.Client, prefix string, maxAttempts int, window time.Duration) AttemptLimiter {
	return &redisLimiter{client: client, prefix: prefix, max: maxAttempts, window: window}
}

func (l *redisLimiter) key(key string) string {
	return l.prefix + NormalizeKey(key)
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Get(ctx, l.key(key)).Int()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read attempts: %w", err)
	}
	return n < l.max, nil
}

func (l *redisLimiter) Fail(ctx context.Context, key string) error {
	k := l.key(key)
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("incr attempts: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return fmt.Errorf("expire attempts: %w", err)
		}
	}
	return nil
}

func (l *redisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}

type counter struct {
	n       int
	expires time.Time
}

type memoryLimiter struct {
	mu       sync.Mutex
	counters map[string]counter
	max      int
	window   time.Duration
	now      func() time.Time
}

// NewMemoryLimiter keeps counters in process. Used when Redis is not configured.
func NewMemoryLimiter(maxAttempts int, window time.Duration) AttemptLimiter {
	return &memoryLimiter{
		counters: make(map[string]counter),
		max:      maxAttempts,
		window:   window,
		now:      time.Now,
	}
}

func (l *memoryLimiter) current(key string) counter {
	c, ok := l.counters[key]
	if ok && !l.now().Before(c.expires) {
		delete(l.counters, key)
		return counter{}
	}
	return c
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current(NormalizeKey(key)).n < l.max, nil
}

func (l *memoryLimiter) Fail(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key = NormalizeKey(key)
	c := l.current(key)
	if c.n == 0 {
		c.expires = l.now().Add(l.window)
	}
	c.n++
	l.counters[key] = c
	return nil
}

func (l *memoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counters, NormalizeKey(key))
	return nil
}
