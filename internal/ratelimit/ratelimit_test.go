package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseLimiter(t *testing.T, l AttemptLimiter) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "Jane@Example.com")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i)
		require.NoError(t, l.Fail(ctx, "jane@example.com "))
	}
	ok, err := l.Allow(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "other@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Reset(ctx, "JANE@example.com"))
	ok, err = l.Allow(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLimiter(t *testing.T) {
	exerciseLimiter(t, NewMemoryLimiter(3, time.Minute))
}

func TestMemoryLimiterWindowExpires(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute).(*memoryLimiter)
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, l.Fail(ctx, "a"))
	ok, _ := l.Allow(ctx, "a")
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok)
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	l := NewRedisLimiter(client, "otp:attempts:", 3, time.Minute)
	exerciseLimiter(t, l)

	ctx := context.Background()
	require.NoError(t, l.Fail(ctx, "ttl@example.com"))
	assert.Equal(t, time.Minute, mr.TTL("otp:attempts:ttl@example.com"))

	mr.FastForward(time.Minute)
	ok, err := l.Allow(ctx, "ttl@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClientLimiter(t *testing.T) {
	l := NewClientLimiter(1, 2, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("5.6.7.8"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("1.2.3.4"))

	now = now.Add(2 * time.Minute)
	l.Allow("5.6.7.8")
	_, tracked := l.clients["1.2.3.4"]
	assert.False(t, tracked)
}

func TestClientLimiterSweepsOncePerTTL(t *testing.T) {
	l := NewClientLimiter(1, 1, time.Minute)
	start := time.Now()
	now := start
	l.now = func() time.Time { return now }

	l.Allow("1.2.3.4")
	assert.Equal(t, start, l.lastSweep)

	now = start.Add(30 * time.Second)
	l.Allow("5.6.7.8")
	assert.Equal(t, start, l.lastSweep)
	assert.Len(t, l.clients, 2)

	now = start.Add(time.Minute + 10*time.Second)
	l.Allow("5.6.7.8")
	assert.Equal(t, now, l.lastSweep)
	_, tracked := l.clients["1.2.3.4"]
	assert.False(t, tracked)
	assert.Len(t, l.clients, 1)
}
