package audit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisCounter(t *testing.T) (*RedisCounterStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCounterStore(client, "denials"), mr
}

func TestRedisCounterStore_Increment(t *testing.T) {
	store, _ := setupRedisCounter(t)
	ctx := context.Background()
	now := time.Now()

	for want := int64(1); want <= 3; want++ {
		count, err := store.Increment(ctx, "org:user:clients:update", now, 5*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}
}

func TestRedisCounterStore_WindowExpiry(t *testing.T) {
	store, mr := setupRedisCounter(t)
	ctx := context.Background()
	now := time.Now()

	store.Increment(ctx, "k", now, 5*time.Minute)
	store.Increment(ctx, "k", now, 5*time.Minute)

	// Redis drops the key when the window TTL elapses.
	mr.FastForward(6 * time.Minute)

	count, err := store.Increment(ctx, "k", now, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRedisCounterStore_Reset(t *testing.T) {
	store, _ := setupRedisCounter(t)
	ctx := context.Background()
	now := time.Now()

	store.Increment(ctx, "k", now, time.Minute)
	store.Increment(ctx, "k", now, time.Minute)
	require.NoError(t, store.Reset(ctx, "k"))

	count, err := store.Increment(ctx, "k", now, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRedisCounterStore_IncrementErrorSurfaced(t *testing.T) {
	store, mr := setupRedisCounter(t)
	mr.Close()

	_, err := store.Increment(context.Background(), "k", time.Now(), time.Minute)
	assert.Error(t, err)
}
