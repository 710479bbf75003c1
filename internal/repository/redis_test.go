package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisLockRepository) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewRedisLockRepository(client)
}

func TestRedisUserLock(t *testing.T) {
	mr, repo := setupRedis(t)
	ctx := context.Background()

	ok, err := repo.AcquireUserLock(ctx, 1, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second acquire while held fails
	ok, err = repo.AcquireUserLock(ctx, 1, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	// Other users are independent
	ok, err = repo.AcquireUserLock(ctx, 2, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.ReleaseUserLock(ctx, 1))
	ok, err = repo.AcquireUserLock(ctx, 1, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	// Lock expires after its TTL
	mr.FastForward(31 * time.Second)
	ok, err = repo.AcquireUserLock(ctx, 1, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockNilClient(t *testing.T) {
	repo := NewRedisLockRepository(nil)

	_, err := repo.AcquireUserLock(context.Background(), 1, time.Second)
	assert.Error(t, err)
	assert.Error(t, repo.ReleaseUserLock(context.Background(), 1))
}
