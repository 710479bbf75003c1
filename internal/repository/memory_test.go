package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUserLock(t *testing.T) {
	repo := NewMemoryLockRepository()
	ctx := context.Background()

	ok, err := repo.AcquireUserLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AcquireUserLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.ReleaseUserLock(ctx, 1))

	ok, err = repo.AcquireUserLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryUserLockExpiry(t *testing.T) {
	repo := NewMemoryLockRepository()
	ctx := context.Background()

	ok, err := repo.AcquireUserLock(ctx, 1, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	ok, err = repo.AcquireUserLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
