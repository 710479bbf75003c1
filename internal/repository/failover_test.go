package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenLockRepository struct{}

func (brokenLockRepository) AcquireUserLock(context.Context, int64, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func (brokenLockRepository) ReleaseUserLock(context.Context, int64) error {
	return errors.New("connection refused")
}

func TestFailoverUsesPrimary(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	primary := NewMemoryLockRepository()
	fallback := NewMemoryLockRepository()
	repo := NewFailoverLockRepository(primary, fallback, &logger)

	ctx := context.Background()
	ok, err := repo.AcquireUserLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// The lock is held on the primary, not the fallback
	ok, err = primary.AcquireUserLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = fallback.AcquireUserLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFailoverFallsBackOnError(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	fallback := NewMemoryLockRepository()
	repo := NewFailoverLockRepository(brokenLockRepository{}, fallback, &logger)

	ctx := context.Background()
	ok, err := repo.AcquireUserLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Subsequent calls keep using the fallback without touching the primary
	ok, err = repo.AcquireUserLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.ReleaseUserLock(ctx, 1))
	ok, err = repo.AcquireUserLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
