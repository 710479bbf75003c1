package repository

import (
	"context"
	"sync/atomic"
	"time"

	"spacebook/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverLockRepository prefers the shared redis lock and degrades to the
// in-process one when redis is unreachable. While degraded, mutual exclusion
// only holds within a single process.
type FailoverLockRepository struct {
	primary   domain.LockRepository
	fallback  domain.LockRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverLockRepository(primary, fallback domain.LockRepository, logger *zerolog.Logger) *FailoverLockRepository {
	return &FailoverLockRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverLockRepository) AcquireUserLock(ctx context.Context, userID int64, ttl time.Duration) (bool, error) {
	if !r.isDown.Load() {
		ok, err := r.primary.AcquireUserLock(ctx, userID, ttl)
		if err == nil {
			return ok, nil
		}
		r.logger.Error().Err(err).Msg("Primary lock repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		ok, err := r.primary.AcquireUserLock(ctx, userID, ttl)
		if err == nil {
			r.isDown.Store(false)
			return ok, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.AcquireUserLock(ctx, userID, ttl)
}

func (r *FailoverLockRepository) ReleaseUserLock(ctx context.Context, userID int64) error {
	if !r.isDown.Load() {
		err := r.primary.ReleaseUserLock(ctx, userID)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary lock repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.ReleaseUserLock(ctx, userID)
}
