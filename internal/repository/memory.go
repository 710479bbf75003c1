package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryLockRepository is the in-process fallback for the per-user booking
// lock. Locks expire lazily on the next acquire attempt.
type MemoryLockRepository struct {
	mu    sync.Mutex
	locks map[int64]time.Time
}

func NewMemoryLockRepository() *MemoryLockRepository {
	return &MemoryLockRepository{locks: make(map[int64]time.Time)}
}

func (r *MemoryLockRepository) AcquireUserLock(_ context.Context, userID int64, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if expiry, held := r.locks[userID]; held && now.Before(expiry) {
		return false, nil
	}
	r.locks[userID] = now.Add(ttl)
	return true, nil
}

func (r *MemoryLockRepository) ReleaseUserLock(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, userID)
	return nil
}
