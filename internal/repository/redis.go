package repository

import (
	"context"
	"fmt"
	"time"

	"spacebook/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisLockRepository хранит короткоживущие блокировки по пользователям
type RedisLockRepository struct {
	client *redis.Client
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisLockRepository(client *redis.Client) *RedisLockRepository {
	return &RedisLockRepository{client: client}
}

func lockKey(userID int64) string {
	return fmt.Sprintf("user_lock:%d", userID)
}

// AcquireUserLock takes the per-user booking lock via SET NX. The TTL bounds
// how long a crashed holder can block the user.
func (r *RedisLockRepository) AcquireUserLock(ctx context.Context, userID int64, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	ok, err := r.client.SetNX(ctx, lockKey(userID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire user lock: %w", err)
	}
	return ok, nil
}

func (r *RedisLockRepository) ReleaseUserLock(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, lockKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to release user lock: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
