package applications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/richxcame/account-onboarding/pkg/logger"
	"github.com/richxcame/account-onboarding/pkg/redis"
)

// LocalLocker serializes processing within one process
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]bool)}
}

// Lock claims id or fails with ErrConcurrencyConflict
func (l *LocalLocker) Lock(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[id] {
		return nil, ErrConcurrencyConflict
	}
	l.held[id] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, id)
			l.mu.Unlock()
		})
	}, nil
}

const lockKeyPrefix = "onboarding:lock:application:"

// RedisLocker serializes processing across replicas with a Redis lease. The
// lease expires after ttl even if the holder dies.
type RedisLocker struct {
	rdb   goredis.Cmdable
	ttl   time.Duration
	token func() string
}

// NewRedisLocker creates a locker on rdb
func NewRedisLocker(rdb goredis.Cmdable, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, token: uuid.NewString}
}

// Lock claims id or fails with ErrConcurrencyConflict
func (l *RedisLocker) Lock(ctx context.Context, id string) (func(), error) {
	lock, err := redis.AcquireLock(ctx, l.rdb, lockKeyPrefix+id, l.token(), l.ttl)
	if errors.Is(err, redis.ErrLockHeld) {
		return nil, ErrConcurrencyConflict
	}
	if err != nil {
		return nil, err
	}

	return func() {
		if err := lock.Release(context.Background()); err != nil {
			logger.WithContext(ctx).Warn("failed to release application lock",
				zap.String("key", lock.Key()), zap.Error(err))
		}
	}, nil
}
