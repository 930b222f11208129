package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/richxcame/account-onboarding/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisConfig_RedisAddr(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.RedisConfig
		expected string
	}{
		{"default localhost", config.RedisConfig{Host: "localhost", Port: "6379"}, "localhost:6379"},
		{"custom host", config.RedisConfig{Host: "redis.internal", Port: "6380"}, "redis.internal:6380"},
		{"empty values", config.RedisConfig{}, ":"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.cfg.RedisAddr())
		})
	}
}

func TestAcquireLock_Success(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectSetNX("lock:app-1", "token-1", time.Minute).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"lock:app-1"}, "token-1").SetVal(int64(1))

	lock, err := AcquireLock(context.Background(), rdb, "lock:app-1", "token-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "lock:app-1", lock.Key())

	require.NoError(t, lock.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireLock_AlreadyHeld(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectSetNX("lock:app-1", "token-2", time.Minute).SetVal(false)

	lock, err := AcquireLock(context.Background(), rdb, "lock:app-1", "token-2", time.Minute)

	assert.Nil(t, lock)
	assert.ErrorIs(t, err, ErrLockHeld)
}

func TestAcquireLock_RedisError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectSetNX("lock:app-1", "token-3", time.Minute).SetErr(errors.New("connection reset"))

	_, err := AcquireLock(context.Background(), rdb, "lock:app-1", "token-3", time.Minute)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockHeld)
}
