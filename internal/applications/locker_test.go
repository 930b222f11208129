package applications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()

	unlock, err := l.Lock(context.Background(), "app-1")
	require.NoError(t, err)

	_, err = l.Lock(context.Background(), "app-1")
	assert.ErrorIs(t, err, ErrConcurrencyConflict)

	other, err := l.Lock(context.Background(), "app-2")
	require.NoError(t, err)
	other()

	unlock()
	unlock()

	again, err := l.Lock(context.Background(), "app-1")
	require.NoError(t, err)
	again()
}

func newTestRedisLocker(t *testing.T) (*RedisLocker, redismock.ClientMock) {
	t.Helper()
	rdb, mock := redismock.NewClientMock()
	l := NewRedisLocker(rdb, time.Minute)
	l.token = func() string { return "token-1" }
	return l, mock
}

func TestRedisLocker_Acquire(t *testing.T) {
	l, mock := newTestRedisLocker(t)
	mock.ExpectSetNX(lockKeyPrefix+"app-1", "token-1", time.Minute).SetVal(true)

	unlock, err := l.Lock(context.Background(), "app-1")
	require.NoError(t, err)
	assert.NotNil(t, unlock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_HeldElsewhere(t *testing.T) {
	l, mock := newTestRedisLocker(t)
	mock.ExpectSetNX(lockKeyPrefix+"app-1", "token-1", time.Minute).SetVal(false)

	_, err := l.Lock(context.Background(), "app-1")
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_RedisDown(t *testing.T) {
	l, mock := newTestRedisLocker(t)
	mock.ExpectSetNX(lockKeyPrefix+"app-1", "token-1", time.Minute).SetErr(errors.New("connection refused"))

	_, err := l.Lock(context.Background(), "app-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConcurrencyConflict)
}

func TestNewRedisLocker_DefaultTTL(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	assert.Equal(t, 2*time.Minute, NewRedisLocker(rdb, 0).ttl)
}
