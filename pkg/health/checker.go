package health

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/richxcame/account-onboarding/pkg/common"
)

// PoolChecker returns a health check function for a PostgreSQL pool
func PoolChecker(pool *pgxpool.Pool) common.CheckFunc {
	return func(ctx context.Context) error {
		return pool.Ping(ctx)
	}
}

// RedisChecker returns a health check function for Redis
func RedisChecker(client redis.UniversalClient) common.CheckFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

// NATSChecker reports whether the event bus connection is up
func NATSChecker(conn *nats.Conn) common.CheckFunc {
	return func(ctx context.Context) error {
		if conn == nil || !conn.IsConnected() {
			return errors.New("nats not connected")
		}
		return nil
	}
}

// RuleSetChecker fails when no rule snapshot has been loaded
func RuleSetChecker(version func() int64) common.CheckFunc {
	return func(ctx context.Context) error {
		if version() == 0 {
			return errors.New("rule set not loaded")
		}
		return nil
	}
}
