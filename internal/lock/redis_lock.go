// Package lock provides the mutual exclusion used by the scheduled
// notification sweep when several replicas run it.
package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker hands out named, expiring locks.
type Locker interface {
	// TryLock attempts to take key for ttl without waiting. When acquired is
	// false the lock is held elsewhere and unlock is nil. The lock is not
	// renewed; holders must finish their work within ttl.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), acquired bool, err error)
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-taken by another holder is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	log    *slog.Logger
}

func NewRedisLocker(client redis.UniversalClient, prefix string, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: prefix,
		log:    logger.With("component", "redis_lock"),
	}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	key = l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.log.Warn("Failed to release lock", slog.String("key", key), slog.Any("error", err))
		}
	}
	return unlock, true, nil
}

// NoopLocker always grants the lock. It is used when no Redis is configured
// and a single replica runs the sweep.
type NoopLocker struct{}

func (NoopLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = NoopLocker{}
)
