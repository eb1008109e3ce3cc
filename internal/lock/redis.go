package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chitfund-backend/internal/config"
	"chitfund-backend/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld means another process holds the key.
var ErrLockHeld = errors.New("lock held by another owner")

// releaseScript deletes the key only if it still carries our token, so a
// holder whose TTL expired cannot drop a lock someone else has since taken.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

type RedisClientConstructor func(opt *redis.Options) *redis.Client

// ConnectToRedis opens a client and pings it.
func ConnectToRedis(ctx context.Context, cfg config.RedisConfig, newClientFunc RedisClientConstructor) (*redis.Client, error) {
	logger.Info("Connecting to Redis", "addr", cfg.Addr, "db", cfg.DB)

	if newClientFunc == nil {
		newClientFunc = redis.NewClient
	}
	client := newClientFunc(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Redis ping failed", "error", err)
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("Successfully connected to Redis")
	return client, nil
}

// Locker hands out short-lived exclusive leases on string keys.
type Locker interface {
	// Acquire returns ErrLockHeld immediately if the key is taken.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

type RedisLocker struct {
	client   redis.Cmdable
	prefix   string
	newToken func() string
}

func NewRedisLocker(client redis.Cmdable) *RedisLocker {
	return &RedisLocker{client: client, prefix: "chitfund:lock:", newToken: uuid.NewString}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	fullKey := l.prefix + key
	token := l.newToken()

	logger.ExternalServiceCall("redis", "SETNX", "key", fullKey, "ttl", ttl)
	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	logger.ExternalServiceResult("redis", "SETNX", err, "key", fullKey, "acquired", ok)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", fullKey, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, fullKey)
	}

	release := func(ctx context.Context) error {
		n, err := l.client.Eval(ctx, releaseScript, []string{fullKey}, token).Int64()
		if err != nil {
			return fmt.Errorf("release %s: %w", fullKey, err)
		}
		if n == 0 {
			logger.Warn("Lock expired before release", "key", fullKey)
		}
		return nil
	}
	return release, nil
}
