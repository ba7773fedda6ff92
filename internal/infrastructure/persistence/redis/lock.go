package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ghostwriter-ai-api/internal/domain/service"
)

// releaseScript 仅当值与持有者令牌一致时删除，避免误删他人的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker 基于 SET NX 的分布式锁
type Locker struct {
	client *Client
	prefix string
}

// NewLocker 创建分布式锁
func NewLocker(client *Client, prefix string) *Locker {
	if prefix == "" {
		prefix = "lock"
	}
	return &Locker{client: client, prefix: prefix}
}

// Acquire 获取锁，已被持有时返回 service.ErrLockHeld
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (service.ReleaseFunc, error) {
	fullKey := l.prefix + ":" + key
	ctx, span := tracer.Start(ctx, "redis.Lock.Acquire",
		trace.WithAttributes(
			attribute.String("redis.key", fullKey),
			attribute.Int64("redis.ttl_ms", ttl.Milliseconds()),
		))
	defer span.End()

	token := uuid.NewString()
	ok, err := l.client.rdb.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		span.SetAttributes(attribute.Bool("lock.acquired", false))
		return nil, service.ErrLockHeld
	}
	span.SetAttributes(attribute.Bool("lock.acquired", true))

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client.rdb, []string{fullKey}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", fullKey, err)
		}
		return nil
	}, nil
}
