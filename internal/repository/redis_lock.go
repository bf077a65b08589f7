package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/redis/go-redis/v9"
)

const DefaultLockTTL = 30 * time.Second

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another request is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisPaymentLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisPaymentLocker(client redis.UniversalClient, ttl time.Duration) *RedisPaymentLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}

	return &RedisPaymentLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *RedisPaymentLocker) Lock(ctx context.Context, key string) (domain.UnlockFunc, error) {
	lockKey := paymentLockKey(key)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire payment lock: %w", err)
	}

	if !ok {
		return nil, domain.ErrPaymentLocked
	}

	unlock := func(ctx context.Context) error {
		err := releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err()
		if err != nil {
			return fmt.Errorf("failed to release payment lock: %w", err)
		}

		return nil
	}

	return unlock, nil
}

func paymentLockKey(key string) string {
	return "payment:lock:" + key
}
