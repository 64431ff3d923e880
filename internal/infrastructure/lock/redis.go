package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/erp/backoffice/internal/application/uow"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "backoffice:lock:"

// RedisLocker serialises keys across processes with Redis leases. A lease
// expires after ttl if its holder dies without releasing it.
type RedisLocker struct {
	client *redislock.Client
	wait   time.Duration
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLocker creates a RedisLocker on an existing client
func NewRedisLocker(rdb redis.UniversalClient, wait, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		wait:   wait,
		ttl:    ttl,
		logger: logger,
	}
}

// Acquire obtains the lease, retrying with exponential backoff until the
// wait runs out
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	lease, err := l.client.Obtain(waitCtx, redisKeyPrefix+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.ExponentialBackoff(8*time.Millisecond, 256*time.Millisecond),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
			return nil, shared.NewDomainErrorf(shared.CodeLockTimeout, "Timed out waiting for %s", key)
		}
		return nil, err
	}

	return func() {
		// the caller's context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

var _ uow.Locker = (*RedisLocker)(nil)
