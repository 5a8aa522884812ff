package util

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockHeld is returned by Acquire when another holder owns the lock.
var ErrLockHeld = errors.New("lock is held by another run")

// releaseScript deletes the key only when it still holds our token, so a run
// that outlived its TTL cannot release a lock taken by the next run.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock is a best-effort distributed mutex over SetNX.
type RunLock struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRunLock(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RunLock {
	return &RunLock{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// Acquire takes lock:<name>. The returned release func must be called when
// the run finishes. If Redis is unreachable the run is allowed to proceed.
func (l *RunLock) Acquire(ctx context.Context, name string) (func(), error) {
	key := fmt.Sprintf("lock:%s", name)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		l.logger.Warn("Redis lock check failed, allowing run",
			zap.String("lock", key),
			zap.Error(err),
		)
		return func() {}, nil
	}
	if !ok {
		l.logger.Info("Skipped run, lock already held", zap.String("lock", key))
		return nil, ErrLockHeld
	}

	return func() {
		// release with a fresh context so a cancelled run still unlocks
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err(); err != nil {
			l.logger.Warn("Failed to release lock", zap.String("lock", key), zap.Error(err))
		}
	}, nil
}
