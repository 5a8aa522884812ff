package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RetryCounter counts failed attempts per item in Redis. Counts expire after
// ttl of inactivity and are only used for logging and alerting.
type RetryCounter struct {
	rdb     *redis.Client
	ttl     time.Duration
	handler string
}

func NewRetryCounter(rdb *redis.Client, handler string, ttl time.Duration) *RetryCounter {
	return &RetryCounter{rdb: rdb, ttl: ttl, handler: handler}
}

// RecordFailure increments the attempt count for id and returns the new count.
func (r *RetryCounter) RecordFailure(ctx context.Context, id string) (int64, error) {
	key := FormatRetryKey(r.handler, id)
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Get returns the current attempt count for id.
func (r *RetryCounter) Get(ctx context.Context, id string) (int64, error) {
	count, err := r.rdb.Get(ctx, FormatRetryKey(r.handler, id)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}

// Clear drops the count after a successful attempt.
func (r *RetryCounter) Clear(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, FormatRetryKey(r.handler, id)).Err()
}

// FormatRetryKey formats a retry key for a handler and item id.
func FormatRetryKey(handler string, id string) string {
	return fmt.Sprintf("retry:%s:%s", handler, id)
}
