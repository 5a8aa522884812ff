package util

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRunLock(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	lock := NewRunLock(rdb, time.Minute, zap.NewNop())

	release, err := lock.Acquire(ctx, "sync")
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, "sync")
	assert.ErrorIs(t, err, ErrLockHeld)

	_, err = lock.Acquire(ctx, "other")
	assert.NoError(t, err, "locks are per name")

	release()
	release2, err := lock.Acquire(ctx, "sync")
	require.NoError(t, err, "lock is free after release")
	release2()
}

func TestRunLockExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	lock := NewRunLock(rdb, time.Second, zap.NewNop())

	stale, err := lock.Acquire(ctx, "sync")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	release, err := lock.Acquire(ctx, "sync")
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists("lock:sync"), "a stale holder must not release the new lock")
	release()
	assert.False(t, mr.Exists("lock:sync"))
}

func TestRunLockRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	mr.Close()

	release, err := NewRunLock(rdb, time.Minute, zap.NewNop()).Acquire(context.Background(), "sync")
	assert.NoError(t, err)
	assert.NotNil(t, release)
}

func TestRetryCounter(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	counter := NewRetryCounter(rdb, "email_queue", time.Hour)

	n, err := counter.RecordFailure(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = counter.RecordFailure(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := counter.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	require.NoError(t, counter.Clear(ctx, "abc"))
	got, err = counter.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Zero(t, got)
	assert.Equal(t, "retry:email_queue:abc", FormatRetryKey("email_queue", "abc"))
}
