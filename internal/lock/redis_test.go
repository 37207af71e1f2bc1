package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis keeps keys in memory and understands the release script only.
type fakeRedis struct {
	mu      sync.Mutex
	keys    map[string]string
	ttls    map[string]time.Duration
	failSet error
	closed  bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSet != nil {
		return redis.NewBoolResult(false, f.failSet)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = value.(string)
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.keys[keys[0]] == args[0].(string) {
		delete(f.keys, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func (f *fakeRedis) expire(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("second holder is refused until release", func(t *testing.T) {
		fake := newFakeRedis()
		l := newRedisLocker(fake, "ldapsync:")

		release, ok, err := l.TryLock(ctx, "run:1:0", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, time.Minute, fake.ttls["ldapsync:run:1:0"])

		_, ok, err = l.TryLock(ctx, "run:1:0", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, release(ctx))

		_, ok, err = l.TryLock(ctx, "run:1:0", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("release after expiry reports a lost lock", func(t *testing.T) {
		fake := newFakeRedis()
		l := newRedisLocker(fake, "")

		release, ok, err := l.TryLock(ctx, "k", time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		fake.expire("k")
		other, ok, err := l.TryLock(ctx, "k", time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		assert.ErrorIs(t, release(ctx), ErrLockLost)
		assert.NoError(t, other(ctx), "the new holder keeps its lock")
	})

	t.Run("redis errors are returned", func(t *testing.T) {
		fake := newFakeRedis()
		fake.failSet = errors.New("READONLY")
		l := newRedisLocker(fake, "")

		_, ok, err := l.TryLock(ctx, "k", time.Second)
		assert.False(t, ok)
		assert.ErrorContains(t, err, "READONLY")
	})

	t.Run("close", func(t *testing.T) {
		fake := newFakeRedis()
		require.NoError(t, newRedisLocker(fake, "").Close())
		assert.True(t, fake.closed)
	})
}
