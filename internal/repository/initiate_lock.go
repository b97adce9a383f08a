package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock re-acquired by another request is never released by us.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker is a best effort mutual exclusion backed by SET NX.  It keeps
// two concurrent payment initiations for the same booking from both
// reaching the gateway.  A nil client makes every acquisition succeed.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisLocker returns a locker namespaced under prefix.
func NewRedisLocker(rdb *redis.Client, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "lock"
	}
	return &RedisLocker{rdb: rdb, prefix: prefix}
}

// Acquire tries to take the lock for key.  When ok is false somebody else
// holds it.  The returned release function is always non-nil.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error) {
	noop := func() {}
	if l == nil || l.rdb == nil {
		return noop, true, nil
	}
	full := l.prefix + ":" + key
	token := uuid.NewString()
	ok, err = l.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil || !ok {
		return noop, false, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{full}, token).Err()
	}, true, nil
}
