package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockTimeout = errors.New("timed out waiting for lock")

// only the holder's token may release the lock
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ScopeLocker hands out short-lived SET NX locks keyed by scope
type ScopeLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	wait   time.Duration
}

// NewScopeLocker builds a locker on the cache's connection
func (r *RedisCache) NewScopeLocker(ttl time.Duration) *ScopeLocker {
	return &ScopeLocker{
		client: r.client,
		ttl:    ttl,
		retry:  25 * time.Millisecond,
		wait:   ttl,
	}
}

// Lock blocks until key is held or the wait budget is spent. The returned
// func releases the lock and is safe to call once.
func (l *ScopeLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// release on a fresh context; the request context may already be done
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}
