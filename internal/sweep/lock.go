package sweep

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	pkgredis "github.com/vantagepos/licensing-backend/pkg/redis"
)

// RedisLock is a best-effort distributed lease. Acquire wins only if no
// other holder exists; Release only clears the lease when this instance
// still owns it, so an expired lease taken over by another worker is never
// stolen back.
type RedisLock struct {
	client *pkgredis.Client
	key    string
	owner  string
	ttl    time.Duration
}

// NewRedisLock builds a lease on the named scope with the given TTL.
func NewRedisLock(client *pkgredis.Client, scope string, ttl time.Duration) *RedisLock {
	return &RedisLock{
		client: client,
		key:    client.LockKey(scope),
		owner:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Acquire attempts to take the lease. It reports false when another holder
// has it.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.owner, l.ttl)
}

// Release frees the lease if this instance still owns it.
func (l *RedisLock) Release(ctx context.Context) error {
	current, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return nil
		}
		return err
	}
	if current != l.owner {
		return nil
	}
	return l.client.Del(ctx, l.key)
}
