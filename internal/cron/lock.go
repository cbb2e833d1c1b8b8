package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockwatch-backend/pkg/instance"
)

const defaultLockTTL = 6 * time.Hour

// Lock coordinates exclusive job runs across worker instances.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LockProvider hands out the lock guarding a single job.
type LockProvider interface {
	ForJob(name string) (Lock, error)
}

// redisStore defines the operations used by RedisLock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
}

// RedisLock implements Lock using Redis SETNX + TTL with an owner token.
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	owner string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := instance.ID() + ":" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.mu.Lock()
		l.owner = owner
		l.mu.Unlock()
	}
	return ok, nil
}

// Release frees the lock only if the owner value still matches.
func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	owner := l.owner
	l.owner = ""
	l.mu.Unlock()
	if owner == "" {
		return nil
	}
	if _, err := l.client.DelIfValue(ctx, l.key, owner); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}

// lockKeyer builds namespaced redis keys.
type lockKeyer interface {
	redisStore
	LockKey(parts ...string) string
}

// RedisLockProvider builds one RedisLock per job keyed by worker kind,
// environment and job name.
type RedisLockProvider struct {
	client lockKeyer
	kind   string
	env    string
	ttl    time.Duration
}

// NewRedisLockProvider constructs a provider for the given worker kind and environment.
func NewRedisLockProvider(client lockKeyer, kind, env string, ttl time.Duration) (*RedisLockProvider, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock provider")
	}
	if kind == "" {
		kind = "cron-worker"
	}
	return &RedisLockProvider{client: client, kind: kind, env: env, ttl: ttl}, nil
}

// ForJob returns the lock guarding the named job.
func (p *RedisLockProvider) ForJob(name string) (Lock, error) {
	if name == "" {
		return nil, errors.New("job name is required for lock")
	}
	return NewRedisLock(p.client, p.client.LockKey(p.kind, p.env, name), p.ttl)
}
