package spend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/cartlimits-backend/pkg/config"
	"github.com/angelmondragon/cartlimits-backend/pkg/redis"
)

const (
	lockScope       = "spend"
	defaultLockTTL  = 30 * time.Second
	defaultLockWait = 200 * time.Millisecond
)

// ErrLockBusy is returned when another update holds the customer's spend lock.
var ErrLockBusy = errors.New("customer spend lock busy")

// Locker serializes spend updates per customer.
type Locker interface {
	Lock(ctx context.Context, customerID string) (release func(context.Context) error, err error)
}

// RedisLock is one owner-checked SETNX lock.
type RedisLock struct {
	client redis.LockStore
	key    string
	ttl    time.Duration
	owner  string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client redis.LockStore, key string, ttl time.Duration) (*RedisLock, error) {
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
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock only if the owner value still matches.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	value, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.owner = ""
	return nil
}

// CustomerLocker hands out per-customer RedisLocks, retrying while another holder is active.
type CustomerLocker struct {
	client   redis.LockStore
	ttl      time.Duration
	wait     time.Duration
	attempts int
}

// NewCustomerLocker builds a locker from the spend lock settings.
func NewCustomerLocker(client redis.LockStore, cfg config.LimitsConfig) (*CustomerLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	l := &CustomerLocker{
		client:   client,
		ttl:      cfg.SpendLockTTL,
		wait:     cfg.SpendLockWait,
		attempts: cfg.SpendLockTries,
	}
	if l.ttl <= 0 {
		l.ttl = defaultLockTTL
	}
	if l.wait <= 0 {
		l.wait = defaultLockWait
	}
	if l.attempts <= 0 {
		l.attempts = 1
	}
	return l, nil
}

// Lock blocks until the customer's lock is owned, the attempts run out, or ctx ends.
func (c *CustomerLocker) Lock(ctx context.Context, customerID string) (func(context.Context) error, error) {
	lock, err := NewRedisLock(c.client, c.client.LockKey(lockScope, customerID), c.ttl)
	if err != nil {
		return nil, err
	}
	for attempt := 1; ; attempt++ {
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			return lock.Release, nil
		}
		if attempt >= c.attempts {
			return nil, ErrLockBusy
		}
		timer := time.NewTimer(c.wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
