package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISTRIBUTED LOCKER
// One SET NX PX per key, all sharing a random token. Release deletes a key
// only while it still holds our token, so a lock that expired and was taken
// by someone else is left alone.
// ══════════════════════════════════════════════════════════════════════════════

// unlockScript deletes KEYS[1] when its value equals ARGV[1].
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// LockClient is the part of Cache the Locker needs.
type LockClient interface {
	SetNXString(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

var errLockHeld = errors.New("lock held by another owner")

// LockerConfig tunes a Locker.
type LockerConfig struct {
	// TTL bounds how long a crashed holder can block others.
	TTL time.Duration

	// Retrier paces acquisition attempts; retry.LockRetrier() when nil.
	Retrier *retry.Retrier

	// ReleaseTimeout bounds each release call.
	ReleaseTimeout time.Duration

	Logger *slog.Logger
}

// Locker implements shared.Locker on Redis.
type Locker struct {
	client         LockClient
	ttl            time.Duration
	retrier        *retry.Retrier
	releaseTimeout time.Duration
	logger         *slog.Logger
	newToken       func() string
}

// NewLocker creates a Locker.
func NewLocker(client LockClient, cfg LockerConfig) *Locker {
	if cfg.TTL <= 0 {
		cfg.TTL = TTLDistributedLock
	}
	if cfg.Retrier == nil {
		cfg.Retrier = retry.LockRetrier()
	}
	if cfg.ReleaseTimeout <= 0 {
		cfg.ReleaseTimeout = 3 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Locker{
		client:         client,
		ttl:            cfg.TTL,
		retrier:        cfg.Retrier,
		releaseTimeout: cfg.ReleaseTimeout,
		logger:         cfg.Logger.With("component", "redis_locker"),
		newToken:       uuid.NewString,
	}
}

// Lock implements shared.Locker. Keys are taken in sorted order; on failure
// every key already taken is released.
func (l *Locker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = shared.NormalizeKeys(keys)
	token := l.newToken()
	held := make([]string, 0, len(keys))

	for _, key := range keys {
		if err := l.acquire(ctx, key, token); err != nil {
			l.release(held, token)
			return nil, shared.WrapError("lock", "Lock", shared.ErrLockNotAcquired,
				"gave up waiting for "+key, err)
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(held, token) })
	}, nil
}

func (l *Locker) acquire(ctx context.Context, key, token string) error {
	return l.retrier.Do(ctx, func(ctx context.Context) error {
		ok, err := l.client.SetNXString(ctx, LockKey(key), token, l.ttl)
		if err != nil {
			return retry.Retryable(fmt.Errorf("set %s: %w", key, err))
		}
		if !ok {
			return retry.Retryable(errLockHeld)
		}
		return nil
	})
}

// release drops keys in reverse order. Failures are logged; the TTL
// reclaims anything left behind.
func (l *Locker) release(keys []string, token string) {
	for i := len(keys) - 1; i >= 0; i-- {
		ctx, cancel := context.WithTimeout(context.Background(), l.releaseTimeout)
		res, err := l.client.Eval(ctx, unlockScript, []string{LockKey(keys[i])}, token)
		cancel()

		if err != nil {
			l.logger.Error("failed to release lock", "key", keys[i], "error", err)
			continue
		}
		if n, _ := res.(int64); n == 0 {
			l.logger.Warn("lock expired before release", "key", keys[i], "ttl", l.ttl)
		}
	}
}
