package redis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/pkg/retry"
)

// fakeLockClient keeps lock keys in a map and applies compare-and-delete on Eval.
type fakeLockClient struct {
	mu       sync.Mutex
	values   map[string]string
	ttls     map[string]time.Duration
	setOrder []string
	setErr   error
	evalErr  error
}

func newFakeLockClient() *fakeLockClient {
	return &fakeLockClient{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeLockClient) SetNXString(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value
	f.ttls[key] = ttl
	f.setOrder = append(f.setOrder, key)
	return true, nil
}

func (f *fakeLockClient) Eval(_ context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	if script != unlockScript || len(keys) != 1 || len(args) != 1 {
		return nil, errors.New("unexpected script call")
	}
	if f.values[keys[0]] != args[0].(string) {
		return int64(0), nil
	}
	delete(f.values, keys[0])
	return int64(1), nil
}

func (f *fakeLockClient) held() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

func newTestLocker(client LockClient, attempts int) *Locker {
	l := NewLocker(client, LockerConfig{
		TTL: 10 * time.Second,
		Retrier: retry.New(
			retry.WithMaxAttempts(attempts),
			retry.WithInitialDelay(time.Millisecond),
			retry.WithMaxDelay(2*time.Millisecond),
			retry.WithJitter(0),
		),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	n := 0
	l.newToken = func() string {
		n++
		return "token-" + string(rune('0'+n))
	}
	return l
}

func TestLocker_AcquiresSortedAndReleases(t *testing.T) {
	client := newFakeLockClient()
	l := newTestLocker(client, 3)

	unlock, err := l.Lock(context.Background(), shared.LockKeys("U1", "i1", "a1")...)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"lock:application:a1",
		"lock:internship:i1",
		"lock:student:U1",
	}, client.setOrder)
	for _, v := range client.held() {
		assert.Equal(t, "token-1", v)
	}
	assert.Equal(t, 10*time.Second, client.ttls["lock:student:U1"])

	unlock()
	unlock()
	assert.Empty(t, client.held())
}

func TestLocker_ContendedKeyGivesUpAndRollsBack(t *testing.T) {
	client := newFakeLockClient()
	l := newTestLocker(client, 3)

	first, err := l.Lock(context.Background(), "internship:i1")
	require.NoError(t, err)

	_, err = l.Lock(context.Background(), "application:a9", "internship:i1")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrLockNotAcquired)

	held := client.held()
	assert.NotContains(t, held, "lock:application:a9")
	assert.Equal(t, "token-1", held["lock:internship:i1"])

	first()
	_, err = l.Lock(context.Background(), "internship:i1")
	assert.NoError(t, err)
}

func TestLocker_ReleaseLeavesForeignToken(t *testing.T) {
	client := newFakeLockClient()
	l := newTestLocker(client, 1)

	unlock, err := l.Lock(context.Background(), "student:U1")
	require.NoError(t, err)

	// Our TTL lapsed and another owner took the key.
	client.mu.Lock()
	client.values["lock:student:U1"] = "someone-else"
	client.mu.Unlock()

	unlock()
	assert.Equal(t, "someone-else", client.held()["lock:student:U1"])
}

func TestLocker_ClientErrorIsLockNotAcquired(t *testing.T) {
	client := newFakeLockClient()
	client.setErr = errors.New("connection refused")
	l := newTestLocker(client, 2)

	_, err := l.Lock(context.Background(), "student:U1")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrLockNotAcquired)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLocker_ReleaseErrorIsSwallowed(t *testing.T) {
	client := newFakeLockClient()
	l := newTestLocker(client, 1)

	unlock, err := l.Lock(context.Background(), "student:U1")
	require.NoError(t, err)

	client.evalErr = errors.New("timeout")
	assert.NotPanics(t, unlock)
}

func TestLocker_CancelledContext(t *testing.T) {
	client := newFakeLockClient()
	l := newTestLocker(client, 50)

	_, err := l.Lock(context.Background(), "student:U1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "student:U1")
	assert.ErrorIs(t, err, shared.ErrLockNotAcquired)
}

func TestNewLocker_Defaults(t *testing.T) {
	l := NewLocker(newFakeLockClient(), LockerConfig{})
	assert.Equal(t, TTLDistributedLock, l.ttl)
	assert.Equal(t, retry.LockRetrier().Attempts(), l.retrier.Attempts())
}

func TestKeysAndConfig(t *testing.T) {
	assert.Equal(t, "lock:student:U1", LockKey("student:U1"))

	cfg := DefaultConfig()
	cfg.Host = "cache.internal"
	assert.Equal(t, "cache.internal:6379", cfg.options().Addr)
	assert.Equal(t, DefaultNamespace, cfg.Namespace)
}

func TestNewCache_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 1
	cfg.MaxRetries = -1
	cfg.DialTimeout = 200 * time.Millisecond

	_, err := NewCache(cfg)
	assert.ErrorIs(t, err, ErrCacheConnection)
}

func TestCache_RejectsBadArgumentsWithoutCallingRedis(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	c := NewCacheFromClient(client, "")
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "", 1, time.Minute), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.Set(ctx, "report:slots", nil, time.Minute), ErrCacheNilValue)
	assert.ErrorIs(t, c.Set(ctx, "report:slots", 1, -time.Second), ErrCacheInvalidTTL)
	assert.ErrorIs(t, c.Get(ctx, "", new(int)), ErrCacheKeyEmpty)

	_, err := c.Eval(ctx, unlockScript, []string{"lock:a", ""}, "t")
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)
}
