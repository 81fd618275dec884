// Package redis holds the Redis-backed pieces of placement-hub: a namespaced
// JSON cache for staff reports and a distributed lock for lifecycle
// operations.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultNamespace prefixes keys when Config.Namespace is empty.
	DefaultNamespace = "placement-hub:"

	// PrefixLock marks lock keys inside the namespace.
	PrefixLock = "lock:"

	TTLDistributedLock = 30 * time.Second
	TTLReport          = time.Minute
)

// LockKey is the key guarding a lock resource.
func LockKey(resource string) string {
	return PrefixLock + resource
}

var (
	ErrCacheMiss          = errors.New("cache: key not found")
	ErrCacheConnection    = errors.New("cache: connection failed")
	ErrCacheSerialization = errors.New("cache: serialization failed")
	ErrCacheInvalidTTL    = errors.New("cache: invalid TTL")
	ErrCacheKeyEmpty      = errors.New("cache: key cannot be empty")
	ErrCacheNilValue      = errors.New("cache: value cannot be nil")
)

// ══════════════════════════════════════════════════════════════════════════════
// CONNECTION
// ══════════════════════════════════════════════════════════════════════════════

// Config describes one Redis server.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int
	MaxRetries   int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Namespace prefixes every key so several deployments can share a server.
	Namespace string
}

func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		Namespace:    DefaultNamespace,
	}
}

// Addr is host:port.
func (c Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr(),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

// Cache stores JSON values under a key namespace. It also serves the raw
// string primitives the Locker needs.
type Cache struct {
	client    redis.UniversalClient
	namespace string
}

// NewCache connects and pings once within DialTimeout.
func NewCache(cfg Config) (*Cache, error) {
	client := redis.NewClient(cfg.options())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrCacheConnection, cfg.Addr(), err)
	}
	return NewCacheFromClient(client, cfg.Namespace), nil
}

// NewCacheFromClient wraps an existing client.
func NewCacheFromClient(client redis.UniversalClient, namespace string) *Cache {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Cache{client: client, namespace: namespace}
}

// Client returns the underlying client, shared with the event fan-out.
func (c *Cache) Client() redis.UniversalClient {
	return c.client
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) keys(ks ...string) ([]string, error) {
	out := make([]string, len(ks))
	for i, k := range ks {
		if k == "" {
			return nil, ErrCacheKeyEmpty
		}
		out[i] = c.namespace + k
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// JSON VALUES
// ══════════════════════════════════════════════════════════════════════════════

// Set stores value as JSON. A zero ttl keeps the key forever.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	switch {
	case value == nil:
		return ErrCacheNilValue
	case ttl < 0:
		return ErrCacheInvalidTTL
	}
	full, err := c.keys(key)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return c.client.Set(ctx, full[0], data, ttl).Err()
}

// Get decodes the value at key into dest, or returns ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	full, err := c.keys(key)
	if err != nil {
		return err
	}
	data, err := c.client.Get(ctx, full[0]).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrCacheMiss
	case err != nil:
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LOCK PRIMITIVES
// ══════════════════════════════════════════════════════════════════════════════

// SetNXString stores a raw string only if the key is absent.
func (c *Cache) SetNXString(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		return false, ErrCacheInvalidTTL
	}
	full, err := c.keys(key)
	if err != nil {
		return false, err
	}
	return c.client.SetNX(ctx, full[0], value, ttl).Result()
}

// Eval runs a Lua script over namespaced keys. A nil reply is returned as
// (nil, nil).
func (c *Cache) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	full, err := c.keys(keys...)
	if err != nil {
		return nil, err
	}
	res, err := c.client.Eval(ctx, script, full, args...).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return res, err
}
