// Package kvcache implements httpcache.Storage on top of a Redis-compatible
// key/value store, delegating TTL expiry to the store itself rather than
// sweeping.
package kvcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veyronhq/httpcache"
)

const keyPrefix = "httpcache:"

func cacheKey(key string) string {
	return keyPrefix + key
}

// Config holds Cache construction options.
type Config struct {
	// Address is the server address (e.g. "localhost:6379"). Required
	// unless a pre-built client is supplied via NewWithClient.
	Address string

	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	// TTL is passed to the store as the key's expiry. Zero means entries
	// never expire.
	TTL time.Duration

	Serializer httpcache.Serializer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
	}
}

// Cache is an httpcache.Storage backed by Redis (or a compatible store).
type Cache struct {
	client     *redis.Client
	ttl        time.Duration
	serializer httpcache.Serializer
}

// New dials addr and returns a Cache.
func New(config Config) (*Cache, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("kvcache: address is required")
	}
	def := DefaultConfig()
	if config.DialTimeout == 0 {
		config.DialTimeout = def.DialTimeout
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = def.ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = def.WriteTimeout
	}
	if config.PoolSize == 0 {
		config.PoolSize = def.PoolSize
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Address,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolSize:     config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // best effort cleanup after ping failure
		return nil, fmt.Errorf("kvcache: failed to connect: %w", err)
	}

	return NewWithClient(client, config), nil
}

// NewWithClient wraps an already-constructed *redis.Client.
func NewWithClient(client *redis.Client, config Config) *Cache {
	serializer := config.Serializer
	if serializer == nil {
		serializer = httpcache.DefaultSerializer
	}
	return &Cache{client: client, ttl: config.TTL, serializer: serializer}
}

func (c *Cache) Store(ctx context.Context, key string, entry *httpcache.Entry) error {
	data, err := c.serializer.Dumps(entry)
	if err != nil {
		return fmt.Errorf("kvcache: serialize: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: kvcache set: %v", httpcache.ErrStorageUnavailable, err)
	}
	return nil
}

func (c *Cache) Retrieve(ctx context.Context, key string) (*httpcache.Entry, error) {
	data, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: kvcache get: %v", httpcache.ErrStorageUnavailable, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	entry, err := c.serializer.Loads(data)
	if err != nil {
		httpcache.GetLogger().Debug("kvcache: corrupt entry treated as absent", "key", key, "error", err)
		return nil, nil
	}
	return entry, nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: kvcache delete: %v", httpcache.ErrStorageUnavailable, err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

var _ httpcache.Storage = (*Cache)(nil)
var _ httpcache.Deleter = (*Cache)(nil)
