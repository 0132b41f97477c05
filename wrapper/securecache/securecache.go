// Package securecache decorates an httpcache.Storage to add SHA-256 key
// hashing (always enabled) and optional AES-256-GCM encryption of the
// serialized entry.
package securecache

import (
	"context"
	"crypto/cipher"
	"fmt"

	"github.com/veyronhq/httpcache"
)

// Cache wraps an httpcache.Storage, hashing keys with httpcache.HashKey and,
// when a passphrase is configured, encrypting stored bytes with
// httpcache.Encrypt/Decrypt.
type Cache struct {
	storage    httpcache.Storage
	serializer httpcache.Serializer
	gcm        cipher.AEAD
}

// Config holds the configuration for a Cache.
type Config struct {
	// Storage is the underlying backend to wrap (required).
	Storage httpcache.Storage

	// Passphrase, if set, enables AES-256-GCM encryption of stored data.
	// Must stay consistent across restarts; changing it strands existing
	// entries undecryptable.
	Passphrase string

	Serializer httpcache.Serializer
}

// New wraps config.Storage. Keys are always hashed; data is encrypted only
// if config.Passphrase is non-empty.
func New(config Config) (*Cache, error) {
	if config.Storage == nil {
		return nil, fmt.Errorf("securecache: storage cannot be nil")
	}
	serializer := config.Serializer
	if serializer == nil {
		serializer = httpcache.DefaultSerializer
	}

	c := &Cache{storage: config.Storage, serializer: serializer}
	if config.Passphrase != "" {
		gcm, err := httpcache.InitEncryption(config.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("securecache: failed to initialize encryption: %w", err)
		}
		c.gcm = gcm
	}
	return c, nil
}

// IsEncrypted reports whether this Cache was configured with a passphrase.
func (c *Cache) IsEncrypted() bool {
	return c.gcm != nil
}

func (c *Cache) Store(ctx context.Context, key string, entry *httpcache.Entry) error {
	hashedKey := httpcache.HashKey(key)

	raw, err := c.serializer.Dumps(entry)
	if err != nil {
		return fmt.Errorf("securecache: serialize: %w", err)
	}

	toStore, err := httpcache.Encrypt(c.gcm, raw)
	if err != nil {
		httpcache.GetLogger().Warn("securecache: failed to encrypt data", "key", hashedKey, "error", err)
		return err
	}

	return c.storage.Store(ctx, hashedKey, &httpcache.Entry{
		Response: &httpcache.Response{Body: toStore},
		Request:  &httpcache.Request{},
	})
}

func (c *Cache) Retrieve(ctx context.Context, key string) (*httpcache.Entry, error) {
	hashedKey := httpcache.HashKey(key)

	carrier, err := c.storage.Retrieve(ctx, hashedKey)
	if err != nil {
		return nil, err
	}
	if carrier == nil || len(carrier.Response.Body) == 0 {
		return nil, nil
	}

	raw, err := httpcache.Decrypt(c.gcm, carrier.Response.Body)
	if err != nil {
		httpcache.GetLogger().Warn("securecache: failed to decrypt cached data", "key", hashedKey, "error", err)
		return nil, nil
	}

	entry, err := c.serializer.Loads(raw)
	if err != nil {
		httpcache.GetLogger().Debug("securecache: corrupt entry treated as absent", "key", hashedKey, "error", err)
		return nil, nil
	}
	return entry, nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	deleter, ok := c.storage.(httpcache.Deleter)
	if !ok {
		return nil
	}
	return deleter.Delete(ctx, httpcache.HashKey(key))
}

func (c *Cache) Close() error {
	return c.storage.Close()
}

var _ httpcache.Storage = (*Cache)(nil)
var _ httpcache.Deleter = (*Cache)(nil)
