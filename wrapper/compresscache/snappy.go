package compresscache

import (
	"context"
	"fmt"

	"github.com/golang/snappy"

	"github.com/veyronhq/httpcache"
)

// SnappyCache wraps an httpcache.Storage with automatic snappy compression.
type SnappyCache struct {
	*baseCompressCache
}

// SnappyConfig holds the configuration for a SnappyCache.
type SnappyConfig struct {
	// Storage is the underlying backend (required).
	Storage httpcache.Storage
}

// NewSnappy wraps config.Storage with snappy compression.
func NewSnappy(config SnappyConfig) (*SnappyCache, error) {
	if config.Storage == nil {
		return nil, fmt.Errorf("compresscache: storage cannot be nil")
	}
	return &SnappyCache{
		baseCompressCache: newBaseCompressCache(config.Storage, Snappy),
	}, nil
}

func (c *SnappyCache) compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (c *SnappyCache) decompress(data []byte) ([]byte, error) {
	return snappyDecompress(data)
}

func snappyDecompress(data []byte) ([]byte, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decode failed: %w", err)
	}
	return decompressed, nil
}

func (c *SnappyCache) Store(ctx context.Context, key string, entry *httpcache.Entry) error {
	return c.store(ctx, key, entry, c.compress)
}

func (c *SnappyCache) Retrieve(ctx context.Context, key string) (*httpcache.Entry, error) {
	return c.retrieve(ctx, key, c.decompress)
}

func (c *SnappyCache) Delete(ctx context.Context, key string) error {
	return c.deleteKey(ctx, key)
}

func (c *SnappyCache) Close() error {
	return c.close()
}

// Stats returns compression statistics.
func (c *SnappyCache) Stats() Stats {
	return c.stats()
}

var _ httpcache.Storage = (*SnappyCache)(nil)
var _ httpcache.Deleter = (*SnappyCache)(nil)
