package compresscache

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/veyronhq/httpcache"
)

// BrotliCache wraps an httpcache.Storage with automatic brotli compression.
type BrotliCache struct {
	*baseCompressCache
	level int
}

// BrotliConfig holds the configuration for a BrotliCache.
type BrotliConfig struct {
	// Storage is the underlying backend (required).
	Storage httpcache.Storage

	// Level is the compression level (0 to 11). Default: 6.
	Level int
}

// NewBrotli wraps config.Storage with brotli compression.
func NewBrotli(config BrotliConfig) (*BrotliCache, error) {
	if config.Storage == nil {
		return nil, fmt.Errorf("compresscache: storage cannot be nil")
	}
	if config.Level == 0 {
		config.Level = 6
	}
	if config.Level < 0 || config.Level > 11 {
		return nil, fmt.Errorf("compresscache: invalid brotli compression level: %d", config.Level)
	}

	return &BrotliCache{
		baseCompressCache: newBaseCompressCache(config.Storage, Brotli),
		level:             config.Level,
	}, nil
}

func (c *BrotliCache) compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, c.level)
	if _, err := w.Write(data); err != nil {
		w.Close() //nolint:errcheck // already returning the write error
		return nil, fmt.Errorf("brotli write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("brotli close failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *BrotliCache) decompress(data []byte) ([]byte, error) {
	return brotliDecompress(data)
}

func brotliDecompress(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("brotli read failed: %w", err)
	}
	return decompressed, nil
}

func (c *BrotliCache) Store(ctx context.Context, key string, entry *httpcache.Entry) error {
	return c.store(ctx, key, entry, c.compress)
}

func (c *BrotliCache) Retrieve(ctx context.Context, key string) (*httpcache.Entry, error) {
	return c.retrieve(ctx, key, c.decompress)
}

func (c *BrotliCache) Delete(ctx context.Context, key string) error {
	return c.deleteKey(ctx, key)
}

func (c *BrotliCache) Close() error {
	return c.close()
}

// Stats returns compression statistics.
func (c *BrotliCache) Stats() Stats {
	return c.stats()
}

var _ httpcache.Storage = (*BrotliCache)(nil)
var _ httpcache.Deleter = (*BrotliCache)(nil)
