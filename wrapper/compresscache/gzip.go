package compresscache

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"

	"github.com/veyronhq/httpcache"
)

// GzipCache wraps an httpcache.Storage with automatic gzip compression.
type GzipCache struct {
	*baseCompressCache
	level int
}

// GzipConfig holds the configuration for a GzipCache.
type GzipConfig struct {
	// Storage is the underlying backend (required).
	Storage httpcache.Storage

	// Level is the compression level (-2 to 9). Default: gzip.DefaultCompression.
	Level int
}

// NewGzip wraps config.Storage with gzip compression.
func NewGzip(config GzipConfig) (*GzipCache, error) {
	if config.Storage == nil {
		return nil, fmt.Errorf("compresscache: storage cannot be nil")
	}
	if config.Level == 0 {
		config.Level = gzip.DefaultCompression
	}
	if config.Level < gzip.HuffmanOnly || config.Level > gzip.BestCompression {
		return nil, fmt.Errorf("compresscache: invalid gzip compression level: %d", config.Level)
	}

	return &GzipCache{
		baseCompressCache: newBaseCompressCache(config.Storage, Gzip),
		level:             config.Level,
	}, nil
}

func (c *GzipCache) compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer creation failed: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close() //nolint:errcheck // already returning the write error
		return nil, fmt.Errorf("gzip write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *GzipCache) decompress(data []byte) ([]byte, error) {
	return gzipDecompress(data)
}

func gzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader creation failed: %w", err)
	}
	defer r.Close() //nolint:errcheck // best effort cleanup

	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read failed: %w", err)
	}
	return decompressed, nil
}

func (c *GzipCache) Store(ctx context.Context, key string, entry *httpcache.Entry) error {
	return c.store(ctx, key, entry, c.compress)
}

func (c *GzipCache) Retrieve(ctx context.Context, key string) (*httpcache.Entry, error) {
	return c.retrieve(ctx, key, c.decompress)
}

func (c *GzipCache) Delete(ctx context.Context, key string) error {
	return c.deleteKey(ctx, key)
}

func (c *GzipCache) Close() error {
	return c.close()
}

// Stats returns compression statistics.
func (c *GzipCache) Stats() Stats {
	return c.stats()
}

var _ httpcache.Storage = (*GzipCache)(nil)
var _ httpcache.Deleter = (*GzipCache)(nil)
