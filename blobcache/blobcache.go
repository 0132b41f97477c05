// Package blobcache implements httpcache.Storage on top of Go Cloud
// Development Kit blob storage, for cloud-agnostic cache storage. The S3
// driver is registered by this package's import of s3blob; other
// gocloud.dev/blob drivers (GCS, Azure, in-memory, local filesystem) can be
// blank-imported by the caller as needed.
//
// Example usage with S3:
//
//	cache, err := blobcache.New(ctx, blobcache.Config{
//	    BucketURL: "s3://my-bucket?region=us-west-2",
//	    KeyPrefix: "httpcache/",
//	})
package blobcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	"github.com/veyronhq/httpcache"
)

// Config holds the configuration for the blob cache.
type Config struct {
	// BucketURL is the Go Cloud blob URL (e.g. "s3://bucket?region=us-west-2").
	BucketURL string

	// KeyPrefix is prepended to all cache keys (default "cache/").
	KeyPrefix string

	// Timeout bounds individual blob operations (default 30s).
	Timeout time.Duration

	// TTL is enforced manually by Sweep since blob stores have no native
	// per-object expiry. Zero disables sweeping.
	TTL time.Duration

	// Bucket is an optional pre-opened bucket; if set, BucketURL is ignored
	// and the bucket is not closed by Close.
	Bucket *blob.Bucket

	Serializer httpcache.Serializer
	Clock      httpcache.Clock
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		KeyPrefix: "cache/",
		Timeout:   30 * time.Second,
	}
}

// Cache is an httpcache.Storage backed by a gocloud.dev/blob bucket.
type Cache struct {
	bucket     *blob.Bucket
	keyPrefix  string
	timeout    time.Duration
	ttl        time.Duration
	serializer httpcache.Serializer
	clock      httpcache.Clock
	ownsBucket bool
}

// New opens config.BucketURL and returns a Cache.
func New(ctx context.Context, config Config) (*Cache, error) {
	if config.BucketURL == "" && config.Bucket == nil {
		return nil, fmt.Errorf("blobcache: either BucketURL or Bucket must be provided")
	}

	var bucket *blob.Bucket
	var ownsBucket bool
	if config.Bucket != nil {
		bucket = config.Bucket
	} else {
		var err error
		bucket, err = blob.OpenBucket(ctx, config.BucketURL)
		if err != nil {
			return nil, fmt.Errorf("blobcache: failed to open bucket: %w", err)
		}
		ownsBucket = true
	}

	return newCache(bucket, ownsBucket, config), nil
}

// NewWithBucket wraps an already-opened bucket; the caller retains
// ownership and must close it themselves.
func NewWithBucket(bucket *blob.Bucket, config Config) *Cache {
	return newCache(bucket, false, config)
}

func newCache(bucket *blob.Bucket, ownsBucket bool, config Config) *Cache {
	def := DefaultConfig()
	if config.KeyPrefix == "" {
		config.KeyPrefix = def.KeyPrefix
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.Serializer == nil {
		config.Serializer = httpcache.DefaultSerializer
	}
	if config.Clock == nil {
		config.Clock = httpcache.SystemClock
	}
	return &Cache{
		bucket:     bucket,
		keyPrefix:  config.KeyPrefix,
		timeout:    config.Timeout,
		ttl:        config.TTL,
		serializer: config.Serializer,
		clock:      config.Clock,
		ownsBucket: ownsBucket,
	}
}

// blobKey hashes key to avoid special-character issues in cloud storage key
// namespaces.
func (c *Cache) blobKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return c.keyPrefix + hex.EncodeToString(hash[:])
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Cache) Store(ctx context.Context, key string, entry *httpcache.Entry) error {
	data, err := c.serializer.Dumps(entry)
	if err != nil {
		return fmt.Errorf("blobcache: serialize: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	writer, err := c.bucket.NewWriter(ctx, c.blobKey(key), nil)
	if err != nil {
		return fmt.Errorf("%w: blobcache new writer: %v", httpcache.ErrStorageUnavailable, err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close() //nolint:errcheck // already returning the write error
		return fmt.Errorf("%w: blobcache write: %v", httpcache.ErrStorageUnavailable, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("%w: blobcache close writer: %v", httpcache.ErrStorageUnavailable, err)
	}
	return nil
}

func (c *Cache) Retrieve(ctx context.Context, key string) (*httpcache.Entry, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reader, err := c.bucket.NewReader(ctx, c.blobKey(key), nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: blobcache new reader: %v", httpcache.ErrStorageUnavailable, err)
	}
	defer reader.Close() //nolint:errcheck // best effort cleanup

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: blobcache read: %v", httpcache.ErrStorageUnavailable, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	entry, err := c.serializer.Loads(data)
	if err != nil {
		httpcache.GetLogger().Debug("blobcache: corrupt entry treated as absent", "key", key, "error", err)
		return nil, nil
	}
	if entry == nil {
		return nil, nil
	}
	if c.ttl > 0 && c.clock.Now().Unix()-entry.Metadata.CreatedAt > int64(c.ttl.Seconds()) {
		return nil, nil
	}
	return entry, nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	err := c.bucket.Delete(ctx, c.blobKey(key))
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("%w: blobcache delete: %v", httpcache.ErrStorageUnavailable, err)
	}
	return nil
}

// Sweep walks every object under the configured prefix and deletes those
// older than TTL. Blob stores have no native per-object expiry, so callers
// wanting TTL enforcement must invoke this periodically (e.g. from a
// background goroutine); unlike the filesystem and SQL backends this is not
// triggered automatically from Store, since a bucket listing is too costly
// to run on every write.
func (c *Cache) Sweep(ctx context.Context) error {
	if c.ttl <= 0 {
		return nil
	}
	cutoff := c.clock.Now().Add(-c.ttl)

	iter := c.bucket.List(&blob.ListOptions{Prefix: c.keyPrefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: blobcache sweep list: %v", httpcache.ErrStorageUnavailable, err)
		}
		if obj.ModTime.Before(cutoff) {
			if err := c.bucket.Delete(ctx, obj.Key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
				httpcache.GetLogger().Debug("blobcache: sweep failed to remove entry", "key", obj.Key, "error", err)
			}
		}
	}
}

// Close closes the bucket if it was opened by New.
func (c *Cache) Close() error {
	if c.ownsBucket {
		if err := c.bucket.Close(); err != nil {
			return fmt.Errorf("blobcache: failed to close bucket: %w", err)
		}
	}
	return nil
}

var _ httpcache.Storage = (*Cache)(nil)
var _ httpcache.Deleter = (*Cache)(nil)
