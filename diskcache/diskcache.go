// Package diskcache implements httpcache.Storage on top of diskv, storing
// one file per cache entry under a base directory.
package diskcache

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/peterbourgon/diskv"

	"github.com/veyronhq/httpcache"
)

// Cache is a filesystem-backed httpcache.Storage. Keys are used verbatim as
// filenames (the caller is expected to pass an already-hashed key, as
// httpcache.DefaultKeyDeriver produces). Reads of an empty file return
// "absent" rather than an error, tolerating a crash between create and
// write.
type Cache struct {
	mu         sync.Mutex
	d          *diskv.Diskv
	basePath   string
	serializer httpcache.Serializer
	ttl        time.Duration
	checkEvery time.Duration
	lastSwept  time.Time
	clock      httpcache.Clock
}

// Option configures a Cache.
type Option func(*Cache)

// WithSerializer overrides the default JSON serializer.
func WithSerializer(s httpcache.Serializer) Option {
	return func(c *Cache) { c.serializer = s }
}

// WithTTL sets how long an entry remains valid; zero means entries never
// expire from this backend's own sweep.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithCheckEvery bounds how often the TTL sweep actually runs (default 60s),
// mirroring the original's check_ttl_every throttle.
func WithCheckEvery(d time.Duration) Option {
	return func(c *Cache) { c.checkEvery = d }
}

// New returns a Cache storing files under basePath.
func New(basePath string, opts ...Option) *Cache {
	d := diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: 100 * 1024 * 1024,
	})
	return NewWithDiskv(d, basePath, opts...)
}

// NewWithDiskv wraps an already-constructed diskv.Diskv.
func NewWithDiskv(d *diskv.Diskv, basePath string, opts ...Option) *Cache {
	c := &Cache{
		d:          d,
		basePath:   basePath,
		serializer: httpcache.DefaultSerializer,
		checkEvery: 60 * time.Second,
		clock:      httpcache.SystemClock,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Store(_ context.Context, key string, entry *httpcache.Entry) error {
	data, err := c.serializer.Dumps(entry)
	if err != nil {
		return fmt.Errorf("diskcache: serialize: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.d.WriteStream(key, bytes.NewReader(data), true); err != nil {
		return fmt.Errorf("%w: diskcache write: %v", httpcache.ErrStorageUnavailable, err)
	}
	c.sweepLocked()
	return nil
}

func (c *Cache) Retrieve(_ context.Context, key string) (*httpcache.Entry, error) {
	c.mu.Lock()
	raw, err := c.d.Read(key)
	c.mu.Unlock()
	if err != nil {
		return nil, nil
	}
	if len(raw) == 0 {
		return nil, nil
	}

	entry, err := c.serializer.Loads(raw)
	if err != nil {
		httpcache.GetLogger().Debug("diskcache: corrupt entry treated as absent", "key", key, "error", err)
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

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.d.Erase(key); err != nil {
		return nil //nolint:nilerr // erase of a missing key is not an error
	}
	return nil
}

func (c *Cache) Close() error { return nil }

// sweepLocked removes files older than the configured TTL. Caller must hold
// c.mu. Best-effort: a failed individual delete is logged and the sweep
// continues, matching the original's _remove_entries semantics.
func (c *Cache) sweepLocked() {
	if c.ttl <= 0 {
		return
	}
	now := c.clock.Now()
	if now.Sub(c.lastSwept) < c.checkEvery {
		return
	}
	c.lastSwept = now

	_ = filepath.Walk(c.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if now.Sub(info.ModTime()) > c.ttl {
			if rmErr := os.Remove(path); rmErr != nil {
				httpcache.GetLogger().Debug("diskcache: sweep failed to remove entry", "path", path, "error", rmErr)
			}
		}
		return nil
	})
}

var _ httpcache.Storage = (*Cache)(nil)
var _ httpcache.Deleter = (*Cache)(nil)
