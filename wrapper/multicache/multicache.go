// Package multicache provides a multi-tiered httpcache.Storage that cascades
// through multiple backends with automatic fallback and promotion, so hot
// entries migrate toward faster tiers while persistence is kept in slower
// ones.
package multicache

import (
	"context"

	"github.com/veyronhq/httpcache"
)

// Cache implements a tiered httpcache.Storage. Tiers are ordered from
// fastest/smallest (first) to slowest/largest (last). Retrieve searches each
// tier in order and promotes a hit to every faster tier. Store writes to all
// tiers.
//
// Example:
//
//	Tier 1: evictioncache (in-memory, fast, volatile)
//	Tier 2: kvcache (Redis, medium speed, persistent)
//	Tier 3: sqlcache (Postgres, slower, most durable)
type Cache struct {
	tiers []httpcache.Storage
}

// New builds a Cache over tiers, ordered fastest-first. Returns nil if no
// tiers are given or any tier is nil.
func New(tiers ...httpcache.Storage) *Cache {
	if len(tiers) == 0 {
		return nil
	}
	for _, tier := range tiers {
		if tier == nil {
			return nil
		}
	}
	return &Cache{tiers: tiers}
}

func (c *Cache) Store(ctx context.Context, key string, entry *httpcache.Entry) error {
	for _, tier := range c.tiers {
		if err := tier.Store(ctx, key, entry); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) Retrieve(ctx context.Context, key string) (*httpcache.Entry, error) {
	for i, tier := range c.tiers {
		entry, err := tier.Retrieve(ctx, key)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			c.promoteToFasterTiers(ctx, key, entry, i)
			return entry, nil
		}
	}
	return nil, nil
}

// promoteToFasterTiers writes entry to every tier faster than foundAtTier.
// Promotion is best-effort: a failure is logged, not returned, since the
// caller already has the entry it asked for.
func (c *Cache) promoteToFasterTiers(ctx context.Context, key string, entry *httpcache.Entry, foundAtTier int) {
	for i := 0; i < foundAtTier; i++ {
		if err := c.tiers[i].Store(ctx, key, entry); err != nil {
			httpcache.GetLogger().Debug("multicache: promotion failed", "tier", i, "key", key, "error", err)
		}
	}
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	for _, tier := range c.tiers {
		deleter, ok := tier.(httpcache.Deleter)
		if !ok {
			continue
		}
		if err := deleter.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) Close() error {
	var firstErr error
	for _, tier := range c.tiers {
		if err := tier.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ httpcache.Storage = (*Cache)(nil)
var _ httpcache.Deleter = (*Cache)(nil)
