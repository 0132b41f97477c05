// Package sqlcache implements httpcache.Storage over a single-table SQL
// schema (cache(key, data, date_created)), admitting entries by deleting
// any prior row and inserting the new one inside one transaction, per
// spec §4.6.
package sqlcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veyronhq/httpcache"
)

var (
	// ErrNilPool is returned when a nil pool is provided.
	ErrNilPool = errors.New("sqlcache: pool cannot be nil")
	// ErrNilConn is returned when a nil connection is provided.
	ErrNilConn = errors.New("sqlcache: connection cannot be nil")
)

const (
	DefaultTableName = "cache"
	defaultTimeout   = 5 * time.Second
)

// Config holds Cache construction options.
type Config struct {
	TableName  string
	Timeout    time.Duration
	TTL        time.Duration // 0 disables the backend's own sweep
	CheckEvery time.Duration
	Serializer httpcache.Serializer
	Clock      httpcache.Clock
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		TableName:  DefaultTableName,
		Timeout:    defaultTimeout,
		CheckEvery: 60 * time.Second,
	}
}

// Cache is an httpcache.Storage backed by Postgres, with a schema and
// admission pattern modeled on hishel's SQLiteStorage.
type Cache struct {
	pool       *pgxpool.Pool
	conn       *pgx.Conn
	tableName  string
	timeout    time.Duration
	ttl        time.Duration
	checkEvery time.Duration
	lastSwept  time.Time
	serializer httpcache.Serializer
	clock      httpcache.Clock
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Cache) exec(ctx context.Context, query string, args ...any) error {
	var err error
	if c.pool != nil {
		_, err = c.pool.Exec(ctx, query, args...)
	} else {
		_, err = c.conn.Exec(ctx, query, args...)
	}
	return err
}

func (c *Cache) queryRow(ctx context.Context, query string, args ...any) pgx.Row {
	if c.pool != nil {
		return c.pool.QueryRow(ctx, query, args...)
	}
	return c.conn.QueryRow(ctx, query, args...)
}

// Store deletes any prior row for key and inserts the new entry, inside one
// transaction, matching hishel's SQLiteStorage admission algorithm exactly.
func (c *Cache) Store(ctx context.Context, key string, entry *httpcache.Entry) error {
	data, err := c.serializer.Dumps(entry)
	if err != nil {
		return fmt.Errorf("sqlcache: serialize: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	begin := func(ctx context.Context) (pgx.Tx, error) {
		if c.pool != nil {
			return c.pool.Begin(ctx)
		}
		return c.conn.Begin(ctx)
	}

	tx, err := begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: sqlcache begin tx: %v", httpcache.ErrStorageUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	if _, err := tx.Exec(ctx, `DELETE FROM `+c.tableName+` WHERE key = $1`, key); err != nil {
		return fmt.Errorf("%w: sqlcache delete: %v", httpcache.ErrStorageUnavailable, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO `+c.tableName+` (key, data, date_created) VALUES ($1, $2, $3)`,
		key, data, float64(c.clock.Now().Unix())); err != nil {
		return fmt.Errorf("%w: sqlcache insert: %v", httpcache.ErrStorageUnavailable, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: sqlcache commit: %v", httpcache.ErrStorageUnavailable, err)
	}

	c.sweep(ctx)
	return nil
}

func (c *Cache) Retrieve(ctx context.Context, key string) (*httpcache.Entry, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var data []byte
	err := c.queryRow(ctx, `SELECT data FROM `+c.tableName+` WHERE key = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: sqlcache select: %v", httpcache.ErrStorageUnavailable, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	entry, err := c.serializer.Loads(data)
	if err != nil {
		httpcache.GetLogger().Debug("sqlcache: corrupt entry treated as absent", "key", key, "error", err)
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
	if err := c.exec(ctx, `DELETE FROM `+c.tableName+` WHERE key = $1`, key); err != nil {
		return fmt.Errorf("%w: sqlcache delete: %v", httpcache.ErrStorageUnavailable, err)
	}
	return nil
}

// sweep removes expired rows, throttled to run at most once per
// checkEvery, and is best-effort: failures are logged, never returned.
func (c *Cache) sweep(ctx context.Context) {
	if c.ttl <= 0 {
		return
	}
	now := c.clock.Now()
	if now.Sub(c.lastSwept) < c.checkEvery {
		return
	}
	c.lastSwept = now

	cutoff := float64(now.Add(-c.ttl).Unix())
	if err := c.exec(ctx, `DELETE FROM `+c.tableName+` WHERE date_created < $1`, cutoff); err != nil {
		httpcache.GetLogger().Debug("sqlcache: ttl sweep failed", "error", err)
	}
}

// CreateTable creates the table if it doesn't exist.
func (c *Cache) CreateTable(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS ` + c.tableName + ` (
		key TEXT PRIMARY KEY,
		data BYTEA NOT NULL,
		date_created DOUBLE PRECISION NOT NULL
	)`
	return c.exec(ctx, query)
}

func (c *Cache) Close() error {
	if c.pool != nil {
		c.pool.Close()
	} else if c.conn != nil {
		return c.conn.Close(context.Background())
	}
	return nil
}

func applyConfig(c *Cache, config *Config) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.TableName == "" {
		config.TableName = DefaultTableName
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.CheckEvery == 0 {
		config.CheckEvery = 60 * time.Second
	}
	if config.Serializer == nil {
		config.Serializer = httpcache.DefaultSerializer
	}
	if config.Clock == nil {
		config.Clock = httpcache.SystemClock
	}
	c.tableName = config.TableName
	c.timeout = config.Timeout
	c.ttl = config.TTL
	c.checkEvery = config.CheckEvery
	c.serializer = config.Serializer
	c.clock = config.Clock
}

// NewWithPool returns a Cache using an existing pool.
func NewWithPool(pool *pgxpool.Pool, config *Config) (*Cache, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	c := &Cache{pool: pool}
	applyConfig(c, config)
	return c, nil
}

// NewWithConn returns a Cache using an existing connection.
func NewWithConn(conn *pgx.Conn, config *Config) (*Cache, error) {
	if conn == nil {
		return nil, ErrNilConn
	}
	c := &Cache{conn: conn}
	applyConfig(c, config)
	return c, nil
}

// New dials connString and creates the table if needed.
func New(ctx context.Context, connString string, config *Config) (*Cache, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	c := &Cache{pool: pool}
	applyConfig(c, config)
	if err := c.CreateTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

var _ httpcache.Storage = (*Cache)(nil)
var _ httpcache.Deleter = (*Cache)(nil)
