// Package resourcecache keeps fetched subresources between snapshots so
// repeated saves of the same site do not refetch every image and sheet.
package resourcecache

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// Key hashes a resource URL into a store key.
func Key(rawURL string) string {
	return KeyPrefix + strconv.FormatUint(xxhash.Sum64String(rawURL), 16)
}

type Stats struct {
	Hits   int64
	Misses int64
	Errors int64
}

// Cache compresses entries into a Store. Store failures are logged and
// reported as misses, never returned.
type Cache struct {
	store       Store
	ttl         time.Duration
	compression string
	logger      *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

func New(store Store, ttl time.Duration, compression string, logger *zap.Logger) *Cache {
	return &Cache{
		store:       store,
		ttl:         ttl,
		compression: compression,
		logger:      logger,
	}
}

// Open builds the configured backend. It returns (nil, nil, nil) when the
// cache is disabled. The closer releases backend connections.
func Open(cfg Config, logger *zap.Logger) (*Cache, io.Closer, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var store Store
	var closer io.Closer = nopCloser{}
	switch cfg.Backend {
	case BackendRedis:
		rs, err := DialRedis(&cfg.Redis, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("resource cache: %w", err)
		}
		store, closer = rs, rs
	default:
		store = NewMemoryStore(cfg.MaxEntries)
	}

	logger.Info("Resource cache enabled",
		zap.String("backend", cfg.Backend),
		zap.String("compression", cfg.Compression),
		zap.Duration("ttl", cfg.TTL.ToDuration()))
	return New(store, cfg.TTL.ToDuration(), cfg.Compression, logger), closer, nil
}

func (c *Cache) Get(ctx context.Context, rawURL string) ([]byte, bool) {
	key := Key(rawURL)
	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("Resource cache read failed", zap.String("url", rawURL), zap.Error(err))
		return nil, false
	}
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	data, err := Decode(entry)
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("Resource cache entry corrupt", zap.String("url", rawURL), zap.Error(err))
		return nil, false
	}
	c.hits.Add(1)
	return data, true
}

func (c *Cache) Set(ctx context.Context, rawURL string, data []byte) {
	entry, err := Encode(data, c.compression)
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("Resource cache encode failed", zap.String("url", rawURL), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, Key(rawURL), entry, c.ttl); err != nil {
		c.errors.Add(1)
		c.logger.Warn("Resource cache write failed", zap.String("url", rawURL), zap.Error(err))
		return
	}
	c.logger.Debug("Resource cached",
		zap.String("url", rawURL),
		zap.Int("bytes", len(data)),
		zap.Int("stored", len(entry)))
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Errors: c.errors.Load(),
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
