package resourcecache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/common/configtypes"
)

// Store is the byte-level backend behind Cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type memoryEntry struct {
	key     string
	value   []byte
	expires time.Time
}

// MemoryStore is an in-process LRU with per-entry expiry.
type MemoryStore struct {
	mu      sync.Mutex
	max     int
	entries map[string]*list.Element
	order   *list.List
	now     func() time.Time
}

// NewMemoryStore creates a store holding at most max entries (0 = unbounded).
func NewMemoryStore(max int) *MemoryStore {
	return &MemoryStore{
		max:     max,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	e := el.Value.(*memoryEntry)
	if !e.expires.IsZero() && m.now().After(e.expires) {
		m.order.Remove(el)
		delete(m.entries, key)
		return nil, false, nil
	}
	m.order.MoveToFront(el)
	return e.value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = m.now().Add(ttl)
	}

	if el, ok := m.entries[key]; ok {
		e := el.Value.(*memoryEntry)
		e.value, e.expires = value, expires
		m.order.MoveToFront(el)
		return nil
	}

	m.entries[key] = m.order.PushFront(&memoryEntry{key: key, value: value, expires: expires})
	for m.max > 0 && m.order.Len() > m.max {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoryEntry).key)
	}
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// RedisStore keeps entries in Redis with native expiry.
type RedisStore struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// DialRedis connects and pings within 5s.
func DialRedis(cfg *configtypes.RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	// go-redis defaults: 5s dial, 3s read/write
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	logger.Debug("Redis resource store connected",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB))
	return &RedisStore{rdb: rdb, logger: logger}, nil
}

// Get returns (nil, false, nil) for a missing key.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
