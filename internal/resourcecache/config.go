package resourcecache

import (
	"fmt"
	"time"

	"github.com/edgecomet/pagesaver/internal/common/configtypes"
	"github.com/edgecomet/pagesaver/pkg/types"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// KeyPrefix namespaces resource entries in shared stores.
const KeyPrefix = "pagesaver:res:"

type Config struct {
	Enabled     bool                    `yaml:"enabled"`
	Backend     string                  `yaml:"backend"`
	Redis       configtypes.RedisConfig `yaml:"redis"`
	TTL         types.Duration          `yaml:"ttl"`
	Compression string                  `yaml:"compression"`
	// MaxEntries bounds the memory backend. Zero means unbounded.
	MaxEntries int `yaml:"max_entries"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		Backend:     BackendMemory,
		TTL:         types.Duration(time.Hour),
		Compression: CompressionSnappy,
		MaxEntries:  2048,
	}
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	default:
		return fmt.Errorf("cache.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.Backend)
	}
	switch c.Compression {
	case CompressionNone, CompressionSnappy, CompressionLZ4, "":
	default:
		return fmt.Errorf("cache.compression: %w: %s", ErrUnknownCodec, c.Compression)
	}
	if c.TTL.ToDuration() < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries cannot be negative")
	}
	return nil
}
