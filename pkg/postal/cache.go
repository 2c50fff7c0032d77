package postal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long resolved addresses are kept.
const DefaultCacheTTL = 24 * time.Hour

// Cache stores resolved addresses by zipcode. Only successful lookups are
// cached.
type Cache interface {
	Get(ctx context.Context, zipcode string) (Address, bool, error)
	Set(ctx context.Context, zipcode string, addr Address) error
}

type memoryEntry struct {
	addr    Address
	expires time.Time
}

// MemoryCache is an in-process Cache with a fixed TTL.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemoryCache builds a MemoryCache. A non-positive ttl uses
// DefaultCacheTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Get returns a cached address that has not expired.
func (m *MemoryCache) Get(_ context.Context, zipcode string) (Address, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[zipcode]
	if !ok {
		return Address{}, false, nil
	}
	if !m.now().Before(entry.expires) {
		delete(m.entries, zipcode)
		return Address{}, false, nil
	}
	return entry.addr, true, nil
}

// Set stores addr under zipcode.
func (m *MemoryCache) Set(_ context.Context, zipcode string, addr Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[zipcode] = memoryEntry{addr: addr, expires: m.now().Add(m.ttl)}
	return nil
}

// RedisCache keeps resolved addresses in Redis as JSON.
type RedisCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisCache builds a RedisCache. Keys are "<prefix>:<zipcode>".
func NewRedisCache(client redis.Cmdable, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "pickupform:postal"
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisCache) key(zipcode string) string {
	return r.prefix + ":" + zipcode
}

// Get loads a cached address; a missing key is not an error.
func (r *RedisCache) Get(ctx context.Context, zipcode string) (Address, bool, error) {
	if r == nil || r.client == nil {
		return Address{}, false, nil
	}
	payload, err := r.client.Get(ctx, r.key(zipcode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Address{}, false, nil
	}
	if err != nil {
		return Address{}, false, fmt.Errorf("postal: redis get: %w", err)
	}
	var addr Address
	if err := json.Unmarshal(payload, &addr); err != nil {
		return Address{}, false, fmt.Errorf("postal: redis decode: %w", err)
	}
	return addr, true, nil
}

// Set stores addr with the cache TTL.
func (r *RedisCache) Set(ctx context.Context, zipcode string, addr Address) error {
	if r == nil || r.client == nil {
		return nil
	}
	raw, err := json.Marshal(addr)
	if err != nil {
		return fmt.Errorf("postal: redis encode: %w", err)
	}
	if err := r.client.Set(ctx, r.key(zipcode), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("postal: redis set: %w", err)
	}
	return nil
}

// CachedLookuper fronts another Lookuper with a Cache and collapses
// concurrent lookups of the same zipcode into one upstream call. Cache
// failures are logged and fall through to the upstream lookup.
type CachedLookuper struct {
	next   Lookuper
	cache  Cache
	logger *zap.Logger
	group  singleflight.Group
}

// CacheOption configures a CachedLookuper.
type CacheOption func(*CachedLookuper)

// WithLogger attaches a logger for cache failures.
func WithLogger(logger *zap.Logger) CacheOption {
	return func(c *CachedLookuper) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCachedLookuper wraps next. A nil cache uses an in-memory cache with the
// default TTL.
func NewCachedLookuper(next Lookuper, cache Cache, options ...CacheOption) *CachedLookuper {
	if cache == nil {
		cache = NewMemoryCache(DefaultCacheTTL)
	}
	c := &CachedLookuper{next: next, cache: cache, logger: zap.NewNop()}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Lookup returns a cached address or resolves it through the wrapped
// Lookuper.
func (c *CachedLookuper) Lookup(ctx context.Context, zipcode string) (Address, error) {
	if addr, ok, err := c.cache.Get(ctx, zipcode); err != nil {
		c.logger.Warn("postal cache read failed", zap.String("zipcode", zipcode), zap.Error(err))
	} else if ok {
		return addr, nil
	}

	ch := c.group.DoChan(zipcode, func() (any, error) {
		addr, err := c.next.Lookup(context.WithoutCancel(ctx), zipcode)
		if err != nil {
			return Address{}, err
		}
		if err := c.cache.Set(context.WithoutCancel(ctx), zipcode, addr); err != nil {
			c.logger.Warn("postal cache write failed", zap.String("zipcode", zipcode), zap.Error(err))
		}
		return addr, nil
	})

	select {
	case <-ctx.Done():
		return Address{}, &LookupError{Zipcode: zipcode, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return Address{}, res.Err
		}
		return res.Val.(Address), nil
	}
}
