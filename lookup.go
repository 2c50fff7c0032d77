package pickupform

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/goliatone/go-pickupform/pkg/postal"
)

// LookupConfig selects the postal lookup stack. ClientOptions apply after
// Endpoint and Timeout.
type LookupConfig struct {
	Endpoint      string
	Timeout       time.Duration
	ClientOptions []postal.Option
	RedisAddr     string
	CacheTTL      time.Duration
	Logger        *zap.Logger
}

// NewLookuper builds the HTTP lookup client behind a cache. Resolved
// addresses go to Redis when RedisAddr is set and to process memory
// otherwise. The returned close function releases the Redis connection.
func NewLookuper(ctx context.Context, cfg LookupConfig) (postal.Lookuper, func() error, error) {
	clientOpts := append([]postal.Option{
		postal.WithEndpoint(cfg.Endpoint),
		postal.WithTimeout(cfg.Timeout),
	}, cfg.ClientOptions...)
	client := postal.NewClient(clientOpts...)

	var (
		cache   postal.Cache
		closeFn = func() error { return nil }
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("pickupform: redis %s: %w", cfg.RedisAddr, err)
		}
		cache = postal.NewRedisCache(rdb, "", cfg.CacheTTL)
		closeFn = rdb.Close
	} else {
		cache = postal.NewMemoryCache(cfg.CacheTTL)
	}

	var opts []postal.CacheOption
	if cfg.Logger != nil {
		opts = append(opts, postal.WithLogger(cfg.Logger))
	}
	return postal.NewCachedLookuper(client, cache, opts...), closeFn, nil
}
