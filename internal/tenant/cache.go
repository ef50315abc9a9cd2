package tenant

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"relay/internal/constants"
	"relay/internal/logger"
	"relay/pkg/metrics"
)

// CachedResolver wraps a Resolver with a Redis read-through cache. Lookups
// happen once per tenant per TTL window; the negative case (tenant missing)
// is not cached so a just-registered tenant becomes visible immediately.
type CachedResolver struct {
	inner  Resolver
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedResolver(inner Resolver, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedResolver {
	return &CachedResolver{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func (c *CachedResolver) GetTenant(ctx context.Context, id string) (*Record, error) {
	key := constants.CacheKeyPrefixTenant + id

	val, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var record Record
		if err := json.Unmarshal([]byte(val), &record); err == nil {
			metrics.TenantCacheRequestsTotal.WithLabelValues("hit").Inc()
			return &record, nil
		}
		// stale or corrupt entry, fall through to the source
		c.client.Del(ctx, key)
	} else if err != redis.Nil {
		metrics.TenantCacheRequestsTotal.WithLabelValues("error").Inc()
		c.logger.WarnwCtx(ctx, "Tenant cache lookup failed, falling back to source",
			"error", err,
			"tenant_id", id,
		)
	}

	record, err := c.inner.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.TenantCacheRequestsTotal.WithLabelValues("miss").Inc()

	if record != nil {
		if data, err := json.Marshal(record); err == nil {
			if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
				c.logger.WarnwCtx(ctx, "Failed to cache tenant record",
					"error", err,
					"tenant_id", id,
				)
			}
		}
	}

	return record, nil
}

// InvalidateTenant satisfies the config-event cache invalidator contract.
func (c *CachedResolver) InvalidateTenant(ctx context.Context, id string) error {
	return c.client.Del(ctx, constants.CacheKeyPrefixTenant+id).Err()
}
