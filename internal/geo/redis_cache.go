package geo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisResolver is a shared-tier variant of the location cache: multiple
// instances see each other's lookups. TTL semantics match the in-process
// cache; redis being unreachable degrades to a direct lookup.
type RedisResolver struct {
	geocoder Geocoder
	client   *redis.Client
	ttl      time.Duration
	logger   *zap.Logger
	stats    Stats
}

// NewRedisResolver builds the redis-backed resolver. stats may be nil.
func NewRedisResolver(geocoder Geocoder, client *redis.Client, ttl time.Duration, logger *zap.Logger, stats Stats) *RedisResolver {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisResolver{geocoder: geocoder, client: client, ttl: ttl, logger: logger, stats: stats}
}

const redisKeyPrefix = "geocode:"

// Resolve returns the cached place name when fresh, otherwise performs one
// external lookup and stores the result with the TTL.
func (r *RedisResolver) Resolve(ctx context.Context, lat, lon float64) string {
	key := redisKeyPrefix + coordinateKey(lat, lon)

	cached, err := r.client.Get(ctx, key).Result()
	if err == nil && cached != "" {
		if r.stats != nil {
			r.stats.GeocoderCacheHit()
		}
		return cached
	}
	if err != nil && err != redis.Nil {
		r.logger.Warn("location cache read failed", zap.Error(err))
	}

	if r.stats != nil {
		r.stats.GeocoderCacheMiss()
	}

	name, lookupErr := r.geocoder.ReverseLookup(ctx, lat, lon)
	if lookupErr != nil {
		if r.stats != nil {
			r.stats.GeocoderLookupFailed()
		}
		r.logger.Warn("reverse geocode failed",
			zap.Float64("latitude", lat),
			zap.Float64("longitude", lon),
			zap.Error(lookupErr))
		return UnknownLocation
	}

	if err := r.client.Set(ctx, key, name, r.ttl).Err(); err != nil {
		r.logger.Warn("location cache write failed", zap.Error(err))
	}
	return name
}
