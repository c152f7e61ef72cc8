package geo

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Resolver resolves coordinates to a place name, shielding callers from the
// cost and flakiness of the external geocoder.
type Resolver interface {
	Resolve(ctx context.Context, lat, lon float64) string
}

// Stats receives cache outcome counters. Implemented by observability.Metrics.
type Stats interface {
	GeocoderCacheHit()
	GeocoderCacheMiss()
	GeocoderLookupFailed()
}

// sweep the whole map once the entry count crosses this threshold; expiry
// correctness does not depend on it, only memory does.
const sweepThreshold = 4096

type cacheEntry struct {
	placeName string
	expiresAt time.Time
}

// CachedResolver memoizes reverse lookups per exact coordinate pair for a
// bounded TTL. Failed lookups are never cached.
type CachedResolver struct {
	geocoder Geocoder
	ttl      time.Duration
	logger   *zap.Logger
	stats    Stats

	mu      sync.RWMutex
	entries map[string]cacheEntry

	now func() time.Time
}

// NewCachedResolver builds the in-process cache. stats may be nil.
func NewCachedResolver(geocoder Geocoder, ttl time.Duration, logger *zap.Logger, stats Stats) *CachedResolver {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedResolver{
		geocoder: geocoder,
		ttl:      ttl,
		logger:   logger,
		stats:    stats,
		entries:  make(map[string]cacheEntry),
		now:      time.Now,
	}
}

func coordinateKey(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
}

// Resolve returns the cached place name when fresh, otherwise performs one
// external lookup. A hit is never returned past its TTL.
func (r *CachedResolver) Resolve(ctx context.Context, lat, lon float64) string {
	key := coordinateKey(lat, lon)
	now := r.now()

	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		if r.stats != nil {
			r.stats.GeocoderCacheHit()
		}
		return entry.placeName
	}

	if r.stats != nil {
		r.stats.GeocoderCacheMiss()
	}

	name, err := r.geocoder.ReverseLookup(ctx, lat, lon)
	if err != nil {
		if r.stats != nil {
			r.stats.GeocoderLookupFailed()
		}
		r.logger.Warn("reverse geocode failed",
			zap.Float64("latitude", lat),
			zap.Float64("longitude", lon),
			zap.Error(err))
		return UnknownLocation
	}

	r.mu.Lock()
	r.entries[key] = cacheEntry{placeName: name, expiresAt: now.Add(r.ttl)}
	if len(r.entries) > sweepThreshold {
		r.sweepLocked(now)
	}
	r.mu.Unlock()

	return name
}

// sweepLocked drops every expired entry. Caller holds the write lock.
func (r *CachedResolver) sweepLocked(now time.Time) {
	for key, entry := range r.entries {
		if !now.Before(entry.expiresAt) {
			delete(r.entries, key)
		}
	}
}
