package geo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// countingGeocoder counts lookups and can be switched into failure mode.
type countingGeocoder struct {
	mu    sync.Mutex
	calls int
	fail  bool
	name  string
}

func (g *countingGeocoder) ReverseLookup(ctx context.Context, lat, lon float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fail {
		return "", errors.New("geocoder unreachable")
	}
	return g.name, nil
}

func (g *countingGeocoder) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func newTestResolver(geocoder Geocoder, ttl time.Duration) (*CachedResolver, *time.Time) {
	resolver := NewCachedResolver(geocoder, ttl, zap.NewNop(), nil)
	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	resolver.now = func() time.Time { return now }
	return resolver, &now
}

func TestCachedResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("second call within TTL hits the cache", func(t *testing.T) {
		geocoder := &countingGeocoder{name: "Port of Rotterdam"}
		resolver, _ := newTestResolver(geocoder, time.Hour)

		if got := resolver.Resolve(ctx, 51.9, 4.4); got != "Port of Rotterdam" {
			t.Fatalf("Resolve = %q", got)
		}
		if got := resolver.Resolve(ctx, 51.9, 4.4); got != "Port of Rotterdam" {
			t.Fatalf("Resolve = %q", got)
		}
		if geocoder.callCount() != 1 {
			t.Errorf("lookups = %d, want 1", geocoder.callCount())
		}
	})

	t.Run("expired entry triggers a second lookup", func(t *testing.T) {
		geocoder := &countingGeocoder{name: "Port of Rotterdam"}
		resolver, now := newTestResolver(geocoder, time.Hour)

		resolver.Resolve(ctx, 51.9, 4.4)
		*now = now.Add(time.Hour + time.Second)
		resolver.Resolve(ctx, 51.9, 4.4)

		if geocoder.callCount() != 2 {
			t.Errorf("lookups = %d, want 2", geocoder.callCount())
		}
	})

	t.Run("distinct coordinates are distinct keys", func(t *testing.T) {
		geocoder := &countingGeocoder{name: "somewhere"}
		resolver, _ := newTestResolver(geocoder, time.Hour)

		resolver.Resolve(ctx, 51.9, 4.4)
		resolver.Resolve(ctx, 51.9, 4.5)
		resolver.Resolve(ctx, 51.9, 4.4)

		if geocoder.callCount() != 2 {
			t.Errorf("lookups = %d, want 2", geocoder.callCount())
		}
	})

	t.Run("failure returns sentinel and is not cached", func(t *testing.T) {
		geocoder := &countingGeocoder{name: "Port of Rotterdam", fail: true}
		resolver, _ := newTestResolver(geocoder, time.Hour)

		if got := resolver.Resolve(ctx, 51.9, 4.4); got != UnknownLocation {
			t.Fatalf("failed lookup returned %q, want sentinel", got)
		}

		// recovery: next call retries and the result gets cached
		geocoder.fail = false
		if got := resolver.Resolve(ctx, 51.9, 4.4); got != "Port of Rotterdam" {
			t.Fatalf("Resolve after recovery = %q", got)
		}
		resolver.Resolve(ctx, 51.9, 4.4)
		if geocoder.callCount() != 3 {
			t.Errorf("lookups = %d, want 3 (fail, retry, then cache hit)", geocoder.callCount())
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		geocoder := &countingGeocoder{name: "Port of Rotterdam"}
		resolver := NewCachedResolver(geocoder, time.Hour, zap.NewNop(), nil)

		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				resolver.Resolve(ctx, 51.9, float64(i%4))
			}(i)
		}
		wg.Wait()

		for i := 0; i < 4; i++ {
			if got := resolver.Resolve(ctx, 51.9, float64(i)); got != "Port of Rotterdam" {
				t.Errorf("Resolve(51.9, %d) = %q", i, got)
			}
		}
	})
}

func TestCoordinateKey(t *testing.T) {
	if coordinateKey(51.9, 4.4) == coordinateKey(51.94, 0.4) {
		t.Error("distinct coordinate pairs share a key")
	}
	if coordinateKey(51.9, 4.4) != coordinateKey(51.9, 4.4) {
		t.Error("same pair produced different keys")
	}
}
