package osm

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
	"github.com/couchcryptid/grid-feasibility-service/internal/observability"
)

// CacheOptions bounds the geocoding cache.
type CacheOptions struct {
	MaxEntries int
	Clock      clockwork.Clock

	// TTL is how long a resolved address stays cached.
	TTL time.Duration

	// MissTTL is how long an unresolvable address is remembered. The
	// Nominatim usage policy forbids repeating identical queries. Zero
	// disables negative entries.
	MissTTL time.Duration
}

// CachedGeocoder wraps a Geocoder with a size-bounded LRU keyed by the
// normalized address. Provider errors are never cached.
type CachedGeocoder struct {
	inner   domain.Geocoder
	opts    CacheOptions
	metrics *observability.Metrics

	mu      sync.Mutex
	order   *list.List // front is most recently used
	entries map[string]*list.Element
}

type cacheEntry struct {
	key     string
	result  domain.GeocodingResult
	expires time.Time
}

// NewCachedGeocoder creates a cache decorator around a geocoder. metrics may be nil.
func NewCachedGeocoder(inner domain.Geocoder, opts CacheOptions, metrics *observability.Metrics) *CachedGeocoder {
	opts.MaxEntries = max(1, opts.MaxEntries)
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &CachedGeocoder{
		inner:   inner,
		opts:    opts,
		metrics: metrics,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Geocode implements domain.Geocoder.
func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	key := cacheKey(address)
	if result, ok := c.lookup(key); ok {
		c.count("hit")
		return result, nil
	}
	c.count("miss")

	result, err := c.inner.Geocode(ctx, address)
	if err != nil {
		return result, err
	}

	ttl := c.opts.TTL
	if !result.Found() {
		ttl = c.opts.MissTTL
	}
	if ttl > 0 {
		c.store(key, result, ttl)
	}
	return result, nil
}

// Len returns the number of live and expired entries still held.
func (c *CachedGeocoder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *CachedGeocoder) lookup(key string) (domain.GeocodingResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return domain.GeocodingResult{}, false
	}
	e := el.Value.(*cacheEntry)
	if !c.opts.Clock.Now().Before(e.expires) {
		c.order.Remove(el)
		delete(c.entries, key)
		return domain.GeocodingResult{}, false
	}
	c.order.MoveToFront(el)
	return e.result, true
}

func (c *CachedGeocoder) store(key string, result domain.GeocodingResult, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.opts.Clock.Now().Add(ttl)
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*cacheEntry)
		e.result, e.expires = result, expires
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, result: result, expires: expires})
	if c.order.Len() > c.opts.MaxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *CachedGeocoder) count(result string) {
	if c.metrics != nil {
		c.metrics.GeocodeCache.WithLabelValues(result).Inc()
	}
}

// cacheKey folds case and whitespace so "Allee 1" and " allee  1" share an entry.
func cacheKey(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}
