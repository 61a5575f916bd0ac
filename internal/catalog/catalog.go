// Package catalog holds the current station snapshot and its memoized zone
// tessellation.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
	"github.com/couchcryptid/grid-feasibility-service/internal/observability"
)

// Source supplies station data.
type Source interface {
	Load(ctx context.Context) ([]domain.Station, []domain.Substation, error)
}

// ZoneResult is a tessellation tied to the snapshot version it was built from.
type ZoneResult struct {
	Version string
	BuiltAt time.Time
	domain.ZoneSet
}

// Catalog serves immutable snapshots and builds zones at most once per
// snapshot version. It is safe for concurrent use.
type Catalog struct {
	source      Source
	partitioner *domain.Partitioner
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	interval    time.Duration

	snapshot atomic.Pointer[domain.GridSnapshot]

	group singleflight.Group
	mu    sync.Mutex
	zones *ZoneResult
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithReloadInterval makes Run reload the source periodically.
func WithReloadInterval(d time.Duration) Option {
	return func(c *Catalog) { c.interval = d }
}

// WithClock replaces the clock driving the reload ticker and build stamps.
func WithClock(clk clockwork.Clock) Option {
	return func(c *Catalog) { c.clock = clk }
}

// New creates an empty catalog. Call Load before serving.
func New(source Source, partitioner *domain.Partitioner, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Catalog {
	c := &Catalog{
		source:      source,
		partitioner: partitioner,
		logger:      logger,
		metrics:     metrics,
		clock:       clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the source and installs a new snapshot if its content changed.
// It reports whether the snapshot was replaced.
func (c *Catalog) Load(ctx context.Context) (bool, error) {
	stations, subs, err := c.source.Load(ctx)
	if err != nil {
		c.metrics.SnapshotReloads.WithLabelValues("error").Inc()
		return false, fmt.Errorf("load stations: %w", err)
	}
	snap, err := domain.NewSnapshot(stations, subs)
	if err != nil {
		c.metrics.SnapshotReloads.WithLabelValues("error").Inc()
		return false, fmt.Errorf("build snapshot: %w", err)
	}

	if cur := c.snapshot.Load(); cur != nil && cur.Version == snap.Version {
		c.metrics.SnapshotReloads.WithLabelValues("unchanged").Inc()
		return false, nil
	}

	c.snapshot.Store(snap)
	c.metrics.SnapshotReloads.WithLabelValues("changed").Inc()
	c.metrics.StationsLoaded.Set(float64(len(snap.Stations)))
	c.logger.Info("station snapshot installed",
		"version", snap.Version,
		"stations", len(snap.Stations),
		"substations", len(snap.Substations),
	)
	return true, nil
}

// Snapshot returns the current snapshot, or nil before the first Load.
func (c *Catalog) Snapshot() *domain.GridSnapshot {
	return c.snapshot.Load()
}

// Zones returns the tessellation of the current snapshot. Concurrent callers
// share one build per version; the result is cached until the version changes.
func (c *Catalog) Zones(ctx context.Context) (*ZoneResult, error) {
	snap := c.snapshot.Load()
	if snap == nil {
		return nil, domain.ErrNoStationsAvailable
	}

	if cached := c.cached(snap.Version); cached != nil {
		c.metrics.ZoneCache.WithLabelValues("hit").Inc()
		return cached, nil
	}
	c.metrics.ZoneCache.WithLabelValues("miss").Inc()

	ch := c.group.DoChan(snap.Version, func() (any, error) {
		// A build may have finished between the cache check and this call.
		if cached := c.cached(snap.Version); cached != nil {
			return cached, nil
		}
		return c.build(snap)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ZoneResult), nil
	}
}

func (c *Catalog) cached(version string) *ZoneResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.zones != nil && c.zones.Version == version {
		return c.zones
	}
	return nil
}

func (c *Catalog) build(snap *domain.GridSnapshot) (*ZoneResult, error) {
	start := c.clock.Now()
	set, err := c.partitioner.Partition(snap.Stations)
	c.metrics.ZoneBuildDuration.Observe(c.clock.Since(start).Seconds())
	if err != nil {
		c.metrics.ZoneBuilds.WithLabelValues("error").Inc()
		c.logger.Error("zone build failed", "version", snap.Version, "error", err)
		return nil, fmt.Errorf("partition snapshot %s: %w", snap.Version, err)
	}

	res := &ZoneResult{Version: snap.Version, BuiltAt: c.clock.Now().UTC(), ZoneSet: set}
	c.metrics.ZoneBuilds.WithLabelValues("success").Inc()
	c.metrics.Zones.Set(float64(len(set.Zones)))
	c.metrics.ZoneClipFallbacks.Add(float64(set.Fallbacks))
	c.logger.Info("zones built",
		"version", snap.Version,
		"zones", len(set.Zones),
		"stations", set.Stations,
		"dropped", set.Dropped,
		"clip_fallbacks", set.Fallbacks,
	)

	c.mu.Lock()
	// A slower build for an older version must not replace a newer cache entry.
	if cur := c.snapshot.Load(); cur != nil && cur.Version == snap.Version {
		c.zones = res
	}
	c.mu.Unlock()
	return res, nil
}

// Run reloads the source on every tick until ctx is cancelled. Without a
// reload interval it blocks until cancellation.
func (c *Catalog) Run(ctx context.Context) error {
	if c.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("station reload enabled", "interval", c.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			changed, err := c.Load(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				// Keep serving the previous snapshot.
				c.logger.Error("station reload failed", "error", err)
				continue
			}
			if changed {
				c.warm(ctx)
			}
		}
	}
}

// warm builds the zones for a fresh snapshot so the first request does not pay for it.
func (c *Catalog) warm(ctx context.Context) {
	if _, err := c.Zones(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("zone warm-up failed", "error", err)
	}
}

// CheckReadiness reports ready once a snapshot is loaded.
func (c *Catalog) CheckReadiness(_ context.Context) error {
	if c.snapshot.Load() == nil {
		return errors.New("station data not loaded")
	}
	return nil
}
