package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"transmission-api/internal/common/logger"
	"transmission-api/internal/common/metrics"
)

// Options configures a Cache. Zero values are usable: TTL 0 never expires.
type Options struct {
	TTL          time.Duration
	FetchTimeout time.Duration
	// RetryBackoff is how long a stale snapshot is served after a failed
	// refresh before the provider is asked again.
	RetryBackoff time.Duration
	Snapshot     SnapshotStore
	Alerter      Alerter
	Now          func() time.Time
}

type snapshot struct {
	records  []Record
	loadedAt time.Time
	origin   string
}

// Cache holds the current catalog snapshot. The snapshot is replaced as a
// whole and never mutated, so readers need no lock.
type Cache struct {
	provider Provider
	opts     Options
	logger   logger.Logger

	current     atomic.Pointer[snapshot]
	lastFailure atomic.Int64
	group       singleflight.Group
}

func NewCache(provider Provider, opts Options, log logger.Logger) *Cache {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 30 * time.Second
	}
	if opts.Alerter == nil {
		opts.Alerter = NoopAlerter{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		provider: provider,
		opts:     opts,
		logger:   logger.ForComponent(log, "catalog").With(map[string]interface{}{"source": provider.Name()}),
	}
}

// Get returns the catalog, refreshing it when expired. A failed refresh
// falls back to the previous snapshot; with none the error wraps
// ErrCatalogUnavailable.
func (c *Cache) Get(ctx context.Context) ([]Record, error) {
	snap := c.current.Load()
	if snap != nil && (c.fresh(snap) || c.backingOff()) {
		return snap.records, nil
	}

	records, err := c.load(ctx, false)
	if err == nil {
		return records, nil
	}

	if snap != nil {
		metrics.CatalogRefreshes.WithLabelValues("stale").Inc()
		c.logger.Warn("serving stale catalog", map[string]interface{}{
			"error":    err.Error(),
			"loadedAt": snap.loadedAt,
			"records":  len(snap.records),
		})
		return snap.records, nil
	}
	return nil, err
}

// Refresh fetches from the provider now. Concurrent calls share one fetch.
func (c *Cache) Refresh(ctx context.Context) ([]Record, error) {
	return c.load(ctx, true)
}

func (c *Cache) load(ctx context.Context, force bool) ([]Record, error) {
	ch := c.group.DoChan("refresh", func() (interface{}, error) {
		// A caller that lost the race may arrive after a fetch completed.
		if snap := c.current.Load(); !force && snap != nil && c.fresh(snap) {
			return snap.records, nil
		}
		// Detached from the first caller so its cancellation does not fail
		// the other waiters.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FetchTimeout)
		defer cancel()
		return c.refresh(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Record), nil
	}
}

func (c *Cache) refresh(ctx context.Context) ([]Record, error) {
	started := c.opts.Now()
	records, err := c.provider.Fetch(ctx)
	if err == nil && len(records) == 0 {
		err = ErrEmptyCatalog
	}
	if err == nil {
		c.store(records, c.provider.Name())
		c.lastFailure.Store(0)
		metrics.CatalogRefreshes.WithLabelValues("ok").Inc()
		c.logger.Info("catalog refreshed", map[string]interface{}{
			"records":  len(records),
			"duration": c.opts.Now().Sub(started).String(),
		})
		if c.opts.Snapshot != nil {
			if serr := c.opts.Snapshot.Save(ctx, records); serr != nil {
				c.logger.Warn("failed to save catalog snapshot", map[string]interface{}{"error": serr.Error()})
			}
		}
		return records, nil
	}

	metrics.CatalogRefreshes.WithLabelValues("error").Inc()
	c.lastFailure.Store(c.opts.Now().UnixNano())
	c.logger.Error("catalog refresh failed", map[string]interface{}{"error": err.Error()})

	if c.current.Load() == nil {
		if recs, ok := c.loadSnapshot(ctx); ok {
			return recs, nil
		}
		c.opts.Alerter.CatalogUnavailable(ctx, c.provider.Name(), err)
	}
	return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
}

func (c *Cache) loadSnapshot(ctx context.Context) ([]Record, bool) {
	if c.opts.Snapshot == nil {
		return nil, false
	}
	records, err := c.opts.Snapshot.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrSnapshotMissing) {
			c.logger.Warn("failed to load catalog snapshot", map[string]interface{}{"error": err.Error()})
		}
		return nil, false
	}
	c.store(records, "snapshot")
	metrics.CatalogRefreshes.WithLabelValues("snapshot").Inc()
	c.logger.Warn("catalog restored from snapshot", map[string]interface{}{"records": len(records)})
	return records, true
}

func (c *Cache) store(records []Record, origin string) {
	c.current.Store(&snapshot{records: records, loadedAt: c.opts.Now(), origin: origin})
	metrics.CatalogRecords.Set(float64(len(records)))
}

// Invalidate marks the current snapshot expired; the next Get refetches.
func (c *Cache) Invalidate() {
	c.lastFailure.Store(0)
	if snap := c.current.Load(); snap != nil {
		c.current.Store(&snapshot{records: snap.records, origin: snap.origin})
	}
}

// Loaded reports whether any snapshot is available.
func (c *Cache) Loaded() bool {
	return c.current.Load() != nil
}

// Status describes the active snapshot.
type Status struct {
	Records  int       `json:"records"`
	LoadedAt time.Time `json:"loadedAt"`
	Origin   string    `json:"origin"`
}

func (c *Cache) Status() (Status, bool) {
	snap := c.current.Load()
	if snap == nil {
		return Status{}, false
	}
	return Status{Records: len(snap.records), LoadedAt: snap.loadedAt, Origin: snap.origin}, true
}

func (c *Cache) fresh(snap *snapshot) bool {
	if c.opts.TTL <= 0 {
		return !snap.loadedAt.IsZero()
	}
	return c.opts.Now().Sub(snap.loadedAt) < c.opts.TTL
}

func (c *Cache) backingOff() bool {
	failed := c.lastFailure.Load()
	if failed == 0 {
		return false
	}
	return c.opts.Now().Sub(time.Unix(0, failed)) < c.opts.RetryBackoff
}
