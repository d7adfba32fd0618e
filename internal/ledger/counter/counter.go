// Package counter caches the ledger's payment-decision total. Counting is
// expensive on the ledger side, so reads are served from a snapshot that is
// refreshed at most once per freshness window, with concurrent refreshes
// collapsed into one.
package counter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rentflow-decision-ledger/internal/config"
)

// CountFunc returns the live total from the ledger
type CountFunc func(ctx context.Context) (int64, error)

// Store persists the snapshot across restarts. Load returns a zero
// refreshedAt when nothing is stored yet.
type Store interface {
	Load(ctx context.Context) (total int64, refreshedAt time.Time, err error)
	Save(ctx context.Context, total int64, refreshedAt time.Time) error
}

// Counter is the cached total. store may be nil; the cache then lives only in
// memory.
type Counter struct {
	logger *slog.Logger
	count  CountFunc
	store  Store
	ttl    time.Duration

	mu          sync.Mutex
	total       int64
	refreshedAt time.Time
	loaded      bool
	refreshing  chan struct{}
	refreshErr  error // outcome of the last completed refresh, for joiners
}

// New creates a counter over the given live count. store may be nil.
func New(logger *slog.Logger, cfg *config.CounterConfig, count CountFunc, store Store) *Counter {
	return &Counter{
		logger: logger,
		count:  count,
		store:  store,
		ttl:    cfg.CacheTTL,
	}
}

// Total returns the cached total, refreshing from the ledger when the
// snapshot is older than the freshness window. Concurrent callers share one
// refresh. A failed refresh serves the previous snapshot when one exists.
func (c *Counter) Total(ctx context.Context) (int64, error) {
	c.mu.Lock()

	if !c.loaded {
		c.loadFromStore(ctx)
		c.loaded = true
	}
	if time.Since(c.refreshedAt) < c.ttl {
		total := c.total
		c.mu.Unlock()
		return total, nil
	}

	// Stale. Join an in-flight refresh or start one.
	if c.refreshing != nil {
		done := c.refreshing
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		c.mu.Lock()
		total := c.total
		refreshErr := c.refreshErr
		hasSnapshot := !c.refreshedAt.IsZero()
		c.mu.Unlock()
		// A failed refresh still serves the previous snapshot; with no
		// snapshot at all the joiner fails like the refresher did.
		if refreshErr != nil && !hasSnapshot {
			return 0, refreshErr
		}
		return total, nil
	}

	done := make(chan struct{})
	c.refreshing = done
	hadSnapshot := !c.refreshedAt.IsZero()
	stale := c.total
	c.mu.Unlock()

	total, err := c.count(ctx)

	c.mu.Lock()
	c.refreshing = nil
	c.refreshErr = err
	close(done)
	if err != nil {
		c.mu.Unlock()
		if hadSnapshot {
			c.logger.Warn("count refresh failed, serving stale total",
				"stale_total", stale,
				"error", err.Error(),
			)
			return stale, nil
		}
		return 0, err
	}
	c.total = total
	c.refreshedAt = time.Now()
	refreshedAt := c.refreshedAt
	c.mu.Unlock()

	c.persist(ctx, total, refreshedAt)
	return total, nil
}

// Invalidate expires the snapshot so the next read refreshes. Called after
// the client confirms a new record.
func (c *Counter) Invalidate() {
	c.mu.Lock()
	c.refreshedAt = time.Time{}
	c.mu.Unlock()
}

// loadFromStore seeds the snapshot from the persistent cache, holding c.mu
func (c *Counter) loadFromStore(ctx context.Context) {
	if c.store == nil {
		return
	}
	total, refreshedAt, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("failed to load persisted counter snapshot", "error", err.Error())
		return
	}
	c.total = total
	c.refreshedAt = refreshedAt
}

func (c *Counter) persist(ctx context.Context, total int64, refreshedAt time.Time) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, total, refreshedAt); err != nil {
		c.logger.Warn("failed to persist counter snapshot", "error", err.Error())
	}
}
