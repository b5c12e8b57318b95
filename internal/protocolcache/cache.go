// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package protocolcache holds fetched protocol metadata keyed by a derived
// cache key. The whole cache is dropped once it has been idle (no successful
// lookup or store) for the configured window; there is no per-entry TTL and
// no capacity eviction.
package protocolcache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the value for a key that is not cached.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Cache is safe for concurrent use. Fetches run without holding the cache
// lock, so a slow fetch for one key does not block lookups of other keys.
// Without coalescing, two concurrent misses for one key both fetch and the
// later store wins.
type Cache[V any] struct {
	mu           sync.Mutex
	entries      map[string]V
	lastActivity time.Time

	name          string
	idleTimeout   time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	coalesce      bool
	group         singleflight.Group

	attrs     metric.MeasurementOption
	reg       metric.Registration
	sweepMu   sync.Mutex
	sweepers  int
	stopSweep context.CancelFunc
	ll        *slog.Logger
}

// New creates an empty cache.
func New[V any](opts ...Option) *Cache[V] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	attrSet := attribute.NewSet(attribute.String("cache", o.name))
	c := &Cache[V]{
		entries:       make(map[string]V),
		name:          o.name,
		idleTimeout:   o.idleTimeout,
		sweepInterval: o.sweepInterval,
		now:           o.now,
		coalesce:      o.coalesce,
		attrs:         metric.WithAttributeSet(attrSet),
		ll:            o.logger.With(slog.String("component", "protocolcache"), slog.String("cache", o.name)),
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		obs.ObserveInt64(cacheItems, int64(c.Len()), metric.WithAttributeSet(attrSet))
		return nil
	}, cacheItems)
	if err != nil {
		c.ll.Warn("failed to register cache size callback", slog.Any("error", err))
	} else {
		c.reg = reg
	}

	return c
}

// GetOrFetch returns the value stored under key. On a miss it calls fetch,
// stores the result and returns it. A failed fetch stores nothing and its
// error is returned unchanged; the cache never retries.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, fetch FetchFunc[V]) (V, error) {
	if v, ok := c.lookup(key); ok {
		cacheHits.Add(ctx, 1, c.attrs)
		return v, nil
	}
	cacheMisses.Add(ctx, 1, c.attrs)

	var (
		v   V
		err error
	)
	if c.coalesce {
		v, err = c.fetchShared(ctx, key, fetch)
	} else {
		v, err = c.fetchAndStore(ctx, key, fetch)
	}
	if err != nil {
		cacheFetchErrors.Add(ctx, 1, c.attrs)
		var zero V
		return zero, err
	}
	return v, nil
}

func (c *Cache[V]) fetchAndStore(ctx context.Context, key string, fetch FetchFunc[V]) (V, error) {
	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	c.store(key, v)
	return v, nil
}

func (c *Cache[V]) fetchShared(ctx context.Context, key string, fetch FetchFunc[V]) (V, error) {
	res, err, _ := c.group.Do(key, func() (any, error) {
		return c.fetchAndStore(ctx, key, fetch)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := res.(V)
	return v, nil
}

// lookup returns the cached value and marks activity on a hit.
func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.expireLocked(now)
	v, ok := c.entries[key]
	if ok {
		c.lastActivity = now
	}
	return v, ok
}

func (c *Cache[V]) store(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.expireLocked(now)
	c.entries[key] = v
	c.lastActivity = now
}

// expireLocked drops every entry if the cache has been idle for at least
// the idle timeout. c.mu must be held.
func (c *Cache[V]) expireLocked(now time.Time) bool {
	if len(c.entries) == 0 || now.Sub(c.lastActivity) < c.idleTimeout {
		return false
	}
	c.ll.Debug("Protocol cache idle, clearing",
		slog.Int("entries", len(c.entries)),
		slog.Duration("idle", now.Sub(c.lastActivity)))
	c.clearLocked()
	return true
}

func (c *Cache[V]) clearLocked() {
	c.entries = make(map[string]V)
	cacheClears.Add(context.Background(), 1, c.attrs)
}

// Clear empties the cache.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// Len returns the number of entries held in memory. Entries of an idle
// cache are counted until an access or a sweep clears them.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep clears the cache if it is idle and reports whether it did.
func (c *Cache[V]) Sweep() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expireLocked(c.now())
}

// Start keeps a background sweeper running until ctx is done or the
// returned stop function is called, so an idle cache releases its entries
// even if it is never read again. Expiry is also applied on every access,
// so Start is optional. Calls are counted: the sweeper runs while at least
// one Start is active, which lets pipelines sharing a cache start and stop
// it independently. Stopping the last one waits for the sweeper to exit.
func (c *Cache[V]) Start(ctx context.Context) context.CancelFunc {
	c.sweepMu.Lock()
	c.sweepers++
	if c.sweepers == 1 {
		sweepCtx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		c.stopSweep = func() {
			cancel()
			<-done
		}
		go func() {
			defer close(done)
			c.run(sweepCtx)
		}()
	}
	c.sweepMu.Unlock()

	release := sync.OnceFunc(c.releaseSweeper)
	stopAfter := context.AfterFunc(ctx, release)
	return func() {
		stopAfter()
		release()
	}
}

func (c *Cache[V]) releaseSweeper() {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	c.sweepers--
	if c.sweepers == 0 {
		c.stopSweep()
		c.stopSweep = nil
	}
}

func (c *Cache[V]) run(ctx context.Context) {
	c.ll.Debug("Starting protocol cache sweeper", slog.Duration("interval", c.sweepInterval))

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.ll.Debug("Context cancelled, stopping protocol cache sweeper")
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Close unregisters the cache's metrics callback. The cache stays usable.
func (c *Cache[V]) Close() {
	if c.reg != nil {
		if err := c.reg.Unregister(); err != nil {
			c.ll.Warn("failed to unregister cache size callback", slog.Any("error", err))
		}
		c.reg = nil
	}
}

// Name returns the cache label.
func (c *Cache[V]) Name() string {
	return c.name
}

// IdleTimeout returns the configured inactivity window.
func (c *Cache[V]) IdleTimeout() time.Duration {
	return c.idleTimeout
}
